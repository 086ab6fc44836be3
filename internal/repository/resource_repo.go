package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// StudyResourceRepository reads the study resource catalog.
type StudyResourceRepository interface {
	Latest(ctx context.Context, tenantID uuid.UUID) (models.StudyResource, error)
}

type studyResourceRepository struct {
	db *gorm.DB
}

// NewStudyResourceRepository instantiates the repository.
func NewStudyResourceRepository(db *gorm.DB) StudyResourceRepository {
	return &studyResourceRepository{db: db}
}

func (r *studyResourceRepository) Latest(ctx context.Context, tenantID uuid.UUID) (models.StudyResource, error) {
	var resource models.StudyResource
	err := r.db.WithContext(ctx).
		Where("institution_id = ?", tenantID).
		Order("created_at DESC").
		First(&resource).Error
	return resource, err
}
