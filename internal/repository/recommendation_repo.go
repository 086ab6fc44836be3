package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// RecommendationFilter narrows recommendation listings.
type RecommendationFilter struct {
	StudentID *uuid.UUID
	SubjectID *uuid.UUID
	ExamID    *uuid.UUID
	Type      string
	Pagination
}

// RecommendationRepository stores the append-only recommendation log.
type RecommendationRepository interface {
	Create(ctx context.Context, recommendations []models.AiRecommendation) error
	List(ctx context.Context, tenantID uuid.UUID, filter RecommendationFilter) ([]models.AiRecommendation, int64, error)
}

type recommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository instantiates the repository.
func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) Create(ctx context.Context, recommendations []models.AiRecommendation) error {
	if len(recommendations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&recommendations).Error
}

func (r *recommendationRepository) List(ctx context.Context, tenantID uuid.UUID, filter RecommendationFilter) ([]models.AiRecommendation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AiRecommendation{}).Where("institution_id = ?", tenantID)
	if filter.StudentID != nil {
		query = query.Where("student_user_id = ?", *filter.StudentID)
	}
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.ExamID != nil {
		query = query.Where("exam_id = ?", *filter.ExamID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AiRecommendation
	if err := filter.apply(query.Order("created_at DESC")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
