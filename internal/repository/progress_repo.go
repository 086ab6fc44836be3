package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// ProgressFilter narrows progress listings.
type ProgressFilter struct {
	StudentID *uuid.UUID
	SubjectID *uuid.UUID
	Pagination
}

// ProgressRepository defines data operations for subject mastery rows.
type ProgressRepository interface {
	Upsert(ctx context.Context, progress *models.StudentProgress) error
	Get(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) (models.StudentProgress, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ProgressFilter) ([]models.StudentProgress, int64, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates the repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// Upsert writes the single row for (student, subject), overwriting any previous value.
func (r *progressRepository) Upsert(ctx context.Context, progress *models.StudentProgress) error {
	return r.db.WithContext(ctx).Omit("Subject").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_user_id"}, {Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mastery_percentage", "updated_at", "institution_id"}),
	}).Create(progress).Error
}

func (r *progressRepository) Get(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) (models.StudentProgress, error) {
	var progress models.StudentProgress
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("institution_id = ? AND student_user_id = ? AND subject_id = ?", tenantID, studentID, subjectID).
		First(&progress).Error
	return progress, err
}

func (r *progressRepository) List(ctx context.Context, tenantID uuid.UUID, filter ProgressFilter) ([]models.StudentProgress, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentProgress{}).Where("institution_id = ?", tenantID)
	if filter.StudentID != nil {
		query = query.Where("student_user_id = ?", *filter.StudentID)
	}
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StudentProgress
	if err := filter.apply(query.Preload("Subject").Order("updated_at DESC")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
