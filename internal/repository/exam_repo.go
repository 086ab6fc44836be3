package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// ExamFilter narrows exam listings.
type ExamFilter struct {
	Status    string
	SubjectID *uuid.UUID
	Grade     int
	Search    string

	// ExcludeDraft hides exams that are not yet published.
	ExcludeDraft bool
	Pagination
}

// ExamRepository defines data operations for exams.
type ExamRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.Exam, error)
	GetWithQuestions(ctx context.Context, tenantID, id uuid.UUID) (models.Exam, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ExamFilter) ([]models.Exam, int64, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	ReplaceGroups(ctx context.Context, exam *models.Exam, groups []models.Group) error
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status models.ExamStatus) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository instantiates the repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Exam{}).Where("exams.institution_id = ?", tenantID)
}

func (r *examRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.Exam, error) {
	var exam models.Exam
	err := r.scoped(ctx, tenantID).
		Preload("Subject").
		Preload("Groups").
		Where("exams.id = ?", id).
		First(&exam).Error
	return exam, err
}

func (r *examRepository) GetWithQuestions(ctx context.Context, tenantID, id uuid.UUID) (models.Exam, error) {
	var exam models.Exam
	err := r.scoped(ctx, tenantID).
		Preload("Subject").
		Preload("Groups").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC").Order("created_at ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("option_index ASC")
		}).
		Where("exams.id = ?", id).
		First(&exam).Error
	return exam, err
}

func (r *examRepository) List(ctx context.Context, tenantID uuid.UUID, filter ExamFilter) ([]models.Exam, int64, error) {
	query := r.scoped(ctx, tenantID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.Grade > 0 {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.ExcludeDraft {
		query = query.Where("status <> ?", models.ExamStatusDraft)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var exams []models.Exam
	if err := filter.apply(query.Preload("Subject").Order("created_at DESC")).Find(&exams).Error; err != nil {
		return nil, 0, err
	}

	return exams, total, nil
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Omit("Subject", "Questions").Create(exam).Error
}

func (r *examRepository) Update(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(exam).Error
}

func (r *examRepository) ReplaceGroups(ctx context.Context, exam *models.Exam, groups []models.Group) error {
	return r.db.WithContext(ctx).Model(exam).Association("Groups").Replace(groups)
}

func (r *examRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status models.ExamStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Exam{}).
		Where("institution_id = ? AND id = ?", tenantID, id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the exam with its questions, options and group links. Callers that need
// atomicity run it inside Store.Transaction.
func (r *examRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	questionIDs := db.Model(&models.Question{}).Select("id").Where("exam_id = ?", id)

	if err := db.Where("question_id IN (?)", questionIDs).Delete(&models.QuestionOption{}).Error; err != nil {
		return err
	}
	if err := db.Where("exam_id = ?", id).Delete(&models.Question{}).Error; err != nil {
		return err
	}
	if err := db.Exec("DELETE FROM exam_groups WHERE exam_id = ?", id).Error; err != nil {
		return err
	}

	result := db.Where("institution_id = ? AND id = ?", tenantID, id).Delete(&models.Exam{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
