package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// QuestionRepository defines data operations for exam questions. Tenant scoping is
// applied by loading the parent exam first.
type QuestionRepository interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]models.Question, error)
	GetByID(ctx context.Context, examID, id uuid.UUID) (models.Question, error)
	CountByExam(ctx context.Context, examID uuid.UUID) (int64, error)
	SumPoints(ctx context.Context, examID uuid.UUID) (int, error)
	MaxOrderIndex(ctx context.Context, examID uuid.UUID) (int, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question, options []models.QuestionOption) error
	Delete(ctx context.Context, examID, id uuid.UUID) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("option_index ASC")
}

func (r *questionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("exam_id = ?", examID).
		Order("order_index ASC").Order("created_at ASC").
		Find(&questions).Error
	return questions, err
}

func (r *questionRepository) GetByID(ctx context.Context, examID, id uuid.UUID) (models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("exam_id = ? AND id = ?", examID, id).
		First(&question).Error
	return question, err
}

func (r *questionRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Question{}).Where("exam_id = ?", examID).Count(&count).Error
	return count, err
}

func (r *questionRepository) SumPoints(ctx context.Context, examID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&models.Question{}).
		Select("COALESCE(SUM(points), 0)").
		Where("exam_id = ?", examID).
		Scan(&total).Error
	return total, err
}

func (r *questionRepository) MaxOrderIndex(ctx context.Context, examID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.Question{}).
		Select("COALESCE(MAX(order_index), 0)").
		Where("exam_id = ?", examID).
		Scan(&max).Error
	return max, err
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

// Update saves the question fields. When options is non-nil the existing options are replaced.
func (r *questionRepository) Update(ctx context.Context, question *models.Question, options []models.QuestionOption) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Options").Save(question).Error; err != nil {
		return err
	}
	if options == nil {
		return nil
	}

	if err := db.Where("question_id = ?", question.ID).Delete(&models.QuestionOption{}).Error; err != nil {
		return err
	}
	for i := range options {
		options[i].ID = 0
		options[i].QuestionID = question.ID
	}
	if len(options) > 0 {
		if err := db.Create(&options).Error; err != nil {
			return err
		}
	}
	question.Options = options
	return nil
}

func (r *questionRepository) Delete(ctx context.Context, examID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("question_id = ?", id).Delete(&models.QuestionOption{}).Error; err != nil {
		return err
	}
	result := db.Where("exam_id = ? AND id = ?", examID, id).Delete(&models.Question{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
