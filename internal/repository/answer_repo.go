package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// AnswerTotals aggregates the answers of one attempt.
type AnswerTotals struct {
	Score    float64
	MaxScore float64
}

// AnswerRepository defines data operations for student answers.
type AnswerRepository interface {
	CreateBatch(ctx context.Context, answers []models.StudentAnswer) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.StudentAnswer, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.StudentAnswer, error)
	CountByAttempt(ctx context.Context, attemptID uuid.UUID) (int64, error)
	UpdateReview(ctx context.Context, answer *models.StudentAnswer) error
	Totals(ctx context.Context, attemptID uuid.UUID) (AnswerTotals, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates the repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

// CreateBatch inserts the answers and the option links they carry.
func (r *answerRepository) CreateBatch(ctx context.Context, answers []models.StudentAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Omit("SelectedOptions", "Question", "Attempt").Create(&answers).Error; err != nil {
		return err
	}

	var links []models.StudentAnswerOption
	for _, answer := range answers {
		for _, link := range answer.SelectedOptions {
			links = append(links, models.StudentAnswerOption{
				StudentAnswerID:  answer.ID,
				QuestionOptionID: link.QuestionOptionID,
			})
		}
	}
	if len(links) == 0 {
		return nil
	}
	return db.Omit("Option").Create(&links).Error
}

func (r *answerRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.StudentAnswer, error) {
	var answer models.StudentAnswer
	err := r.db.WithContext(ctx).Model(&models.StudentAnswer{}).
		Select("student_answers.*").
		Joins("JOIN exam_attempts ON exam_attempts.id = student_answers.attempt_id").
		Where("exam_attempts.institution_id = ? AND student_answers.id = ?", tenantID, id).
		Preload("Question").
		Preload("Attempt").
		Preload("Attempt.Exam").
		First(&answer).Error
	return answer, err
}

func (r *answerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.StudentAnswer, error) {
	var answers []models.StudentAnswer
	err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("SelectedOptions").
		Where("attempt_id = ?", attemptID).
		Order("answered_at ASC").
		Find(&answers).Error
	return answers, err
}

func (r *answerRepository) CountByAttempt(ctx context.Context, attemptID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StudentAnswer{}).Where("attempt_id = ?", attemptID).Count(&count).Error
	return count, err
}

func (r *answerRepository) UpdateReview(ctx context.Context, answer *models.StudentAnswer) error {
	return r.db.WithContext(ctx).Model(&models.StudentAnswer{}).
		Where("id = ?", answer.ID).
		Updates(map[string]interface{}{
			"is_correct":     answer.IsCorrect,
			"points_awarded": answer.PointsAwarded,
			"review_status":  answer.ReviewStatus,
			"explanation":    answer.Explanation,
		}).Error
}

// Totals sums the awarded points of an attempt's answers and the points of the questions they answer.
func (r *answerRepository) Totals(ctx context.Context, attemptID uuid.UUID) (AnswerTotals, error) {
	var totals AnswerTotals
	err := r.db.WithContext(ctx).Model(&models.StudentAnswer{}).
		Select("COALESCE(SUM(student_answers.points_awarded), 0) AS score, COALESCE(SUM(questions.points), 0) AS max_score").
		Joins("JOIN questions ON questions.id = student_answers.question_id").
		Where("student_answers.attempt_id = ?", attemptID).
		Scan(&totals).Error
	return totals, err
}
