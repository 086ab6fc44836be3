package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// AttemptRepository defines data operations for exam attempts.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.ExamAttempt, error)
	GetDetailed(ctx context.Context, tenantID, id uuid.UUID) (models.ExamAttempt, error)
	FindOpen(ctx context.Context, tenantID, examID, studentID uuid.UUID, attemptNumber int) (models.ExamAttempt, error)
	CountSubmitted(ctx context.Context, tenantID, examID, studentID uuid.UUID) (int64, error)
	ListByExam(ctx context.Context, tenantID, examID uuid.UUID, studentID *uuid.UUID) ([]models.ExamAttempt, error)
	ListSubmittedForSubject(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) ([]models.ExamAttempt, error)
	ListSubmittedForStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]models.ExamAttempt, error)
	ClaimForSubmission(ctx context.Context, tenantID, id uuid.UUID, submittedAt time.Time) (bool, error)
	UpdateScore(ctx context.Context, tenantID, id uuid.UUID, score, maxScore float64, status models.GradeStatus) error
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates the repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	return r.db.WithContext(ctx).Omit("Exam", "Answers").Create(attempt).Error
}

func (r *attemptRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND id = ?", tenantID, id).
		First(&attempt).Error
	return attempt, err
}

func (r *attemptRepository) GetDetailed(ctx context.Context, tenantID, id uuid.UUID) (models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.db.WithContext(ctx).
		Preload("Exam").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("answered_at ASC") }).
		Preload("Answers.Question").
		Preload("Answers.Question.Options", orderedOptions).
		Preload("Answers.SelectedOptions").
		Where("institution_id = ? AND id = ?", tenantID, id).
		First(&attempt).Error
	return attempt, err
}

func (r *attemptRepository) FindOpen(ctx context.Context, tenantID, examID, studentID uuid.UUID, attemptNumber int) (models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND exam_id = ? AND student_user_id = ?", tenantID, examID, studentID).
		Where("attempt_number = ? AND submitted_at IS NULL", attemptNumber).
		First(&attempt).Error
	return attempt, err
}

func (r *attemptRepository) CountSubmitted(ctx context.Context, tenantID, examID, studentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("institution_id = ? AND exam_id = ? AND student_user_id = ?", tenantID, examID, studentID).
		Where("submitted_at IS NOT NULL").
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) ListByExam(ctx context.Context, tenantID, examID uuid.UUID, studentID *uuid.UUID) ([]models.ExamAttempt, error) {
	query := r.db.WithContext(ctx).
		Where("institution_id = ? AND exam_id = ?", tenantID, examID)
	if studentID != nil {
		query = query.Where("student_user_id = ?", *studentID)
	}

	var attempts []models.ExamAttempt
	err := query.Order("student_user_id ASC").Order("attempt_number ASC").Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) ListSubmittedForSubject(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) ([]models.ExamAttempt, error) {
	var attempts []models.ExamAttempt
	err := r.db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Select("exam_attempts.*").
		Joins("JOIN exams ON exams.id = exam_attempts.exam_id").
		Where("exam_attempts.institution_id = ? AND exam_attempts.student_user_id = ?", tenantID, studentID).
		Where("exams.subject_id = ?", subjectID).
		Where("exam_attempts.submitted_at IS NOT NULL").
		Order("exam_attempts.submitted_at ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) ListSubmittedForStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]models.ExamAttempt, error) {
	var attempts []models.ExamAttempt
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND student_user_id = ? AND submitted_at IS NOT NULL", tenantID, studentID).
		Order("submitted_at ASC").
		Find(&attempts).Error
	return attempts, err
}

// ClaimForSubmission stamps submitted_at only when the attempt is still open. It reports
// false when another submission already claimed the attempt.
func (r *attemptRepository) ClaimForSubmission(ctx context.Context, tenantID, id uuid.UUID, submittedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("institution_id = ? AND id = ? AND submitted_at IS NULL", tenantID, id).
		Update("submitted_at", submittedAt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *attemptRepository) UpdateScore(ctx context.Context, tenantID, id uuid.UUID, score, maxScore float64, status models.GradeStatus) error {
	return r.db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("institution_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"score":        score,
			"max_score":    maxScore,
			"grade_status": status,
		}).Error
}
