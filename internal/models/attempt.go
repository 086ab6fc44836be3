package models

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// GradeStatus tracks whether an attempt has been scored.
type GradeStatus string

const (
	GradeStatusPending   GradeStatus = "pending"
	GradeStatusCompleted GradeStatus = "completed"
)

// ReviewStatus distinguishes auto-graded answers from those awaiting or given a human review.
type ReviewStatus string

const (
	ReviewAutoGraded  ReviewStatus = "auto_graded"
	ReviewNeedsReview ReviewStatus = "needs_review"
	ReviewReviewed    ReviewStatus = "reviewed"
)

// ExamAttempt is one student's run through an exam.
type ExamAttempt struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID uuid.UUID       `gorm:"type:uuid;index;not null" json:"institution_id"`
	ExamID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_number" json:"exam_id"`
	StudentUserID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_number;index" json:"student_user_id"`
	AttemptNumber int             `gorm:"not null;uniqueIndex:idx_attempt_number" json:"attempt_number"`
	StartedAt     time.Time       `gorm:"not null" json:"started_at"`
	SubmittedAt   *time.Time      `gorm:"index" json:"submitted_at"`
	Score         float64         `gorm:"type:decimal(8,2);not null;default:0" json:"score"`
	MaxScore      float64         `gorm:"type:decimal(8,2);not null;default:0" json:"max_score"`
	GradeStatus   GradeStatus     `gorm:"size:16;not null;default:pending" json:"grade_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Exam          *Exam           `gorm:"constraint:OnDelete:CASCADE" json:"exam,omitempty"`
	Answers       []StudentAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

// IsSubmitted reports whether the attempt has been finalised.
func (a ExamAttempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

// Percentage is score over max score, rounded to two decimals. Zero when max score is zero.
func (a ExamAttempt) Percentage() float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return Round2(a.Score / a.MaxScore * 100)
}

// DisplayScore renders "score/max (pct%)" without trailing zeros.
func (a ExamAttempt) DisplayScore() string {
	return fmt.Sprintf("%s/%s (%s%%)", trimFloat(a.Score), trimFloat(a.MaxScore), trimFloat(a.Percentage()))
}

// StudentAnswer is the graded response to one question of an attempt.
type StudentAnswer struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID       uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID      uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question" json:"question_id"`
	AnswerText      *string               `gorm:"type:text" json:"answer_text"`
	IsCorrect       bool                  `gorm:"not null;default:false" json:"is_correct"`
	PointsAwarded   float64               `gorm:"type:decimal(8,2);not null;default:0" json:"points_awarded"`
	ReviewStatus    ReviewStatus          `gorm:"size:16;not null" json:"review_status"`
	Explanation     *string               `gorm:"type:text" json:"explanation"`
	AnsweredAt      time.Time             `json:"answered_at"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Question        *Question             `gorm:"constraint:OnDelete:CASCADE" json:"question,omitempty"`
	Attempt         *ExamAttempt          `gorm:"foreignKey:AttemptID" json:"-"`
	SelectedOptions []StudentAnswerOption `gorm:"foreignKey:StudentAnswerID;constraint:OnDelete:CASCADE" json:"selected_options,omitempty"`
}

// StudentAnswerOption records an option picked by a choice answer.
type StudentAnswerOption struct {
	StudentAnswerID  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"student_answer_id"`
	QuestionOptionID uint            `gorm:"primaryKey" json:"question_option_id"`
	Option           *QuestionOption `gorm:"foreignKey:QuestionOptionID" json:"option,omitempty"`
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', -1, 64)
}
