package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType identifies how a question is answered and graded.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Valid reports whether the type is supported.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer:
		return true
	}
	return false
}

// IsChoice reports whether the question is answered by picking an option.
func (t QuestionType) IsChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// RequiredOptions returns how many options a question of this type must carry.
func (t QuestionType) RequiredOptions() int {
	switch t {
	case QuestionMultipleChoice:
		return 4
	case QuestionTrueFalse:
		return 2
	}
	return 0
}

// Question belongs to an exam. Choice questions own their options.
type Question struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ExamID            uuid.UUID        `gorm:"type:uuid;index;not null" json:"exam_id"`
	Text              string           `gorm:"type:text;not null" json:"question_text"`
	Type              QuestionType     `gorm:"size:24;not null" json:"question_type"`
	Points            int              `gorm:"not null" json:"points"`
	OrderIndex        int              `gorm:"not null;default:0" json:"order_index"`
	CorrectAnswerText *string          `gorm:"type:text" json:"correct_answer_text,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Options           []QuestionOption `gorm:"constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

// CorrectOption returns the option flagged as correct, if any.
func (q Question) CorrectOption() (QuestionOption, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return QuestionOption{}, false
}

// HasOption reports whether id names one of the question's options.
func (q Question) HasOption(id uint) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// QuestionOption is one selectable answer of a choice question.
type QuestionOption struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	QuestionID  uuid.UUID `gorm:"type:uuid;index;not null" json:"question_id"`
	OptionIndex int       `gorm:"not null" json:"option_index"`
	Text        string    `gorm:"type:text;not null" json:"option_text"`
	IsCorrect   bool      `gorm:"not null;default:false" json:"is_correct"`
}
