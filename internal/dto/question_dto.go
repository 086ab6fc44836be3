package dto

import (
	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// QuestionOptionRequest describes one option of a choice question.
type QuestionOptionRequest struct {
	Text      string `json:"option_text" validate:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionCreateRequest describes a new question.
type QuestionCreateRequest struct {
	Text              string                  `json:"question_text" validate:"required,max=5000"`
	Type              string                  `json:"question_type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Points            int                     `json:"points" validate:"required,min=1,max=10"`
	OrderIndex        *int                    `json:"order_index" validate:"omitempty,min=0"`
	CorrectAnswerText *string                 `json:"correct_answer_text" validate:"omitempty,max=1000"`
	Options           []QuestionOptionRequest `json:"options" validate:"omitempty,max=4,dive"`
}

// QuestionUpdateRequest changes a question. Options, when present, replace the current set.
type QuestionUpdateRequest struct {
	Text              *string                 `json:"question_text" validate:"omitempty,max=5000"`
	Type              *string                 `json:"question_type" validate:"omitempty,oneof=multiple_choice true_false short_answer"`
	Points            *int                    `json:"points" validate:"omitempty,min=1,max=10"`
	OrderIndex        *int                    `json:"order_index" validate:"omitempty,min=0"`
	CorrectAnswerText *string                 `json:"correct_answer_text" validate:"omitempty,max=1000"`
	Options           []QuestionOptionRequest `json:"options" validate:"omitempty,max=4,dive"`
}

// QuestionResponse serialises a question.
type QuestionResponse struct {
	ID                uuid.UUID                `json:"id"`
	ExamID            uuid.UUID                `json:"exam_id"`
	Text              string                   `json:"question_text"`
	Type              models.QuestionType      `json:"question_type"`
	Points            int                      `json:"points"`
	OrderIndex        int                      `json:"order_index"`
	CorrectAnswerText *string                  `json:"correct_answer_text,omitempty"`
	Options           []QuestionOptionResponse `json:"options"`
}

// QuestionOptionResponse serialises an option. IsCorrect is hidden from students.
type QuestionOptionResponse struct {
	ID          uint   `json:"id"`
	OptionIndex int    `json:"option_index"`
	Text        string `json:"option_text"`
	IsCorrect   *bool  `json:"is_correct,omitempty"`
}

// NewQuestionResponse maps a question.
func NewQuestionResponse(question models.Question, revealAnswers bool) QuestionResponse {
	resp := QuestionResponse{
		ID:         question.ID,
		ExamID:     question.ExamID,
		Text:       question.Text,
		Type:       question.Type,
		Points:     question.Points,
		OrderIndex: question.OrderIndex,
		Options:    make([]QuestionOptionResponse, 0, len(question.Options)),
	}
	if revealAnswers {
		resp.CorrectAnswerText = question.CorrectAnswerText
	}
	for _, opt := range question.Options {
		option := QuestionOptionResponse{ID: opt.ID, OptionIndex: opt.OptionIndex, Text: opt.Text}
		if revealAnswers {
			correct := opt.IsCorrect
			option.IsCorrect = &correct
		}
		resp.Options = append(resp.Options, option)
	}
	return resp
}

// ToQuestionOptions converts option requests to models, indexing them in order.
func ToQuestionOptions(options []QuestionOptionRequest) []models.QuestionOption {
	if options == nil {
		return nil
	}
	out := make([]models.QuestionOption, 0, len(options))
	for i, opt := range options {
		out = append(out, models.QuestionOption{OptionIndex: i, Text: opt.Text, IsCorrect: opt.IsCorrect})
	}
	return out
}
