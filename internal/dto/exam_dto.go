package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// ExamCreateRequest describes a new exam. It is created as draft.
type ExamCreateRequest struct {
	SubjectID                  *string    `json:"subject_id" validate:"omitempty,uuid"`
	Title                      string     `json:"title" validate:"required,min=3,max=150"`
	Instructions               string     `json:"instructions" validate:"omitempty,max=5000"`
	DurationMinutes            int        `json:"duration_minutes" validate:"required,min=1,max=300"`
	Grade                      int        `json:"grade" validate:"required,min=7,max=12"`
	MaxAttempts                *int       `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	ShowResultsImmediately     *bool      `json:"show_results_immediately"`
	AllowReviewAfterSubmission *bool      `json:"allow_review_after_submission"`
	RandomizeQuestions         *bool      `json:"randomize_questions"`
	AvailableFrom              *time.Time `json:"available_from"`
	AvailableUntil             *time.Time `json:"available_until"`
	GroupIDs                   []string   `json:"group_ids" validate:"omitempty,dive,uuid"`
}

// ExamUpdateRequest changes exam settings. Nil fields are left untouched.
type ExamUpdateRequest struct {
	SubjectID                  *string    `json:"subject_id" validate:"omitempty,uuid"`
	Title                      *string    `json:"title" validate:"omitempty,min=3,max=150"`
	Instructions               *string    `json:"instructions" validate:"omitempty,max=5000"`
	DurationMinutes            *int       `json:"duration_minutes" validate:"omitempty,min=1,max=300"`
	Grade                      *int       `json:"grade" validate:"omitempty,min=7,max=12"`
	MaxAttempts                *int       `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	ShowResultsImmediately     *bool      `json:"show_results_immediately"`
	AllowReviewAfterSubmission *bool      `json:"allow_review_after_submission"`
	RandomizeQuestions         *bool      `json:"randomize_questions"`
	AvailableFrom              *time.Time `json:"available_from"`
	AvailableUntil             *time.Time `json:"available_until"`
	GroupIDs                   []string   `json:"group_ids" validate:"omitempty,dive,uuid"`
}

// ExamStatusRequest requests a lifecycle transition.
type ExamStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published active completed"`
}

// ExamListRequest defines filters for listing exams.
type ExamListRequest struct {
	Status    string
	SubjectID string
	Grade     int
	Search    string
	Page      int
	PageSize  int
}

// ExamResponse serialises an exam.
type ExamResponse struct {
	ID                         uuid.UUID          `json:"id"`
	SubjectID                  *uuid.UUID         `json:"subject_id"`
	SubjectName                string             `json:"subject_name,omitempty"`
	TeacherID                  uuid.UUID          `json:"teacher_id"`
	Title                      string             `json:"title"`
	Instructions               string             `json:"instructions"`
	DurationMinutes            int                `json:"duration_minutes"`
	Grade                      int                `json:"grade"`
	Status                     models.ExamStatus  `json:"status"`
	MaxAttempts                int                `json:"max_attempts"`
	ShowResultsImmediately     bool               `json:"show_results_immediately"`
	AllowReviewAfterSubmission bool               `json:"allow_review_after_submission"`
	RandomizeQuestions         bool               `json:"randomize_questions"`
	AvailableFrom              *time.Time         `json:"available_from"`
	AvailableUntil             *time.Time         `json:"available_until"`
	GroupIDs                   []uuid.UUID        `json:"group_ids"`
	TotalPoints                int                `json:"total_points"`
	Questions                  []QuestionResponse `json:"questions,omitempty"`
	CreatedAt                  time.Time          `json:"created_at"`
	UpdatedAt                  time.Time          `json:"updated_at"`
}

// ExamListResponse wraps a page of exams.
type ExamListResponse struct {
	Items      []ExamResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewExamResponse maps an exam. revealAnswers controls whether correct options are exposed.
func NewExamResponse(exam models.Exam, revealAnswers bool) ExamResponse {
	resp := ExamResponse{
		ID:                         exam.ID,
		SubjectID:                  exam.SubjectID,
		TeacherID:                  exam.TeacherID,
		Title:                      exam.Title,
		Instructions:               exam.Instructions,
		DurationMinutes:            exam.DurationMinutes,
		Grade:                      exam.Grade,
		Status:                     exam.Status,
		MaxAttempts:                exam.AttemptLimit(),
		ShowResultsImmediately:     exam.ShowResultsImmediately,
		AllowReviewAfterSubmission: exam.AllowReviewAfterSubmission,
		RandomizeQuestions:         exam.RandomizeQuestions,
		AvailableFrom:              exam.AvailableFrom,
		AvailableUntil:             exam.AvailableUntil,
		GroupIDs:                   make([]uuid.UUID, 0, len(exam.Groups)),
		CreatedAt:                  exam.CreatedAt,
		UpdatedAt:                  exam.UpdatedAt,
	}
	if exam.Subject != nil {
		resp.SubjectName = exam.Subject.Name
	}
	for _, group := range exam.Groups {
		resp.GroupIDs = append(resp.GroupIDs, group.ID)
	}
	for _, question := range exam.Questions {
		resp.TotalPoints += question.Points
		resp.Questions = append(resp.Questions, NewQuestionResponse(question, revealAnswers))
	}
	return resp
}
