package dto

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// SubmitAnswerItem is one entry of a submission. Choice questions carry one selected option id,
// short answer questions carry answer_text.
type SubmitAnswerItem struct {
	QuestionID        string  `json:"question_id" validate:"required,uuid"`
	AnswerText        *string `json:"answer_text"`
	SelectedOptionIDs []uint  `json:"selected_option_ids"`
}

// SubmitAttemptRequest is the body of the submit endpoint.
type SubmitAttemptRequest struct {
	Answers []SubmitAnswerItem `json:"answers" validate:"required,dive"`
}

// AttemptResponse serialises an exam attempt. Score fields are omitted when results are hidden.
type AttemptResponse struct {
	ID            uuid.UUID          `json:"id"`
	ExamID        uuid.UUID          `json:"exam_id"`
	StudentUserID uuid.UUID          `json:"student_user_id"`
	AttemptNumber int                `json:"attempt_number"`
	StartedAt     time.Time          `json:"started_at"`
	SubmittedAt   *time.Time         `json:"submitted_at"`
	GradeStatus   models.GradeStatus `json:"grade_status"`
	Score         *float64           `json:"score,omitempty"`
	MaxScore      *float64           `json:"max_score,omitempty"`
	Percentage    *float64           `json:"percentage,omitempty"`
	DisplayScore  string             `json:"display_score,omitempty"`
	Answers       []AnswerResponse   `json:"answers,omitempty"`
}

// AnswerResponse serialises a graded answer.
type AnswerResponse struct {
	ID                uuid.UUID           `json:"id"`
	QuestionID        uuid.UUID           `json:"question_id"`
	QuestionText      string              `json:"question_text,omitempty"`
	QuestionType      models.QuestionType `json:"question_type,omitempty"`
	QuestionPoints    int                 `json:"question_points,omitempty"`
	AnswerText        *string             `json:"answer_text"`
	SelectedOptionIDs []uint              `json:"selected_option_ids"`
	IsCorrect         *bool               `json:"is_correct,omitempty"`
	PointsAwarded     *float64            `json:"points_awarded,omitempty"`
	ReviewStatus      models.ReviewStatus `json:"review_status"`
	Explanation       *string             `json:"explanation,omitempty"`
	AnsweredAt        time.Time           `json:"answered_at"`
}

// SubmitAttemptResponse is returned after a successful submission.
type SubmitAttemptResponse struct {
	Attempt         AttemptResponse          `json:"attempt"`
	DisplayScore    string                   `json:"display_score"`
	Percentage      float64                  `json:"percentage"`
	Progress        *ProgressResponse        `json:"progress"`
	Recommendations []RecommendationResponse `json:"recommendations"`
}

// NewAttemptResponse maps an attempt. When withScores is false score fields stay empty.
func NewAttemptResponse(attempt models.ExamAttempt, withScores bool) AttemptResponse {
	resp := AttemptResponse{
		ID:            attempt.ID,
		ExamID:        attempt.ExamID,
		StudentUserID: attempt.StudentUserID,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
		SubmittedAt:   attempt.SubmittedAt,
		GradeStatus:   attempt.GradeStatus,
	}
	if withScores {
		score := attempt.Score
		maxScore := attempt.MaxScore
		percentage := attempt.Percentage()
		resp.Score = &score
		resp.MaxScore = &maxScore
		resp.Percentage = &percentage
		resp.DisplayScore = attempt.DisplayScore()
	}

	if len(attempt.Answers) > 0 {
		answers := append([]models.StudentAnswer(nil), attempt.Answers...)
		sort.SliceStable(answers, func(i, j int) bool {
			return questionOrder(answers[i]) < questionOrder(answers[j])
		})
		resp.Answers = make([]AnswerResponse, 0, len(answers))
		for _, answer := range answers {
			resp.Answers = append(resp.Answers, NewAnswerResponse(answer, withScores))
		}
	}
	return resp
}

func questionOrder(answer models.StudentAnswer) int {
	if answer.Question == nil {
		return 0
	}
	return answer.Question.OrderIndex
}

// NewAnswerResponse maps a student answer.
func NewAnswerResponse(answer models.StudentAnswer, withScores bool) AnswerResponse {
	resp := AnswerResponse{
		ID:                answer.ID,
		QuestionID:        answer.QuestionID,
		AnswerText:        answer.AnswerText,
		SelectedOptionIDs: make([]uint, 0, len(answer.SelectedOptions)),
		ReviewStatus:      answer.ReviewStatus,
		AnsweredAt:        answer.AnsweredAt,
	}
	for _, link := range answer.SelectedOptions {
		resp.SelectedOptionIDs = append(resp.SelectedOptionIDs, link.QuestionOptionID)
	}
	if answer.Question != nil {
		resp.QuestionText = answer.Question.Text
		resp.QuestionType = answer.Question.Type
		resp.QuestionPoints = answer.Question.Points
	}
	if withScores {
		isCorrect := answer.IsCorrect
		points := answer.PointsAwarded
		resp.IsCorrect = &isCorrect
		resp.PointsAwarded = &points
		resp.Explanation = answer.Explanation
	}
	return resp
}
