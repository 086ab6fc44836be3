package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// ProgressResponse serialises a subject mastery row.
type ProgressResponse struct {
	StudentUserID     uuid.UUID `json:"student_user_id"`
	SubjectID         uuid.UUID `json:"subject_id"`
	SubjectName       string    `json:"subject_name,omitempty"`
	MasteryPercentage float64   `json:"mastery_percentage"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProgressListResponse wraps a page of progress rows.
type ProgressListResponse struct {
	Items      []ProgressResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewProgressResponse maps a progress row.
func NewProgressResponse(progress models.StudentProgress) ProgressResponse {
	resp := ProgressResponse{
		StudentUserID:     progress.StudentUserID,
		SubjectID:         progress.SubjectID,
		MasteryPercentage: progress.MasteryPercentage,
		UpdatedAt:         progress.UpdatedAt,
	}
	if progress.Subject != nil {
		resp.SubjectName = progress.Subject.Name
	}
	return resp
}
