package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// RecommendationResponse serialises a recommendation.
type RecommendationResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	StudentUserID      uuid.UUID                 `json:"student_user_id"`
	SubjectID          *uuid.UUID                `json:"subject_id"`
	ExamID             *uuid.UUID                `json:"exam_id"`
	Type               models.RecommendationType `json:"recommendation_type"`
	RecommendationText string                    `json:"recommendation_text"`
	Resource           json.RawMessage           `json:"resource"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// RecommendationListResponse wraps a page of recommendations.
type RecommendationListResponse struct {
	Items      []RecommendationResponse `json:"items"`
	Pagination PaginationMeta           `json:"pagination"`
}

// NewRecommendationResponse maps a recommendation.
func NewRecommendationResponse(rec models.AiRecommendation) RecommendationResponse {
	resource := json.RawMessage("null")
	if len(rec.Resource) > 0 {
		resource = json.RawMessage(rec.Resource)
	}
	return RecommendationResponse{
		ID:                 rec.ID,
		StudentUserID:      rec.StudentUserID,
		SubjectID:          rec.SubjectID,
		ExamID:             rec.ExamID,
		Type:               rec.Type,
		RecommendationText: rec.RecommendationText,
		Resource:           resource,
		CreatedAt:          rec.CreatedAt,
	}
}

// NewRecommendationResponses maps a slice, never returning nil.
func NewRecommendationResponses(recs []models.AiRecommendation) []RecommendationResponse {
	out := make([]RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, NewRecommendationResponse(rec))
	}
	return out
}
