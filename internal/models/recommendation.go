package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RecommendationType classifies a study recommendation.
type RecommendationType string

const (
	RecommendationStrength RecommendationType = "strength"
	RecommendationWeakness RecommendationType = "weakness"
	RecommendationAction   RecommendationType = "action"
	RecommendationResource RecommendationType = "resource"
)

// Valid reports whether the type is known.
func (t RecommendationType) Valid() bool {
	switch t {
	case RecommendationStrength, RecommendationWeakness, RecommendationAction, RecommendationResource:
		return true
	}
	return false
}

// AiRecommendation is an append-only study suggestion for a student.
type AiRecommendation struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID      uuid.UUID          `gorm:"type:uuid;index;not null" json:"institution_id"`
	StudentUserID      uuid.UUID          `gorm:"type:uuid;index;not null" json:"student_user_id"`
	SubjectID          *uuid.UUID         `gorm:"type:uuid;index" json:"subject_id"`
	ExamID             *uuid.UUID         `gorm:"type:uuid;index" json:"exam_id"`
	Type               RecommendationType `gorm:"size:16;not null" json:"recommendation_type"`
	RecommendationText string             `gorm:"type:text;not null" json:"recommendation_text"`
	Resource           datatypes.JSON     `json:"resource"`
	CreatedAt          time.Time          `gorm:"index" json:"created_at"`
}

// ResourcePayload is the structured study resource attached to a resource recommendation.
type ResourcePayload struct {
	Title             string       `json:"title"`
	Type              ResourceType `json:"type"`
	URL               string       `json:"url"`
	Difficulty        string       `json:"difficulty"`
	EstimatedDuration int          `json:"estimated_duration"`
}
