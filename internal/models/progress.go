package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentProgress is the mastery percentage of a student in one subject. One row per pair.
type StudentProgress struct {
	StudentUserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"student_user_id"`
	SubjectID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"subject_id"`
	InstitutionID     uuid.UUID `gorm:"type:uuid;index;not null" json:"institution_id"`
	MasteryPercentage float64   `gorm:"type:decimal(5,2);not null;default:0" json:"mastery_percentage"`
	UpdatedAt         time.Time `json:"updated_at"`
	Subject           *Subject  `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

// TableName keeps the table name singular-per-pair explicit.
func (StudentProgress) TableName() string {
	return "student_progress"
}
