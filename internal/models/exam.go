package models

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus is the lifecycle state of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusPublished ExamStatus = "published"
	ExamStatusActive    ExamStatus = "active"
	ExamStatusCompleted ExamStatus = "completed"
)

var examTransitions = map[ExamStatus][]ExamStatus{
	ExamStatusDraft:     {ExamStatusPublished},
	ExamStatusPublished: {ExamStatusActive, ExamStatusDraft},
	ExamStatusActive:    {ExamStatusCompleted},
	ExamStatusCompleted: {},
}

// Valid reports whether the status is one of the known lifecycle states.
func (s ExamStatus) Valid() bool {
	_, ok := examTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s ExamStatus) CanTransitionTo(next ExamStatus) bool {
	for _, allowed := range examTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatuses lists the states reachable from s.
func (s ExamStatus) NextStatuses() []ExamStatus {
	return append([]ExamStatus(nil), examTransitions[s]...)
}

// Exam is a timed assessment owned by a subject.
type Exam struct {
	ID                         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID              uuid.UUID  `gorm:"type:uuid;index;not null" json:"institution_id"`
	SubjectID                  *uuid.UUID `gorm:"type:uuid;index" json:"subject_id"`
	TeacherID                  uuid.UUID  `gorm:"type:uuid;index;not null" json:"teacher_id"`
	Title                      string     `gorm:"size:150;not null" json:"title"`
	Instructions               string     `gorm:"type:text" json:"instructions"`
	DurationMinutes            int        `gorm:"not null" json:"duration_minutes"`
	Grade                      int        `gorm:"not null" json:"grade"`
	Status                     ExamStatus `gorm:"size:16;index;not null;default:draft" json:"status"`
	MaxAttempts                *int       `json:"max_attempts"`
	ShowResultsImmediately     bool       `gorm:"not null" json:"show_results_immediately"`
	AllowReviewAfterSubmission bool       `gorm:"not null" json:"allow_review_after_submission"`
	RandomizeQuestions         bool       `gorm:"not null" json:"randomize_questions"`
	AvailableFrom              *time.Time `json:"available_from"`
	AvailableUntil             *time.Time `json:"available_until"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
	Subject                    *Subject   `gorm:"constraint:OnDelete:SET NULL" json:"subject,omitempty"`
	Groups                     []Group    `gorm:"many2many:exam_groups" json:"groups,omitempty"`
	Questions                  []Question `gorm:"constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// AttemptLimit returns the configured attempt limit, defaulting to one.
func (e Exam) AttemptLimit() int {
	if e.MaxAttempts == nil || *e.MaxAttempts < 1 {
		return 1
	}
	return *e.MaxAttempts
}

// HasSubject reports whether the exam is attached to a subject.
func (e Exam) HasSubject() bool {
	return e.SubjectID != nil && *e.SubjectID != uuid.Nil
}
