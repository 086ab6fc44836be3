package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// AssertExamStartable checks the exam is active and inside its availability window at now.
func AssertExamStartable(exam models.Exam, now time.Time) error {
	if exam.Status != models.ExamStatusActive {
		return ErrExamNotActive
	}
	if exam.AvailableFrom != nil && now.Before(*exam.AvailableFrom) {
		return ErrExamNotYetAvailable
	}
	if exam.AvailableUntil != nil && now.After(*exam.AvailableUntil) {
		return ErrExamNoLongerAvailable
	}
	return nil
}

// AssertAttemptsAvailable fails once used reaches the exam's attempt limit.
func AssertAttemptsAvailable(exam models.Exam, used int64) error {
	if used >= int64(exam.AttemptLimit()) {
		return ErrAttemptsExhausted
	}
	return nil
}

// AssertAttemptSubmittable checks the attempt belongs to exam and is still open.
func AssertAttemptSubmittable(exam models.Exam, attempt models.ExamAttempt) error {
	if attempt.ExamID != exam.ID {
		return ErrAttemptMismatch
	}
	if attempt.IsSubmitted() {
		return ErrAttemptAlreadySubmitted
	}
	return nil
}

// AssertExamTransition validates a status change. Publishing requires at least one question.
func AssertExamTransition(current, next models.ExamStatus, questionCount int64) error {
	if !next.Valid() || !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	if next == models.ExamStatusPublished && questionCount == 0 {
		return ErrNoQuestions
	}
	return nil
}

// AssertExamEditable allows edits only while the exam is draft or published.
func AssertExamEditable(exam models.Exam) error {
	switch exam.Status {
	case models.ExamStatusDraft, models.ExamStatusPublished:
		return nil
	}
	return ErrExamNotEditable
}

// AssertExamDeletable allows deletion only for drafts.
func AssertExamDeletable(exam models.Exam) error {
	if exam.Status != models.ExamStatusDraft {
		return ErrExamNotDeletable
	}
	return nil
}

// AssertQuestionDeletable refuses to remove the last question of an exam.
func AssertQuestionDeletable(questionCount int64) error {
	if questionCount <= 1 {
		return ErrLastQuestion
	}
	return nil
}

// ValidateQuestionShape enforces option counts and the single correct option per type.
func ValidateQuestionShape(kind models.QuestionType, options []models.QuestionOption, correctAnswerText *string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidQuestion, kind)
	}

	if kind == models.QuestionShortAnswer {
		if len(options) > 0 {
			return fmt.Errorf("%w: short answer questions cannot have options", ErrInvalidQuestion)
		}
		if correctAnswerText == nil || strings.TrimSpace(*correctAnswerText) == "" {
			return fmt.Errorf("%w: short answer questions require correct_answer_text", ErrInvalidQuestion)
		}
		return nil
	}

	if want := kind.RequiredOptions(); len(options) != want {
		return fmt.Errorf("%w: %s questions require exactly %d options", ErrInvalidQuestion, kind, want)
	}

	correct := 0
	for _, opt := range options {
		if strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("%w: option text is required", ErrInvalidQuestion)
		}
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: exactly one option must be correct", ErrInvalidQuestion)
	}
	return nil
}
