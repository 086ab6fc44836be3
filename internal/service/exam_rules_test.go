package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/models"
)

func TestAssertExamStartableOnlyAcceptsActiveWithinWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for _, status := range []models.ExamStatus{models.ExamStatusDraft, models.ExamStatusPublished, models.ExamStatusCompleted} {
		require.ErrorIs(t, AssertExamStartable(models.Exam{Status: status}, now), ErrExamNotActive, string(status))
	}

	require.NoError(t, AssertExamStartable(models.Exam{Status: models.ExamStatusActive}, now))

	later := now.Add(time.Hour)
	require.ErrorIs(t, AssertExamStartable(models.Exam{Status: models.ExamStatusActive, AvailableFrom: &later}, now), ErrExamNotYetAvailable)

	earlier := now.Add(-time.Hour)
	require.ErrorIs(t, AssertExamStartable(models.Exam{Status: models.ExamStatusActive, AvailableUntil: &earlier}, now), ErrExamNoLongerAvailable)

	require.NoError(t, AssertExamStartable(models.Exam{Status: models.ExamStatusActive, AvailableFrom: &earlier, AvailableUntil: &later}, now))
}

func TestAssertAttemptsAvailable(t *testing.T) {
	require.NoError(t, AssertAttemptsAvailable(models.Exam{}, 0))
	require.ErrorIs(t, AssertAttemptsAvailable(models.Exam{}, 1), ErrAttemptsExhausted)

	three := 3
	exam := models.Exam{MaxAttempts: &three}
	require.NoError(t, AssertAttemptsAvailable(exam, 2))
	require.ErrorIs(t, AssertAttemptsAvailable(exam, 3), ErrAttemptsExhausted)
}

func TestAssertAttemptSubmittable(t *testing.T) {
	exam := models.Exam{ID: uuid.New()}
	require.ErrorIs(t, AssertAttemptSubmittable(exam, models.ExamAttempt{ExamID: uuid.New()}), ErrAttemptMismatch)

	now := time.Now()
	require.ErrorIs(t, AssertAttemptSubmittable(exam, models.ExamAttempt{ExamID: exam.ID, SubmittedAt: &now}), ErrAttemptAlreadySubmitted)
	require.NoError(t, AssertAttemptSubmittable(exam, models.ExamAttempt{ExamID: exam.ID}))
}

func TestAssertExamTransition(t *testing.T) {
	require.ErrorIs(t, AssertExamTransition(models.ExamStatusDraft, models.ExamStatusPublished, 0), ErrNoQuestions)
	require.NoError(t, AssertExamTransition(models.ExamStatusDraft, models.ExamStatusPublished, 2))
	require.NoError(t, AssertExamTransition(models.ExamStatusPublished, models.ExamStatusDraft, 2))
	require.ErrorIs(t, AssertExamTransition(models.ExamStatusDraft, models.ExamStatusActive, 2), ErrInvalidTransition)
	require.ErrorIs(t, AssertExamTransition(models.ExamStatusCompleted, models.ExamStatusActive, 2), ErrInvalidTransition)
	require.ErrorIs(t, AssertExamTransition(models.ExamStatusActive, "archived", 2), ErrInvalidTransition)
}

func TestValidateQuestionShape(t *testing.T) {
	four := func(correct int) []models.QuestionOption {
		opts := make([]models.QuestionOption, 4)
		for i := range opts {
			opts[i] = models.QuestionOption{OptionIndex: i, Text: "option", IsCorrect: i == correct}
		}
		return opts
	}

	require.NoError(t, ValidateQuestionShape(models.QuestionMultipleChoice, four(2), nil))
	require.ErrorIs(t, ValidateQuestionShape(models.QuestionMultipleChoice, four(2)[:3], nil), ErrInvalidQuestion)
	require.ErrorIs(t, ValidateQuestionShape(models.QuestionMultipleChoice, four(-1), nil), ErrInvalidQuestion)
	require.ErrorIs(t, ValidateQuestionShape(models.QuestionTrueFalse, four(0), nil), ErrInvalidQuestion)
	require.NoError(t, ValidateQuestionShape(models.QuestionTrueFalse, four(0)[:2], nil))

	paris := "Paris"
	blank := "  "
	require.NoError(t, ValidateQuestionShape(models.QuestionShortAnswer, nil, &paris))
	require.ErrorIs(t, ValidateQuestionShape(models.QuestionShortAnswer, nil, &blank), ErrInvalidQuestion)
	require.ErrorIs(t, ValidateQuestionShape(models.QuestionShortAnswer, four(0), &paris), ErrInvalidQuestion)
	require.ErrorIs(t, ValidateQuestionShape("essay", nil, &paris), ErrInvalidQuestion)
}

func TestAssertExamEditableAndDeletable(t *testing.T) {
	require.NoError(t, AssertExamEditable(models.Exam{Status: models.ExamStatusPublished}))
	require.ErrorIs(t, AssertExamEditable(models.Exam{Status: models.ExamStatusActive}), ErrExamNotEditable)
	require.NoError(t, AssertExamDeletable(models.Exam{Status: models.ExamStatusDraft}))
	require.ErrorIs(t, AssertExamDeletable(models.Exam{Status: models.ExamStatusPublished}), ErrExamNotDeletable)
	require.ErrorIs(t, AssertQuestionDeletable(1), ErrLastQuestion)
	require.NoError(t, AssertQuestionDeletable(2))
}
