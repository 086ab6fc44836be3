package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
)

func submitShortAnswerExam(t *testing.T, env *testEnv, text string) (models.Exam, dto.SubmitAttemptResponse) {
	t.Helper()
	exam := env.createExam(t, []models.Question{
		shortQuestion("Describe the water cycle", 6, "evaporation"),
		choiceQuestion("Largest ocean?", 4),
	})
	answers := []dto.SubmitAnswerItem{
		{QuestionID: exam.Questions[0].ID.String(), AnswerText: &text},
		{QuestionID: exam.Questions[1].ID.String(), SelectedOptionIDs: []uint{correctOptionID(t, exam.Questions[1])}},
	}

	attempt := startAttempt(t, env, exam)
	result, err := env.attempts.Submit(context.Background(), env.tenant.ID, exam.ID, attempt.ID, env.studentActor(),
		dto.SubmitAttemptRequest{Answers: answers})
	require.NoError(t, err)
	return exam, result
}

func reviewRequest(correct bool, points float64, explanation string) dto.ReviewAnswerRequest {
	return dto.ReviewAnswerRequest{IsCorrect: &correct, PointsAwarded: &points, Explanation: &explanation}
}

func TestReviewRecomputesAttemptAndProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	_, submitted := submitShortAnswerExam(t, env, "water goes up and comes down")
	require.Equal(t, "4/10 (40%)", submitted.DisplayScore)

	answerID := submitted.Attempt.Answers[0].ID
	result, err := env.review.Review(context.Background(), env.tenant.ID, answerID, env.teacherActor(),
		reviewRequest(true, 5, "<b>Good</b> description"))
	require.NoError(t, err)

	require.Equal(t, models.ReviewReviewed, result.StudentAnswer.ReviewStatus)
	require.InDelta(t, 5, *result.StudentAnswer.PointsAwarded, 0.001)
	require.Equal(t, "Good description", *result.StudentAnswer.Explanation)
	require.Equal(t, "9/10 (90%)", result.Attempt.DisplayScore)
	require.NotNil(t, result.Progress)
	require.InDelta(t, 90, result.Progress.MasteryPercentage, 0.001)
	require.Nil(t, result.Recommendation)

	events := env.events.Events()
	require.Len(t, events, 2)
	require.Equal(t, EventAttemptReviewed, events[1].Type)
	require.InDelta(t, 90, events[1].Percentage, 0.001)
}

func TestReviewBelowActionTierAppendsFollowUp(t *testing.T) {
	env := newTestEnv(t, nil)
	_, submitted := submitShortAnswerExam(t, env, "evaporation")
	require.Equal(t, "10/10 (100%)", submitted.DisplayScore)

	result, err := env.review.Review(context.Background(), env.tenant.ID, submitted.Attempt.Answers[0].ID, env.teacherActor(),
		reviewRequest(false, 0, "Too vague"))
	require.NoError(t, err)

	require.Equal(t, "4/10 (40%)", result.Attempt.DisplayScore)
	require.NotNil(t, result.Recommendation)
	require.Equal(t, models.RecommendationAction, result.Recommendation.Type)
}

func TestReviewRejectsInvalidOverrides(t *testing.T) {
	env := newTestEnv(t, nil)
	_, submitted := submitShortAnswerExam(t, env, "rain")
	ctx := context.Background()
	shortID := submitted.Attempt.Answers[0].ID
	choiceID := submitted.Attempt.Answers[1].ID

	_, err := env.review.Review(ctx, env.tenant.ID, shortID, env.teacherActor(), reviewRequest(true, 7, ""))
	require.ErrorIs(t, err, ErrPointsExceedMaximum)

	_, err = env.review.Review(ctx, env.tenant.ID, shortID, env.studentActor(), reviewRequest(true, 1, ""))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.review.Review(ctx, env.tenant.ID, choiceID, env.teacherActor(), reviewRequest(true, 1, ""))
	require.ErrorIs(t, err, ErrNotShortAnswer)

	_, err = env.review.Review(ctx, env.tenant.ID, shortID, env.teacherActor(), dto.ReviewAnswerRequest{})
	require.True(t, IsValidationError(err))

	answer, err := env.store.Answers.GetByID(ctx, env.tenant.ID, shortID)
	require.NoError(t, err)
	require.Equal(t, models.ReviewNeedsReview, answer.ReviewStatus)
}
