package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
)

func newExamRequest(env *testEnv) dto.ExamCreateRequest {
	subjectID := env.subject.ID.String()
	return dto.ExamCreateRequest{
		SubjectID:       &subjectID,
		Title:           "Rivers of Africa",
		DurationMinutes: 40,
		Grade:           9,
	}
}

func choiceRequest(text string) dto.QuestionCreateRequest {
	return dto.QuestionCreateRequest{
		Text:   text,
		Type:   string(models.QuestionMultipleChoice),
		Points: 2,
		Options: []dto.QuestionOptionRequest{
			{Text: "Nile", IsCorrect: true},
			{Text: "Congo"},
			{Text: "Niger"},
			{Text: "Zambezi"},
		},
	}
}

func TestExamCreateAppliesDefaults(t *testing.T) {
	env := newTestEnv(t, nil)
	hidden := false

	req := newExamRequest(env)
	req.ShowResultsImmediately = &hidden
	exam, err := env.exams.Create(context.Background(), env.tenant.ID, env.teacherActor(), req)
	require.NoError(t, err)

	require.Equal(t, models.ExamStatusDraft, exam.Status)
	require.Equal(t, 3, exam.MaxAttempts)
	require.False(t, exam.ShowResultsImmediately)
	require.True(t, exam.AllowReviewAfterSubmission)
	require.Equal(t, env.teacher.ID, exam.TeacherID)
	require.Empty(t, exam.GroupIDs)
}

func TestExamCreateRejectsBadReferences(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	req := newExamRequest(env)
	missing := uuid.NewString()
	req.SubjectID = &missing
	_, err := env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), req)
	require.Equal(t, map[string]string{"subject_id": "subject does not exist"}, ValidationFields(err))

	req = newExamRequest(env)
	from := time.Now().Add(48 * time.Hour)
	until := time.Now().Add(24 * time.Hour)
	req.AvailableFrom, req.AvailableUntil = &from, &until
	_, err = env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), req)
	require.Contains(t, ValidationFields(err), "available_until")

	req = newExamRequest(env)
	req.Title = "x"
	_, err = env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), req)
	require.Contains(t, ValidationFields(err), "title")
}

func TestExamLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	exam, err := env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), newExamRequest(env))
	require.NoError(t, err)

	_, err = env.exams.SetStatus(ctx, env.tenant.ID, exam.ID, dto.ExamStatusRequest{Status: "published"})
	require.ErrorIs(t, err, ErrNoQuestions)

	_, err = env.questions.Create(ctx, env.tenant.ID, exam.ID, choiceRequest("Longest river?"))
	require.NoError(t, err)

	_, err = env.exams.SetStatus(ctx, env.tenant.ID, exam.ID, dto.ExamStatusRequest{Status: "completed"})
	require.ErrorIs(t, err, ErrInvalidTransition)

	published, err := env.exams.SetStatus(ctx, env.tenant.ID, exam.ID, dto.ExamStatusRequest{Status: "published"})
	require.NoError(t, err)
	require.Equal(t, models.ExamStatusPublished, published.Status)
	require.Equal(t, 2, published.TotalPoints)

	err = env.exams.Delete(ctx, env.tenant.ID, exam.ID)
	require.ErrorIs(t, err, ErrExamNotDeletable)

	_, err = env.exams.SetStatus(ctx, env.tenant.ID, exam.ID, dto.ExamStatusRequest{Status: "active"})
	require.NoError(t, err)

	title := "Rivers of the world"
	_, err = env.exams.Update(ctx, env.tenant.ID, exam.ID, dto.ExamUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrExamNotEditable)
}

func TestExamDeleteDraft(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	exam, err := env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), newExamRequest(env))
	require.NoError(t, err)
	require.NoError(t, env.exams.Delete(ctx, env.tenant.ID, exam.ID))

	_, err = env.exams.Get(ctx, env.tenant.ID, exam.ID, env.teacherActor())
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestStudentsNeverSeeDraftsOrAnswers(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	draft := env.createExam(t, fiveByTwo(), withStatus(models.ExamStatusDraft))
	active := env.createExam(t, fiveByTwo())

	_, err := env.exams.Get(ctx, env.tenant.ID, draft.ID, env.studentActor())
	require.ErrorIs(t, err, ErrExamNotFound)

	_, err = env.questions.List(ctx, env.tenant.ID, draft.ID, env.studentActor())
	require.ErrorIs(t, err, ErrExamNotFound)

	view, err := env.exams.Get(ctx, env.tenant.ID, active.ID, env.studentActor())
	require.NoError(t, err)
	require.Len(t, view.Questions, 5)
	for _, question := range view.Questions {
		for _, option := range question.Options {
			require.Nil(t, option.IsCorrect)
		}
	}

	list, err := env.exams.List(ctx, env.tenant.ID, env.studentActor(), dto.ExamListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, active.ID, list.Items[0].ID)

	staff, err := env.exams.List(ctx, env.tenant.ID, env.teacherActor(), dto.ExamListRequest{})
	require.NoError(t, err)
	require.Len(t, staff.Items, 2)
}

func TestQuestionCreateOrdersAndValidates(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	exam, err := env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), newExamRequest(env))
	require.NoError(t, err)

	first, err := env.questions.Create(ctx, env.tenant.ID, exam.ID, choiceRequest("Longest river?"))
	require.NoError(t, err)
	second, err := env.questions.Create(ctx, env.tenant.ID, exam.ID, choiceRequest("Widest river?"))
	require.NoError(t, err)
	require.Equal(t, 0, first.OrderIndex)
	require.Equal(t, 1, second.OrderIndex)

	invalid := choiceRequest("Two right answers?")
	invalid.Options[1].IsCorrect = true
	_, err = env.questions.Create(ctx, env.tenant.ID, exam.ID, invalid)
	require.ErrorIs(t, err, ErrInvalidQuestion)

	answer := "  Nile  "
	short, err := env.questions.Create(ctx, env.tenant.ID, exam.ID, dto.QuestionCreateRequest{
		Text:              "Name the longest river",
		Type:              string(models.QuestionShortAnswer),
		Points:            3,
		CorrectAnswerText: &answer,
	})
	require.NoError(t, err)
	require.Equal(t, "Nile", *short.CorrectAnswerText)
	require.Empty(t, short.Options)
}

func TestQuestionDeleteKeepsLastQuestion(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	exam, err := env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), newExamRequest(env))
	require.NoError(t, err)
	first, err := env.questions.Create(ctx, env.tenant.ID, exam.ID, choiceRequest("Longest river?"))
	require.NoError(t, err)
	second, err := env.questions.Create(ctx, env.tenant.ID, exam.ID, choiceRequest("Widest river?"))
	require.NoError(t, err)

	require.NoError(t, env.questions.Delete(ctx, env.tenant.ID, exam.ID, first.ID))
	require.ErrorIs(t, env.questions.Delete(ctx, env.tenant.ID, exam.ID, second.ID), ErrLastQuestion)

	// An unknown id on a one-question exam is missing, not the last question.
	require.ErrorIs(t, env.questions.Delete(ctx, env.tenant.ID, exam.ID, uuid.New()), ErrQuestionNotFound)
	require.ErrorIs(t, env.questions.Delete(ctx, env.tenant.ID, exam.ID, first.ID), ErrQuestionNotFound)
}

func TestQuestionUpdateToShortAnswerDropsOptions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	exam, err := env.exams.Create(ctx, env.tenant.ID, env.teacherActor(), newExamRequest(env))
	require.NoError(t, err)
	question, err := env.questions.Create(ctx, env.tenant.ID, exam.ID, choiceRequest("Longest river?"))
	require.NoError(t, err)

	kind := string(models.QuestionShortAnswer)
	answer := "Nile"
	updated, err := env.questions.Update(ctx, env.tenant.ID, exam.ID, question.ID, dto.QuestionUpdateRequest{
		Type:              &kind,
		CorrectAnswerText: &answer,
	})
	require.NoError(t, err)
	require.Equal(t, models.QuestionShortAnswer, updated.Type)
	require.Empty(t, updated.Options)

	listed, err := env.questions.List(ctx, env.tenant.ID, exam.ID, env.teacherActor())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Empty(t, listed[0].Options)
}
