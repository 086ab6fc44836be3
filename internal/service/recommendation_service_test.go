package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/pkg/ai"
)

func submitted(t *testing.T, env *testEnv, correct bool) (models.Exam, dto.SubmitAttemptResponse) {
	t.Helper()
	exam := env.createExam(t, fiveByTwo())
	attempt := startAttempt(t, env, exam)
	result, err := env.attempts.Submit(context.Background(), env.tenant.ID, exam.ID, attempt.ID, env.studentActor(),
		dto.SubmitAttemptRequest{Answers: answersFor(t, exam, correct)})
	require.NoError(t, err)
	return exam, result
}

func TestRegenerateParsesStructuredOutput(t *testing.T) {
	generator := &stubGenerator{text: "```json\n" +
		`{"recommendations":[` +
		`{"type":"weakness","text":"Capitals of South America need <script>x</script>work."},` +
		`{"type":"resource","text":"Use an atlas."}]}` +
		"\n```"}
	env := newTestEnv(t, generator)
	resource := models.StudyResource{InstitutionID: env.tenant.ID, Title: "Atlas", ResourceType: models.ResourceLink, URL: "https://atlas.test"}
	require.NoError(t, env.db.Create(&resource).Error)

	exam, result := submitted(t, env, false)

	recs, err := env.recommendations.RegenerateForAttempt(context.Background(), env.tenant.ID, exam.ID, result.Attempt.ID, env.studentActor())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, models.RecommendationWeakness, recs[0].Type)
	require.Equal(t, "Capitals of South America need work.", recs[0].RecommendationText)
	require.Equal(t, models.RecommendationResource, recs[1].Type)
	require.Contains(t, string(recs[1].Resource), `"title":"Atlas"`)

	require.Equal(t, 1, generator.calls)
	require.True(t, generator.last.JSON)
	require.Contains(t, generator.last.Prompt, "Subject: Geography")
	require.Contains(t, generator.last.Prompt, "Correct: 0, Incorrect: 5")
	require.Contains(t, generator.last.Prompt, "answered: wrong one")
}

func TestRegenerateAcceptsPlainText(t *testing.T) {
	generator := &stubGenerator{text: "Practise five capitals every evening."}
	env := newTestEnv(t, generator)
	exam, result := submitted(t, env, true)

	recs, err := env.recommendations.RegenerateForAttempt(context.Background(), env.tenant.ID, exam.ID, result.Attempt.ID, env.teacherActor())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, models.RecommendationAction, recs[0].Type)
	require.Equal(t, "Practise five capitals every evening.", recs[0].RecommendationText)
}

func TestRegenerateFallsBackToTiers(t *testing.T) {
	cases := map[string]ai.TextGenerator{
		"disabled": nil,
		"error":    &stubGenerator{err: errors.New("provider down")},
		"empty":    &stubGenerator{text: "   "},
	}
	for name, generator := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, generator)
			exam, result := submitted(t, env, true)

			recs, err := env.recommendations.RegenerateForAttempt(context.Background(), env.tenant.ID, exam.ID, result.Attempt.ID, env.studentActor())
			require.NoError(t, err)
			require.Len(t, recs, 1)
			require.Equal(t, models.RecommendationStrength, recs[0].Type)

			list, err := env.recommendations.List(context.Background(), env.tenant.ID, env.studentActor(), RecommendationListRequest{})
			require.NoError(t, err)
			require.Len(t, list.Items, 2)
		})
	}
}

func TestRegenerateGuardsAccess(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{text: "unused"})
	ctx := context.Background()
	exam := env.createExam(t, fiveByTwo())
	attempt := startAttempt(t, env, exam)

	_, err := env.recommendations.RegenerateForAttempt(ctx, env.tenant.ID, exam.ID, attempt.ID, env.studentActor())
	require.ErrorIs(t, err, ErrAttemptNotSubmitted)

	other := env.createStudent(t)
	_, err = env.recommendations.RegenerateForAttempt(ctx, env.tenant.ID, exam.ID, attempt.ID, Actor{UserID: other.ID, Role: models.RoleStudent})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRecommendationListFiltersAndScopes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	submitted(t, env, false)

	weakness, err := env.recommendations.List(ctx, env.tenant.ID, env.teacherActor(), RecommendationListRequest{Type: "weakness"})
	require.NoError(t, err)
	require.Len(t, weakness.Items, 1)

	_, err = env.recommendations.List(ctx, env.tenant.ID, env.teacherActor(), RecommendationListRequest{Type: "bogus"})
	require.True(t, IsValidationError(err))

	other := env.createStudent(t)
	own, err := env.recommendations.List(ctx, env.tenant.ID, Actor{UserID: other.ID, Role: models.RoleStudent}, RecommendationListRequest{})
	require.NoError(t, err)
	require.Empty(t, own.Items)
}

func TestBuildRecommendationContextSamplesMissedQuestions(t *testing.T) {
	question := choiceQuestion("Which river flows through Cairo?", 2)
	question.Options[1].ID = 7
	attempt := models.ExamAttempt{
		Score:    0,
		MaxScore: 2,
		Answers: []models.StudentAnswer{{
			Question:        &question,
			SelectedOptions: []models.StudentAnswerOption{{QuestionOptionID: 7}},
			ReviewStatus:    models.ReviewAutoGraded,
		}},
	}

	rc := BuildRecommendationContext("Geography", models.Exam{Title: "Rivers"}, attempt)
	require.Equal(t, 1, rc.Incorrect)
	require.Len(t, rc.WrongAnswers, 1)
	require.Equal(t, "wrong one", rc.WrongAnswers[0].Answer)
}
