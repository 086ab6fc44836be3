package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/database"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	"github.com/noah-isme/edutrack-api/pkg/ai"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []AttemptEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event AttemptEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []AttemptEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AttemptEvent(nil), p.events...)
}

type stubGenerator struct {
	text  string
	err   error
	calls int
	last  ai.GenerationRequest
}

func (g *stubGenerator) Generate(_ context.Context, req ai.GenerationRequest) (ai.GenerationResult, error) {
	g.calls++
	g.last = req
	if g.err != nil {
		return ai.GenerationResult{}, g.err
	}
	return ai.GenerationResult{Text: g.text, Model: "stub"}, nil
}

func (g *stubGenerator) Provider() string { return "stub" }

type testEnv struct {
	db      *gorm.DB
	store   *repository.Store
	mini    *miniredis.Miniredis
	cache   *redis.Client
	events  *recordingPublisher
	tenant  models.Institution
	subject models.Subject
	teacher models.User
	student models.User

	progress        ProgressService
	recommendations RecommendationService
	attempts        AttemptService
	review          ReviewService
	exams           ExamService
	questions       QuestionService
}

func newTestEnv(t *testing.T, generator ai.TextGenerator) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	env := &testEnv{
		db:     db,
		store:  repository.NewStore(db),
		mini:   mini,
		cache:  cache,
		events: &recordingPublisher{},
	}

	env.tenant = models.Institution{Code: "edu" + uuid.NewString()[:6], Name: "Harbour High", IsActive: true}
	require.NoError(t, db.Create(&env.tenant).Error)

	env.subject = models.Subject{InstitutionID: env.tenant.ID, Name: "Geography"}
	require.NoError(t, db.Create(&env.subject).Error)

	env.teacher = env.createUser(t, models.RoleTeacher)
	env.student = env.createStudent(t)

	logger := zerolog.Nop()
	validate := NewValidator()
	env.progress = NewProgressService(env.store, cache, time.Minute, logger)
	env.recommendations = NewRecommendationService(env.store, generator, RecommendationOptions{Timeout: time.Second}, logger)
	env.attempts = NewAttemptService(env.store, NewGradingEngine(logger), env.progress, env.recommendations, env.events, validate, logger)
	env.review = NewReviewService(env.store, env.progress, env.recommendations, env.events, validate, logger)
	env.exams = NewExamService(env.store, validate, logger)
	env.questions = NewQuestionService(env.store, validate, logger)
	return env
}

func (e *testEnv) createUser(t *testing.T, role models.UserRole) models.User {
	t.Helper()
	user := models.User{
		InstitutionID: e.tenant.ID,
		Email:         uuid.NewString() + "@harbour.test",
		PasswordHash:  "unused",
		FullName:      string(role) + " user",
		Role:          role,
		Status:        models.UserStatusActive,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) createStudent(t *testing.T) models.User {
	t.Helper()
	user := e.createUser(t, models.RoleStudent)
	profile := models.Student{
		UserID:        user.ID,
		InstitutionID: e.tenant.ID,
		StudentCode:   "S" + uuid.NewString()[:8],
		Grade:         9,
		Status:        models.StudentStatusActive,
		EnrolledAt:    time.Now(),
	}
	require.NoError(t, e.db.Create(&profile).Error)
	return user
}

func (e *testEnv) studentActor() Actor {
	return Actor{UserID: e.student.ID, Role: models.RoleStudent}
}

func (e *testEnv) teacherActor() Actor {
	return Actor{UserID: e.teacher.ID, Role: models.RoleTeacher}
}

type examOption func(*models.Exam)

func withoutSubject() examOption {
	return func(exam *models.Exam) { exam.SubjectID = nil }
}

func withMaxAttempts(n int) examOption {
	return func(exam *models.Exam) { exam.MaxAttempts = &n }
}

func withStatus(status models.ExamStatus) examOption {
	return func(exam *models.Exam) { exam.Status = status }
}

func withHiddenResults() examOption {
	return func(exam *models.Exam) { exam.ShowResultsImmediately = false }
}

// createExam persists an active exam with the given questions and reloads it with options.
func (e *testEnv) createExam(t *testing.T, questions []models.Question, opts ...examOption) models.Exam {
	t.Helper()
	subjectID := e.subject.ID
	exam := models.Exam{
		InstitutionID:              e.tenant.ID,
		SubjectID:                  &subjectID,
		TeacherID:                  e.teacher.ID,
		Title:                      "World capitals",
		DurationMinutes:            30,
		Grade:                      9,
		Status:                     models.ExamStatusActive,
		ShowResultsImmediately:     true,
		AllowReviewAfterSubmission: true,
	}
	for _, opt := range opts {
		opt(&exam)
	}
	require.NoError(t, e.db.Omit("Subject", "Questions").Create(&exam).Error)

	for i := range questions {
		questions[i].ExamID = exam.ID
		questions[i].OrderIndex = i
		require.NoError(t, e.db.Create(&questions[i]).Error)
	}

	loaded, err := e.store.Exams.GetWithQuestions(context.Background(), e.tenant.ID, exam.ID)
	require.NoError(t, err)
	return loaded
}

func choiceQuestion(text string, points int) models.Question {
	return models.Question{
		Text:   text,
		Type:   models.QuestionMultipleChoice,
		Points: points,
		Options: []models.QuestionOption{
			{OptionIndex: 0, Text: "right", IsCorrect: true},
			{OptionIndex: 1, Text: "wrong one"},
			{OptionIndex: 2, Text: "wrong two"},
			{OptionIndex: 3, Text: "wrong three"},
		},
	}
}

func shortQuestion(text string, points int, answer string) models.Question {
	return models.Question{
		Text:              text,
		Type:              models.QuestionShortAnswer,
		Points:            points,
		CorrectAnswerText: &answer,
	}
}

func correctOptionID(t *testing.T, question models.Question) uint {
	t.Helper()
	option, ok := question.CorrectOption()
	require.True(t, ok)
	return option.ID
}

func wrongOptionID(t *testing.T, question models.Question) uint {
	t.Helper()
	for _, option := range question.Options {
		if !option.IsCorrect {
			return option.ID
		}
	}
	t.Fatalf("question %s has no wrong option", question.ID)
	return 0
}
