package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/config"
	"github.com/noah-isme/edutrack-api/internal/database"
	"github.com/noah-isme/edutrack-api/internal/handler"
	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	"github.com/noah-isme/edutrack-api/internal/router"
	"github.com/noah-isme/edutrack-api/internal/service"
)

const testPassword = "correct-horse"

type apiEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Errors  map[string]string `json:"errors"`
}

type apiEnv struct {
	app     *fiber.App
	db      *gorm.DB
	tenant  models.Institution
	subject models.Subject
	teacher models.User
	student models.User
	other   models.User
}

// setupAPI builds the full route tree over sqlite and miniredis. The JWT middleware is
// replaced by one that trusts the X-Test-User header.
func setupAPI(t *testing.T) *apiEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	env := &apiEnv{db: db}
	env.tenant = models.Institution{Code: "api" + uuid.NewString()[:6], Name: "Riverside", IsActive: true}
	require.NoError(t, db.Create(&env.tenant).Error)
	env.subject = models.Subject{InstitutionID: env.tenant.ID, Name: "Geography"}
	require.NoError(t, db.Create(&env.subject).Error)

	env.teacher = env.createUser(t, models.RoleTeacher)
	env.student = env.createStudent(t)
	env.other = env.createStudent(t)

	logger := zerolog.New(io.Discard)
	validate := service.NewValidator()
	store := repository.NewStore(db)
	events := service.NewAttemptEventPublisher(cache, "edutrack:attempts", nil, logger)

	progress := service.NewProgressService(store, cache, time.Minute, logger)
	recommendations := service.NewRecommendationService(store, nil, service.RecommendationOptions{Timeout: time.Second}, logger)
	auth := service.NewAuthService(store.Users, service.TokenConfig{Secret: "secret", Issuer: "edutrack-test", TTL: time.Hour}, validate, logger)
	exams := service.NewExamService(store, validate, logger)
	questions := service.NewQuestionService(store, validate, logger)
	attempts := service.NewAttemptService(store, service.NewGradingEngine(logger), progress, recommendations, events, validate, logger)
	review := service.NewReviewService(store, progress, recommendations, events, validate, logger)

	users := map[string]models.User{
		env.teacher.ID.String(): env.teacher,
		env.student.ID.String(): env.student,
		env.other.ID.String():   env.other,
	}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "EduTrack Test", AppEnv: "test", JWTSecret: "secret"}, router.Dependencies{
		AuthHandler:           handler.NewAuthHandler(auth, logger),
		ExamHandler:           handler.NewExamHandler(exams, questions, logger),
		AttemptHandler:        handler.NewAttemptHandler(attempts, recommendations, logger),
		ReviewHandler:         handler.NewReviewHandler(review, logger),
		ProgressHandler:       handler.NewProgressHandler(progress, logger),
		RecommendationHandler: handler.NewRecommendationHandler(recommendations, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			user, ok := users[c.Get("X-Test-User")]
			if ok {
				c.Locals(middleware.LocalUserID, user.ID)
				c.Locals(middleware.LocalUserRole, string(user.Role))
				c.Locals(middleware.LocalInstitutionID, user.InstitutionID)
			}
			return c.Next()
		},
	})
	env.app = app
	return env
}

func (e *apiEnv) createUser(t *testing.T, role models.UserRole) models.User {
	t.Helper()
	hash, err := service.HashPassword(testPassword)
	require.NoError(t, err)
	user := models.User{
		InstitutionID: e.tenant.ID,
		Email:         uuid.NewString()[:8] + "@riverside.test",
		PasswordHash:  hash,
		FullName:      string(role) + " account",
		Role:          role,
		Status:        models.UserStatusActive,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *apiEnv) createStudent(t *testing.T) models.User {
	t.Helper()
	user := e.createUser(t, models.RoleStudent)
	profile := models.Student{
		UserID:        user.ID,
		InstitutionID: e.tenant.ID,
		StudentCode:   "R" + uuid.NewString()[:8],
		Grade:         9,
		Status:        models.StudentStatusActive,
		EnrolledAt:    time.Now(),
	}
	require.NoError(t, e.db.Create(&profile).Error)
	return user
}

// call performs a request as user (nil for anonymous) and decodes the envelope.
func (e *apiEnv) call(t *testing.T, user *models.User, method, path string, body interface{}) (int, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	switch payload := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(payload)
	default:
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("X-Test-User", user.ID.String())
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	}
	return resp.StatusCode, envelope
}

func decodeData(t *testing.T, envelope apiEnvelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

// activeExam creates an exam over HTTP with one two point multiple choice question and
// moves it to active. It returns the exam id and the correct option id.
func (e *apiEnv) activeExam(t *testing.T) (string, uint) {
	t.Helper()

	status, envelope := e.call(t, &e.teacher, http.MethodPost, "/api/v1/exams", map[string]interface{}{
		"subject_id":       e.subject.ID.String(),
		"title":            "Rivers of the world",
		"duration_minutes": 20,
		"grade":            9,
	})
	require.Equal(t, http.StatusCreated, status, envelope.Message)
	var exam struct {
		ID string `json:"id"`
	}
	decodeData(t, envelope, &exam)

	status, envelope = e.call(t, &e.teacher, http.MethodPost, "/api/v1/exams/"+exam.ID+"/questions", map[string]interface{}{
		"question_text": "Longest river?",
		"question_type": "multiple_choice",
		"points":        2,
		"options": []map[string]interface{}{
			{"option_text": "Nile", "is_correct": true},
			{"option_text": "Thames", "is_correct": false},
			{"option_text": "Danube", "is_correct": false},
			{"option_text": "Rhine", "is_correct": false},
		},
	})
	require.Equal(t, http.StatusCreated, status, envelope.Message)
	var question struct {
		Options []struct {
			ID        uint  `json:"id"`
			IsCorrect *bool `json:"is_correct"`
		} `json:"options"`
	}
	decodeData(t, envelope, &question)

	var correct uint
	for _, opt := range question.Options {
		if opt.IsCorrect != nil && *opt.IsCorrect {
			correct = opt.ID
		}
	}
	require.NotZero(t, correct)

	for _, next := range []string{"published", "active"} {
		status, envelope = e.call(t, &e.teacher, http.MethodPatch, "/api/v1/exams/"+exam.ID+"/status", map[string]string{"status": next})
		require.Equal(t, http.StatusOK, status, envelope.Message)
	}
	return exam.ID, correct
}

func (e *apiEnv) questionIDs(t *testing.T, examID string) []string {
	t.Helper()
	status, envelope := e.call(t, &e.teacher, http.MethodGet, "/api/v1/exams/"+examID+"/questions", nil)
	require.Equal(t, http.StatusOK, status)
	var questions []struct {
		ID string `json:"id"`
	}
	decodeData(t, envelope, &questions)
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func jsonDecode(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
