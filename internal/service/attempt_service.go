package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/observability"
	"github.com/noah-isme/edutrack-api/internal/repository"
)

const startAttemptRetries = 3

// AttemptService drives the attempt lifecycle from start to graded submission.
type AttemptService interface {
	Start(ctx context.Context, tenantID, examID uuid.UUID, actor Actor) (dto.AttemptResponse, bool, error)
	Submit(ctx context.Context, tenantID, examID, attemptID uuid.UUID, actor Actor, req dto.SubmitAttemptRequest) (dto.SubmitAttemptResponse, error)
	Get(ctx context.Context, tenantID, examID, attemptID uuid.UUID, actor Actor) (dto.AttemptResponse, error)
	ListForExam(ctx context.Context, tenantID, examID uuid.UUID, actor Actor) ([]dto.AttemptResponse, error)
}

type attemptService struct {
	store           *repository.Store
	grader          GradingEngine
	progress        ProgressService
	recommendations RecommendationService
	events          AttemptEventPublisher
	validator       *validator.Validate
	logger          zerolog.Logger
	now             func() time.Time
}

// NewAttemptService wires the orchestrator. events may be nil.
func NewAttemptService(store *repository.Store, grader GradingEngine, progress ProgressService, recommendations RecommendationService, events AttemptEventPublisher, validate *validator.Validate, logger zerolog.Logger) AttemptService {
	return &attemptService{
		store:           store,
		grader:          grader,
		progress:        progress,
		recommendations: recommendations,
		events:          events,
		validator:       validate,
		logger:          logger.With().Str("component", "attempt_service").Logger(),
		now:             time.Now,
	}
}

// Start opens the next attempt for the student. When an unsubmitted attempt already holds the next
// number it is returned with created=false. Concurrent starts that collide on the unique attempt
// number recount and retry, so the attempt limit holds under races.
func (s *attemptService) Start(ctx context.Context, tenantID, examID uuid.UUID, actor Actor) (dto.AttemptResponse, bool, error) {
	tracer := otel.Tracer("github.com/noah-isme/edutrack-api/internal/service/attempt")
	ctx, span := tracer.Start(ctx, "attempt.start")
	span.SetAttributes(attribute.String("attempt.exam_id", examID.String()))
	defer span.End()

	if _, err := s.store.Students.GetByUserID(ctx, tenantID, actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, false, ErrNotAStudent
		}
		return dto.AttemptResponse{}, false, err
	}

	exam, err := s.store.Exams.GetByID(ctx, tenantID, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, false, ErrExamNotFound
		}
		return dto.AttemptResponse{}, false, err
	}

	if err := AssertExamStartable(exam, s.now()); err != nil {
		span.SetStatus(codes.Error, "not_startable")
		return dto.AttemptResponse{}, false, err
	}

	maxPoints, err := s.store.Questions.SumPoints(ctx, exam.ID)
	if err != nil {
		return dto.AttemptResponse{}, false, fmt.Errorf("sum question points: %w", err)
	}

	for try := 1; try <= startAttemptRetries; try++ {
		used, err := s.store.Attempts.CountSubmitted(ctx, tenantID, exam.ID, actor.UserID)
		if err != nil {
			return dto.AttemptResponse{}, false, fmt.Errorf("count attempts: %w", err)
		}
		if err := AssertAttemptsAvailable(exam, used); err != nil {
			span.SetStatus(codes.Error, "attempts_exhausted")
			return dto.AttemptResponse{}, false, err
		}

		number := int(used) + 1
		open, err := s.store.Attempts.FindOpen(ctx, tenantID, exam.ID, actor.UserID, number)
		if err == nil {
			span.SetAttributes(attribute.Bool("attempt.resumed", true))
			return dto.NewAttemptResponse(open, false), false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, false, fmt.Errorf("find open attempt: %w", err)
		}

		attempt := models.ExamAttempt{
			InstitutionID: tenantID,
			ExamID:        exam.ID,
			StudentUserID: actor.UserID,
			AttemptNumber: number,
			StartedAt:     s.now(),
			MaxScore:      float64(maxPoints),
			GradeStatus:   models.GradeStatusPending,
		}
		err = s.store.Attempts.Create(ctx, &attempt)
		if err == nil {
			observability.AttemptsStarted().Inc()
			s.logger.Info().
				Str("attempt_id", attempt.ID.String()).
				Str("exam_id", exam.ID.String()).
				Int("attempt_number", number).
				Msg("attempt started")
			return dto.NewAttemptResponse(attempt, false), true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create_failed")
			return dto.AttemptResponse{}, false, fmt.Errorf("create attempt: %w", err)
		}

		s.logger.Debug().Int("try", try).Int("attempt_number", number).Msg("attempt number taken, retrying start")
	}

	span.SetStatus(codes.Error, "start_conflict")
	return dto.AttemptResponse{}, false, ErrAttemptStartConflict
}

// Submit grades the attempt. Grading, progress, student counters and recommendations commit in one
// transaction; cache invalidation and event publishing follow the commit.
func (s *attemptService) Submit(ctx context.Context, tenantID, examID, attemptID uuid.UUID, actor Actor, req dto.SubmitAttemptRequest) (response dto.SubmitAttemptResponse, err error) {
	tracer := otel.Tracer("github.com/noah-isme/edutrack-api/internal/service/attempt")
	ctx, span := tracer.Start(ctx, "attempt.submit")
	span.SetAttributes(attribute.String("attempt.id", attemptID.String()))
	defer span.End()

	defer func() {
		observability.AttemptsSubmitted().WithLabelValues(submitOutcome(err)).Inc()
		if err != nil {
			span.SetStatus(codes.Error, submitOutcome(err))
		}
	}()

	if err := s.validator.Struct(req); err != nil {
		return dto.SubmitAttemptResponse{}, err
	}

	attempt, err := s.store.Attempts.GetByID(ctx, tenantID, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmitAttemptResponse{}, ErrAttemptNotFound
		}
		return dto.SubmitAttemptResponse{}, err
	}
	if attempt.StudentUserID != actor.UserID {
		return dto.SubmitAttemptResponse{}, ErrForbidden
	}

	exam, err := s.store.Exams.GetWithQuestions(ctx, tenantID, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmitAttemptResponse{}, ErrExamNotFound
		}
		return dto.SubmitAttemptResponse{}, err
	}

	if err := AssertAttemptSubmittable(exam, attempt); err != nil {
		return dto.SubmitAttemptResponse{}, err
	}

	answers, err := ParseAnswers(exam.Questions, req.Answers)
	if err != nil {
		return dto.SubmitAttemptResponse{}, err
	}

	var (
		graded   models.ExamAttempt
		progress *models.StudentProgress
		recs     []models.AiRecommendation
	)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var txErr error
		graded, txErr = s.grader.GradeAttempt(ctx, tx, exam, attempt, answers)
		if txErr != nil {
			return txErr
		}

		if exam.HasSubject() {
			row, txErr := s.progress.RecalcFromAttempts(ctx, tx, tenantID, actor.UserID, *exam.SubjectID)
			if txErr != nil {
				return txErr
			}
			progress = &row
		}

		if txErr = s.progress.RefreshStudentCounters(ctx, tx, tenantID, actor.UserID); txErr != nil {
			return txErr
		}

		recs, txErr = s.recommendations.GenerateFromAttempt(ctx, tx, exam, graded)
		return txErr
	})
	if err != nil {
		if !errors.Is(err, ErrAttemptAlreadySubmitted) {
			span.RecordError(err)
			s.logger.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("attempt submission rolled back")
		}
		return dto.SubmitAttemptResponse{}, err
	}

	s.progress.Invalidate(ctx, tenantID, actor.UserID)
	observeRecommendations(recs, sourceDeterministic)
	if s.events != nil {
		s.events.Publish(ctx, NewAttemptEvent(EventAttemptGraded, graded, s.now()))
	}

	s.logger.Info().
		Str("attempt_id", graded.ID.String()).
		Float64("score", graded.Score).
		Float64("max_score", graded.MaxScore).
		Msg("attempt submitted")

	response = dto.SubmitAttemptResponse{
		Attempt:         dto.NewAttemptResponse(graded, true),
		DisplayScore:    graded.DisplayScore(),
		Percentage:      graded.Percentage(),
		Recommendations: dto.NewRecommendationResponses(recs),
	}
	if progress != nil {
		mapped := dto.NewProgressResponse(*progress)
		if exam.Subject != nil {
			mapped.SubjectName = exam.Subject.Name
		}
		response.Progress = &mapped
	}
	return response, nil
}

func submitOutcome(err error) string {
	switch {
	case err == nil:
		return "graded"
	case errors.Is(err, ErrAttemptAlreadySubmitted):
		return "conflict"
	case IsValidationError(err), errors.Is(err, ErrAttemptMismatch), errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrForbidden), errors.Is(err, ErrExamNotFound), errors.Is(err, ErrNoQuestions):
		return "invalid"
	default:
		return "failed"
	}
}

// Get returns an attempt with its answers. Students only see their own attempts, and scores stay
// hidden from them while the exam withholds results.
func (s *attemptService) Get(ctx context.Context, tenantID, examID, attemptID uuid.UUID, actor Actor) (dto.AttemptResponse, error) {
	attempt, err := s.store.Attempts.GetDetailed(ctx, tenantID, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptResponse{}, ErrAttemptNotFound
		}
		return dto.AttemptResponse{}, err
	}
	if attempt.ExamID != examID {
		return dto.AttemptResponse{}, ErrAttemptMismatch
	}
	if !actor.IsStaff() && attempt.StudentUserID != actor.UserID {
		return dto.AttemptResponse{}, ErrForbidden
	}

	exam := models.Exam{ID: attempt.ExamID, ShowResultsImmediately: true, AllowReviewAfterSubmission: true}
	if attempt.Exam != nil {
		exam = *attempt.Exam
	}

	visible := resultsVisible(exam, actor)
	if !actor.IsStaff() && (!exam.AllowReviewAfterSubmission || !visible) {
		attempt.Answers = nil
	}
	return dto.NewAttemptResponse(attempt, visible && attempt.IsSubmitted()), nil
}

// ListForExam lists attempts on an exam. Staff see every attempt, students only their own.
func (s *attemptService) ListForExam(ctx context.Context, tenantID, examID uuid.UUID, actor Actor) ([]dto.AttemptResponse, error) {
	exam, err := s.store.Exams.GetByID(ctx, tenantID, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	var studentID *uuid.UUID
	if !actor.IsStaff() {
		studentID = &actor.UserID
	}

	attempts, err := s.store.Attempts.ListByExam(ctx, tenantID, examID, studentID)
	if err != nil {
		return nil, err
	}

	visible := resultsVisible(exam, actor)
	response := make([]dto.AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		response = append(response, dto.NewAttemptResponse(attempt, visible && attempt.IsSubmitted()))
	}
	return response, nil
}

func resultsVisible(exam models.Exam, actor Actor) bool {
	if actor.IsStaff() {
		return true
	}
	return exam.ShowResultsImmediately || exam.Status == models.ExamStatusCompleted
}
