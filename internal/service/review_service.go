package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
)

// ReviewService lets teachers override the grading of short answers.
type ReviewService interface {
	Review(ctx context.Context, tenantID, answerID uuid.UUID, actor Actor, req dto.ReviewAnswerRequest) (dto.ReviewAnswerResponse, error)
}

type reviewService struct {
	store           *repository.Store
	progress        ProgressService
	recommendations RecommendationService
	events          AttemptEventPublisher
	sanitizer       *bluemonday.Policy
	validator       *validator.Validate
	logger          zerolog.Logger
	now             func() time.Time
}

// NewReviewService wires the manual review path. events may be nil.
func NewReviewService(store *repository.Store, progress ProgressService, recommendations RecommendationService, events AttemptEventPublisher, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	return &reviewService{
		store:           store,
		progress:        progress,
		recommendations: recommendations,
		events:          events,
		sanitizer:       bluemonday.StrictPolicy(),
		validator:       validate,
		logger:          logger.With().Str("component", "review_service").Logger(),
		now:             time.Now,
	}
}

// Review persists the override, then recomputes the attempt totals and subject progress in the same
// transaction. An action recommendation is appended when the attempt drops below the action tier.
func (s *reviewService) Review(ctx context.Context, tenantID, answerID uuid.UUID, actor Actor, req dto.ReviewAnswerRequest) (dto.ReviewAnswerResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/edutrack-api/internal/service/review")
	ctx, span := tracer.Start(ctx, "review.answer")
	span.SetAttributes(attribute.String("review.answer_id", answerID.String()))
	defer span.End()

	if !actor.IsStaff() {
		return dto.ReviewAnswerResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ReviewAnswerResponse{}, err
	}

	answer, err := s.store.Answers.GetByID(ctx, tenantID, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewAnswerResponse{}, ErrAnswerNotFound
		}
		return dto.ReviewAnswerResponse{}, err
	}
	if answer.Question == nil || answer.Question.Type != models.QuestionShortAnswer {
		return dto.ReviewAnswerResponse{}, ErrNotShortAnswer
	}
	if *req.PointsAwarded > float64(answer.Question.Points) {
		return dto.ReviewAnswerResponse{}, ErrPointsExceedMaximum
	}
	if answer.Attempt == nil || answer.Attempt.Exam == nil {
		return dto.ReviewAnswerResponse{}, ErrAttemptNotFound
	}
	exam := *answer.Attempt.Exam

	answer.IsCorrect = *req.IsCorrect
	answer.PointsAwarded = models.Round2(*req.PointsAwarded)
	answer.ReviewStatus = models.ReviewReviewed
	answer.Explanation = s.sanitizeExplanation(req.Explanation)

	var (
		attempt  models.ExamAttempt
		progress *models.StudentProgress
		followUp *models.AiRecommendation
	)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Answers.UpdateReview(ctx, &answer); err != nil {
			return fmt.Errorf("update answer: %w", err)
		}

		totals, err := tx.Answers.Totals(ctx, answer.AttemptID)
		if err != nil {
			return fmt.Errorf("sum answers: %w", err)
		}
		if err := tx.Attempts.UpdateScore(ctx, tenantID, answer.AttemptID, models.Round2(totals.Score), models.Round2(totals.MaxScore), models.GradeStatusCompleted); err != nil {
			return fmt.Errorf("update attempt score: %w", err)
		}

		attempt, err = tx.Attempts.GetByID(ctx, tenantID, answer.AttemptID)
		if err != nil {
			return fmt.Errorf("reload attempt: %w", err)
		}

		if exam.HasSubject() {
			row, err := s.progress.RecalcFromAttempts(ctx, tx, tenantID, attempt.StudentUserID, *exam.SubjectID)
			if err != nil {
				return err
			}
			progress = &row
		}
		if err := s.progress.RefreshStudentCounters(ctx, tx, tenantID, attempt.StudentUserID); err != nil {
			return err
		}

		followUp, err = s.recommendations.ReviewFollowUp(ctx, tx, exam, attempt)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review_failed")
		return dto.ReviewAnswerResponse{}, err
	}

	s.progress.Invalidate(ctx, tenantID, attempt.StudentUserID)
	if followUp != nil {
		observeRecommendations([]models.AiRecommendation{*followUp}, sourceReview)
	}
	if s.events != nil {
		s.events.Publish(ctx, NewAttemptEvent(EventAttemptReviewed, attempt, s.now()))
	}

	s.logger.Info().
		Str("answer_id", answer.ID.String()).
		Str("reviewer_id", actor.UserID.String()).
		Float64("points_awarded", answer.PointsAwarded).
		Msg("answer reviewed")

	response := dto.ReviewAnswerResponse{
		StudentAnswer: dto.NewAnswerResponse(answer, true),
		Attempt:       dto.NewAttemptResponse(attempt, true),
	}
	if progress != nil {
		mapped := dto.NewProgressResponse(*progress)
		response.Progress = &mapped
	}
	if followUp != nil {
		mapped := dto.NewRecommendationResponse(*followUp)
		response.Recommendation = &mapped
	}
	return response, nil
}

func (s *reviewService) sanitizeExplanation(explanation *string) *string {
	if explanation == nil {
		return nil
	}
	clean := strings.TrimSpace(s.sanitizer.Sanitize(*explanation))
	if clean == "" {
		return nil
	}
	return &clean
}
