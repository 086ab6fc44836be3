package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
)

// ProgressListRequest filters progress listings.
type ProgressListRequest struct {
	StudentID *uuid.UUID
	SubjectID *uuid.UUID
	Page      int
	PageSize  int
}

// ProgressService recomputes and serves subject mastery.
type ProgressService interface {
	RecalcFromAttempts(ctx context.Context, tx *repository.Store, tenantID, studentID, subjectID uuid.UUID) (models.StudentProgress, error)
	RefreshStudentCounters(ctx context.Context, tx *repository.Store, tenantID, studentID uuid.UUID) error
	ListForStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]dto.ProgressResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, actor Actor, req ProgressListRequest) (dto.ProgressListResponse, error)
	Invalidate(ctx context.Context, tenantID, studentID uuid.UUID)
}

type progressService struct {
	store    *repository.Store
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewProgressService constructs the progress aggregator. cache may be nil.
func NewProgressService(store *repository.Store, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ProgressService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &progressService{
		store:    store,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "progress_service").Logger(),
		now:      time.Now,
	}
}

// RecalcFromAttempts averages the percentage of every submitted attempt of the student in the
// subject and overwrites the single progress row. Zero attempts yield zero mastery.
func (s *progressService) RecalcFromAttempts(ctx context.Context, tx *repository.Store, tenantID, studentID, subjectID uuid.UUID) (models.StudentProgress, error) {
	tracer := otel.Tracer("github.com/noah-isme/edutrack-api/internal/service/progress")
	ctx, span := tracer.Start(ctx, "progress.recalc")
	span.SetAttributes(
		attribute.String("progress.student_id", studentID.String()),
		attribute.String("progress.subject_id", subjectID.String()),
	)
	defer span.End()

	if tx == nil {
		tx = s.store
	}

	attempts, err := tx.Attempts.ListSubmittedForSubject(ctx, tenantID, studentID, subjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt_lookup_failed")
		return models.StudentProgress{}, fmt.Errorf("list subject attempts: %w", err)
	}

	progress := models.StudentProgress{
		StudentUserID:     studentID,
		SubjectID:         subjectID,
		InstitutionID:     tenantID,
		MasteryPercentage: averagePercentage(attempts),
		UpdatedAt:         s.now(),
	}

	if err := tx.Progress.Upsert(ctx, &progress); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert_failed")
		return models.StudentProgress{}, fmt.Errorf("upsert progress: %w", err)
	}

	span.SetAttributes(attribute.Float64("progress.mastery", progress.MasteryPercentage))
	return progress, nil
}

// RefreshStudentCounters recomputes the completed exam count and overall average on the profile.
func (s *progressService) RefreshStudentCounters(ctx context.Context, tx *repository.Store, tenantID, studentID uuid.UUID) error {
	if tx == nil {
		tx = s.store
	}
	attempts, err := tx.Attempts.ListSubmittedForStudent(ctx, tenantID, studentID)
	if err != nil {
		return fmt.Errorf("list student attempts: %w", err)
	}
	return tx.Students.UpdateCounters(ctx, tenantID, studentID, len(attempts), averagePercentage(attempts), s.now())
}

func averagePercentage(attempts []models.ExamAttempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	var total float64
	for _, attempt := range attempts {
		total += attempt.Percentage()
	}
	return models.Round2(total / float64(len(attempts)))
}

func progressCacheKey(tenantID, studentID uuid.UUID) string {
	return fmt.Sprintf("progress:%s:%s", tenantID, studentID)
}

func (s *progressService) ListForStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]dto.ProgressResponse, error) {
	cacheKey := progressCacheKey(tenantID, studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response []dto.ProgressResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("student_id", studentID.String()).Msg("progress cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
	}

	rows, _, err := s.store.Progress.List(ctx, tenantID, repository.ProgressFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	response := make([]dto.ProgressResponse, 0, len(rows))
	for _, row := range rows {
		response = append(response, dto.NewProgressResponse(row))
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store progress cache")
			}
		}
	}

	return response, nil
}

// List returns progress rows. Students only ever see their own rows.
func (s *progressService) List(ctx context.Context, tenantID uuid.UUID, actor Actor, req ProgressListRequest) (dto.ProgressListResponse, error) {
	filter := repository.ProgressFilter{
		StudentID:  req.StudentID,
		SubjectID:  req.SubjectID,
		Pagination: repository.Pagination{Page: req.Page, PageSize: req.PageSize},
	}
	if !actor.IsStaff() {
		filter.StudentID = &actor.UserID
	}

	rows, total, err := s.store.Progress.List(ctx, tenantID, filter)
	if err != nil {
		return dto.ProgressListResponse{}, err
	}

	items := make([]dto.ProgressResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.NewProgressResponse(row))
	}
	return dto.ProgressListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// Invalidate drops the cached progress of a student. Call it after the writing transaction commits.
func (s *progressService) Invalidate(ctx context.Context, tenantID, studentID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, progressCacheKey(tenantID, studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID.String()).Msg("failed to invalidate progress cache")
	}
}
