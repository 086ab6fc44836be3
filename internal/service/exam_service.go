package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
)

const defaultExamMaxAttempts = 3

// ExamService manages exams and their lifecycle.
type ExamService interface {
	Create(ctx context.Context, tenantID uuid.UUID, actor Actor, req dto.ExamCreateRequest) (dto.ExamResponse, error)
	Get(ctx context.Context, tenantID, id uuid.UUID, actor Actor) (dto.ExamResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, actor Actor, req dto.ExamListRequest) (dto.ExamListResponse, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req dto.ExamUpdateRequest) (dto.ExamResponse, error)
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, req dto.ExamStatusRequest) (dto.ExamResponse, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type examService struct {
	store     *repository.Store
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExamService constructs the exam management service.
func NewExamService(store *repository.Store, validate *validator.Validate, logger zerolog.Logger) ExamService {
	return &examService{
		store:     store,
		validator: validate,
		logger:    logger.With().Str("component", "exam_service").Logger(),
	}
}

func (s *examService) Create(ctx context.Context, tenantID uuid.UUID, actor Actor, req dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}
	if err := validateWindow(req.AvailableFrom, req.AvailableUntil); err != nil {
		return dto.ExamResponse{}, err
	}

	subjectID, err := s.resolveSubject(ctx, tenantID, req.SubjectID)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	groups, err := s.resolveGroups(ctx, tenantID, req.GroupIDs)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	maxAttempts := defaultExamMaxAttempts
	if req.MaxAttempts != nil {
		maxAttempts = *req.MaxAttempts
	}

	exam := models.Exam{
		InstitutionID:              tenantID,
		SubjectID:                  subjectID,
		TeacherID:                  actor.UserID,
		Title:                      strings.TrimSpace(req.Title),
		Instructions:               strings.TrimSpace(req.Instructions),
		DurationMinutes:            req.DurationMinutes,
		Grade:                      req.Grade,
		Status:                     models.ExamStatusDraft,
		MaxAttempts:                &maxAttempts,
		ShowResultsImmediately:     boolOr(req.ShowResultsImmediately, true),
		AllowReviewAfterSubmission: boolOr(req.AllowReviewAfterSubmission, true),
		RandomizeQuestions:         boolOr(req.RandomizeQuestions, false),
		AvailableFrom:              req.AvailableFrom,
		AvailableUntil:             req.AvailableUntil,
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Exams.Create(ctx, &exam); err != nil {
			return err
		}
		if len(groups) > 0 {
			return tx.Exams.ReplaceGroups(ctx, &exam, groups)
		}
		return nil
	})
	if err != nil {
		return dto.ExamResponse{}, fmt.Errorf("create exam: %w", err)
	}

	s.logger.Info().Str("exam_id", exam.ID.String()).Str("teacher_id", actor.UserID.String()).Msg("exam created")
	return s.staffView(ctx, tenantID, exam.ID)
}

// Get returns the exam with its questions. Students never see drafts or correct answers.
func (s *examService) Get(ctx context.Context, tenantID, id uuid.UUID, actor Actor) (dto.ExamResponse, error) {
	exam, err := s.store.Exams.GetWithQuestions(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}
	if !actor.IsStaff() && exam.Status == models.ExamStatusDraft {
		return dto.ExamResponse{}, ErrExamNotFound
	}
	return dto.NewExamResponse(exam, actor.IsStaff()), nil
}

func (s *examService) staffView(ctx context.Context, tenantID, id uuid.UUID) (dto.ExamResponse, error) {
	exam, err := s.store.Exams.GetWithQuestions(ctx, tenantID, id)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	return dto.NewExamResponse(exam, true), nil
}

func (s *examService) List(ctx context.Context, tenantID uuid.UUID, actor Actor, req dto.ExamListRequest) (dto.ExamListResponse, error) {
	filter := repository.ExamFilter{
		Grade:        req.Grade,
		Search:       strings.TrimSpace(req.Search),
		ExcludeDraft: !actor.IsStaff(),
		Pagination:   repository.Pagination{Page: req.Page, PageSize: req.PageSize},
	}
	if req.Status != "" {
		if !models.ExamStatus(req.Status).Valid() {
			return dto.ExamListResponse{}, &FieldError{Field: "status", Message: "must be one of draft, published, active, completed"}
		}
		filter.Status = req.Status
	}
	if req.SubjectID != "" {
		subjectID, err := uuid.Parse(req.SubjectID)
		if err != nil {
			return dto.ExamListResponse{}, &FieldError{Field: "subject_id", Message: "must be a valid uuid"}
		}
		filter.SubjectID = &subjectID
	}

	exams, total, err := s.store.Exams.List(ctx, tenantID, filter)
	if err != nil {
		return dto.ExamListResponse{}, err
	}

	items := make([]dto.ExamResponse, 0, len(exams))
	for _, exam := range exams {
		items = append(items, dto.NewExamResponse(exam, false))
	}
	return dto.ExamListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *examService) Update(ctx context.Context, tenantID, id uuid.UUID, req dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.store.Exams.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}
	if err := AssertExamEditable(exam); err != nil {
		return dto.ExamResponse{}, err
	}

	if req.SubjectID != nil {
		subjectID, err := s.resolveSubject(ctx, tenantID, req.SubjectID)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		exam.SubjectID = subjectID
		exam.Subject = nil
	}
	if req.Title != nil {
		exam.Title = strings.TrimSpace(*req.Title)
	}
	if req.Instructions != nil {
		exam.Instructions = strings.TrimSpace(*req.Instructions)
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.Grade != nil {
		exam.Grade = *req.Grade
	}
	if req.MaxAttempts != nil {
		maxAttempts := *req.MaxAttempts
		exam.MaxAttempts = &maxAttempts
	}
	if req.ShowResultsImmediately != nil {
		exam.ShowResultsImmediately = *req.ShowResultsImmediately
	}
	if req.AllowReviewAfterSubmission != nil {
		exam.AllowReviewAfterSubmission = *req.AllowReviewAfterSubmission
	}
	if req.RandomizeQuestions != nil {
		exam.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.AvailableFrom != nil {
		exam.AvailableFrom = req.AvailableFrom
	}
	if req.AvailableUntil != nil {
		exam.AvailableUntil = req.AvailableUntil
	}
	if err := validateWindow(exam.AvailableFrom, exam.AvailableUntil); err != nil {
		return dto.ExamResponse{}, err
	}

	var groups []models.Group
	if req.GroupIDs != nil {
		if groups, err = s.resolveGroups(ctx, tenantID, req.GroupIDs); err != nil {
			return dto.ExamResponse{}, err
		}
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Exams.Update(ctx, &exam); err != nil {
			return err
		}
		if req.GroupIDs != nil {
			return tx.Exams.ReplaceGroups(ctx, &exam, groups)
		}
		return nil
	})
	if err != nil {
		return dto.ExamResponse{}, fmt.Errorf("update exam: %w", err)
	}

	return s.staffView(ctx, tenantID, id)
}

// SetStatus applies a lifecycle transition. Publishing requires at least one question.
func (s *examService) SetStatus(ctx context.Context, tenantID, id uuid.UUID, req dto.ExamStatusRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.store.Exams.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	count, err := s.store.Questions.CountByExam(ctx, exam.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	next := models.ExamStatus(req.Status)
	if err := AssertExamTransition(exam.Status, next, count); err != nil {
		return dto.ExamResponse{}, err
	}
	if err := s.store.Exams.UpdateStatus(ctx, tenantID, exam.ID, next); err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().
		Str("exam_id", exam.ID.String()).
		Str("from", string(exam.Status)).
		Str("to", string(next)).
		Msg("exam status changed")

	return s.staffView(ctx, tenantID, id)
}

func (s *examService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	exam, err := s.store.Exams.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}
	if err := AssertExamDeletable(exam); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.Exams.Delete(ctx, tenantID, exam.ID)
	})
}

func (s *examService) resolveSubject(ctx context.Context, tenantID uuid.UUID, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	subjectID, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, &FieldError{Field: "subject_id", Message: "must be a valid uuid"}
	}
	if _, err := s.store.Subjects.GetByID(ctx, tenantID, subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &FieldError{Field: "subject_id", Message: "subject does not exist"}
		}
		return nil, err
	}
	return &subjectID, nil
}

func (s *examService) resolveGroups(ctx context.Context, tenantID uuid.UUID, raw []string) ([]models.Group, error) {
	if len(raw) == 0 {
		return []models.Group{}, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, &FieldError{Field: "group_ids", Message: "must contain valid uuids"}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	groups, err := s.store.Groups.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	if len(groups) != len(ids) {
		return nil, &FieldError{Field: "group_ids", Message: "one or more groups do not exist"}
	}
	return groups, nil
}

func validateWindow(from, until *time.Time) error {
	if from != nil && until != nil && !until.After(*from) {
		return &FieldError{Field: "available_until", Message: "must be after available_from"}
	}
	return nil
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
