package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
)

// QuestionService manages the questions of an exam.
type QuestionService interface {
	List(ctx context.Context, tenantID, examID uuid.UUID, actor Actor) ([]dto.QuestionResponse, error)
	Create(ctx context.Context, tenantID, examID uuid.UUID, req dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, tenantID, examID, questionID uuid.UUID, req dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, tenantID, examID, questionID uuid.UUID) error
}

type questionService struct {
	store     *repository.Store
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionService constructs the question service.
func NewQuestionService(store *repository.Store, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		store:     store,
		validator: validate,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context, tenantID, examID uuid.UUID, actor Actor) ([]dto.QuestionResponse, error) {
	exam, err := s.loadExam(ctx, tenantID, examID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && exam.Status == models.ExamStatusDraft {
		return nil, ErrExamNotFound
	}

	questions, err := s.store.Questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	response := make([]dto.QuestionResponse, 0, len(questions))
	for _, question := range questions {
		response = append(response, dto.NewQuestionResponse(question, actor.IsStaff()))
	}
	return response, nil
}

func (s *questionService) Create(ctx context.Context, tenantID, examID uuid.UUID, req dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionResponse{}, err
	}

	exam, err := s.loadExam(ctx, tenantID, examID)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := AssertExamEditable(exam); err != nil {
		return dto.QuestionResponse{}, err
	}

	kind := models.QuestionType(req.Type)
	options := dto.ToQuestionOptions(req.Options)
	correctText := normaliseCorrectText(kind, req.CorrectAnswerText)
	if err := ValidateQuestionShape(kind, options, correctText); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		ExamID:            exam.ID,
		Text:              strings.TrimSpace(req.Text),
		Type:              kind,
		Points:            req.Points,
		CorrectAnswerText: correctText,
		Options:           options,
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if req.OrderIndex != nil {
			question.OrderIndex = *req.OrderIndex
		} else {
			count, err := tx.Questions.CountByExam(ctx, exam.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				maxIndex, err := tx.Questions.MaxOrderIndex(ctx, exam.ID)
				if err != nil {
					return err
				}
				question.OrderIndex = maxIndex + 1
			}
		}
		return tx.Questions.Create(ctx, &question)
	})
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Str("exam_id", exam.ID.String()).Str("question_id", question.ID.String()).Msg("question created")
	return dto.NewQuestionResponse(question, true), nil
}

// Update changes a question. Options sent in the request replace the existing set atomically.
func (s *questionService) Update(ctx context.Context, tenantID, examID, questionID uuid.UUID, req dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionResponse{}, err
	}

	exam, err := s.loadExam(ctx, tenantID, examID)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := AssertExamEditable(exam); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.store.Questions.GetByID(ctx, exam.ID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	if req.Text != nil {
		question.Text = strings.TrimSpace(*req.Text)
	}
	if req.Type != nil {
		question.Type = models.QuestionType(*req.Type)
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.OrderIndex != nil {
		question.OrderIndex = *req.OrderIndex
	}
	if req.CorrectAnswerText != nil {
		question.CorrectAnswerText = req.CorrectAnswerText
	}
	question.CorrectAnswerText = normaliseCorrectText(question.Type, question.CorrectAnswerText)

	var replacement []models.QuestionOption
	finalOptions := question.Options
	switch {
	case req.Options != nil:
		replacement = dto.ToQuestionOptions(req.Options)
		finalOptions = replacement
	case question.Type == models.QuestionShortAnswer && len(question.Options) > 0:
		replacement = []models.QuestionOption{}
		finalOptions = replacement
	}

	if err := ValidateQuestionShape(question.Type, finalOptions, question.CorrectAnswerText); err != nil {
		return dto.QuestionResponse{}, err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.Questions.Update(ctx, &question, replacement)
	})
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if replacement != nil {
		question.Options = replacement
	}
	return dto.NewQuestionResponse(question, true), nil
}

// Delete removes a question unless it is the last one of the exam.
func (s *questionService) Delete(ctx context.Context, tenantID, examID, questionID uuid.UUID) error {
	exam, err := s.loadExam(ctx, tenantID, examID)
	if err != nil {
		return err
	}
	if err := AssertExamEditable(exam); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Questions.GetByID(ctx, exam.ID, questionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestionNotFound
			}
			return err
		}
		count, err := tx.Questions.CountByExam(ctx, exam.ID)
		if err != nil {
			return err
		}
		if err := AssertQuestionDeletable(count); err != nil {
			return err
		}
		if err := tx.Questions.Delete(ctx, exam.ID, questionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestionNotFound
			}
			return err
		}
		return nil
	})
}

func (s *questionService) loadExam(ctx context.Context, tenantID, examID uuid.UUID) (models.Exam, error) {
	exam, err := s.store.Exams.GetByID(ctx, tenantID, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Exam{}, ErrExamNotFound
		}
		return models.Exam{}, err
	}
	return exam, nil
}

// normaliseCorrectText keeps correct_answer_text only for short answers.
func normaliseCorrectText(kind models.QuestionType, text *string) *string {
	if kind != models.QuestionShortAnswer || text == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*text)
	return &trimmed
}
