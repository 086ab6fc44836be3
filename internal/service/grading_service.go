package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/observability"
	"github.com/noah-isme/edutrack-api/internal/repository"
)

// GradingEngine scores a submitted attempt and persists one answer row per question.
type GradingEngine interface {
	GradeAttempt(ctx context.Context, tx *repository.Store, exam models.Exam, attempt models.ExamAttempt, answers map[uuid.UUID]SubmittedAnswer) (models.ExamAttempt, error)
}

type gradingEngine struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewGradingEngine constructs the grading engine.
func NewGradingEngine(logger zerolog.Logger) GradingEngine {
	return &gradingEngine{
		logger: logger.With().Str("component", "grading_engine").Logger(),
		now:    time.Now,
	}
}

// GradeAttempt must run inside tx. exam.Questions must be loaded with their options. The attempt
// is claimed before any answer is written so a concurrent grading pass on the same attempt fails
// with ErrAttemptAlreadySubmitted.
func (e *gradingEngine) GradeAttempt(ctx context.Context, tx *repository.Store, exam models.Exam, attempt models.ExamAttempt, answers map[uuid.UUID]SubmittedAnswer) (models.ExamAttempt, error) {
	tracer := otel.Tracer("github.com/noah-isme/edutrack-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.grade_attempt")
	span.SetAttributes(
		attribute.String("grading.attempt_id", attempt.ID.String()),
		attribute.Int("grading.question_count", len(exam.Questions)),
	)
	defer span.End()

	started := time.Now()
	defer func() { observability.GradingDuration().Observe(time.Since(started).Seconds()) }()

	if err := AssertAttemptSubmittable(exam, attempt); err != nil {
		span.SetStatus(codes.Error, "not_submittable")
		return models.ExamAttempt{}, err
	}
	if len(exam.Questions) == 0 {
		span.SetStatus(codes.Error, "no_questions")
		return models.ExamAttempt{}, ErrNoQuestions
	}

	submittedAt := e.now()
	claimed, err := tx.Attempts.ClaimForSubmission(ctx, attempt.InstitutionID, attempt.ID, submittedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim_failed")
		return models.ExamAttempt{}, fmt.Errorf("claim attempt: %w", err)
	}
	if !claimed {
		span.SetStatus(codes.Error, "already_submitted")
		return models.ExamAttempt{}, ErrAttemptAlreadySubmitted
	}

	rows := make([]models.StudentAnswer, 0, len(exam.Questions))
	var score, maxScore float64
	for _, question := range exam.Questions {
		row := GradeQuestion(question, answers[question.ID])
		row.AttemptID = attempt.ID
		row.AnsweredAt = submittedAt
		rows = append(rows, row)

		score += row.PointsAwarded
		maxScore += float64(question.Points)
	}

	if err := tx.Answers.CreateBatch(ctx, rows); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "answers_persist_failed")
		return models.ExamAttempt{}, fmt.Errorf("persist answers: %w", err)
	}

	score = models.Round2(score)
	maxScore = models.Round2(maxScore)
	if err := tx.Attempts.UpdateScore(ctx, attempt.InstitutionID, attempt.ID, score, maxScore, models.GradeStatusCompleted); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "score_update_failed")
		return models.ExamAttempt{}, fmt.Errorf("update attempt score: %w", err)
	}

	for i := range rows {
		question := findQuestion(exam.Questions, rows[i].QuestionID)
		rows[i].Question = &question
	}

	attempt.SubmittedAt = &submittedAt
	attempt.Score = score
	attempt.MaxScore = maxScore
	attempt.GradeStatus = models.GradeStatusCompleted
	attempt.Answers = rows

	span.SetAttributes(attribute.Float64("grading.score", score), attribute.Float64("grading.max_score", maxScore))
	e.logger.Debug().
		Str("attempt_id", attempt.ID.String()).
		Float64("score", score).
		Float64("max_score", maxScore).
		Msg("attempt graded")

	return attempt, nil
}

// GradeQuestion scores one question. A nil answer yields a blank, incorrect row.
// Choice questions award all or nothing; short answers match case-insensitively after trimming
// and stay flagged for human review.
func GradeQuestion(question models.Question, answer SubmittedAnswer) models.StudentAnswer {
	row := models.StudentAnswer{QuestionID: question.ID}

	if question.Type == models.QuestionShortAnswer {
		row.ReviewStatus = models.ReviewNeedsReview
		if text, ok := answer.(TextAnswer); ok {
			value := text.Text
			row.AnswerText = &value
			if question.CorrectAnswerText != nil &&
				strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(*question.CorrectAnswerText)) {
				row.IsCorrect = true
				row.PointsAwarded = float64(question.Points)
			}
		}
		return row
	}

	row.ReviewStatus = models.ReviewAutoGraded
	choice, ok := answer.(ChoiceAnswer)
	if !ok {
		return row
	}

	row.SelectedOptions = []models.StudentAnswerOption{{QuestionOptionID: choice.OptionID}}
	if correct, found := question.CorrectOption(); found && correct.ID == choice.OptionID {
		row.IsCorrect = true
		row.PointsAwarded = float64(question.Points)
	}
	return row
}

func findQuestion(questions []models.Question, id uuid.UUID) models.Question {
	for _, q := range questions {
		if q.ID == id {
			return q
		}
	}
	return models.Question{ID: id}
}
