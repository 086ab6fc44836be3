package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/observability"
	"github.com/noah-isme/edutrack-api/internal/repository"
	"github.com/noah-isme/edutrack-api/pkg/ai"
)

const (
	strengthThreshold = 85
	actionThreshold   = 70

	maxWrongAnswerSamples = 5
	wrongAnswerSampleLen  = 160
	maxGeneratedItems     = 4
	maxRecommendationLen  = 2000

	sourceDeterministic = "deterministic"
	sourceGenerated     = "generated"
	sourceReview        = "review"
)

const generatedSchema = `{
  "type": "object",
  "required": ["recommendations"],
  "properties": {
    "recommendations": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type", "text"],
        "properties": {
          "type": {"enum": ["strength", "weakness", "action", "resource"]},
          "text": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

const recommendationSystemPrompt = `You are a study coach for secondary school students. ` +
	`Given an exam result, reply with a JSON object of the form ` +
	`{"recommendations":[{"type":"strength|weakness|action|resource","text":"..."}]} ` +
	`containing at most 4 short, concrete recommendations written directly to the student.`

// RecommendationContext summarises a graded attempt for text generation.
type RecommendationContext struct {
	SubjectName  string
	ExamTitle    string
	Percentage   float64
	Correct      int
	Incorrect    int
	Pending      int
	WrongAnswers []WrongAnswerSample
}

// WrongAnswerSample is one missed question with the student's response.
type WrongAnswerSample struct {
	Question string
	Answer   string
}

// RecommendationListRequest filters recommendation listings.
type RecommendationListRequest struct {
	StudentID *uuid.UUID
	SubjectID *uuid.UUID
	ExamID    *uuid.UUID
	Type      string
	Page      int
	PageSize  int
}

// RecommendationOptions tunes rich generation.
type RecommendationOptions struct {
	Timeout        time.Duration
	MaxTokens      int
	Temperature    float64
	MaxPromptChars int
}

// RecommendationService produces study recommendations for graded attempts.
type RecommendationService interface {
	GenerateFromAttempt(ctx context.Context, tx *repository.Store, exam models.Exam, attempt models.ExamAttempt) ([]models.AiRecommendation, error)
	RegenerateForAttempt(ctx context.Context, tenantID, examID, attemptID uuid.UUID, actor Actor) ([]models.AiRecommendation, error)
	ReviewFollowUp(ctx context.Context, tx *repository.Store, exam models.Exam, attempt models.ExamAttempt) (*models.AiRecommendation, error)
	List(ctx context.Context, tenantID uuid.UUID, actor Actor, req RecommendationListRequest) (dto.RecommendationListResponse, error)
}

type recommendationService struct {
	store     *repository.Store
	generator ai.TextGenerator
	options   RecommendationOptions
	schema    *jsonschema.Schema
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRecommendationService constructs the generator. generator may be nil, in which case
// regeneration always uses the deterministic tiers.
func NewRecommendationService(store *repository.Store, generator ai.TextGenerator, options RecommendationOptions, logger zerolog.Logger) RecommendationService {
	if options.Timeout <= 0 {
		options.Timeout = 15 * time.Second
	}
	if options.MaxTokens <= 0 {
		options.MaxTokens = 500
	}
	if options.MaxPromptChars <= 0 {
		options.MaxPromptChars = 4000
	}

	return &recommendationService{
		store:     store,
		generator: generator,
		options:   options,
		schema:    mustCompileSchema("recommendations.json", generatedSchema),
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "recommendation_service").Logger(),
		now:       time.Now,
	}
}

func mustCompileSchema(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// GenerateFromAttempt applies the percentage tiers to a graded attempt and persists the result in tx.
func (s *recommendationService) GenerateFromAttempt(ctx context.Context, tx *repository.Store, exam models.Exam, attempt models.ExamAttempt) ([]models.AiRecommendation, error) {
	if tx == nil {
		tx = s.store
	}

	base := s.baseRecommendation(exam, attempt)
	if !exam.HasSubject() {
		rec := base
		rec.Type = models.RecommendationAction
		rec.RecommendationText = fmt.Sprintf("Review your answers for %q and focus on the questions you missed before your next exam.", exam.Title)
		recs := []models.AiRecommendation{rec}
		if err := tx.Recommendations.Create(ctx, recs); err != nil {
			return nil, fmt.Errorf("persist recommendations: %w", err)
		}
		return recs, nil
	}

	subjectName, err := s.subjectName(ctx, tx, exam)
	if err != nil {
		return nil, err
	}

	pct := attempt.Percentage()
	pctText := strconv.FormatFloat(pct, 'f', -1, 64)

	var recs []models.AiRecommendation
	switch {
	case pct >= strengthThreshold:
		rec := base
		rec.Type = models.RecommendationStrength
		rec.RecommendationText = fmt.Sprintf("Excellent work in %s: you scored %s%%. Challenge yourself with more advanced material in this subject.", subjectName, pctText)
		recs = append(recs, rec)
	case pct >= actionThreshold:
		rec := base
		rec.Type = models.RecommendationAction
		rec.RecommendationText = fmt.Sprintf("Good progress in %s (%s%%). Review the questions you missed and practise similar exercises to reach mastery.", subjectName, pctText)
		recs = append(recs, rec)
	default:
		weakness := base
		weakness.Type = models.RecommendationWeakness
		weakness.RecommendationText = fmt.Sprintf("Your result in %s (%s%%) shows gaps in this subject. Revisit the core concepts before your next attempt.", subjectName, pctText)

		resource, err := s.resourceRecommendation(ctx, tx, base, subjectName)
		if err != nil {
			return nil, err
		}
		recs = append(recs, weakness, resource)
	}

	if err := tx.Recommendations.Create(ctx, recs); err != nil {
		return nil, fmt.Errorf("persist recommendations: %w", err)
	}
	return recs, nil
}

// ReviewFollowUp appends an action recommendation when a reviewed attempt sits below the action tier.
func (s *recommendationService) ReviewFollowUp(ctx context.Context, tx *repository.Store, exam models.Exam, attempt models.ExamAttempt) (*models.AiRecommendation, error) {
	if tx == nil {
		tx = s.store
	}
	pct := attempt.Percentage()
	if pct >= actionThreshold {
		return nil, nil
	}

	rec := s.baseRecommendation(exam, attempt)
	rec.Type = models.RecommendationAction
	rec.RecommendationText = fmt.Sprintf("After teacher review your score on %q is %s%%. Go through the reviewer feedback and retry the questions you missed.",
		exam.Title, strconv.FormatFloat(pct, 'f', -1, 64))

	recs := []models.AiRecommendation{rec}
	if err := tx.Recommendations.Create(ctx, recs); err != nil {
		return nil, fmt.Errorf("persist review recommendation: %w", err)
	}
	return &recs[0], nil
}

// RegenerateForAttempt asks the text generator for richer recommendations. It never runs inside a
// transaction while waiting on the provider and falls back to the deterministic tiers on failure.
func (s *recommendationService) RegenerateForAttempt(ctx context.Context, tenantID, examID, attemptID uuid.UUID, actor Actor) ([]models.AiRecommendation, error) {
	tracer := otel.Tracer("github.com/noah-isme/edutrack-api/internal/service/recommendation")
	ctx, span := tracer.Start(ctx, "recommendation.regenerate")
	span.SetAttributes(attribute.String("recommendation.attempt_id", attemptID.String()))
	defer span.End()

	attempt, err := s.store.Attempts.GetDetailed(ctx, tenantID, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.ExamID != examID {
		return nil, ErrAttemptMismatch
	}
	if !actor.IsStaff() && attempt.StudentUserID != actor.UserID {
		return nil, ErrForbidden
	}
	if !attempt.IsSubmitted() {
		return nil, ErrAttemptNotSubmitted
	}

	exam, err := s.store.Exams.GetByID(ctx, tenantID, attempt.ExamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	items, reason := s.generate(ctx, exam, attempt)
	if reason != "" {
		observability.RecommendationFallbacks().WithLabelValues(reason).Inc()
		s.logger.Info().
			Str("attempt_id", attempt.ID.String()).
			Str("reason", reason).
			Msg("falling back to deterministic recommendations")

		var recs []models.AiRecommendation
		err := s.store.Transaction(ctx, func(tx *repository.Store) error {
			var genErr error
			recs, genErr = s.GenerateFromAttempt(ctx, tx, exam, attempt)
			return genErr
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fallback_failed")
			return nil, err
		}
		observeRecommendations(recs, sourceDeterministic)
		return recs, nil
	}

	base := s.baseRecommendation(exam, attempt)
	recs := make([]models.AiRecommendation, 0, len(items))
	for _, item := range items {
		rec := base
		rec.Type = item.Type
		rec.RecommendationText = item.Text
		if item.Type == models.RecommendationResource {
			if payload, ok, err := s.latestResourcePayload(ctx, s.store, tenantID); err != nil {
				return nil, err
			} else if ok {
				rec.Resource = payload
			}
		}
		recs = append(recs, rec)
	}

	if err := s.store.Recommendations.Create(ctx, recs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_failed")
		return nil, fmt.Errorf("persist recommendations: %w", err)
	}
	observeRecommendations(recs, sourceGenerated)
	span.SetAttributes(attribute.Int("recommendation.count", len(recs)))
	return recs, nil
}

type generatedItem struct {
	Type models.RecommendationType `json:"type"`
	Text string                    `json:"text"`
}

// generate returns the parsed items, or a non-empty fallback reason.
func (s *recommendationService) generate(ctx context.Context, exam models.Exam, attempt models.ExamAttempt) ([]generatedItem, string) {
	if s.generator == nil {
		return nil, "disabled"
	}

	subjectName, err := s.subjectName(ctx, s.store, exam)
	if err != nil {
		return nil, "context_failed"
	}
	prompt := s.buildPrompt(BuildRecommendationContext(subjectName, exam, attempt))

	callCtx, cancel := context.WithTimeout(ctx, s.options.Timeout)
	defer cancel()

	result, err := s.generator.Generate(callCtx, ai.GenerationRequest{
		System:      recommendationSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   s.options.MaxTokens,
		Temperature: s.options.Temperature,
		JSON:        true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", s.generator.Provider()).Msg("text generation failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "timeout"
		}
		if errors.Is(err, ai.ErrEmptyResponse) {
			return nil, "empty"
		}
		return nil, "error"
	}

	items := s.parseGenerated(result.Text)
	if len(items) == 0 {
		return nil, "empty"
	}
	return items, ""
}

// parseGenerated accepts the JSON contract or, failing that, any non-empty text as one action.
func (s *recommendationService) parseGenerated(raw string) []generatedItem {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		if err := s.schema.Validate(decoded); err == nil {
			var payload struct {
				Recommendations []generatedItem `json:"recommendations"`
			}
			if err := json.Unmarshal([]byte(text), &payload); err == nil {
				items := make([]generatedItem, 0, maxGeneratedItems)
				for _, item := range payload.Recommendations {
					clean := s.clean(item.Text)
					if clean == "" || !item.Type.Valid() {
						continue
					}
					items = append(items, generatedItem{Type: item.Type, Text: clean})
					if len(items) == maxGeneratedItems {
						break
					}
				}
				return items
			}
		}
	}

	clean := s.clean(text)
	if clean == "" {
		return nil
	}
	return []generatedItem{{Type: models.RecommendationAction, Text: clean}}
}

func (s *recommendationService) clean(text string) string {
	return truncateRunes(strings.TrimSpace(s.sanitizer.Sanitize(text)), maxRecommendationLen)
}

// BuildRecommendationContext counts answer outcomes and samples the missed questions.
func BuildRecommendationContext(subjectName string, exam models.Exam, attempt models.ExamAttempt) RecommendationContext {
	rc := RecommendationContext{
		SubjectName: subjectName,
		ExamTitle:   exam.Title,
		Percentage:  attempt.Percentage(),
	}

	for _, answer := range attempt.Answers {
		switch {
		case answer.ReviewStatus == models.ReviewNeedsReview && !answer.IsCorrect:
			rc.Pending++
		case answer.IsCorrect:
			rc.Correct++
		default:
			rc.Incorrect++
			if len(rc.WrongAnswers) < maxWrongAnswerSamples && answer.Question != nil {
				rc.WrongAnswers = append(rc.WrongAnswers, WrongAnswerSample{
					Question: truncateRunes(answer.Question.Text, wrongAnswerSampleLen),
					Answer:   truncateRunes(describeAnswer(answer), wrongAnswerSampleLen),
				})
			}
		}
	}
	return rc
}

func describeAnswer(answer models.StudentAnswer) string {
	if answer.AnswerText != nil && strings.TrimSpace(*answer.AnswerText) != "" {
		return *answer.AnswerText
	}
	if len(answer.SelectedOptions) > 0 && answer.Question != nil {
		for _, option := range answer.Question.Options {
			if option.ID == answer.SelectedOptions[0].QuestionOptionID {
				return option.Text
			}
		}
	}
	return "(no answer)"
}

func (s *recommendationService) buildPrompt(rc RecommendationContext) string {
	var b strings.Builder
	subject := rc.SubjectName
	if subject == "" {
		subject = "general"
	}
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Exam: %s\n", rc.ExamTitle)
	fmt.Fprintf(&b, "Score: %s%%\n", strconv.FormatFloat(rc.Percentage, 'f', -1, 64))
	fmt.Fprintf(&b, "Correct: %d, Incorrect: %d, Pending review: %d\n", rc.Correct, rc.Incorrect, rc.Pending)
	if len(rc.WrongAnswers) > 0 {
		b.WriteString("Missed questions:\n")
		for i, sample := range rc.WrongAnswers {
			fmt.Fprintf(&b, "%d. %s | answered: %s\n", i+1, sample.Question, sample.Answer)
		}
	}
	return truncateRunes(b.String(), s.options.MaxPromptChars)
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func (s *recommendationService) baseRecommendation(exam models.Exam, attempt models.ExamAttempt) models.AiRecommendation {
	examID := exam.ID
	return models.AiRecommendation{
		InstitutionID: attempt.InstitutionID,
		StudentUserID: attempt.StudentUserID,
		SubjectID:     exam.SubjectID,
		ExamID:        &examID,
		CreatedAt:     s.now(),
	}
}

func (s *recommendationService) subjectName(ctx context.Context, tx *repository.Store, exam models.Exam) (string, error) {
	if !exam.HasSubject() {
		return "", nil
	}
	if exam.Subject != nil && exam.Subject.Name != "" {
		return exam.Subject.Name, nil
	}
	subject, err := tx.Subjects.GetByID(ctx, exam.InstitutionID, *exam.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "this subject", nil
		}
		return "", fmt.Errorf("load subject: %w", err)
	}
	return subject.Name, nil
}

func (s *recommendationService) resourceRecommendation(ctx context.Context, tx *repository.Store, base models.AiRecommendation, subjectName string) (models.AiRecommendation, error) {
	rec := base
	rec.Type = models.RecommendationResource

	resource, err := tx.Resources.Latest(ctx, base.InstitutionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec.RecommendationText = fmt.Sprintf("Look for additional study material on %s and practise with guided exercises.", subjectName)
			return rec, nil
		}
		return models.AiRecommendation{}, fmt.Errorf("load study resource: %w", err)
	}

	payload, err := encodeResource(resource)
	if err != nil {
		return models.AiRecommendation{}, err
	}
	rec.RecommendationText = fmt.Sprintf("Study %q to strengthen your understanding of %s.", resource.Title, subjectName)
	rec.Resource = payload
	return rec, nil
}

func (s *recommendationService) latestResourcePayload(ctx context.Context, tx *repository.Store, tenantID uuid.UUID) (datatypes.JSON, bool, error) {
	resource, err := tx.Resources.Latest(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load study resource: %w", err)
	}
	payload, err := encodeResource(resource)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func encodeResource(resource models.StudyResource) (datatypes.JSON, error) {
	payload, err := json.Marshal(models.ResourcePayload{
		Title:             resource.Title,
		Type:              resource.ResourceType,
		URL:               resource.URL,
		Difficulty:        resource.Difficulty,
		EstimatedDuration: resource.EstimatedDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("encode resource payload: %w", err)
	}
	return datatypes.JSON(payload), nil
}

// List returns recommendations. Students only see their own.
func (s *recommendationService) List(ctx context.Context, tenantID uuid.UUID, actor Actor, req RecommendationListRequest) (dto.RecommendationListResponse, error) {
	if req.Type != "" && !models.RecommendationType(req.Type).Valid() {
		return dto.RecommendationListResponse{}, &FieldError{Field: "type", Message: "must be one of strength, weakness, action, resource"}
	}

	filter := repository.RecommendationFilter{
		StudentID:  req.StudentID,
		SubjectID:  req.SubjectID,
		ExamID:     req.ExamID,
		Type:       req.Type,
		Pagination: repository.Pagination{Page: req.Page, PageSize: req.PageSize},
	}
	if !actor.IsStaff() {
		filter.StudentID = &actor.UserID
	}

	recs, total, err := s.store.Recommendations.List(ctx, tenantID, filter)
	if err != nil {
		return dto.RecommendationListResponse{}, err
	}
	return dto.RecommendationListResponse{
		Items:      dto.NewRecommendationResponses(recs),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func observeRecommendations(recs []models.AiRecommendation, source string) {
	for _, rec := range recs {
		observability.RecommendationsCreated().WithLabelValues(string(rec.Type), source).Inc()
	}
}
