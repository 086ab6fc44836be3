package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/internal/utils"
)

// AttemptHandler exposes the exam taking flow.
type AttemptHandler struct {
	attempts        service.AttemptService
	recommendations service.RecommendationService
	logger          zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(attempts service.AttemptService, recommendations service.RecommendationService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts:        attempts,
		recommendations: recommendations,
		logger:          logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register attaches attempt routes below /exams/:exam/attempts.
func (h *AttemptHandler) Register(router fiber.Router) {
	student := middleware.RequireRole(models.RoleStudent)

	router.Post("/start", student, h.start)
	router.Get("", h.list)
	router.Get("/:attempt", h.get)
	router.Post("/:attempt/submit", student, h.submit)
	router.Post("/:attempt/recommendations", h.regenerate)
}

func (h *AttemptHandler) start(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	attempt, created, err := h.attempts.Start(c.UserContext(), tenantID, examID, actor)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if created {
		requestLogger(h.logger, c).Info().
			Str("attempt_id", attempt.ID.String()).
			Int("attempt_number", attempt.AttemptNumber).
			Msg("attempt started")
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt started", attempt)
	}
	return utils.SendSuccess(c, "attempt resumed", attempt)
}

func (h *AttemptHandler) list(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	attempts, err := h.attempts.ListForExam(c.UserContext(), tenantID, examID, actor)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "attempts retrieved", attempts)
}

func (h *AttemptHandler) get(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}
	attemptID, err := parseUUIDParam(c, "attempt")
	if err != nil {
		return badRequest(c, err.Error())
	}

	attempt, err := h.attempts.Get(c.UserContext(), tenantID, examID, attemptID, actor)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "attempt retrieved", attempt)
}

func (h *AttemptHandler) submit(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}
	attemptID, err := parseUUIDParam(c, "attempt")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.SubmitAttemptRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	resp, err := h.attempts.Submit(c.UserContext(), tenantID, examID, attemptID, actor, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Str("attempt_id", attemptID.String()).
		Str("score", resp.DisplayScore).
		Msg("attempt submitted")
	return utils.SendSuccess(c, "attempt submitted", resp)
}

func (h *AttemptHandler) regenerate(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}
	attemptID, err := parseUUIDParam(c, "attempt")
	if err != nil {
		return badRequest(c, err.Error())
	}

	recs, err := h.recommendations.RegenerateForAttempt(c.UserContext(), tenantID, examID, attemptID, actor)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "recommendations generated", dto.NewRecommendationResponses(recs))
}
