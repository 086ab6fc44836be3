package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/internal/utils"
)

// ReviewHandler lets staff override short answer grading.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches review routes below /student-answers.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Patch("/:id/review", middleware.RequireStaff(), h.review)
}

func (h *ReviewHandler) review(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	answerID, err := parseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ReviewAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	resp, err := h.service.Review(c.UserContext(), tenantID, answerID, actor, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Str("answer_id", answerID.String()).
		Str("reviewer_id", actor.UserID.String()).
		Msg("answer reviewed")
	return utils.SendSuccess(c, "answer reviewed", resp)
}
