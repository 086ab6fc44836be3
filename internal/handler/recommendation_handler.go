package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/internal/utils"
)

// RecommendationHandler lists stored recommendations.
type RecommendationHandler struct {
	service service.RecommendationService
	logger  zerolog.Logger
}

// NewRecommendationHandler constructs the handler.
func NewRecommendationHandler(service service.RecommendationService, logger zerolog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		logger:  logger.With().Str("component", "recommendation_handler").Logger(),
	}
}

// Register attaches recommendation routes.
func (h *RecommendationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *RecommendationHandler) list(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	req := service.RecommendationListRequest{Type: strings.TrimSpace(c.Query("type"))}
	if req.StudentID, err = parseQueryUUID(c, "student_id"); err != nil {
		return writeError(c, h.logger, err)
	}
	if req.SubjectID, err = parseQueryUUID(c, "subject_id"); err != nil {
		return writeError(c, h.logger, err)
	}
	if req.ExamID, err = parseQueryUUID(c, "exam_id"); err != nil {
		return writeError(c, h.logger, err)
	}
	req.Page, req.PageSize = parsePaging(c)

	resp, err := h.service.List(c.UserContext(), tenantID, actor, req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.OK(c, resp.Items, "recommendations retrieved", resp.Pagination)
}
