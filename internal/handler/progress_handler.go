package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/internal/utils"
)

// ProgressHandler serves subject mastery.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register attaches progress routes.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/me", middleware.RequireRole(models.RoleStudent), h.mine)
}

func (h *ProgressHandler) list(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	studentID, err := parseQueryUUID(c, "student_id")
	if err != nil {
		return writeError(c, h.logger, err)
	}
	subjectID, err := parseQueryUUID(c, "subject_id")
	if err != nil {
		return writeError(c, h.logger, err)
	}
	page, pageSize := parsePaging(c)

	resp, err := h.service.List(c.UserContext(), tenantID, actor, service.ProgressListRequest{
		StudentID: studentID,
		SubjectID: subjectID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.OK(c, resp.Items, "progress retrieved", resp.Pagination)
}

// mine reads through the progress cache.
func (h *ProgressHandler) mine(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	items, err := h.service.ListForStudent(c.UserContext(), tenantID, actor.UserID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "progress retrieved", items)
}
