package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/internal/utils"
)

var errUnauthenticated = errors.New("authentication required")

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return nil, &service.FieldError{Field: key, Message: "must be a valid uuid"}
	}
	return &parsed, nil
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errors.New("invalid identifier")
	}
	return parsed, nil
}

// parsePaging reads page and page_size. Bad values fall back to the defaults.
func parsePaging(c *fiber.Ctx) (int, int) {
	page, err := parseQueryInt(c, "page")
	if err != nil || page <= 0 {
		page = 1
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil || pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// callerFromContext returns the tenant and actor populated by the JWT middleware.
func callerFromContext(c *fiber.Ctx) (uuid.UUID, service.Actor, error) {
	userID, ok := c.Locals(middleware.LocalUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, service.Actor{}, errUnauthenticated
	}
	tenantID, ok := c.Locals(middleware.LocalInstitutionID).(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, service.Actor{}, errUnauthenticated
	}
	role, _ := c.Locals(middleware.LocalUserRole).(string)
	return tenantID, service.Actor{UserID: userID, Role: models.UserRole(role)}, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// writeError maps service errors to the HTTP status taxonomy: validation 422, state conflict 409,
// authorization 403, not found 404, anything else 500.
func writeError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	if fields := service.ValidationFields(err); fields != nil {
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", fields)
	}

	switch {
	case errors.Is(err, errUnauthenticated):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())

	case errors.Is(err, service.ErrInvalidQuestion):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", map[string]string{"question": err.Error()})
	case errors.Is(err, service.ErrPointsExceedMaximum):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "validation failed", map[string]string{"points_awarded": err.Error()})

	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotAStudent):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrAttemptNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrAnswerNotFound),
		errors.Is(err, service.ErrAttemptMismatch):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrExamNotActive),
		errors.Is(err, service.ErrExamNotYetAvailable),
		errors.Is(err, service.ErrExamNoLongerAvailable),
		errors.Is(err, service.ErrAttemptsExhausted),
		errors.Is(err, service.ErrAttemptAlreadySubmitted),
		errors.Is(err, service.ErrAttemptStartConflict),
		errors.Is(err, service.ErrAttemptNotSubmitted),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrNoQuestions),
		errors.Is(err, service.ErrExamNotEditable),
		errors.Is(err, service.ErrExamNotDeletable),
		errors.Is(err, service.ErrLastQuestion),
		errors.Is(err, service.ErrNotShortAnswer):
		return utils.SendError(c, fiber.StatusConflict, err.Error())

	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.SendError(c, fiber.StatusBadRequest, message)
}
