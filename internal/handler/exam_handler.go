package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/internal/utils"
)

// ExamHandler wires exam and question management routes.
type ExamHandler struct {
	exams     service.ExamService
	questions service.QuestionService
	logger    zerolog.Logger
}

// NewExamHandler constructs the handler.
func NewExamHandler(exams service.ExamService, questions service.QuestionService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:     exams,
		questions: questions,
		logger:    logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches exam endpoints to the router group. Writes require a staff role.
func (h *ExamHandler) Register(router fiber.Router) {
	staff := middleware.RequireStaff()

	router.Get("", h.list)
	router.Post("", staff, h.create)
	router.Get("/:exam", h.get)
	router.Patch("/:exam", staff, h.update)
	router.Patch("/:exam/status", staff, h.setStatus)
	router.Delete("/:exam", staff, h.delete)

	router.Get("/:exam/questions", h.listQuestions)
	router.Post("/:exam/questions", staff, h.createQuestion)
	router.Patch("/:exam/questions/:question", staff, h.updateQuestion)
	router.Delete("/:exam/questions/:question", staff, h.deleteQuestion)
}

func (h *ExamHandler) list(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	grade, err := parseQueryInt(c, "grade")
	if err != nil {
		return writeError(c, h.logger, &service.FieldError{Field: "grade", Message: "must be a number"})
	}
	page, pageSize := parsePaging(c)

	resp, err := h.exams.List(c.UserContext(), tenantID, actor, dto.ExamListRequest{
		Status:    strings.TrimSpace(c.Query("status")),
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
		Grade:     grade,
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.OK(c, resp.Items, "exams retrieved", resp.Pagination)
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	exam, err := h.exams.Create(c.UserContext(), tenantID, actor, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	exam, err := h.exams.Get(c.UserContext(), tenantID, examID, actor)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "exam retrieved", exam)
}

func (h *ExamHandler) update(c *fiber.Ctx) error {
	tenantID, _, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	exam, err := h.exams.Update(c.UserContext(), tenantID, examID, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *ExamHandler) setStatus(c *fiber.Ctx) error {
	tenantID, _, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ExamStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	exam, err := h.exams.SetStatus(c.UserContext(), tenantID, examID, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "exam status updated", exam)
}

func (h *ExamHandler) delete(c *fiber.Ctx) error {
	tenantID, _, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.exams.Delete(c.UserContext(), tenantID, examID); err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "exam deleted", fiber.Map{"id": examID})
}

func (h *ExamHandler) listQuestions(c *fiber.Ctx) error {
	tenantID, actor, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	questions, err := h.questions.List(c.UserContext(), tenantID, examID, actor)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "questions retrieved", questions)
}

func (h *ExamHandler) createQuestion(c *fiber.Ctx) error {
	tenantID, _, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	question, err := h.questions.Create(c.UserContext(), tenantID, examID, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *ExamHandler) updateQuestion(c *fiber.Ctx) error {
	tenantID, _, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}
	questionID, err := parseUUIDParam(c, "question")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.QuestionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	question, err := h.questions.Update(c.UserContext(), tenantID, examID, questionID, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question updated", question)
}

func (h *ExamHandler) deleteQuestion(c *fiber.Ctx) error {
	tenantID, _, err := callerFromContext(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	examID, err := parseUUIDParam(c, "exam")
	if err != nil {
		return badRequest(c, err.Error())
	}
	questionID, err := parseUUIDParam(c, "question")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.questions.Delete(c.UserContext(), tenantID, examID, questionID); err != nil {
		return writeError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question deleted", fiber.Map{"id": questionID})
}
