package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// AssignmentHandler wires assignment authoring and browsing routes.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints. The router must already resolve identities.
func (h *AssignmentHandler) Register(router fiber.Router) {
	teacherOnly := middleware.RequireTeacher()

	router.Post("/lessons/:id/assignments", teacherOnly, h.create)
	router.Get("/lessons/:id/assignments", h.list)

	router.Get("/assignments/:id", h.get)
	router.Patch("/assignments/:id", teacherOnly, h.update)
	router.Delete("/assignments/:id", teacherOnly, h.delete)

	router.Post("/assignments/:id/questions", teacherOnly, h.createQuestion)
	router.Put("/questions/:id", teacherOnly, h.updateQuestion)
	router.Delete("/questions/:id", teacherOnly, h.deleteQuestion)

	router.Post("/assignments/:id/steps", teacherOnly, h.createStep)
	router.Put("/steps/:id", teacherOnly, h.updateStep)
	router.Delete("/steps/:id", teacherOnly, h.deleteStep)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "create assignment")
	}

	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Create(requestContext(c), lessonID, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create assignment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

// list shows every assignment to the lesson's teachers and published ones to students.
func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	lessonID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	identity, err := identityFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "list assignments")
	}

	var query dto.AssignmentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	var result dto.AssignmentListResponse
	switch identity.Role {
	case auth.RoleTeacher:
		teacher, _ := identity.AsTeacher()
		result, err = h.service.ListForTeacher(requestContext(c), lessonID, teacher, query)
	case auth.RoleStudent:
		result, err = h.service.ListPublished(requestContext(c), lessonID, query)
	default:
		return utils.SendError(c, fiber.StatusForbidden, "teacher or student role required")
	}
	if err != nil {
		return respondError(c, h.logger, err, "failed to list assignments")
	}

	return utils.OK(c, result.Items, "assignments retrieved", result.Pagination)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	identity, err := identityFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "get assignment")
	}

	var assignment dto.AssignmentResponse
	switch identity.Role {
	case auth.RoleTeacher:
		teacher, _ := identity.AsTeacher()
		assignment, err = h.service.GetForTeacher(requestContext(c), id, teacher)
	case auth.RoleStudent:
		assignment, err = h.service.GetPublished(requestContext(c), id)
	default:
		return utils.SendError(c, fiber.StatusForbidden, "teacher or student role required")
	}
	if err != nil {
		return respondError(c, h.logger, err, "failed to load assignment")
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "update assignment")
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Update(requestContext(c), id, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update assignment")
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "delete assignment")
	}

	if err := h.service.Delete(requestContext(c), id, teacher); err != nil {
		return respondError(c, h.logger, err, "failed to delete assignment")
	}

	return utils.SendSuccess(c, "assignment deleted", nil)
}

func (h *AssignmentHandler) createQuestion(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "create question")
	}

	var payload dto.QuizQuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.service.CreateQuestion(requestContext(c), assignmentID, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create question")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *AssignmentHandler) updateQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "update question")
	}

	var payload dto.QuizQuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.service.UpdateQuestion(requestContext(c), id, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update question")
	}

	return utils.SendSuccess(c, "question updated", question)
}

func (h *AssignmentHandler) deleteQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "delete question")
	}

	if err := h.service.DeleteQuestion(requestContext(c), id, teacher); err != nil {
		return respondError(c, h.logger, err, "failed to delete question")
	}

	return utils.SendSuccess(c, "question deleted", nil)
}

func (h *AssignmentHandler) createStep(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "create step")
	}

	var payload dto.TaskStepRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	step, err := h.service.CreateStep(requestContext(c), assignmentID, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create step")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "step created", step)
}

func (h *AssignmentHandler) updateStep(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "update step")
	}

	var payload dto.TaskStepUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	step, err := h.service.UpdateStep(requestContext(c), id, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update step")
	}

	return utils.SendSuccess(c, "step updated", step)
}

func (h *AssignmentHandler) deleteStep(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "delete step")
	}

	if err := h.service.DeleteStep(requestContext(c), id, teacher); err != nil {
		return respondError(c, h.logger, err, "failed to delete step")
	}

	return utils.SendSuccess(c, "step deleted", nil)
}
