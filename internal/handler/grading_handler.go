package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// GradingHandler exposes teacher grading and step review.
type GradingHandler struct {
	grading service.GradingService
	tasks   service.TaskService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the grading handler.
func NewGradingHandler(grading service.GradingService, tasks service.TaskService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading: grading,
		tasks:   tasks,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading routes.
func (h *GradingHandler) Register(router fiber.Router) {
	teacherOnly := middleware.RequireTeacher()

	router.Put("/submissions/:id/grade", teacherOnly, h.grade)
	router.Patch("/step-submissions/:id/review", teacherOnly, h.review)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "grade submission")
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grading, err := h.grading.Grade(requestContext(c), id, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to grade submission")
	}

	return utils.SendSuccess(c, "submission graded", grading)
}

func (h *GradingHandler) review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "review step")
	}

	var payload dto.StepReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	step, err := h.tasks.ReviewStep(requestContext(c), id, teacher, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to review step")
	}

	return utils.SendSuccess(c, "step reviewed", step)
}
