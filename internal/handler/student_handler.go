package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// StudentHandler exposes the student's progress views.
type StudentHandler struct {
	submissions service.SubmissionService
	xp          service.XPService
	dashboard   service.StudentDashboardService
	logger      zerolog.Logger
}

// NewStudentHandler creates a new handler instance.
func NewStudentHandler(submissions service.SubmissionService, xp service.XPService, dashboard service.StudentDashboardService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		submissions: submissions,
		xp:          xp,
		dashboard:   dashboard,
		logger:      logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches the student endpoints.
func (h *StudentHandler) Register(router fiber.Router) {
	group := router.Group("/student", middleware.RequireStudent())
	group.Get("/grades/recent", h.recentGrades)
	group.Get("/progress", h.progress)
	group.Get("/dashboard", h.getDashboard)
}

func (h *StudentHandler) recentGrades(c *fiber.Ctx) error {
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "recent grades")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grades, err := h.submissions.RecentGrades(requestContext(c), student, limit)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load recent grades")
	}

	return utils.SendSuccess(c, "recent grades", grades)
}

func (h *StudentHandler) progress(c *fiber.Ctx) error {
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "progress")
	}

	progress, err := h.xp.GetProgress(requestContext(c), student)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load progress")
	}

	return utils.SendSuccess(c, "progress retrieved", progress)
}

func (h *StudentHandler) getDashboard(c *fiber.Ctx) error {
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "dashboard")
	}

	dashboard, err := h.dashboard.GetDashboard(requestContext(c), student)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
