package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// SubmissionHandler exposes the student side of the submission lifecycle and its teacher listings.
type SubmissionHandler struct {
	submissions   service.SubmissionService
	quizzes       service.QuizService
	tasks         service.TaskService
	answerLimiter fiber.Handler
	logger        zerolog.Logger
}

// NewSubmissionHandler builds a submission handler. answerLimiter may be nil.
func NewSubmissionHandler(submissions service.SubmissionService, quizzes service.QuizService, tasks service.TaskService, answerLimiter fiber.Handler, logger zerolog.Logger) *SubmissionHandler {
	if answerLimiter == nil {
		answerLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &SubmissionHandler{
		submissions:   submissions,
		quizzes:       quizzes,
		tasks:         tasks,
		answerLimiter: answerLimiter,
		logger:        logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission routes.
func (h *SubmissionHandler) Register(router fiber.Router) {
	studentOnly := middleware.RequireStudent()
	teacherOnly := middleware.RequireTeacher()

	router.Post("/assignments/:id/submissions", studentOnly, h.start)
	router.Get("/assignments/:id/submissions", teacherOnly, h.listForAssignment)
	router.Get("/teacher/submissions/pending", teacherOnly, h.pending)

	router.Get("/submissions/mine", studentOnly, h.mine)
	router.Get("/submissions/:id", h.detail)
	router.Put("/submissions/:id/answers", studentOnly, h.answerLimiter, h.answer)
	router.Post("/submissions/:id/complete-quiz", studentOnly, h.completeQuiz)
	router.Put("/submissions/:id/steps/:stepId", studentOnly, h.submitStep)
	router.Post("/submissions/:id/complete-task", studentOnly, h.completeTask)
}

func (h *SubmissionHandler) start(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "start submission")
	}

	submission, err := h.submissions.Start(requestContext(c), assignmentID, student)
	if err != nil {
		return respondError(c, h.logger, err, "failed to start submission")
	}

	return utils.SendSuccess(c, "submission ready", submission)
}

func (h *SubmissionHandler) answer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "submit answer")
	}

	var payload dto.QuizAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.quizzes.SubmitAnswer(requestContext(c), id, student, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to store answer")
	}

	return utils.SendSuccess(c, "answer saved", answer)
}

func (h *SubmissionHandler) completeQuiz(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "complete quiz")
	}

	result, err := h.submissions.CompleteQuiz(requestContext(c), id, student)
	if err != nil {
		return respondError(c, h.logger, err, "failed to complete quiz")
	}

	return utils.SendSuccess(c, "quiz graded", result)
}

func (h *SubmissionHandler) submitStep(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	stepID, err := parseUintParam(c, "stepId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "submit step")
	}

	var payload dto.StepEvidenceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	step, err := h.tasks.SubmitStep(requestContext(c), id, stepID, student, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to store step evidence")
	}

	return utils.SendSuccess(c, "step evidence saved", step)
}

func (h *SubmissionHandler) completeTask(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "complete task")
	}

	submission, err := h.submissions.CompleteTask(requestContext(c), id, student)
	if err != nil {
		return respondError(c, h.logger, err, "failed to complete task")
	}

	return utils.SendSuccess(c, "task submitted", submission)
}

func (h *SubmissionHandler) detail(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	identity, err := identityFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "submission detail")
	}

	detail, err := h.submissions.Detail(requestContext(c), id, identity)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission retrieved", detail)
}

func (h *SubmissionHandler) mine(c *fiber.Ctx) error {
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "list own submissions")
	}

	items, err := h.submissions.ListMine(requestContext(c), student)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", items)
}

func (h *SubmissionHandler) listForAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "list assignment submissions")
	}

	items, err := h.submissions.ListForAssignment(requestContext(c), assignmentID, teacher)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", items)
}

func (h *SubmissionHandler) pending(c *fiber.Ctx) error {
	teacher, err := teacherFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "pending submissions")
	}

	items, err := h.submissions.ListPending(requestContext(c), teacher)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list pending submissions")
	}

	return utils.OK(c, items, "pending submissions", fiber.Map{"total": len(items)})
}
