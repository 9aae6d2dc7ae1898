package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// UploadHandler accepts evidence media from students.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler. A nil service answers 503.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("/uploads/evidence", middleware.RequireStudent(), h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	if h.service == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "evidence storage is not configured")
	}
	student, err := studentFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "upload evidence")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrUploadRequired.Error())
	}

	result, err := h.service.UploadEvidence(requestContext(c), file, student)
	if err != nil {
		if errors.Is(err, service.ErrUploadTooLarge) {
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		}
		return respondError(c, h.logger, err, "upload failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evidence uploaded", result)
}
