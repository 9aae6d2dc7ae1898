package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// NotificationHandler serves persisted in-app notifications.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/notifications", h.list)
	router.Patch("/notifications/read-all", h.markAllRead)
	router.Patch("/notifications/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	identity, err := identityFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "list notifications")
	}

	var query dto.NotificationListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	notifications, err := h.service.List(requestContext(c), identity.UserID, query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list notifications")
	}

	return utils.OK(c, notifications.Items, "notifications", fiber.Map{"unread": notifications.Unread})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	identity, err := identityFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "mark notification read")
	}

	notification, err := h.service.MarkRead(requestContext(c), id, identity.UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark notification")
	}

	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	identity, err := identityFrom(c)
	if err != nil {
		return respondError(c, h.logger, err, "mark all notifications read")
	}

	updated, err := h.service.MarkAllRead(requestContext(c), identity.UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark notifications")
	}

	return utils.SendSuccess(c, "notifications updated", fiber.Map{"updated": updated})
}
