package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

const maxNotificationLength = 2000

// NotificationService persists in-app notifications and serves them on demand.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-classroom-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *notificationService) Notify(ctx context.Context, userID uint, kind, message string, entityID *uint) error {
	if userID == 0 {
		return errors.New("user id is required")
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(message))
	if cleanMessage == "" {
		return errors.New("notification message empty after sanitization")
	}
	if runes := []rune(cleanMessage); len(runes) > maxNotificationLength {
		cleanMessage = string(runes[:maxNotificationLength])
	}

	ctx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
		attribute.String("notification.type", kind),
	))
	defer span.End()

	model := models.Notification{
		UserID:   userID,
		Type:     kind,
		Message:  cleanMessage,
		EntityID: entityID,
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist notification: %w", err)
	}

	s.logger.Debug().Uint("user_id", userID).Str("type", kind).Msg("notification stored")
	return nil
}

func (s *notificationService) List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.NotificationListResponse{}, err
	}

	items, unread, err := s.repo.ListByUser(ctx, userID, repository.NotificationFilter{
		UnreadOnly: query.UnreadOnly,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	return dto.NotificationListResponse{
		Items:  dto.NewNotificationResponseSlice(items),
		Unread: unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return updated, nil
}
