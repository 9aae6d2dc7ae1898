package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

const defaultActivityPageSize = 20

// Metadata keys containing any of these fragments are masked before they are stored.
var sensitiveMetadataKeys = []string{"email", "token", "secret", "password"}

// ActivityEntry is one audit record.
type ActivityEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// TeacherAction builds the audit entry for a teacher acting on one entity.
func TeacherAction(teacher auth.Teacher, action, entityType string, entityID uint, metadata map[string]interface{}) ActivityEntry {
	entry := ActivityEntry{
		ActorID:    teacher.UserID,
		ActorRole:  string(auth.RoleTeacher),
		Action:     action,
		EntityType: entityType,
		Metadata:   metadata,
	}
	if entityID != 0 {
		entry.EntityID = &entityID
	}
	return entry
}

// ActivityRecorder persists audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService records and lists the audit trail.
type ActivityService interface {
	ActivityRecorder
	ListForTeacher(ctx context.Context, teacher auth.Teacher, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo      repository.ActivityLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, validator *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	action := normalizeToken(entry.Action)
	entityType := normalizeToken(entry.EntityType)
	if action == "" || entityType == "" {
		return dto.ActivityResponse{}, errors.New("activity needs an action and an entity type")
	}

	role := normalizeToken(entry.ActorRole)
	if role == "" {
		role = "system"
	}

	model := models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entry.EntityID,
		Metadata:   maskMetadata(entry.Metadata),
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Uint("actor_id", entry.ActorID).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(model), nil
}

// ListForTeacher pages through the caller's own entries.
func (s *activityService) ListForTeacher(ctx context.Context, teacher auth.Teacher, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ActivityListResponse{}, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultActivityPageSize
	}

	filter := repository.ActivityLogFilter{
		ActorID:    teacher.UserID,
		Action:     normalizeToken(req.Action),
		EntityType: normalizeToken(req.EntityType),
		EntityID:   req.EntityID,
		Page:       page,
		PageSize:   pageSize,
	}
	if req.SinceHours > 0 {
		filter.Since = time.Now().UTC().Add(-time.Duration(req.SinceHours) * time.Hour)
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityResponse(entry))
	}

	return dto.ActivityListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func maskMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	masked := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		if isSensitiveKey(key) {
			masked[key] = "***"
			continue
		}
		masked[key] = value
	}
	return masked
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveMetadataKeys {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
