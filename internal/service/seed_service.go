package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads classroom fixtures for development environments.
type SeedService interface {
	SeedClassrooms(ctx context.Context, token string, payload dto.SeedClassroomsRequest) (int64, error)
}

type seedService struct {
	repo      repository.ClassroomRepository
	tx        repository.Transactor
	validator *validator.Validate
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.ClassroomRepository, tx repository.Transactor, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:      repo,
		tx:        tx,
		validator: validate,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedClassrooms(ctx context.Context, token string, payload dto.SeedClassroomsRequest) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}
	payload = normalizeSeedPayload(payload)
	if err := s.validator.Struct(payload); err != nil {
		return 0, err
	}

	fixtures := buildFixtures(payload)

	var affected int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		affected, err = s.repo.UpsertFixtures(ctx, fixtures)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Int("classrooms", len(fixtures.Classrooms)).
		Int("lessons", len(fixtures.Lessons)).
		Int("students", len(fixtures.Students)).
		Int64("affected", affected).
		Msg("classroom fixtures seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

// normalizeSeedPayload trims names and lowercases emails and roles on copies of the fixture rows.
func normalizeSeedPayload(payload dto.SeedClassroomsRequest) dto.SeedClassroomsRequest {
	users := make([]dto.SeedUser, len(payload.Users))
	for i, user := range payload.Users {
		user.Name = strings.TrimSpace(user.Name)
		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		user.Role = strings.ToLower(strings.TrimSpace(user.Role))
		users[i] = user
	}
	payload.Users = users

	classrooms := make([]dto.SeedClassroom, len(payload.Classrooms))
	for i, classroom := range payload.Classrooms {
		classroom.Name = strings.TrimSpace(classroom.Name)
		classrooms[i] = classroom
	}
	payload.Classrooms = classrooms

	subjects := make([]dto.SeedSubject, len(payload.Subjects))
	for i, subject := range payload.Subjects {
		subject.Name = strings.TrimSpace(subject.Name)
		subjects[i] = subject
	}
	payload.Subjects = subjects

	modules := make([]dto.SeedModule, len(payload.Modules))
	for i, module := range payload.Modules {
		module.Title = strings.TrimSpace(module.Title)
		modules[i] = module
	}
	payload.Modules = modules

	lessons := make([]dto.SeedLesson, len(payload.Lessons))
	for i, lesson := range payload.Lessons {
		lesson.Title = strings.TrimSpace(lesson.Title)
		lessons[i] = lesson
	}
	payload.Lessons = lessons

	return payload
}

func buildFixtures(payload dto.SeedClassroomsRequest) repository.ClassroomFixtures {
	var fixtures repository.ClassroomFixtures

	for _, user := range payload.Users {
		role := auth.ParseRole(user.Role)
		fixtures.Users = append(fixtures.Users, models.User{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  string(role),
		})
		if role == auth.RoleStudent {
			fixtures.Students = append(fixtures.Students, models.Student{UserID: user.ID, Level: 1})
		}
	}

	for _, classroom := range payload.Classrooms {
		fixtures.Classrooms = append(fixtures.Classrooms, models.Classroom{
			ID:   classroom.ID,
			Name: classroom.Name,
		})
		for _, teacherID := range classroom.TeacherIDs {
			fixtures.Memberships = append(fixtures.Memberships, models.ClassroomTeacher{
				ClassroomID: classroom.ID,
				TeacherID:   teacherID,
			})
		}
	}

	for _, subject := range payload.Subjects {
		fixtures.Subjects = append(fixtures.Subjects, models.Subject{
			ID:          subject.ID,
			ClassroomID: subject.ClassroomID,
			Name:        subject.Name,
		})
	}
	for _, module := range payload.Modules {
		fixtures.Modules = append(fixtures.Modules, models.Module{
			ID:        module.ID,
			SubjectID: module.SubjectID,
			Title:     module.Title,
		})
	}
	for _, lesson := range payload.Lessons {
		fixtures.Lessons = append(fixtures.Lessons, models.Lesson{
			ID:       lesson.ID,
			ModuleID: lesson.ModuleID,
			Title:    lesson.Title,
		})
	}

	return fixtures
}
