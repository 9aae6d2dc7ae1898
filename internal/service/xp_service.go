package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/leveling"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// XPAward describes one applied experience award.
type XPAward struct {
	StudentID    uint
	XP           int
	Before       leveling.Progress
	After        leveling.Progress
	LevelsGained int
}

// XPService owns every mutation of a student's experience counters.
type XPService interface {
	Award(ctx context.Context, studentID uint, xp int) (XPAward, error)
	GetProgress(ctx context.Context, student auth.Student) (dto.ProgressResponse, error)
}

type xpService struct {
	students repository.StudentRepository
	tx       repository.Transactor
	rules    leveling.Rules
	logger   zerolog.Logger
}

// NewXPService constructs the XP service.
func NewXPService(students repository.StudentRepository, tx repository.Transactor, rules leveling.Rules, logger zerolog.Logger) XPService {
	return &xpService{
		students: students,
		tx:       tx,
		rules:    rules,
		logger:   logger.With().Str("component", "xp_service").Logger(),
	}
}

// Award locks the student row, applies the leveling rules and persists the counters.
// It joins the caller's transaction when ctx carries one.
func (s *xpService) Award(ctx context.Context, studentID uint, xp int) (XPAward, error) {
	var award XPAward
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		student, err := s.students.GetForUpdate(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrNotFound, "student not found")
			}
			return fmt.Errorf("load student %d: %w", studentID, err)
		}

		before := progressOf(student)
		after, gained, err := s.rules.Award(before, xp)
		if err != nil {
			return newError(ErrBadRequest, err.Error())
		}

		if err := s.students.UpdateProgress(ctx, student.ID, after.Level, after.TotalXP, after.CurrentXP); err != nil {
			return fmt.Errorf("persist student %d progress: %w", studentID, err)
		}

		award = XPAward{StudentID: student.ID, XP: xp, Before: before, After: after, LevelsGained: gained}
		return nil
	})
	if err != nil {
		return XPAward{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Int("xp", xp).
		Int("level", award.After.Level).
		Int("levels_gained", award.LevelsGained).
		Msg("xp awarded")

	return award, nil
}

func (s *xpService) GetProgress(ctx context.Context, student auth.Student) (dto.ProgressResponse, error) {
	profile, err := s.students.GetByUserID(ctx, student.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrStudentProfileMissing
		}
		return dto.ProgressResponse{}, err
	}

	return progressResponse(s.rules, profile), nil
}

func progressOf(student models.Student) leveling.Progress {
	return leveling.Progress{Level: student.Level, TotalXP: student.TotalXP, CurrentXP: student.CurrentXP}
}

func progressResponse(rules leveling.Rules, student models.Student) dto.ProgressResponse {
	progress := rules.Normalize(progressOf(student))
	perLevel := rules.XPPerLevel
	if perLevel <= 0 {
		perLevel = leveling.DefaultXPPerLevel
	}

	return dto.ProgressResponse{
		StudentID:     student.ID,
		Level:         progress.Level,
		TotalXP:       progress.TotalXP,
		CurrentXP:     progress.CurrentXP,
		XPPerLevel:    perLevel,
		XPToNextLevel: rules.ToNextLevel(progress),
	}
}
