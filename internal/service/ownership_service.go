package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// OwnershipService is the single authorization primitive for teacher-facing writes.
type OwnershipService interface {
	VerifyTeacherOwnsLesson(ctx context.Context, lessonID uint, teacher auth.Teacher) error
	VerifyTeacherOwns(ctx context.Context, kind repository.ResourceKind, id uint, teacher auth.Teacher) error
}

type ownershipService struct {
	repo   repository.OwnershipRepository
	logger zerolog.Logger
}

// NewOwnershipService constructs the ownership resolver.
func NewOwnershipService(repo repository.OwnershipRepository, logger zerolog.Logger) OwnershipService {
	return &ownershipService{
		repo:   repo,
		logger: logger.With().Str("component", "ownership_service").Logger(),
	}
}

var notFoundByKind = map[repository.ResourceKind]error{
	repository.ResourceLesson:         ErrLessonNotFound,
	repository.ResourceAssignment:     ErrAssignmentNotFound,
	repository.ResourceQuestion:       ErrQuestionNotFound,
	repository.ResourceStep:           ErrStepNotFound,
	repository.ResourceSubmission:     ErrSubmissionNotFound,
	repository.ResourceStepSubmission: ErrStepSubmissionNotFound,
}

func (s *ownershipService) VerifyTeacherOwnsLesson(ctx context.Context, lessonID uint, teacher auth.Teacher) error {
	return s.VerifyTeacherOwns(ctx, repository.ResourceLesson, lessonID, teacher)
}

// VerifyTeacherOwns resolves the record to its classroom and checks the teacher is a member.
func (s *ownershipService) VerifyTeacherOwns(ctx context.Context, kind repository.ResourceKind, id uint, teacher auth.Teacher) error {
	if teacher.UserID == 0 {
		return ErrNotClassroomTeacher
	}

	classroomID, err := s.repo.ClassroomOf(ctx, kind, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if notFound, ok := notFoundByKind[kind]; ok {
				return notFound
			}
			return newError(ErrNotFound, fmt.Sprintf("%s not found", kind))
		}
		return fmt.Errorf("resolve %s %d classroom: %w", kind, id, err)
	}

	member, err := s.repo.IsTeacherOfClassroom(ctx, classroomID, teacher.UserID)
	if err != nil {
		return fmt.Errorf("check classroom membership: %w", err)
	}
	if !member {
		s.logger.Warn().
			Uint("teacher_id", teacher.UserID).
			Uint("classroom_id", classroomID).
			Str("resource", string(kind)).
			Uint("resource_id", id).
			Msg("teacher outside classroom denied")
		return ErrNotClassroomTeacher
	}

	return nil
}
