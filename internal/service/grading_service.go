package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// GradingService applies manual grades to submitted work.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, teacher auth.Teacher, payload dto.GradeRequest) (dto.GradingResponse, error)
}

type gradingService struct {
	workflow
}

// NewGradingService builds the grading engine.
func NewGradingService(deps WorkflowDeps) GradingService {
	return &gradingService{workflow: newWorkflow(deps, "grading_service")}
}

// Grade inserts or replaces the grade of a non-draft submission. Every passing grade,
// including a regrade, awards the assignment's XP again.
func (s *gradingService) Grade(ctx context.Context, submissionID uint, teacher auth.Teacher, payload dto.GradeRequest) (dto.GradingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.update")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.teacher_id", int64(teacher.UserID)),
	)
	defer span.End()

	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceSubmission, submissionID, teacher); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ownership_failed")
		return dto.GradingResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingResponse{}, err
	}

	owned, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.GradingResponse{}, err
	}

	score := *payload.Score
	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))

	var (
		assignment models.Assignment
		outcome    gradeOutcome
		regrade    bool
	)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		submission, err := s.lockSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if submission.IsDraft() {
			return ErrSubmissionNotSubmitted
		}
		regrade = submission.IsGraded()

		assignment, err = s.loadAssignment(ctx, submission.AssignmentID)
		if err != nil {
			return err
		}

		now := s.clock()
		if err := s.repos.Submissions.Transition(ctx, submission.ID, repository.SubmissionTransition{
			From:     []models.SubmissionStatus{models.SubmissionStatusSubmitted, models.SubmissionStatusGraded},
			To:       models.SubmissionStatusGraded,
			Score:    &score,
			GradedAt: &now,
		}); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrSubmissionNotSubmitted
			}
			return fmt.Errorf("transition submission %d: %w", submission.ID, err)
		}

		outcome, err = s.grades.apply(ctx, gradeInput{
			submission: submission,
			assignment: assignment,
			score:      score,
			feedback:   feedback,
			gradedBy:   teacher.UserID,
			source:     models.GradeSourceManual,
			at:         now,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_failed")
		return dto.GradingResponse{}, err
	}

	span.SetAttributes(
		attribute.Bool("grading.regrade", regrade),
		attribute.Int("grading.xp_awarded", outcome.xpAwarded()),
	)

	passed := s.policy.Passes(score)
	if !regrade {
		observability.RecordTransition(string(assignment.Kind), string(models.SubmissionStatusGraded))
	}
	s.effects.graded(ctx, owned.Student.UserID, owned, assignment, outcome, models.GradeSourceManual, passed)
	s.teacherActivity(ctx, teacher, "submission.graded", "submission", submissionID, map[string]interface{}{
		"score":      score,
		"regrade":    regrade,
		"xp_awarded": outcome.xpAwarded(),
	})

	s.logger.Info().
		Uint("submission_id", submissionID).
		Uint("teacher_id", teacher.UserID).
		Float64("score", score).
		Bool("regrade", regrade).
		Msg("submission graded")

	return dto.NewGradingResponse(outcome.grading, outcome.xpAwarded()), nil
}
