package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// TaskService records step evidence and the teacher verdict on it.
type TaskService interface {
	SubmitStep(ctx context.Context, submissionID, stepID uint, student auth.Student, payload dto.StepEvidenceRequest) (dto.StepSubmissionResponse, error)
	ReviewStep(ctx context.Context, stepSubmissionID uint, teacher auth.Teacher, payload dto.StepReviewRequest) (dto.StepSubmissionResponse, error)
}

type taskService struct {
	workflow
}

// NewTaskService builds the task engine.
func NewTaskService(deps WorkflowDeps) TaskService {
	return &taskService{workflow: newWorkflow(deps, "task_service")}
}

// SubmitStep attaches evidence to a step. Evidence stays editable until the submission is graded,
// and every write resets the step to pending review.
func (s *taskService) SubmitStep(ctx context.Context, submissionID, stepID uint, student auth.Student, payload dto.StepEvidenceRequest) (dto.StepSubmissionResponse, error) {
	payload.PhotoURL = strings.TrimSpace(payload.PhotoURL)
	payload.VideoURL = strings.TrimSpace(payload.VideoURL)
	if err := s.validator.Struct(payload); err != nil {
		return dto.StepSubmissionResponse{}, err
	}
	if payload.PhotoURL == "" && payload.VideoURL == "" {
		return dto.StepSubmissionResponse{}, ErrEvidenceRequired
	}

	if _, _, err := s.ownedSubmission(ctx, submissionID, student); err != nil {
		return dto.StepSubmissionResponse{}, err
	}

	var stored models.StepSubmission
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		submission, err := s.lockSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if submission.IsGraded() {
			return ErrSubmissionGraded
		}

		step, err := s.repos.Steps.GetByID(ctx, stepID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStepNotFound
			}
			return fmt.Errorf("load step %d: %w", stepID, err)
		}
		if step.AssignmentID != submission.AssignmentID {
			return ErrStepNotInTask
		}

		stored, err = s.repos.StepSubmissions.Upsert(ctx, &models.StepSubmission{
			SubmissionID: submission.ID,
			StepID:       step.ID,
			PhotoURL:     payload.PhotoURL,
			VideoURL:     payload.VideoURL,
			Status:       models.StepReviewPending,
			SubmittedAt:  s.clock(),
		})
		if err != nil {
			return fmt.Errorf("upsert step evidence: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.StepSubmissionResponse{}, err
	}

	s.logger.Debug().
		Uint("submission_id", submissionID).
		Uint("step_id", stepID).
		Msg("step evidence recorded")

	return dto.NewStepSubmissionResponse(stored), nil
}

// ReviewStep approves or rejects one step. Reviews are repeatable regardless of the prior verdict.
func (s *taskService) ReviewStep(ctx context.Context, stepSubmissionID uint, teacher auth.Teacher, payload dto.StepReviewRequest) (dto.StepSubmissionResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceStepSubmission, stepSubmissionID, teacher); err != nil {
		return dto.StepSubmissionResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.StepSubmissionResponse{}, err
	}

	status := models.StepReviewStatus(payload.Status)
	if status != models.StepReviewApproved && status != models.StepReviewRejected {
		return dto.StepSubmissionResponse{}, newError(ErrBadRequest, "status must be approved or rejected")
	}

	comment := strings.TrimSpace(s.sanitizer.Sanitize(payload.Comment))
	if err := s.repos.StepSubmissions.Review(ctx, stepSubmissionID, repository.StepReview{
		Status:     status,
		Comment:    comment,
		ReviewerID: teacher.UserID,
		ReviewedAt: s.clock(),
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StepSubmissionResponse{}, ErrStepSubmissionNotFound
		}
		return dto.StepSubmissionResponse{}, fmt.Errorf("review step submission %d: %w", stepSubmissionID, err)
	}

	reviewed, err := s.repos.StepSubmissions.GetByID(ctx, stepSubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StepSubmissionResponse{}, ErrStepSubmissionNotFound
		}
		return dto.StepSubmissionResponse{}, err
	}

	observability.RecordStepReview(string(status))

	if submission, err := s.loadSubmission(ctx, reviewed.SubmissionID); err == nil {
		s.effects.notify(ctx, submission.Student.UserID, models.NotificationStepReviewed,
			fmt.Sprintf("Step %d of %s was %s", reviewed.Step.StepNumber, submission.Assignment.Title, status),
			&submission.ID)
	} else {
		s.logger.Warn().Err(err).Uint("step_submission_id", stepSubmissionID).Msg("failed to load submission for review notification")
	}

	s.teacherActivity(ctx, teacher, "step_submission.reviewed", "step_submission", stepSubmissionID, map[string]interface{}{
		"status":        string(status),
		"submission_id": reviewed.SubmissionID,
	})

	return dto.NewStepSubmissionResponse(reviewed), nil
}
