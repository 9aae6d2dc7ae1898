package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// Notifier delivers an in-app notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, message string, entityID *uint) error
}

// DashboardInvalidator drops cached dashboard data of a student.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, studentID uint)
}

type gradeInput struct {
	submission models.Submission
	assignment models.Assignment
	score      float64
	feedback   string
	gradedBy   uint
	source     string
	breakdown  datatypes.JSON
	at         time.Time
}

type gradeOutcome struct {
	grading models.Grading
	award   *XPAward
}

func (o gradeOutcome) xpAwarded() int {
	if o.award == nil {
		return 0
	}
	return o.award.XP
}

// gradeWriter applies a grade inside the caller's transaction: grading upsert,
// XP award when the score passes, and a history row recording both.
type gradeWriter struct {
	gradings repository.GradingRepository
	xp       XPService
	policy   GradingPolicy
}

func (w gradeWriter) apply(ctx context.Context, in gradeInput) (gradeOutcome, error) {
	grading, err := w.gradings.Upsert(ctx, &models.Grading{
		SubmissionID: in.submission.ID,
		Score:        in.score,
		Feedback:     in.feedback,
		GradedBy:     in.gradedBy,
		GradedAt:     in.at,
	})
	if err != nil {
		return gradeOutcome{}, fmt.Errorf("upsert grading for submission %d: %w", in.submission.ID, err)
	}

	outcome := gradeOutcome{grading: grading}
	if w.policy.Passes(in.score) && in.assignment.XPReward > 0 {
		award, err := w.xp.Award(ctx, in.submission.StudentID, in.assignment.XPReward)
		if err != nil {
			return gradeOutcome{}, err
		}
		outcome.award = &award
	}

	history := models.GradeHistory{
		SubmissionID: in.submission.ID,
		Score:        in.score,
		Feedback:     in.feedback,
		GradedBy:     in.gradedBy,
		Source:       in.source,
		XPAwarded:    outcome.xpAwarded(),
		Breakdown:    in.breakdown,
		GradedAt:     in.at,
	}
	if err := w.gradings.AppendHistory(ctx, &history); err != nil {
		return gradeOutcome{}, fmt.Errorf("append grade history for submission %d: %w", in.submission.ID, err)
	}

	return outcome, nil
}

// effects runs the best-effort work that follows a committed write.
type effects struct {
	notifier  Notifier
	dashboard DashboardInvalidator
	activity  ActivityRecorder
	logger    zerolog.Logger
}

func (e effects) notify(ctx context.Context, userID uint, kind, message string, entityID *uint) {
	if e.notifier == nil || userID == 0 {
		return
	}
	if err := e.notifier.Notify(ctx, userID, kind, message, entityID); err != nil {
		e.logger.Warn().Err(err).Uint("user_id", userID).Str("type", kind).Msg("failed to deliver notification")
	}
}

func (e effects) invalidate(ctx context.Context, studentID uint) {
	if e.dashboard != nil {
		e.dashboard.Invalidate(ctx, studentID)
	}
}

func (e effects) record(ctx context.Context, entry ActivityEntry) {
	if e.activity == nil {
		return
	}
	if _, err := e.activity.Record(ctx, entry); err != nil {
		e.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}

// graded publishes the consequences of a committed grade to the student.
func (e effects) graded(ctx context.Context, studentUserID uint, submission models.Submission, assignment models.Assignment, outcome gradeOutcome, source string, passed bool) {
	observability.RecordGrading(source, passed)

	message := fmt.Sprintf("%s was graded: %.0f/100", assignment.Title, outcome.grading.Score)
	if outcome.award != nil {
		message += fmt.Sprintf(" (+%d XP)", outcome.award.XP)
	}
	e.notify(ctx, studentUserID, models.NotificationSubmissionGraded, message, &submission.ID)

	if outcome.award != nil {
		observability.RecordXP(outcome.award.XP, outcome.award.LevelsGained)
		if outcome.award.LevelsGained > 0 {
			e.notify(ctx, studentUserID, models.NotificationLevelUp,
				fmt.Sprintf("You reached level %d", outcome.award.After.Level), &submission.ID)
		}
	}

	e.invalidate(ctx, submission.StudentID)
}
