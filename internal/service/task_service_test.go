package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func evidence(photoURL string) dto.StepEvidenceRequest {
	return dto.StepEvidenceRequest{PhotoURL: photoURL}
}

func TestStepResubmissionResetsReview(t *testing.T) {
	env := newTestEnv(t)
	step := env.f.steps[0]

	started, err := env.submissions.Start(env.ctx, env.f.task.ID, env.f.student)
	require.NoError(t, err)

	first, err := env.tasks.SubmitStep(env.ctx, started.ID, step.ID, env.f.student, dto.StepEvidenceRequest{
		PhotoURL: "https://cdn.test/kettle.jpg",
		VideoURL: "https://cdn.test/kettle.mp4",
	})
	require.NoError(t, err)
	require.Equal(t, string(models.StepReviewPending), first.Status)
	require.Equal(t, 1, first.StepNumber)

	reviewed, err := env.tasks.ReviewStep(env.ctx, first.ID, env.f.teacher, dto.StepReviewRequest{
		Status:  "rejected",
		Comment: "<script>alert(1)</script>Photo is blurry",
	})
	require.NoError(t, err)
	require.Equal(t, string(models.StepReviewRejected), reviewed.Status)
	require.Equal(t, "Photo is blurry", reviewed.Comment)
	require.NotNil(t, reviewed.ReviewedAt)
	require.NotNil(t, reviewed.ReviewedBy)

	again, err := env.tasks.SubmitStep(env.ctx, started.ID, step.ID, env.f.student, evidence("https://cdn.test/kettle-2.jpg"))
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, string(models.StepReviewPending), again.Status)
	require.Empty(t, again.Comment)
	require.Nil(t, again.ReviewedAt)
	require.Nil(t, again.ReviewedBy)
	require.Equal(t, "https://cdn.test/kettle-2.jpg", again.PhotoURL)
	require.Equal(t, "https://cdn.test/kettle.mp4", again.VideoURL, "omitted evidence keeps the stored url")

	require.EqualValues(t, 1, env.countRows(&models.StepSubmission{}, "submission_id = ? AND step_id = ?", started.ID, step.ID))

	notes, err := env.notifications.List(env.ctx, env.f.student.UserID, dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Len(t, notes.Items, 1)
	require.Equal(t, models.NotificationStepReviewed, notes.Items[0].Type)
}

func TestStepEvidenceEditableUntilGraded(t *testing.T) {
	env := newTestEnv(t)
	id := env.submittedTask()
	step := env.f.steps[2]

	_, err := env.tasks.SubmitStep(env.ctx, id, step.ID, env.f.student, evidence("https://cdn.test/lemon.jpg"))
	require.NoError(t, err, "evidence can still be attached while the task awaits grading")

	_, err = env.grading.Grade(env.ctx, id, env.f.teacher, gradeOf(75, ""))
	require.NoError(t, err)

	_, err = env.tasks.SubmitStep(env.ctx, id, step.ID, env.f.student, evidence("https://cdn.test/lemon-2.jpg"))
	require.ErrorIs(t, err, ErrSubmissionGraded)
}

func TestStepValidation(t *testing.T) {
	env := newTestEnv(t)

	started, err := env.submissions.Start(env.ctx, env.f.task.ID, env.f.student)
	require.NoError(t, err)

	_, err = env.tasks.SubmitStep(env.ctx, started.ID, env.f.steps[0].ID, env.f.student, dto.StepEvidenceRequest{})
	require.Error(t, err)

	foreign := models.TaskStep{AssignmentID: env.f.quiz.ID, StepNumber: 1, Instruction: "Stray", IsMandatory: true}
	require.NoError(t, env.db.Create(&foreign).Error)
	_, err = env.tasks.SubmitStep(env.ctx, started.ID, foreign.ID, env.f.student, evidence("https://cdn.test/x.jpg"))
	require.ErrorIs(t, err, ErrStepNotInTask)

	_, err = env.tasks.SubmitStep(env.ctx, started.ID, 9999, env.f.student, evidence("https://cdn.test/x.jpg"))
	require.ErrorIs(t, err, ErrStepNotFound)

	_, err = env.tasks.SubmitStep(env.ctx, started.ID, env.f.steps[0].ID, env.f.otherStudent, evidence("https://cdn.test/x.jpg"))
	require.ErrorIs(t, err, ErrNotSubmissionOwner)
}

func TestReviewByOutsiderIsForbidden(t *testing.T) {
	env := newTestEnv(t)

	started, err := env.submissions.Start(env.ctx, env.f.task.ID, env.f.student)
	require.NoError(t, err)
	stored, err := env.tasks.SubmitStep(env.ctx, started.ID, env.f.steps[0].ID, env.f.student, evidence("https://cdn.test/x.jpg"))
	require.NoError(t, err)

	_, err = env.tasks.ReviewStep(env.ctx, stored.ID, env.f.outsider, dto.StepReviewRequest{Status: "approved"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.tasks.ReviewStep(env.ctx, 9999, env.f.teacher, dto.StepReviewRequest{Status: "approved"})
	require.ErrorIs(t, err, ErrStepSubmissionNotFound)

	approved, err := env.tasks.ReviewStep(env.ctx, stored.ID, env.f.teacher, dto.StepReviewRequest{Status: "approved"})
	require.NoError(t, err)
	require.Equal(t, string(models.StepReviewApproved), approved.Status)

	// Reviews are repeatable.
	rejected, err := env.tasks.ReviewStep(env.ctx, stored.ID, env.f.teacher, dto.StepReviewRequest{Status: "rejected"})
	require.NoError(t, err)
	require.Equal(t, string(models.StepReviewRejected), rejected.Status)
}
