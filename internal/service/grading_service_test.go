package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func gradeOf(score float64, feedback string) dto.GradeRequest {
	return dto.GradeRequest{Score: &score, Feedback: feedback}
}

func TestGradeRejectsDrafts(t *testing.T) {
	env := newTestEnv(t)

	draft, err := env.submissions.Start(env.ctx, env.f.task.ID, env.f.student)
	require.NoError(t, err)

	_, err = env.grading.Grade(env.ctx, draft.ID, env.f.teacher, gradeOf(90, ""))
	require.ErrorIs(t, err, ErrSubmissionNotSubmitted)
	require.Zero(t, env.countRows(&models.Grading{}, "submission_id = ?", draft.ID))
}

func TestGradePassingAwardsXPAndRegradeAwardsAgain(t *testing.T) {
	env := newTestEnv(t)
	id := env.submittedTask()

	first, err := env.grading.Grade(env.ctx, id, env.f.teacher, gradeOf(80, "<b>Good</b> job"))
	require.NoError(t, err)
	require.Equal(t, 80.0, first.Score)
	require.Equal(t, "Good job", first.Feedback)
	require.Equal(t, 10, first.XPAwarded)
	require.Equal(t, env.f.teacher.UserID, first.GradedBy)
	require.Equal(t, 10, env.reloadStudent().TotalXP)

	// Reading the grade back does not award anything.
	_, err = env.submissions.Detail(env.ctx, id, auth.Identity{UserID: env.f.teacher.UserID, Role: auth.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, 10, env.reloadStudent().TotalXP)

	second, err := env.grading.Grade(env.ctx, id, env.f.teacher, gradeOf(95, "Even better"))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "regrade updates the single grading row")
	require.Equal(t, 10, second.XPAwarded)
	require.Equal(t, 20, env.reloadStudent().TotalXP)

	require.EqualValues(t, 1, env.countRows(&models.Grading{}, "submission_id = ?", id))

	var history []models.GradeHistory
	require.NoError(t, env.db.Where("submission_id = ?", id).Order("id ASC").Find(&history).Error)
	require.Len(t, history, 2)
	require.Equal(t, 10, history[0].XPAwarded)
	require.Equal(t, 10, history[1].XPAwarded)
	require.Equal(t, models.GradeSourceManual, history[1].Source)

	var stored models.Submission
	require.NoError(t, env.db.First(&stored, id).Error)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.NotNil(t, stored.Score)
	require.Equal(t, 95.0, *stored.Score)
}

func TestGradeBelowThresholdAwardsNothing(t *testing.T) {
	env := newTestEnv(t)
	id := env.submittedTask()

	result, err := env.grading.Grade(env.ctx, id, env.f.teacher, gradeOf(59.5, "Try again"))
	require.NoError(t, err)
	require.Zero(t, result.XPAwarded)
	require.Zero(t, env.reloadStudent().TotalXP)
}

func TestGradeCarriesMultipleLevels(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Model(&models.Assignment{}).Where("id = ?", env.f.task.ID).Update("xp_reward", 250).Error)
	require.NoError(t, env.db.Model(&models.Student{}).Where("id = ?", env.f.profile.ID).
		Updates(map[string]interface{}{"total_xp": 80, "current_xp": 80}).Error)

	id := env.submittedTask()
	_, err := env.grading.Grade(env.ctx, id, env.f.teacher, gradeOf(100, ""))
	require.NoError(t, err)

	student := env.reloadStudent()
	require.Equal(t, 4, student.Level)
	require.Equal(t, 330, student.TotalXP)
	require.Equal(t, 30, student.CurrentXP)

	notes, err := env.notifications.List(env.ctx, env.f.student.UserID, dto.NotificationListQuery{})
	require.NoError(t, err)
	types := make([]string, 0, len(notes.Items))
	for _, item := range notes.Items {
		types = append(types, item.Type)
	}
	require.Contains(t, types, models.NotificationLevelUp)
	require.Contains(t, types, models.NotificationSubmissionGraded)
}

func TestGradeByOutsiderIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	id := env.submittedTask()

	_, err := env.grading.Grade(env.ctx, id, env.f.outsider, gradeOf(100, ""))
	require.ErrorIs(t, err, ErrNotClassroomTeacher)

	_, err = env.grading.Grade(env.ctx, id, env.f.outsider, dto.GradeRequest{Feedback: "no score"})
	require.ErrorIs(t, err, ErrNotClassroomTeacher, "ownership is checked before the payload")
	require.Zero(t, env.reloadStudent().TotalXP)

	_, err = env.grading.Grade(env.ctx, 9999, env.f.teacher, gradeOf(100, ""))
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGradeRecordsActivity(t *testing.T) {
	env := newTestEnv(t)
	id := env.submittedTask()

	_, err := env.grading.Grade(env.ctx, id, env.f.teacher, gradeOf(70, ""))
	require.NoError(t, err)

	entries, err := env.activity.ListForTeacher(env.ctx, env.f.teacher, dto.ActivityListRequest{Action: "submission.graded"})
	require.NoError(t, err)
	require.Len(t, entries.Items, 1)
	require.NotNil(t, entries.Items[0].EntityID)
	require.Equal(t, id, *entries.Items[0].EntityID)
}
