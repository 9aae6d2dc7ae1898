package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

func TestOwnershipResolvesEveryResourceKind(t *testing.T) {
	env := newTestEnv(t)
	ownership := NewOwnershipService(repository.NewOwnershipRepository(env.db), testLogger())

	started, err := env.submissions.Start(env.ctx, env.f.task.ID, env.f.student)
	require.NoError(t, err)
	stepSubmission, err := env.tasks.SubmitStep(env.ctx, started.ID, env.f.steps[0].ID, env.f.student, evidence("https://cdn.test/a.jpg"))
	require.NoError(t, err)

	resources := map[repository.ResourceKind]uint{
		repository.ResourceLesson:         env.f.lesson.ID,
		repository.ResourceAssignment:     env.f.quiz.ID,
		repository.ResourceQuestion:       env.f.questions[0].ID,
		repository.ResourceStep:           env.f.steps[0].ID,
		repository.ResourceSubmission:     started.ID,
		repository.ResourceStepSubmission: stepSubmission.ID,
	}

	for kind, id := range resources {
		require.NoError(t, ownership.VerifyTeacherOwns(env.ctx, kind, id, env.f.teacher), kind)
		require.ErrorIs(t, ownership.VerifyTeacherOwns(env.ctx, kind, id, env.f.outsider), ErrForbidden, kind)
		require.ErrorIs(t, ownership.VerifyTeacherOwns(env.ctx, kind, 9999, env.f.teacher), ErrNotFound, kind)
	}

	require.ErrorIs(t, ownership.VerifyTeacherOwnsLesson(env.ctx, env.f.lesson.ID, auth.Teacher{}), ErrNotClassroomTeacher)
}
