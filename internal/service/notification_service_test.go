package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func TestNotificationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	userID := env.f.student.UserID
	entity := uint(42)

	require.NoError(t, env.notifications.Notify(env.ctx, userID, models.NotificationSubmissionGraded, "<i>Quiz</i> graded", &entity))
	require.NoError(t, env.notifications.Notify(env.ctx, userID, models.NotificationLevelUp, strings.Repeat("x", 2500), nil))
	require.Error(t, env.notifications.Notify(env.ctx, 0, models.NotificationLevelUp, "nobody", nil))
	require.Error(t, env.notifications.Notify(env.ctx, userID, models.NotificationLevelUp, "<script></script>", nil))

	listed, err := env.notifications.List(env.ctx, userID, dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Len(t, listed.Items, 2)
	require.EqualValues(t, 2, listed.Unread)

	var graded dto.NotificationResponse
	for _, item := range listed.Items {
		if item.Type == models.NotificationSubmissionGraded {
			graded = item
		} else {
			require.Len(t, item.Message, maxNotificationLength)
		}
	}
	require.Equal(t, "Quiz graded", graded.Message)
	require.Equal(t, &entity, graded.EntityID)

	_, err = env.notifications.MarkRead(env.ctx, graded.ID, env.f.otherStudent.UserID)
	require.ErrorIs(t, err, ErrNotificationNotFound)

	read, err := env.notifications.MarkRead(env.ctx, graded.ID, userID)
	require.NoError(t, err)
	require.True(t, read.Read)

	unread, err := env.notifications.List(env.ctx, userID, dto.NotificationListQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)
	require.EqualValues(t, 1, unread.Unread)

	updated, err := env.notifications.MarkAllRead(env.ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	drained, err := env.notifications.List(env.ctx, userID, dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Zero(t, drained.Unread)
}

func TestNotificationTruncatesOnRuneBoundary(t *testing.T) {
	env := newTestEnv(t)
	userID := env.f.student.UserID

	require.NoError(t, env.notifications.Notify(env.ctx, userID, models.NotificationLevelUp, strings.Repeat("é", maxNotificationLength+5), nil))

	listed, err := env.notifications.List(env.ctx, userID, dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)
	require.Equal(t, maxNotificationLength, utf8.RuneCountInString(listed.Items[0].Message))
	require.True(t, utf8.ValidString(listed.Items[0].Message))
}
