package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/leveling"
)

func TestXPServiceAwardPersistsCarry(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Model(&env.f.profile).Updates(map[string]interface{}{"total_xp": 80, "current_xp": 80}).Error)

	award, err := env.xp.Award(env.ctx, env.f.profile.ID, 250)
	require.NoError(t, err)
	require.Equal(t, 3, award.LevelsGained)
	require.Equal(t, leveling.Progress{Level: 1, TotalXP: 80, CurrentXP: 80}, award.Before)
	require.Equal(t, leveling.Progress{Level: 4, TotalXP: 330, CurrentXP: 30}, award.After)

	student := env.reloadStudent()
	require.Equal(t, 4, student.Level)
	require.Equal(t, 330, student.TotalXP)
	require.Equal(t, 30, student.CurrentXP)

	progress, err := env.xp.GetProgress(env.ctx, env.f.student)
	require.NoError(t, err)
	require.Equal(t, 70, progress.XPToNextLevel)
	require.Equal(t, 100, progress.XPPerLevel)
}

func TestXPServiceRejectsInvalidAwards(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.xp.Award(env.ctx, env.f.profile.ID, -5)
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = env.xp.Award(env.ctx, 9999, 10)
	require.ErrorIs(t, err, ErrNotFound)

	require.Zero(t, env.reloadStudent().TotalXP)
}
