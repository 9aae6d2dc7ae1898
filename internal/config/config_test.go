package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	require.Equal(t, DefaultGradingPolicy(), cfg.Grading)
	require.Equal(t, 25, cfg.UploadMaxSizeMB)
	require.False(t, cfg.CloudinaryConfigured())
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("app.port", ":9000")
	v.Set("grading.xp_per_level", 250)
	v.Set("grading.passing_score", 75)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddress())
	require.Equal(t, 250, cfg.Grading.XPPerLevel)
	require.Equal(t, 75.0, cfg.Grading.PassingScore)
}

func TestFromViperFallsBackForNonPositiveGrading(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("grading.xp_per_level", 0)
	v.Set("grading.default_xp_reward", -5)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, 100, cfg.Grading.XPPerLevel)
	require.Equal(t, 10, cfg.Grading.DefaultXPReward)
}

func TestFromViperRejectsInvalidValues(t *testing.T) {
	_, err := fromViper(viper.New())
	require.Error(t, err)

	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("grading.passing_score", 140)
	_, err = fromViper(v)
	require.Error(t, err)

	v = viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("seed.enabled", true)
	_, err = fromViper(v)
	require.Error(t, err)

	v = viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("dashboard.cache_ttl", "soon")
	_, err = fromViper(v)
	require.Error(t, err)
}
