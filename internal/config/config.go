package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	DashboardCacheTTL      time.Duration
	AnswersPerMinute       int
	SeedEnabled            bool
	SeedToken              string
	Grading                GradingPolicy
}

// GradingPolicy carries the tunable constants of the grading and XP workflow.
type GradingPolicy struct {
	XPPerLevel      int
	PassingScore    float64
	DefaultXPReward int
}

// DefaultGradingPolicy mirrors the values used when nothing is configured.
func DefaultGradingPolicy() GradingPolicy {
	return GradingPolicy{XPPerLevel: 100, PassingScore: 60, DefaultXPReward: 10}
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryConfigured reports whether evidence uploads can be stored.
func (c Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	defaults := DefaultGradingPolicy()

	v.SetDefault("app.name", "GEMA Classroom API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "gema/evidence")
	v.SetDefault("upload.max_size_mb", 25)
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("grading.xp_per_level", defaults.XPPerLevel)
	v.SetDefault("grading.passing_score", defaults.PassingScore)
	v.SetDefault("grading.default_xp_reward", defaults.DefaultXPReward)
	v.SetDefault("ratelimit.answers_per_minute", 120)
	v.SetDefault("seed.enabled", false)

	ttlString := v.GetString("dashboard.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		DashboardCacheTTL:      ttl,
		AnswersPerMinute:       v.GetInt("ratelimit.answers_per_minute"),
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
		Grading: GradingPolicy{
			XPPerLevel:      v.GetInt("grading.xp_per_level"),
			PassingScore:    v.GetFloat64("grading.passing_score"),
			DefaultXPReward: v.GetInt("grading.default_xp_reward"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.Grading.XPPerLevel <= 0 {
		cfg.Grading.XPPerLevel = defaults.XPPerLevel
	}

	if cfg.Grading.PassingScore < 0 || cfg.Grading.PassingScore > 100 {
		return Config{}, fmt.Errorf("grading.passing_score must be between 0 and 100")
	}

	if cfg.Grading.DefaultXPReward <= 0 {
		cfg.Grading.DefaultXPReward = defaults.DefaultXPReward
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 25
	}

	if cfg.AnswersPerMinute <= 0 {
		cfg.AnswersPerMinute = 120
	}

	if cfg.SeedEnabled && cfg.SeedToken == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	return cfg, nil
}
