package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/config"
	"github.com/noah-isme/gema-classroom-api/internal/database"
	"github.com/noah-isme/gema-classroom-api/internal/handler"
	"github.com/noah-isme/gema-classroom-api/internal/leveling"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
	"github.com/noah-isme/gema-classroom-api/internal/router"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	cloud "github.com/noah-isme/gema-classroom-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient == nil {
		logger.Warn().Msg("redis not configured, dashboard cache disabled")
	} else {
		defer redisClient.Close()
	}

	app := buildApp(cfg, db, redisClient, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func buildApp(cfg config.Config, db *gorm.DB, redisClient *redis.Client, logger zerolog.Logger) *fiber.App {
	validate := handler.NewValidator()
	tx := repository.NewTransactor(db)
	rules := leveling.Rules{XPPerLevel: cfg.Grading.XPPerLevel}
	policy := service.GradingPolicy{
		PassingScore:    cfg.Grading.PassingScore,
		DefaultXPReward: cfg.Grading.DefaultXPReward,
	}

	students := repository.NewStudentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	repos := service.WorkflowRepositories{
		Assignments:     repository.NewAssignmentRepository(db),
		Questions:       repository.NewQuestionRepository(db),
		Steps:           repository.NewStepRepository(db),
		Students:        students,
		Submissions:     submissions,
		Answers:         repository.NewAnswerRepository(db),
		StepSubmissions: repository.NewStepSubmissionRepository(db),
		Gradings:        repository.NewGradingRepository(db),
	}

	ownershipService := service.NewOwnershipService(repository.NewOwnershipRepository(db), logger)
	xpService := service.NewXPService(students, tx, rules, logger)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), validate, logger)
	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), validate, logger)
	dashboardService := service.NewStudentDashboardService(students, submissions, rules, redisClient, cfg.DashboardCacheTTL, logger)

	deps := service.WorkflowDeps{
		Repos:     repos,
		Ownership: ownershipService,
		Tx:        tx,
		Validator: validate,
		XP:        xpService,
		Policy:    policy,
		Notifier:  notificationService,
		Dashboard: dashboardService,
		Activity:  activityService,
		Logger:    logger,
	}

	assignmentService := service.NewAssignmentService(service.AssignmentRepositories{
		Assignments: repos.Assignments,
		Questions:   repos.Questions,
		Steps:       repos.Steps,
	}, ownershipService, tx, validate, policy, activityService, logger)
	submissionService := service.NewSubmissionService(deps)
	quizService := service.NewQuizService(deps)
	taskService := service.NewTaskService(deps)
	gradingService := service.NewGradingService(deps)
	seedService := service.NewSeedService(repository.NewClassroomRepository(db), tx, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	var uploadService service.UploadService
	if cfg.CloudinaryConfigured() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		uploadService = service.NewUploadService(uploader, repository.NewUploadRepository(db), cfg.UploadMaxSizeMB, logger)
	} else {
		logger.Warn().Msg("cloudinary not configured, evidence uploads disabled")
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, quizService, taskService, middleware.RateLimit("answers", cfg.AnswersPerMinute, time.Minute), logger),
		GradingHandler:      handler.NewGradingHandler(gradingService, taskService, logger),
		StudentHandler:      handler.NewStudentHandler(submissionService, xpService, dashboardService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		HealthProbes:        probes,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		IdentityMiddleware:  middleware.ResolveIdentity(repository.NewUserRepository(db), logger),
	})

	return app
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
