package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-classroom-api/internal/config"
	"github.com/noah-isme/gema-classroom-api/internal/handler"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	GradingHandler      *handler.GradingHandler
	StudentHandler      *handler.StudentHandler
	NotificationHandler *handler.NotificationHandler
	ActivityHandler     *handler.ActivityHandler
	UploadHandler       *handler.UploadHandler
	SeedHandler         *handler.SeedHandler
	HealthProbes        map[string]handler.HealthProbe

	// JWTMiddleware authenticates the bearer token; IdentityMiddleware loads the stored account role.
	JWTMiddleware      fiber.Handler
	IdentityMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Seeding authenticates with its own token.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = passthrough
	}
	identityMiddleware := deps.IdentityMiddleware
	if identityMiddleware == nil {
		identityMiddleware = passthrough
	}

	secured := api.Group("", jwtMiddleware, identityMiddleware)

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(secured)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(secured)
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(secured)
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(secured)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(secured)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(secured)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(secured)
	}
}
