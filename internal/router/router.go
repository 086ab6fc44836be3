package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/edutrack-api/internal/config"
	"github.com/noah-isme/edutrack-api/internal/handler"
	"github.com/noah-isme/edutrack-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler           *handler.AuthHandler
	ExamHandler           *handler.ExamHandler
	AttemptHandler        *handler.AttemptHandler
	ReviewHandler         *handler.ReviewHandler
	ProgressHandler       *handler.ProgressHandler
	RecommendationHandler *handler.RecommendationHandler
	HealthProbes          map[string]handler.HealthProbe
	JWTMiddleware         fiber.Handler
	// DisableMetrics skips the /metrics route.
	DisableMetrics bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if !deps.DisableMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}

	exams := api.Group("/exams", jwtMiddleware)
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(exams)
	}

	// Attempts nest under their exam.
	if deps.AttemptHandler != nil {
		deps.AttemptHandler.Register(exams.Group("/:exam/attempts"))
	}

	if deps.ReviewHandler != nil {
		answers := api.Group("/student-answers", jwtMiddleware)
		deps.ReviewHandler.Register(answers)
	}

	if deps.ProgressHandler != nil {
		progress := api.Group("/progress", jwtMiddleware)
		deps.ProgressHandler.Register(progress)
	}

	if deps.RecommendationHandler != nil {
		recommendations := api.Group("/recommendations", jwtMiddleware)
		deps.RecommendationHandler.Register(recommendations)
	}
}
