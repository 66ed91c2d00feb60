package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AntiAnoop/smartcode/internal/config"
	"github.com/AntiAnoop/smartcode/internal/handler"
	"github.com/AntiAnoop/smartcode/internal/middleware"
	"github.com/AntiAnoop/smartcode/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler       *handler.TaskHandler
	TaskStatusHandler *handler.TaskStatusHandler
	CheckoutHandler   *handler.CheckoutHandler
	WebhookHandler    *handler.WebhookHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// The webhook endpoint stays outside the JWT group: it is authenticated
	// by the event signature alone.
	if deps.WebhookHandler != nil {
		webhooks := api.Group("/webhooks")
		deps.WebhookHandler.Register(webhooks)
	}

	if deps.TaskHandler != nil {
		tasks := api.Group("/tasks", jwtMiddleware)
		tasks.Use(middleware.RateLimit("tasks", 30, time.Minute))
		deps.TaskHandler.Register(tasks)

		if deps.TaskStatusHandler != nil {
			deps.TaskStatusHandler.Register(tasks)
		}

		if deps.CheckoutHandler != nil {
			deps.CheckoutHandler.Register(tasks)
		}
	}
}
