package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldops-bot/internal/api/http/handlers"
	"github.com/spec-kit/fieldops-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Webhook         *handlers.WebhookHandler
	Cron            *handlers.CronHandler
	Admin           *handlers.AdminHandler
	AdminMiddleware *auth.AdminMiddleware
	CronSecret      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/webhook", cfg.Webhook.Handle)

	cron := api.Group("/cron", auth.CronGuard(cfg.CronSecret))
	cron.Get("/", cfg.Cron.Run)
	cron.Post("/", cfg.Cron.Run)

	api.Post("/admin/login", cfg.Admin.Login)

	protected := api.Group("", cfg.AdminMiddleware.Handle)
	protected.Get("/users", cfg.Admin.ListUsers)
	protected.Post("/users", cfg.Admin.CreateUser)
	protected.Get("/users/:actorID/notifications", cfg.Admin.ListNotifications)
	protected.Post("/users/:actorID/notifications/:id/read", cfg.Admin.MarkNotificationRead)
	protected.Get("/stats", cfg.Admin.Stats)
}
