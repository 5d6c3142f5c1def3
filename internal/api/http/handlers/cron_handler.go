package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldops-bot/internal/service"
)

// CronHandler exposes the compliance sweeps to an external scheduler.
type CronHandler struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

// NewCronHandler returns a new handler instance.
func NewCronHandler(notifications *service.NotificationService, logger *zap.Logger) *CronHandler {
	return &CronHandler{notifications: notifications, logger: logger}
}

// Run executes both sweeps. Each sweep is idempotent, so overlapping
// scheduler calls are harmless.
func (h *CronHandler) Run(c *fiber.Ctx) error {
	ctx := c.UserContext()
	results := fiber.Map{}

	if err := h.notifications.RunStaleProgressSweep(ctx); err != nil {
		h.logger.Error("stale progress sweep failed", zap.Error(err))
		results["stale_progress"] = err.Error()
	} else {
		results["stale_progress"] = "ok"
	}

	if err := h.notifications.RunDeadlineWarningSweep(ctx); err != nil {
		h.logger.Error("deadline warning sweep failed", zap.Error(err))
		results["deadline_warning"] = err.Error()
	} else {
		results["deadline_warning"] = "ok"
	}

	return c.JSON(fiber.Map{"ok": true, "sweeps": results})
}
