package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/fieldops-bot/internal/events"
	"github.com/spec-kit/fieldops-bot/internal/service"
)

// StartNotificationWorker registers notification handlers on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher) {
	if notificationService == nil || dispatcher == nil {
		return
	}
	notificationService.RegisterHandlers(dispatcher)
}

// RunSweeps runs the stale-progress and deadline-warning sweeps on a fixed
// interval until the context is cancelled. Both sweeps are idempotent.
func RunSweeps(ctx context.Context, notificationService *service.NotificationService, interval time.Duration, logger *zap.Logger) {
	if notificationService == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := notificationService.RunStaleProgressSweep(ctx); err != nil {
				logger.Error("stale progress sweep failed", zap.Error(err))
			}
			if err := notificationService.RunDeadlineWarningSweep(ctx); err != nil {
				logger.Error("deadline warning sweep failed", zap.Error(err))
			}
		}
	}
}
