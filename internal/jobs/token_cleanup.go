package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kodprodobro/auth-service/internal/service"
)

// StartResetTokenCleanup sweeps expired password reset tokens on a fixed
// interval until ctx is cancelled. The first sweep runs immediately.
func StartResetTokenCleanup(ctx context.Context, reset *service.PasswordResetService, interval time.Duration, logger *logrus.Logger) {
	go func() {
		runSweep(ctx, reset, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSweep(ctx, reset, logger)
			}
		}
	}()

	logger.WithField("interval", interval.String()).Info("Reset token cleanup job started")
}

func runSweep(ctx context.Context, reset *service.PasswordResetService, logger *logrus.Logger) {
	deleted, err := reset.RemoveExpired(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to sweep expired reset tokens")
		return
	}
	if deleted > 0 {
		logger.WithField("deleted", deleted).Info("Removed expired reset tokens")
	}
}
