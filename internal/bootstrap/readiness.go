package bootstrap

import (
	"context"
	"fmt"
	"time"

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	infraretry "github.com/jonesrussell/task-registry/infrastructure/retry"
)

// WaitForDependency pings until it succeeds or attempts run out, waiting a
// fixed interval between attempts.
func WaitForDependency(
	ctx context.Context,
	name string,
	attempts int,
	interval time.Duration,
	ping func(ctx context.Context) error,
	log infralogger.Logger,
) error {
	cfg := infraretry.Fixed(attempts, interval)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Info("Waiting for dependency",
			infralogger.String("dependency", name),
			infralogger.Int("attempt", attempt),
			infralogger.Int("max_attempts", attempts),
			infralogger.Duration("retry_in", wait),
			infralogger.Error(err),
		)
	}

	if err := infraretry.Retry(ctx, cfg, ping); err != nil {
		return fmt.Errorf("%s not ready: %w", name, err)
	}

	log.Info("Dependency ready", infralogger.String("dependency", name))
	return nil
}
