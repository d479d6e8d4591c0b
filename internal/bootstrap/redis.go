package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	infraredis "github.com/jonesrussell/task-registry/infrastructure/redis"
	"github.com/jonesrussell/task-registry/internal/config"
	"github.com/jonesrussell/task-registry/internal/events"
)

// SetupRedis creates the client and waits for Redis to answer.
func SetupRedis(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*redis.Client, error) {
	client, err := infraredis.NewClient(infraredis.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}

	ping := func(ctx context.Context) error { return infraredis.Ping(ctx, client) }
	if waitErr := WaitForDependency(ctx, "redis", cfg.Startup.MaxAttempts, cfg.Startup.Interval, ping, log); waitErr != nil {
		_ = client.Close()
		return nil, waitErr
	}

	return client, nil
}

// SetupEventPublisher returns nil unless events are enabled.
func SetupEventPublisher(cfg *config.Config, client *redis.Client, log infralogger.Logger) *events.Publisher {
	if !cfg.Events.Enabled {
		return nil
	}

	log.Info("Event publisher initialized",
		infralogger.String("stream", cfg.Events.Stream),
	)
	return events.NewPublisher(client, cfg.Events.Stream, log)
}
