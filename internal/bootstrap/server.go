package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	infragin "github.com/jonesrussell/task-registry/infrastructure/gin"
	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	inframetrics "github.com/jonesrussell/task-registry/infrastructure/metrics"
	"github.com/jonesrussell/task-registry/internal/api"
	"github.com/jonesrussell/task-registry/internal/cache"
	"github.com/jonesrussell/task-registry/internal/config"
	"github.com/jonesrussell/task-registry/internal/coordinator"
	"github.com/jonesrussell/task-registry/internal/database"
	"github.com/jonesrussell/task-registry/internal/handlers"
	"github.com/jonesrussell/task-registry/internal/repository"
	"github.com/jonesrussell/task-registry/internal/service"
	"github.com/jonesrussell/task-registry/internal/telemetry"
)

const metricsNamespace = "task_registry"

// SetupHTTPServer wires store, cache, coordinator, service and routes into
// a server.
func SetupHTTPServer(
	cfg *config.Config,
	db *sqlx.DB,
	rds *redis.Client,
	log infralogger.Logger,
) (*infragin.Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(registry)

	taskRepo := repository.NewTaskRepository(db, log)
	taskCache := cache.NewRedisCache(rds, cache.Config{
		BreakerFailures: cfg.Cache.BreakerFailures,
		BreakerCooldown: cfg.Cache.BreakerCooldown,
	}, log, metrics)

	coord, err := coordinator.New(taskRepo, taskCache, coordinator.Config{
		TTL:          cfg.Cache.TTL,
		CacheTimeout: cfg.Cache.Timeout,
		StoreTimeout: cfg.Cache.StoreTimeout,
	}, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	taskService, err := service.NewTaskService(taskRepo, coord, log, service.Options{
		Publisher:    SetupEventPublisher(cfg, rds, log),
		Metrics:      metrics,
		StoreTimeout: cfg.Cache.StoreTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create task service: %w", err)
	}

	taskHandler := handlers.NewTaskHandler(taskService, log)
	httpMetrics := inframetrics.NewHTTPMetrics(registry, metricsNamespace)

	server := infragin.NewServerBuilder(cfg.Service.Name, cfg.Server.Port).
		WithLogger(log).
		WithHost(cfg.Server.Host).
		WithDebug(cfg.Debug).
		WithVersion(cfg.Service.Version).
		WithCORSOrigins(cfg.Server.CORSOrigins).
		WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout).
		WithDatabaseHealthCheck(func(ctx context.Context) error { return database.Ping(ctx, db) }).
		WithRedisHealthCheck(taskCache.Ping).
		WithRoutes(func(router *gin.Engine) {
			api.SetupRoutes(router, taskHandler, api.RouteConfig{
				APIPrefix:   cfg.Server.APIPrefix,
				JWTSecret:   cfg.Auth.JWTSecret,
				Gatherer:    registry,
				HTTPMetrics: httpMetrics,
			})
		}).
		Build()

	return server, nil
}
