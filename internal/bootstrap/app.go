// Package bootstrap handles application initialization and lifecycle
// management for the task-registry service.
package bootstrap

import (
	"context"
	"fmt"

	infracontext "github.com/jonesrussell/task-registry/infrastructure/context"
	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	infraprofiling "github.com/jonesrussell/task-registry/infrastructure/profiling"
)

// Start initializes and runs the task-registry service until shutdown.
func Start() error {
	ctx := context.Background()

	// Phase 1: config and logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 2: profiling (off unless enabled)
	if pprofSrv := infraprofiling.StartPprofServer(cfg.Profiling, log); pprofSrv != nil {
		defer func() {
			shutdownCtx, cancel := infracontext.WithShutdownTimeout(ctx)
			defer cancel()
			_ = pprofSrv.Shutdown(shutdownCtx)
		}()
	}
	profiler, err := infraprofiling.StartPyroscope(cfg.Profiling, cfg.Service.Name, cfg.Service.Version, log)
	if err != nil {
		log.Warn("Continuous profiling unavailable", infralogger.Error(err))
	}
	defer func() { _ = profiler.Stop() }()

	// Phase 3: database, readiness and migrations
	db, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", infralogger.Error(closeErr))
		}
	}()

	// Phase 4: redis, readiness, cache and events
	rds, err := SetupRedis(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up redis: %w", err)
	}
	defer func() {
		if closeErr := rds.Close(); closeErr != nil {
			log.Error("Failed to close redis client", infralogger.Error(closeErr))
		}
	}()

	// Phase 5: HTTP server
	server, err := SetupHTTPServer(cfg, db, rds, log)
	if err != nil {
		return fmt.Errorf("failed to set up http server: %w", err)
	}

	log.Info("Starting HTTP server",
		infralogger.String("host", cfg.Server.Host),
		infralogger.Int("port", cfg.Server.Port),
		infralogger.String("api_prefix", cfg.Server.APIPrefix),
	)

	if runErr := server.Run(); runErr != nil {
		log.Error("Server error", infralogger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
