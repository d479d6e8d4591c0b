package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/config"
	"github.com/jonesrussell/task-registry/internal/database"
)

// SetupDatabase opens the pool, waits for PostgreSQL and applies pending
// migrations when enabled.
func SetupDatabase(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*sqlx.DB, error) {
	db, err := database.Open(&cfg.Database.DatabaseConfig)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	ping := func(ctx context.Context) error { return database.Ping(ctx, db) }
	if waitErr := WaitForDependency(ctx, "postgres", cfg.Startup.MaxAttempts, cfg.Startup.Interval, ping, log); waitErr != nil {
		_ = db.Close()
		return nil, waitErr
	}

	log.Info("Database connection established",
		infralogger.String("url", cfg.Database.Redacted()),
	)

	if cfg.Database.ShouldMigrate() {
		if migrateErr := runMigrations(cfg, log); migrateErr != nil {
			_ = db.Close()
			return nil, migrateErr
		}
	}

	return db, nil
}

func runMigrations(cfg *config.Config, log infralogger.Logger) error {
	migrator, err := database.NewMigrator(cfg.Database.URL(), cfg.Database.MigrationsPath, log)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if upErr := migrator.Up(); upErr != nil {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	return nil
}
