// Package database opens the PostgreSQL pool and applies schema migrations.
package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" //nolint:blankimports // PostgreSQL driver

	infraconfig "github.com/jonesrussell/task-registry/infrastructure/config"
	infracontext "github.com/jonesrussell/task-registry/infrastructure/context"
)

const driverName = "postgres"

// Open creates the connection pool without contacting the server. Readiness
// is checked separately with Ping.
func Open(cfg *infraconfig.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Ping checks the connection under the shared ping timeout.
func Ping(ctx context.Context, db *sqlx.DB) error {
	pingCtx, cancel := infracontext.WithPingTimeout(ctx)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
