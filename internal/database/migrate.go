package database

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:blankimports // File source driver

	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
)

// Migrator applies the SQL migrations under a directory. It owns a
// dedicated connection, since closing a migrate instance closes its
// database handle.
type Migrator struct {
	m      *migrate.Migrate
	path   string
	logger infralogger.Logger
}

// NewMigrator connects to databaseURL and loads migrations from dir.
func NewMigrator(databaseURL, dir string, log infralogger.Logger) (*Migrator, error) {
	if log == nil {
		log = infralogger.NewNop()
	}

	db, err := sql.Open(driverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	if absPath, absErr := filepath.Abs(dir); absErr == nil {
		dir = absPath
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, driverName, driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return &Migrator{m: m, path: dir, logger: log}, nil
}

// Up applies all pending migrations.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.Info("No pending migrations",
				infralogger.String("migrations_path", mg.path),
			)
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	mg.logger.Info("Migrations applied successfully",
		infralogger.String("migrations_path", mg.path),
	)
	return nil
}

// Down rolls back steps migrations; steps < 1 means one.
func (mg *Migrator) Down(steps int) error {
	if steps < 1 {
		steps = 1
	}
	if err := mg.m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("roll back migrations: %w", err)
	}

	mg.logger.Info("Migrations rolled back",
		infralogger.String("migrations_path", mg.path),
		infralogger.Int("steps", steps),
	)
	return nil
}

// Version returns the current schema version and dirty flag.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migrate instance and its connection.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}
