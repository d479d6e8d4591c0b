package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/jonesrussell/task-registry/infrastructure/config"
	"github.com/jonesrussell/task-registry/internal/database"
)

func TestOpen_AppliesPoolSettings(t *testing.T) {
	t.Parallel()

	cfg := infraconfig.DatabaseConfig{Host: "127.0.0.1", Port: 1}
	cfg.SetDefaults()
	cfg.MaxOpenConns = 7

	db, err := database.Open(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}

func TestPing(t *testing.T) {
	t.Parallel()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	db := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectPing()
	require.NoError(t, database.Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = database.Ping(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping database")

	require.NoError(t, mock.ExpectationsWereMet())
}
