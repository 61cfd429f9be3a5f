package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestRunMigrations_NilDB(t *testing.T) {
	err := RunMigrations(context.Background(), nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is nil")
}

func TestRunMigrations_DBError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// no expectations are registered, so goose's first statement fails
	err = RunMigrations(context.Background(), db, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration error")
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := embedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	content, err := embedMigrations.ReadFile(migrationsDir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- +goose Up")
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS users")
}

func TestNewPostgres_RequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilHandles(t *testing.T) {
	var pg *Postgres
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()

	var sessions *SessionStore
	assert.Error(t, sessions.Ping(context.Background()))
	sessions.Close()
}
