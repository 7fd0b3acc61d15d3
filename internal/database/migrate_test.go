package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := fs.ReadFile(migrationsFS, "migrations/00001_create_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "SUPER_ADMIN")
}

func TestRunMigrations_WrapsError(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return errors.New("boom")
	}

	err := runMigrations(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migrations: boom")
	assert.Equal(t, "migrations", gotDir)
}
