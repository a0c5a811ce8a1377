package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/pkg/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{
		Host: "db", Port: 5433, User: "rvm", Password: "pw", Name: "assignments", SSLMode: "require",
	})
	assert.Equal(t, "host=db port=5433 user=rvm password=pw dbname=assignments sslmode=require", dsn)
}

func TestNewSQLiteCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "assignments.db")
	db, err := NewSQLite(path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close() //nolint:errcheck

	require.NoError(t, sqlDB.Ping())
	assert.DirExists(t, filepath.Dir(path))
}
