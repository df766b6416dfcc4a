// Package testutil opens throwaway databases for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/config"
	"github.com/nurpe/gigflow/internal/db"
)

// SQLite opens a migrated database file under t.TempDir and closes it when
// the test ends.
func SQLite(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "gigflow.db") + "?_foreign_keys=on&_busy_timeout=5000"
	cfg := &config.Config{
		DB: config.DBConfig{
			Driver:      config.DriverSQLite,
			DSN:         dsn,
			AutoMigrate: true,
		},
	}
	database, err := db.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return database
}
