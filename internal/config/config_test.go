package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/gigflow")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.True(t, cfg.Hiring.AtomicCommit)
	assert.Equal(t, 16, cfg.Realtime.SendBuffer)
	assert.True(t, cfg.Reconcile.Enabled)
	assert.Equal(t, "@every 1m", cfg.Reconcile.Schedule)
	assert.False(t, cfg.Telemetry.TracingEnabled)
	assert.True(t, cfg.Telemetry.MetricsEnabled)
	assert.Empty(t, cfg.HTTP.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("DB_DSN", "file:gigflow.db")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("HIRE_ATOMIC_COMMIT", "false")
	t.Setenv("REALTIME_SEND_BUFFER", "4")
	t.Setenv("RECONCILE_SCHEDULE", "*/5 * * * *")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.Hiring.AtomicCommit)
	assert.Equal(t, 4, cfg.Realtime.SendBuffer)
	assert.Equal(t, "*/5 * * * *", cfg.Reconcile.Schedule)
}

func TestLoadMemoryDriverNeedsNoDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.DB.Driver)
}

func TestLoadValidation(t *testing.T) {
	tests := map[string]map[string]string{
		"missing dsn":    {"JWT_ACCESS_SECRET": "secret"},
		"missing secret": {"DB_DSN": "postgres://localhost/gigflow"},
		"unknown driver": {"DB_DRIVER": "mongo", "DB_DSN": "x", "JWT_ACCESS_SECRET": "secret"},
		"zero buffer":    {"DB_DRIVER": "memory", "JWT_ACCESS_SECRET": "secret", "REALTIME_SEND_BUFFER": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"DB_DRIVER", "DB_DSN", "JWT_ACCESS_SECRET", "REALTIME_SEND_BUFFER"} {
				t.Setenv(key, "")
			}
			for key, value := range env {
				t.Setenv(key, value)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList("  "))
	assert.Equal(t, []string{"a", "b"}, parseList(" a ,, b "))
}
