package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "DB", cfg.Storage.DataDir)
	assert.Equal(t, time.Hour, cfg.Security.TokenTTL)
	assert.Equal(t, "lax", cfg.Security.CookieSameSite)
	assert.Equal(t, DefaultOriginPattern, cfg.CORS.OriginPattern)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
}

func TestLoadPostgresBuildsURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "tunedeck")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "catalog")
	t.Setenv("DB_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgresql://tunedeck:pw@db:5433/catalog?sslmode=disable", cfg.Database.URL)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := &Config{
		Storage:  StorageConfig{Driver: "mongo"},
		Security: SecurityConfig{JWTSecret: "short", TokenTTL: time.Minute, CookieSameSite: "lax"},
		CORS:     CORSConfig{OriginPattern: "("},
		Server:   ServerConfig{Port: 0},
		Logging:  LoggingConfig{Level: "trace", Format: "json"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"STORAGE_DRIVER", "JWT_SECRET", "CORS_ORIGIN_PATTERN", "PORT", "LOG_LEVEL"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadDatabaseIgnoresServerSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/tunedeck")

	db, err := LoadDatabase()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/tunedeck", db.URL)

	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "")
	_, err = LoadDatabase()
	assert.Error(t, err)
}
