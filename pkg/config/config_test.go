package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/charter/pkg/config"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT", "CHARTER_OWNER", "CHARTER_INITIAL_BALANCE",
	"CHARTER_POLICY_FILE", "JOURNAL_DRIVER", "DATABASE_URL", "SQLITE_PATH", "DATA_DIR",
	"JWT_SECRET", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "REDIS_ADDR", "OTEL_ENABLED",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "ARCHIVE_TYPE", "ARCHIVE_BUCKET", "ARCHIVE_PREFIX",
	"ARCHIVE_REGION", "ARCHIVE_ENDPOINT",
}

// TestLoad_Defaults verifies that Load() boots with safe dev defaults.
func TestLoad_Defaults(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "memory", cfg.JournalDriver)
	assert.Equal(t, "0", cfg.InitialBalance)
	assert.Equal(t, "data/charter.db", cfg.SQLitePath)
	assert.Equal(t, 600, cfg.RateLimitRPM)
	assert.Equal(t, 50, cfg.RateLimitBurst)
	assert.Equal(t, "fs", cfg.ArchiveType)
	assert.Contains(t, cfg.DatabaseURL, "localhost")
	assert.False(t, cfg.OTelEnabled)
	assert.Empty(t, cfg.JWTSecret)
}

// TestLoad_Overrides verifies that 12-factor env vars override defaults.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("JOURNAL_DRIVER", "SQLite")
	t.Setenv("DATA_DIR", "/var/lib/charter")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("CHARTER_INITIAL_BALANCE", "10000000000000000000")
	t.Setenv("RATE_LIMIT_RPM", "60")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("ARCHIVE_TYPE", "S3")
	t.Setenv("ARCHIVE_BUCKET", "snapshots")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.JournalDriver)
	assert.Equal(t, "/var/lib/charter/charter.db", cfg.SQLitePath)
	assert.Equal(t, "10000000000000000000", cfg.InitialBalance)
	assert.Equal(t, 60, cfg.RateLimitRPM)
	assert.Equal(t, 50, cfg.RateLimitBurst, "unparsable values fall back to the default")
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "s3", cfg.ArchiveType)
	assert.Equal(t, "snapshots", cfg.ArchiveBucket)
}

func TestLoadPolicy_Defaults(t *testing.T) {
	p, err := config.LoadPolicy("")
	require.NoError(t, err)
	assert.True(t, p.RequireRegisteredWriter)
	assert.Equal(t, "amount <= balance", p.TransferCondition)
}

func TestLoadPolicy_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := `
require_registered_writer: false
require_registered_voter: true
max_name_length: 32
transfer_condition: "amount <= balance && registered"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	p, err := config.LoadPolicy(path)
	require.NoError(t, err)
	assert.False(t, p.RequireRegisteredWriter)
	assert.False(t, p.RequireRegisteredReader)
	assert.True(t, p.RequireRegisteredVoter)
	assert.Equal(t, 32, p.MaxNameLength)
	assert.Equal(t, 4096, p.MaxDescriptionLength, "unset fields keep their defaults")
	assert.Equal(t, "amount <= balance && registered", p.TransferCondition)
}

func TestLoadPolicy_Errors(t *testing.T) {
	_, err := config.LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.ParsePolicy([]byte("max_name_length: [1, 2"))
	assert.Error(t, err)

	_, err = config.ParsePolicy([]byte("max_name_length: -4"))
	assert.Error(t, err)

	_, err = config.ParsePolicy([]byte(`transfer_condition: "amount"`))
	assert.Error(t, err)
}
