package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOURBANK_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.Equal(t, "Active", cfg.Lifecycle.InitialStatus)
	require.Equal(t, "warn", cfg.Acceptance.ExhaustedHours)
	require.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
	require.True(t, cfg.Sweep.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hourbank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
db:
  path: /var/lib/hourbank.db
lifecycle:
  initial_status: Pending
sweep:
  interval: 15m
acceptance:
  exhausted_hours: block
`), 0o644))

	t.Setenv("HOURBANK_CONFIG_PATH", path)
	t.Setenv("HOURBANK_SERVER_PORT", "9100")
	t.Setenv("HOURBANK_AUTH_ENABLED", "true")
	t.Setenv("HOURBANK_LOCK_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "/var/lib/hourbank.db", cfg.DB.Path)
	require.Equal(t, "Pending", cfg.Lifecycle.InitialStatus)
	require.Equal(t, 15*time.Minute, cfg.Sweep.Interval)
	require.Equal(t, "block", cfg.Acceptance.ExhaustedHours)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, 750*time.Millisecond, cfg.Ledger.LockTimeout)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("HOURBANK_CONFIG_PATH", "")
	t.Setenv("HOURBANK_SERVER_PORT", "eighty")

	_, err := Load()
	require.ErrorContains(t, err, "HOURBANK_SERVER_PORT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.DB.Driver = "postgres"
	require.ErrorContains(t, cfg.Validate(), "db url is required")
	cfg.DB.URL = "postgres://localhost/hourbank"
	require.NoError(t, cfg.Validate())

	cfg.Transport.Mode = "grpc"
	cfg.Acceptance.ExhaustedHours = "ignore"
	err := cfg.Validate()
	require.ErrorContains(t, err, "transport mode")
	require.ErrorContains(t, err, "exhausted hours")
}

func TestValidate_MetricsPath(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Path = "metrics"
	require.ErrorContains(t, cfg.Validate(), "metrics path")

	cfg.Metrics.Enabled = false
	require.NoError(t, cfg.Validate())
}
