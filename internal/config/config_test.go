package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.True(t, cfg.App.Development())
	assert.Equal(t, 5*time.Minute, cfg.Ledger.CacheTTL)
	assert.Equal(t, catalog.DefaultFilterExpr, cfg.Ledger.ProductFilter)
	assert.True(t, cfg.Ledger.ClosedUntil.IsZero())
	assert.Equal(t, time.Minute, cfg.Worker.Interval)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=9000\nLEDGER_CACHE_TTL=30s\nREDIS_DB=2\n"), 0o600))
	t.Setenv("APP_PORT", "9100")
	t.Setenv("LEDGER_CLOSED_UNTIL", "2024-02-29")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.App.Port)
	assert.Equal(t, 30*time.Second, cfg.Ledger.CacheTTL)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, types.MustDate("2024-02-29"), cfg.Ledger.ClosedUntil)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad closed date", "LEDGER_CLOSED_UNTIL", "29/02/2024"},
		{"zero interval", "WORKER_INTERVAL", "0s"},
		{"zero rps", "RATE_LIMIT_RPS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
