package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_DRIVER", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, DriverMemory, cfg.Backend.Driver)
	assert.Equal(t, 50, cfg.Pagination.PageSize)
	assert.Equal(t, 0, cfg.Pagination.MaxPages)
	assert.Equal(t, 1, cfg.Pagination.FetchAhead)
	assert.Equal(t, "0 15 * * *", cfg.Reporting.MorningCron)
	assert.Equal(t, "0 3 * * *", cfg.Reporting.EveningCron)
	assert.Equal(t, "ANMOL DAIRY LIFE", cfg.Reporting.DairyName)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BACKEND_DRIVER=remote\nBACKEND_URL=http://backend.local\nPAGE_SIZE=20\nCACHE_TTL_SECONDS=30\n"), 0o600))
	// godotenv does not override variables that are already set
	for _, key := range []string{"BACKEND_DRIVER", "BACKEND_URL", "PAGE_SIZE", "CACHE_TTL_SECONDS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverRemote, cfg.Backend.Driver)
	assert.Equal(t, "http://backend.local", cfg.Backend.URL)
	assert.Equal(t, 20, cfg.Pagination.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: "8080"},
			Backend:    BackendConfig{Driver: DriverMemory},
			Pagination: PaginationConfig{PageSize: 50, FetchAhead: 1},
			Reporting:  ReportingConfig{MorningCron: "0 15 * * *", EveningCron: "0 3 * * *", Timezone: "UTC"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Backend.Driver = "sqlite" }},
		{"remote without url", func(c *Config) { c.Backend.Driver = DriverRemote }},
		{"zero page size", func(c *Config) { c.Pagination.PageSize = 0 }},
		{"negative max pages", func(c *Config) { c.Pagination.MaxPages = -1 }},
		{"zero fetch ahead", func(c *Config) { c.Pagination.FetchAhead = 0 }},
		{"half sheets config", func(c *Config) { c.Sheets.SpreadsheetID = "abc" }},
		{"bad timezone", func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
