package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "google_maps_scraper", cfg.Dataset)
	assert.Equal(t, 120, cfg.MaxResultsPerQuery)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, int64(6000), cfg.MaxMemoryMB)

	minClick, maxClick := cfg.ClickDelayRange()
	assert.Equal(t, time.Second, minClick)
	assert.Equal(t, 3*time.Second, maxClick)
	assert.Equal(t, 800*time.Millisecond, cfg.ScrollDelayDuration())
	assert.Equal(t, 10*time.Minute, cfg.CooldownDuration())
	assert.Equal(t, 30*time.Minute, cfg.BlockCooldown())
	assert.Len(t, cfg.UserAgentPool(), len(DefaultUserAgents))
	assert.Empty(t, cfg.ProxyPool())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATASET", "tehran_cafes")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("HEADLESS", "false")
	t.Setenv("PROXY_SERVERS", "http://p1:8080, http://p2:8080,")
	t.Setenv("USER_AGENTS", "UA one, with comma|UA two")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "tehran_cafes", cfg.Dataset)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.False(t, cfg.Headless)
	assert.Equal(t, []string{"http://p1:8080", "http://p2:8080"}, cfg.ProxyPool())
	assert.Equal(t, []string{"UA one, with comma", "UA two"}, cfg.UserAgentPool())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BATCH_SIZE=25\nSCROLL_DELAY=1200\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 1200*time.Millisecond, cfg.ScrollDelayDuration())
}

func TestLoadMissingEnvFileIsNotAnError(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store backend", "STORE_BACKEND", "sqlite"},
		{"unknown queue backend", "QUEUE_BACKEND", "kafka"},
		{"inverted click range", "MAX_DELAY_BETWEEN_CLICKS", "500"},
		{"zero batch size", "BATCH_SIZE", "0"},
		{"bad target url", "TARGET_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadFile("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestValidateDatabaseURLOnlyRequiredForPostgres(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	cfg.DatabaseURL = ""
	require.Error(t, cfg.Validate())

	cfg.StoreBackend = "memory"
	require.NoError(t, cfg.Validate())
}
