package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
places:
  api_key: test-key
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Places.APIKey)
	assert.Equal(t, DefaultPlacesSearchURL, cfg.Places.SearchURL)
	assert.Equal(t, 8, cfg.Discovery.Concurrency)
	assert.Equal(t, 2000, cfg.Discovery.InterPageDelay)
	assert.Equal(t, 30, cfg.Discovery.RecentReviewDays)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 3600, cfg.Cache.TTL)
	assert.Equal(t, "businesses.csv", cfg.Export.CSVPath)
	assert.Equal(t, "discovered_businesses", cfg.Export.Postgres.Table)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("NICHE_TEST_KEY", "from-env")
	path := writeConfig(t, `
places:
  api_key: ${NICHE_TEST_KEY}
discovery:
  concurrency: 3
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Places.APIKey)
	assert.Equal(t, 3, cfg.Discovery.Concurrency)
}

func TestLoadFromFile_PlacesKeyOverride(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "override-key")
	path := writeConfig(t, "app:\n  name: test\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "override-key", cfg.Places.APIKey)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Places.APIKey = "k"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing api key", func(c *Config) { c.Places.APIKey = "" }, "places.api_key"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis without address", func(c *Config) { c.Cache.Backend = "redis" }, "database.redis.address"},
		{"postgres export without host", func(c *Config) { c.Export.Postgres.Enabled = true }, "database.postgres.host"},
		{"s3 without bucket", func(c *Config) { c.Export.S3.Enabled = true }, "export.s3.bucket"},
		{"sns without topic", func(c *Config) { c.Notifications.SNS.Enabled = true }, "topic_arn"},
		{"negative max pages", func(c *Config) { c.Discovery.MaxPages = -1 }, "max_pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, GetDuration(2000))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"discover-businesses": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "discover-businesses"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "discover-businesses").MaxJobsActive)

	fallback := GetWorkerConfig(cfg, "unknown")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 3, fallback.MaxRetries)
}
