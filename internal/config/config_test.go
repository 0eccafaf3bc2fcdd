package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)

	assert.Equal(t, DefaultFIRMSBaseURL, cfg.FIRMSBaseURL)
	assert.Equal(t, 30*time.Second, cfg.FIRMSTimeout)
	assert.Equal(t, 5, cfg.FIRMSMaxDays)
	assert.Equal(t, 31, cfg.FIRMSMaxRange)
	assert.Equal(t, 2, cfg.FetchMaxRetries)
	assert.Equal(t, 2000, cfg.DisplayLimit)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)

	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.RedisAddr)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "fire-detections", cfg.KafkaTopic)

	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)

	assert.False(t, cfg.RiskEnabled())
	assert.Equal(t, "llama-3.1-8b", cfg.CerebrasModel)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://fires.example.org")
	t.Setenv("FIRMS_BASE_URL", "http://firms.local/")
	t.Setenv("FIRMS_TIMEOUT", "10s")
	t.Setenv("FIRMS_MAX_DAYS", "3")
	t.Setenv("FIRMS_MAX_RANGE_DAYS", "90")
	t.Setenv("FETCH_MAX_RETRIES", "0")
	t.Setenv("DISPLAY_LIMIT", "500")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("CACHE_SIZE", "0")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "fires")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("CEREBRAS_API_KEY", "csk-test")
	t.Setenv("CEREBRAS_MODEL", "llama-3.3-70b")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "https://fires.example.org"}, cfg.CORSOrigins)
	assert.Equal(t, "http://firms.local", cfg.FIRMSBaseURL)
	assert.Equal(t, 10*time.Second, cfg.FIRMSTimeout)
	assert.Equal(t, 3, cfg.FIRMSMaxDays)
	assert.Equal(t, 90, cfg.FIRMSMaxRange)
	assert.Equal(t, 0, cfg.FetchMaxRetries)
	assert.Equal(t, 500, cfg.DisplayLimit)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "fires", cfg.KafkaTopic)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.True(t, cfg.RiskEnabled())
	assert.Equal(t, "llama-3.3-70b", cfg.CerebrasModel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"FIRMS_TIMEOUT", "0s"},
		{"SESSION_TTL", "forever"},
		{"CACHE_TTL", "-5m"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"CEREBRAS_TIMEOUT", "bad"},
		{"FIRMS_MAX_DAYS", "0"},
		{"FIRMS_MAX_DAYS", "11"},
		{"FIRMS_MAX_RANGE_DAYS", "0"},
		{"FIRMS_MAX_RANGE_DAYS", "367"},
		{"FETCH_MAX_RETRIES", "-1"},
		{"DISPLAY_LIMIT", "lots"},
		{"REDIS_DB", "16"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FIRMS_MAX_DAYS=4\nLOG_LEVEL=warn\n"), 0o600))
	t.Setenv("FIRMS_MAX_DAYS", "")
	t.Setenv("LOG_LEVEL", "debug")
	require.NoError(t, os.Unsetenv("FIRMS_MAX_DAYS"))

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.FIRMSMaxDays)
	assert.Equal(t, "debug", cfg.LogLevel, "existing variables win over .env")
}
