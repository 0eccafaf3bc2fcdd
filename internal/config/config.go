package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultFIRMSBaseURL is the public FIRMS API host.
const DefaultFIRMSBaseURL = "https://firms.modaps.eosdis.nasa.gov"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	FIRMSBaseURL    string
	FIRMSTimeout    time.Duration
	FIRMSMaxDays    int
	FIRMSMaxRange   int
	FetchMaxRetries int
	DisplayLimit    int
	SessionTTL      time.Duration

	// Payload cache. Redis replaces the in-memory cache when RedisAddr is set.
	CacheSize     int
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Cerebras risk assessment. Disabled without an API key.
	CerebrasAPIKey  string
	CerebrasBaseURL string
	CerebrasModel   string
	CerebrasTimeout time.Duration
}

// RiskEnabled reports whether risk assessment is configured.
func (c *Config) RiskEnabled() bool {
	return c.CerebrasAPIKey != ""
}

// LoadDotEnv loads a .env file into the environment when one exists.
// Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	firmsTimeout, err := parseDuration("FIRMS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	sessionTTL, err := parseDuration("SESSION_TTL", "30m")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cerebrasTimeout, err := parseDuration("CEREBRAS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	maxDays, err := parseInt("FIRMS_MAX_DAYS", 5, 1, 10)
	if err != nil {
		return nil, err
	}
	maxRange, err := parseInt("FIRMS_MAX_RANGE_DAYS", 31, 1, 366)
	if err != nil {
		return nil, err
	}
	retries, err := parseInt("FETCH_MAX_RETRIES", 2, 0, 10)
	if err != nil {
		return nil, err
	}
	displayLimit, err := parseInt("DISPLAY_LIMIT", 2000, 1, 100000)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("CACHE_SIZE", 256, 0, 1<<20)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseInt("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     splitList(sharedcfg.EnvOrDefault("CORS_ORIGINS", "*")),

		FIRMSBaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("FIRMS_BASE_URL", DefaultFIRMSBaseURL), "/"),
		FIRMSTimeout:    firmsTimeout,
		FIRMSMaxDays:    maxDays,
		FIRMSMaxRange:   maxRange,
		FetchMaxRetries: retries,
		DisplayLimit:    displayLimit,
		SessionTTL:      sessionTTL,

		CacheSize:     cacheSize,
		CacheTTL:      cacheTTL,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "fire-detections"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		CerebrasAPIKey:  os.Getenv("CEREBRAS_API_KEY"),
		CerebrasBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("CEREBRAS_BASE_URL", "https://api.cerebras.ai"), "/"),
		CerebrasModel:   sharedcfg.EnvOrDefault("CEREBRAS_MODEL", "llama-3.1-8b"),
		CerebrasTimeout: cerebrasTimeout,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseInt(name string, def, lo, hi int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", name, lo, hi)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
