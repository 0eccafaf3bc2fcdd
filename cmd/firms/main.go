package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/firms-fire-service/internal/adapter/cache"
	"github.com/couchcryptid/firms-fire-service/internal/adapter/cerebras"
	"github.com/couchcryptid/firms-fire-service/internal/adapter/firms"
	httpadapter "github.com/couchcryptid/firms-fire-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/firms-fire-service/internal/adapter/kafka"
	"github.com/couchcryptid/firms-fire-service/internal/adapter/mapbox"
	"github.com/couchcryptid/firms-fire-service/internal/config"
	"github.com/couchcryptid/firms-fire-service/internal/observability"
	"github.com/couchcryptid/firms-fire-service/internal/pipeline"
	"github.com/couchcryptid/firms-fire-service/internal/session"
)

const sweepInterval = time.Minute

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var payloads pipeline.PayloadCache
	var redisCache *cache.Redis
	if cfg.RedisAddr != "" {
		redisCache = cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		payloads = redisCache
		logger.Info("redis payload cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	} else {
		payloads = cache.NewMemory(cfg.CacheSize, cfg.CacheTTL, nil)
		logger.Info("in-memory payload cache enabled", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	}

	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	deps := httpadapter.Deps{
		Metrics:     metrics,
		CORSOrigins: cfg.CORSOrigins,
	}

	// Geocoder is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		deps.Geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	if cfg.RiskEnabled() {
		deps.Analyzer = cerebras.NewClient(cfg.CerebrasAPIKey, cfg.CerebrasBaseURL, cfg.CerebrasModel, cfg.CerebrasTimeout, logger)
		logger.Info("risk assessment enabled", "model", cfg.CerebrasModel)
	} else {
		logger.Info("risk assessment disabled")
	}

	extractor := firms.NewClient(cfg.FIRMSBaseURL, cfg.FIRMSTimeout, metrics, logger)
	p := pipeline.New(extractor, payloads, publisher, logger, metrics, pipeline.Options{
		MaxDays:      cfg.FIRMSMaxDays,
		MaxRangeDays: cfg.FIRMSMaxRange,
		MaxRetries:   cfg.FetchMaxRetries,
		DisplayLimit: cfg.DisplayLimit,
	})

	sessions := session.NewStore(cfg.SessionTTL, clockwork.NewRealClock())
	deps.Fetcher = p
	deps.Ready = p
	deps.Sessions = sessions

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go sessions.Run(ctx, sweepInterval, func(live int) {
		metrics.SessionsActive.Set(float64(live))
	})

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
