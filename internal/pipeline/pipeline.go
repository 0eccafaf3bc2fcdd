package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
	"github.com/couchcryptid/firms-fire-service/internal/observability"
)

// Extractor downloads the raw CSV payload for one FIRMS window.
type Extractor interface {
	FetchArea(ctx context.Context, apiKey string, source domain.Source, box domain.BoundingBox, window domain.DateRange) ([]byte, error)
}

// PayloadCache stores raw payloads by window key.
type PayloadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// Publisher forwards the detections of a completed fetch downstream.
type Publisher interface {
	Publish(ctx context.Context, detections []domain.FireDetection) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// DefaultMaxRangeDays caps the requested date range so a fetch stays within a
// handful of sequential FIRMS calls.
const DefaultMaxRangeDays = 31

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	MaxDays        int           // FIRMS day-range limit per request
	MaxRangeDays   int           // cap on the total requested range
	MaxRetries     int           // retries after a network failure; negative disables
	DisplayLimit   int           // cap on returned detections
	InitialBackoff time.Duration // first retry delay
	MaxBackoff     time.Duration // retry delay ceiling
	PublishTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxDays <= 0 {
		o.MaxDays = 5
	}
	if o.MaxRangeDays <= 0 {
		o.MaxRangeDays = DefaultMaxRangeDays
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.DisplayLimit <= 0 {
		o.DisplayLimit = domain.DisplayLimit
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 200 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 10 * time.Second
	}
	return o
}

// Pipeline turns a query into a normalized FetchResult: validate, download
// each window (through the cache, with retry), parse, normalize, publish.
type Pipeline struct {
	extractor Extractor
	cache     PayloadCache
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
}

// New creates a Pipeline. cache and publisher may be nil.
func New(e Extractor, cache PayloadCache, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		extractor: e,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		opts:      opts.withDefaults(),
	}
}

// CheckReadiness reports whether the payload cache backend is reachable.
// Caches without a Ping method are always ready.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if pc, ok := p.cache.(pinger); ok {
		return pc.Ping(ctx)
	}
	return nil
}

// Fetch runs one query end to end. Validation failures return before any
// network call. When ctx is cancelled with a cause (see session.Session.Begin)
// the returned error wraps that cause.
func (p *Pipeline) Fetch(ctx context.Context, req domain.QueryRequest) (domain.FetchResult, error) {
	start := time.Now()
	label := sourceLabel(req.Source)

	if err := req.Validate(); err != nil {
		p.metrics.FetchRequests.WithLabelValues(label, "validation").Inc()
		return domain.FetchResult{}, err
	}
	if err := req.DateRange.CheckSpan(p.opts.MaxRangeDays); err != nil {
		p.metrics.FetchRequests.WithLabelValues(label, "validation").Inc()
		return domain.FetchResult{}, err
	}

	windows := req.DateRange.Windows(p.opts.MaxDays)
	var (
		records []domain.FireDetection
		partial domain.PartialParseError
	)
	for _, w := range windows {
		payload, err := p.payload(ctx, req, w)
		if err != nil {
			err = p.cancelCause(ctx, fmt.Errorf("window %s: %w", w, err))
			p.metrics.FetchRequests.WithLabelValues(label, outcome(err)).Inc()
			p.logger.Warn("fetch failed",
				"source", req.Source,
				"area", req.BoundingBox.FIRMSArea(),
				"window", w.String(),
				"kind", domain.ErrorKind(err),
				"error", err,
			)
			return domain.FetchResult{}, err
		}

		parsed, err := domain.ParseCSV(bytes.NewReader(payload), req.Source)
		if err != nil {
			err = fmt.Errorf("%w: window %s: unexpected payload: %w", domain.ErrNetwork, w, err)
			p.metrics.FetchRequests.WithLabelValues(label, outcome(err)).Inc()
			p.logger.Warn("unexpected FIRMS payload", "source", req.Source, "window", w.String(), "error", err)
			return domain.FetchResult{}, err
		}
		records = append(records, parsed.Records...)
		partial.Merge(parsed.Partial)
	}

	result := domain.Normalize(records, req, p.opts.DisplayLimit)
	if partial.Dropped > 0 {
		result.Partial = &partial
		p.metrics.RowsDropped.Add(float64(partial.Dropped))
	}
	if result.Truncated {
		p.metrics.Truncations.Inc()
	}

	// A fetch superseded after the last window must not be reported as fresh.
	if context.Cause(ctx) != nil {
		err := p.cancelCause(ctx, errors.New("fetch cancelled"))
		p.metrics.FetchRequests.WithLabelValues(label, outcome(err)).Inc()
		return domain.FetchResult{}, err
	}

	p.publish(ctx, result.Records)

	out := "success"
	if result.Empty() {
		out = "empty"
	}
	p.metrics.FetchRequests.WithLabelValues(label, out).Inc()
	p.metrics.FetchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	p.metrics.DetectionsReturned.Observe(float64(len(result.Records)))

	p.logger.Info("fetch complete",
		"source", req.Source,
		"area", req.BoundingBox.FIRMSArea(),
		"dates", req.DateRange.String(),
		"windows", len(windows),
		"records", len(result.Records),
		"raw_count", result.RawCount,
		"out_of_bounds", result.OutOfBounds,
		"dropped_rows", result.DroppedRows(),
		"truncated", result.Truncated,
		"duration", time.Since(start),
	)
	return result, nil
}

// payload returns the CSV for one window, from the cache when possible.
func (p *Pipeline) payload(ctx context.Context, req domain.QueryRequest, w domain.DateRange) ([]byte, error) {
	key := payloadKey(req.APIKey, req.Source, req.BoundingBox.FIRMSArea(), w)

	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			p.metrics.PayloadCache.WithLabelValues("error").Inc()
			p.logger.Warn("payload cache read failed", "error", err)
		case ok:
			p.metrics.PayloadCache.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			p.metrics.PayloadCache.WithLabelValues("miss").Inc()
		}
	}

	payload, err := p.fetchWithRetry(ctx, req, w)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, payload); err != nil {
			p.logger.Warn("payload cache write failed", "error", err)
		}
	}
	return payload, nil
}

// fetchWithRetry retries network failures with exponential backoff:
// start at InitialBackoff, double each retry, cap at MaxBackoff.
// Authentication failures are returned immediately.
func (p *Pipeline) fetchWithRetry(ctx context.Context, req domain.QueryRequest, w domain.DateRange) ([]byte, error) {
	backoff := p.opts.InitialBackoff
	for attempt := 0; ; attempt++ {
		payload, err := p.extractor.FetchArea(ctx, req.APIKey, req.Source, req.BoundingBox, w)
		if err == nil {
			return payload, nil
		}
		if !errors.Is(err, domain.ErrNetwork) || attempt >= p.opts.MaxRetries || ctx.Err() != nil {
			return nil, err
		}

		p.metrics.UpstreamRetries.Inc()
		p.logger.Info("retrying FIRMS request",
			"attempt", attempt+1,
			"backoff", backoff,
			"window", w.String(),
			"error", err,
		)
		if !sleepWithContext(ctx, backoff) {
			return nil, err
		}
		backoff = nextBackoff(backoff, p.opts.MaxBackoff)
	}
}

// publish forwards detections without failing the fetch. It runs on a context
// detached from ctx's cancellation so a client disconnect does not drop the batch.
func (p *Pipeline) publish(ctx context.Context, detections []domain.FireDetection) {
	if p.publisher == nil || len(detections) == 0 {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.PublishTimeout)
	defer cancel()

	if err := p.publisher.Publish(pubCtx, detections); err != nil {
		p.metrics.Published.WithLabelValues("error").Add(float64(len(detections)))
		p.logger.Error("publish detections failed", "error", err, "count", len(detections))
		return
	}
	p.metrics.Published.WithLabelValues("success").Add(float64(len(detections)))
}

// cancelCause prefers the context's cancellation cause over the transport
// error it produced, so a superseded fetch reports ErrSuperseded.
func (p *Pipeline) cancelCause(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(err, cause) {
		return err
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrNetwork, cause)
	}
	return cause
}

// payloadKey derives the cache key for one window. The API key is hashed with
// the query so it never reaches a cache backend in clear text.
func payloadKey(apiKey string, source domain.Source, area string, w domain.DateRange) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{apiKey, string(source), area, w.String()}, "|")))
	return hex.EncodeToString(sum[:])
}

func sourceLabel(s domain.Source) string {
	if s.Valid() {
		return string(s)
	}
	return "invalid"
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrSuperseded):
		return "superseded"
	case errors.Is(err, domain.ErrAuthentication):
		return "auth"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case domain.IsValidationError(err):
		return "validation"
	default:
		return "error"
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
