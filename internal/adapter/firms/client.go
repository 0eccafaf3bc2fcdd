// Package firms downloads fire detection CSV payloads from the NASA FIRMS
// area API.
package firms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
	"github.com/couchcryptid/firms-fire-service/internal/observability"
)

// maxPayloadBytes bounds a single window's response body.
const maxPayloadBytes = 64 << 20

// Client implements pipeline.Extractor against the FIRMS area API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBytes   int64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FIRMS client. Each request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxPayloadBytes,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchArea downloads the CSV payload for one window of at most the FIRMS
// day-range limit. Errors wrap domain.ErrAuthentication or domain.ErrNetwork
// and never contain the API key.
func (c *Client) FetchArea(ctx context.Context, apiKey string, source domain.Source, box domain.BoundingBox, window domain.DateRange) ([]byte, error) {
	endpoint := c.areaURL(apiKey, source, box, window)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %s", domain.ErrNetwork, redact(err.Error(), apiKey))
	}
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	payload, err := c.do(req, apiKey)
	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		outcome = "auth"
	case err != nil:
		outcome = "network"
	}
	c.metrics.UpstreamRequests.WithLabelValues(outcome).Inc()
	c.logger.Debug("firms request",
		"source", source,
		"area", box.FIRMSArea(),
		"window", window.String(),
		"outcome", outcome,
		"bytes", len(payload),
		"duration", time.Since(start),
	)
	return payload, err
}

func (c *Client) areaURL(apiKey string, source domain.Source, box domain.BoundingBox, window domain.DateRange) string {
	return strings.Join([]string{
		c.baseURL,
		"api", "area", "csv",
		url.PathEscape(apiKey),
		string(source),
		box.FIRMSArea(),
		strconv.Itoa(window.Days()),
		window.Start.Format(domain.DateLayout),
	}, "/")
}

func (c *Client) do(req *http.Request, apiKey string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error embeds the request URL, which carries the key.
		return nil, fmt.Errorf("%w: %s", domain.ErrNetwork, redact(err.Error(), apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %s", domain.ErrNetwork, redact(err.Error(), apiKey))
	}
	// A cut payload would silently lose rows; fail the window instead.
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", domain.ErrNetwork, c.maxBytes)
	}

	if err := classify(resp.StatusCode, body); err != nil {
		return nil, redactErr(err, apiKey)
	}
	return body, nil
}

// classify maps an HTTP response to the domain error taxonomy. FIRMS reports
// some failures as plain text with a 200 status.
func classify(status int, body []byte) error {
	text := strings.TrimSpace(string(bytes.TrimPrefix(body, []byte("\ufeff"))))
	lower := strings.ToLower(text)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrAuthentication, status)
	case strings.HasPrefix(lower, "invalid map_key"), strings.HasPrefix(lower, "invalid api"):
		return fmt.Errorf("%w: %s", domain.ErrAuthentication, firstLine(text))
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited (status 429)", domain.ErrNetwork)
	case strings.Contains(lower, "transaction limit"):
		return fmt.Errorf("%w: %s", domain.ErrNetwork, firstLine(text))
	case status >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrNetwork, status)
	case status != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d %s", domain.ErrNetwork, status, http.StatusText(status))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// redact removes every occurrence of the key, raw or path-escaped.
func redact(s, apiKey string) string {
	if apiKey == "" {
		return s
	}
	s = strings.ReplaceAll(s, apiKey, "[REDACTED]")
	if escaped := url.PathEscape(apiKey); escaped != apiKey {
		s = strings.ReplaceAll(s, escaped, "[REDACTED]")
	}
	return s
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }

func redactErr(err error, apiKey string) error {
	return &redactedError{msg: redact(err.Error(), apiKey), cause: errors.Unwrap(err)}
}
