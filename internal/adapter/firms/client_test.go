package firms

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
	"github.com/couchcryptid/firms-fire-service/internal/observability"
)

const (
	testKey       = "abcdef0123456789abcdef0123456789"
	samplePayload = "latitude,longitude,bright_ti4,acq_date,acq_time,confidence,frp\n-3.5,-62.1,333.5,2023-08-02,418,n,4.1\n"
)

func testClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(baseURL, timeout, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testWindow() domain.DateRange {
	return domain.NewDateRange(
		time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 8, 5, 0, 0, 0, 0, time.UTC),
	)
}

func testBox() domain.BoundingBox {
	return domain.BoundingBox{MinLat: -10, MinLon: -70, MaxLat: 5, MaxLon: -50}
}

func TestClient_FetchArea_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/area/csv/"+testKey+"/VIIRS_NOAA20_NRT/-70,-10,-50,5/5/2023-08-01", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/", 5*time.Second)
	payload, err := c.FetchArea(context.Background(), testKey, domain.SourceVIIRSNOAA20, testBox(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, samplePayload, string(payload))
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("success")), 0)
}

func TestClient_FetchArea_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "", domain.ErrAuthentication},
		{"forbidden", http.StatusForbidden, "", domain.ErrAuthentication},
		{"invalid key text", http.StatusOK, "Invalid MAP_KEY.", domain.ErrAuthentication},
		{"invalid api text", http.StatusBadRequest, "Invalid API call.", domain.ErrAuthentication},
		{"rate limited", http.StatusTooManyRequests, "", domain.ErrNetwork},
		{"transaction limit", http.StatusOK, "Exceeding allowed transaction limit.", domain.ErrNetwork},
		{"server error", http.StatusBadGateway, "upstream down", domain.ErrNetwork},
		{"not found", http.StatusNotFound, "", domain.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL, 5*time.Second).FetchArea(context.Background(), testKey, domain.SourceMODIS, testBox(), testWindow())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.NotContains(t, err.Error(), testKey)
		})
	}
}

func TestClient_FetchArea_TransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	_, err := testClient(baseURL, 2*time.Second).FetchArea(context.Background(), testKey, domain.SourceMODIS, testBox(), testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.NotContains(t, err.Error(), testKey)
	assert.Contains(t, err.Error(), "[REDACTED]")
}

func TestClient_FetchArea_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).FetchArea(context.Background(), testKey, domain.SourceMODIS, testBox(), testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.NotContains(t, err.Error(), testKey)
}

func TestClient_FetchArea_OversizedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	t.Run("over the limit fails", func(t *testing.T) {
		c := testClient(srv.URL, 5*time.Second)
		c.maxBytes = int64(len(samplePayload)) - 1

		payload, err := c.FetchArea(context.Background(), testKey, domain.SourceVIIRSNOAA20, testBox(), testWindow())
		require.Error(t, err)
		assert.Nil(t, payload, "a cut payload must not be returned")
		assert.ErrorIs(t, err, domain.ErrNetwork)
		assert.Contains(t, err.Error(), "payload exceeds")
		assert.NotContains(t, err.Error(), testKey)
	})

	t.Run("exactly at the limit succeeds", func(t *testing.T) {
		c := testClient(srv.URL, 5*time.Second)
		c.maxBytes = int64(len(samplePayload))

		payload, err := c.FetchArea(context.Background(), testKey, domain.SourceVIIRSNOAA20, testBox(), testWindow())
		require.NoError(t, err)
		assert.Equal(t, samplePayload, string(payload))
	})
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "GET /csv/[REDACTED]/x", redact("GET /csv/"+testKey+"/x", testKey))
	assert.Equal(t, "GET /csv/[REDACTED]/x", redact("GET /csv/a%2Fb/x", "a/b"))
	assert.Equal(t, "untouched", redact("untouched", ""))
}
