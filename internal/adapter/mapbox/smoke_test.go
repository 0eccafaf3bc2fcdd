//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ReverseGeocode(t *testing.T) {
	c := smokeClient(t)

	// Porto Velho, Rondônia: frequent dry-season fire activity.
	result, err := c.ReverseGeocode(context.Background(), -8.7612, -63.9004)
	require.NoError(t, err)

	assert.Contains(t, result.FormattedAddress, "Brazil")
	assert.NotEmpty(t, result.PlaceName)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestSmoke_ReverseGeocode_OpenOcean(t *testing.T) {
	c := smokeClient(t)

	_, err := c.ReverseGeocode(context.Background(), -30, -20)
	require.NoError(t, err)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	cached := NewCachedGeocoder(smokeClient(t), 10, testMetrics())

	r1, err := cached.ReverseGeocode(context.Background(), -8.7612, -63.9004)
	require.NoError(t, err)

	r2, err := cached.ReverseGeocode(context.Background(), -8.7612, -63.9004)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
