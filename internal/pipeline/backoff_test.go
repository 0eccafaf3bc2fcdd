package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
)

func TestNextBackoff(t *testing.T) {
	d := 200 * time.Millisecond
	var seen []time.Duration
	for range 7 {
		seen = append(seen, d)
		d = nextBackoff(d, 5*time.Second)
	}
	assert.Equal(t, []time.Duration{
		200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond,
		1600 * time.Millisecond, 3200 * time.Millisecond, 5 * time.Second, 5 * time.Second,
	}, seen)
}

func TestSleepWithContext(t *testing.T) {
	assert.True(t, sleepWithContext(context.Background(), 0))
	assert.True(t, sleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Hour))
}

func TestPayloadKey(t *testing.T) {
	w := domain.NewDateRange(time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 8, 5, 0, 0, 0, 0, time.UTC))
	key := payloadKey("secret-key", domain.SourceMODIS, "-70,-10,-50,5", w)

	assert.Len(t, key, 64)
	assert.NotContains(t, key, "secret-key")
	assert.Equal(t, key, payloadKey("secret-key", domain.SourceMODIS, "-70,-10,-50,5", w))
	assert.NotEqual(t, key, payloadKey("other-key", domain.SourceMODIS, "-70,-10,-50,5", w))
	assert.NotEqual(t, key, payloadKey("secret-key", domain.SourceVIIRSSNPP, "-70,-10,-50,5", w))
}
