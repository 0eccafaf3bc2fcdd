package kafka

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firms-fire-service/internal/config"
	"github.com/couchcryptid/firms-fire-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	at := time.Date(2023, 8, 2, 4, 18, 0, 0, time.UTC)
	frp := 4.12
	d := domain.FireDetection{
		ID:         "fire-0123456789abcdef",
		Latitude:   -3.5,
		Longitude:  -62.1,
		AcquiredAt: at,
		Confidence: domain.CategoryConfidence("h"),
		Tier:       domain.TierHigh,
		FRP:        &frp,
		Source:     domain.SourceVIIRSNOAA20,
	}

	msg, err := serializeToMessage(d)
	require.NoError(t, err)

	assert.Equal(t, []byte("fire-0123456789abcdef"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("VIIRS_NOAA20_NRT"), msg.Headers[0].Value)
	assert.Equal(t, "confidence_tier", msg.Headers[1].Key)
	assert.Equal(t, []byte("high"), msg.Headers[1].Value)

	var decoded domain.FireDetection
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, d.ID, decoded.ID)
	assert.Equal(t, "h", decoded.Confidence.Category)
}

func TestWriter_PublishEmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "fire-detections"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Publish(t.Context(), nil))
}
