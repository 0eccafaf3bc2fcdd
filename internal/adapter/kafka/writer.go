package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/firms-fire-service/internal/config"
	"github.com/couchcryptid/firms-fire-service/internal/domain"
)

// Writer publishes fire detections to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured detection topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the detections of one fetch and writes them in a single
// WriteMessages call. Messages are keyed by detection ID so repeated fetches
// of the same fire land on the same partition.
func (w *Writer) Publish(ctx context.Context, detections []domain.FireDetection) error {
	if len(detections) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(detections))
	for i := range detections {
		msg, err := serializeToMessage(detections[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d detections: %w", len(msgs), err)
	}
	w.logger.Debug("detections published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a FireDetection into a Kafka message.
func serializeToMessage(d domain.FireDetection) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fire detection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.ID),
		Value: data,
		Time:  d.AcquiredAt,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(d.Source)},
			{Key: "confidence_tier", Value: []byte(d.Tier)},
		},
	}, nil
}
