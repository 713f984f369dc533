package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-monitor-service/internal/config"
	"github.com/couchcryptid/quake-monitor-service/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
)

// AlertWriter publishes alerts to a Kafka topic.
// It implements notify.Sink.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
// Messages are keyed by quake id so repeats of one event share a partition.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &AlertWriter{writer: w, logger: logger}
}

func (w *AlertWriter) Name() string { return "kafka" }

// Deliver serializes and publishes one alert.
func (w *AlertWriter) Deliver(ctx context.Context, a notify.Alert) error {
	msg, err := serializeAlert(a)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}
	w.logger.Debug("alert published", "topic", w.writer.Topic, "quake_id", a.QuakeID)
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeAlert marshals an Alert into a Kafka message.
func serializeAlert(a notify.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.QuakeID),
		Value: data,
		Time:  a.CreatedAt,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(a.Severity())},
			{Key: "created_at", Value: []byte(a.CreatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
