package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/crime-watch/internal/config"
	"github.com/couchcryptid/crime-watch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventTypeStatusChanged is the event_type header of status change messages.
const EventTypeStatusChanged = "report.status_changed"

// Writer publishes report status changes to the status topic.
// It implements domain.StatusPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured status topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaStatusTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishStatusChange writes one status change keyed by report id, so every
// change of a report lands on the same partition in order.
func (w *Writer) PublishStatusChange(ctx context.Context, change domain.StatusChange) error {
	msg, err := serializeToMessage(change)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish status change for report %s: %w", change.ReportID, err)
	}
	w.logger.Debug("status change published", "report_id", change.ReportID, "event_id", change.EventID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StatusChange into a Kafka message.
func serializeToMessage(change domain.StatusChange) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize status change: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(change.ReportID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeStatusChanged)},
			{Key: "changed_at", Value: []byte(change.ChangedAt.Format(time.RFC3339))},
		},
	}, nil
}
