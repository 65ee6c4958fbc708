package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-map/internal/config"
	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	publishAttempts   = 3
	publishBackoff    = 200 * time.Millisecond
	publishMaxBackoff = 2 * time.Second
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes applied map snapshots to a Kafka topic.
// It implements session.SnapshotPublisher.
type Writer struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// Publish writes one snapshot as a single message keyed by cycle number,
// retrying transient write failures with exponential backoff.
func (w *Writer) Publish(ctx context.Context, snap domain.Snapshot) error {
	msg, err := serializeToMessage(snap)
	if err != nil {
		w.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
		return err
	}

	backoff := publishBackoff
	for attempt := 1; ; attempt++ {
		err = w.writer.WriteMessages(ctx, msg)
		if err == nil {
			break
		}
		if attempt == publishAttempts || ctx.Err() != nil {
			w.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
			return fmt.Errorf("publish snapshot %d: %w", snap.Cycle, err)
		}
		w.logger.Warn("snapshot publish failed, retrying", "cycle", snap.Cycle, "attempt", attempt, "backoff", backoff, "error", err)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			w.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
			return fmt.Errorf("publish snapshot %d: %w", snap.Cycle, ctx.Err())
		}
		backoff = sharedretry.NextBackoff(backoff, publishMaxBackoff)
	}
	w.metrics.SnapshotsPublished.WithLabelValues("success").Inc()
	w.logger.Debug("snapshot published", "cycle", snap.Cycle, "reports", len(snap.Reports))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Snapshot into a Kafka message.
func serializeToMessage(snap domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	cycle := strconv.FormatUint(snap.Cycle, 10)
	return kafkago.Message{
		Key:   []byte(cycle),
		Value: data,
		Time:  snap.AppliedAt,
		Headers: []kafkago.Header{
			{Key: "cycle", Value: []byte(cycle)},
			{Key: "applied_at", Value: []byte(snap.AppliedAt.Format(time.RFC3339))},
			{Key: "report_count", Value: []byte(strconv.Itoa(len(snap.Reports)))},
		},
	}, nil
}
