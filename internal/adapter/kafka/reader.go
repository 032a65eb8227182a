package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/profile-gridding-service/internal/config"
	"github.com/couchcryptid/profile-gridding-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes raw profile messages from a Kafka topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
// Offsets are committed explicitly after each message is handled.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  cfg.BatchFlushInterval,
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch blocks until at least one message is available, then keeps
// reading until batchSize messages are collected or the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := make([]domain.RawEvent, 0, batchSize)
	batch = append(batch, r.toRawEvent(first))

	fillCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(fillCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			return batch, err
		}
		batch = append(batch, r.toRawEvent(msg))
	}

	r.logger.Debug("batch extracted", "size", len(batch))
	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func (r *Reader) toRawEvent(msg kafkago.Message) domain.RawEvent {
	raw := mapMessageToRawEvent(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

// mapMessageToRawEvent converts a kafka-go message into a RawEvent.
func mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawEvent{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
