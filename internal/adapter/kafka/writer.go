package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/profile-gridding-service/internal/config"
	"github.com/couchcryptid/profile-gridding-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces gridded profiles to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return &Writer{writer: newProducer(cfg.KafkaBrokers, cfg.KafkaSinkTopic), logger: logger}
}

func newProducer(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
}

// LoadBatch serializes and publishes gridded profiles in a single
// WriteMessages call. Messages are keyed by profile ID so replays of the same
// sounding land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, profiles []domain.GriddedProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(profiles))
	for i := range profiles {
		msg, err := serializeToMessage(profiles[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("gridded profiles published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a GriddedProfile into a Kafka message.
func serializeToMessage(g domain.GriddedProfile) (kafkago.Message, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize gridded profile %s: %w", g.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(g.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "coordinate", Value: []byte(g.Coordinate)},
			{Key: "processed_at", Value: []byte(g.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}

// Publisher writes raw profiles to the source topic, keyed by profile ID.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a producer for raw profiles.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: newProducer(brokers, topic)}
}

// Publish sends each profile as one message.
func (p *Publisher) Publish(ctx context.Context, profiles []domain.Profile) error {
	msgs := make([]kafkago.Message, len(profiles))
	for i, prof := range profiles {
		data, err := json.Marshal(prof)
		if err != nil {
			return fmt.Errorf("serialize profile %s: %w", prof.ID(), err)
		}
		msgs[i] = kafkago.Message{Key: []byte(prof.ID()), Value: data}
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
