package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
)

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// KafkaBus publishes booking events to a Kafka topic.
type KafkaBus struct {
	client *kgo.Client
	topic  string
}

// NewKafkaBus creates a Kafka producer for the booking topic.
func NewKafkaBus(ctx context.Context, cfg *KafkaConfig) (*KafkaBus, error) {
	if cfg.Topic == "" {
		cfg.Topic = TopicBookingEvents
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProduceRequestTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &KafkaBus{
		client: client,
		topic:  cfg.Topic,
	}, nil
}

// Publish produces the envelope to the booking topic, keyed by
// transaction id so all events of one transaction share a partition.
func (b *KafkaBus) Publish(ctx context.Context, e *event.Envelope) error {
	value, err := e.Marshal()
	if err != nil {
		return err
	}

	record := &kgo.Record{
		Topic: b.topic,
		Key:   []byte(e.Key()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "transaction_id", Value: []byte(e.TransactionID)},
		},
	}

	results := b.client.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("failed to produce %s event: %w", e.EventType, err)
	}

	logger.Get().Debug("event published",
		zap.String("event_type", e.EventType),
		zap.String("transaction_id", e.TransactionID),
		zap.String("topic", b.topic))

	return nil
}

// PublishJSON produces an arbitrary JSON payload to the given topic.
// Used by the dead-letter publisher.
func (b *KafkaBus) PublishJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for topic %s: %w", topic, err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	results := b.client.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to topic %s: %w", topic, err)
	}

	return nil
}

// Topic returns the booking topic name.
func (b *KafkaBus) Topic() string {
	return b.topic
}

// Close flushes and closes the underlying client.
func (b *KafkaBus) Close() {
	b.client.Close()
}

var _ Publisher = (*KafkaBus)(nil)
