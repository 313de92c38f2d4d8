package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DLQMessage is the record written to a dead-letter topic when a
// booking event could not be processed. It carries the original wire
// payload untouched so the event can be replayed once the cause is
// fixed.
type DLQMessage struct {
	ID             string                 `json:"id"`
	OriginalTopic  string                 `json:"original_topic"`
	OriginalKey    string                 `json:"original_key"`
	Payload        json.RawMessage        `json:"payload"`
	Headers        map[string]string      `json:"headers,omitempty"`
	Error          string                 `json:"error"`
	Attempts       int                    `json:"attempts"`
	FirstAttemptAt time.Time              `json:"first_attempt_at"`
	LastAttemptAt  time.Time              `json:"last_attempt_at"`
	MovedToDLQAt   time.Time              `json:"moved_to_dlq_at"`
	Source         string                 `json:"source"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// DLQPublisher moves failed deliveries to a dead-letter topic.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg *DLQMessage) error
}

// DLQConfig configures where dead-lettered events go and who sent
// them there.
type DLQConfig struct {
	// TopicSuffix is appended to the original topic, so
	// booking-events dead-letters to booking-events.dlq.
	TopicSuffix string
	// Source is the service name stamped on every message.
	Source string
}

// DefaultDLQConfig uses the ".dlq" suffix convention.
func DefaultDLQConfig() *DLQConfig {
	return &DLQConfig{
		TopicSuffix: ".dlq",
		Source:      "unknown",
	}
}

// Producer is the slice of the Kafka bus the DLQ publisher needs.
type Producer interface {
	PublishJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error
}

// KafkaDLQPublisher writes DLQ messages next to the topic they failed
// on, keyed by the original key so a transaction's dead letters stay
// on one partition.
type KafkaDLQPublisher struct {
	producer Producer
	config   *DLQConfig
}

// NewKafkaDLQPublisher creates a DLQ publisher over the given
// producer. A nil config means the default suffix convention.
func NewKafkaDLQPublisher(producer Producer, config *DLQConfig) *KafkaDLQPublisher {
	if config == nil {
		config = DefaultDLQConfig()
	}
	if config.TopicSuffix == "" {
		config.TopicSuffix = ".dlq"
	}
	return &KafkaDLQPublisher{producer: producer, config: config}
}

// PublishToDLQ stamps the message and produces it to the dead-letter
// topic derived from its original topic.
func (p *KafkaDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	if msg == nil {
		return fmt.Errorf("DLQ message cannot be nil")
	}

	msg.MovedToDLQAt = time.Now()
	msg.Source = p.config.Source

	headers := map[string]string{
		"original_topic":  msg.OriginalTopic,
		"error":           msg.Error,
		"attempts":        strconv.Itoa(msg.Attempts),
		"moved_to_dlq_at": msg.MovedToDLQAt.Format(time.RFC3339),
		"source":          msg.Source,
	}
	// The event's own headers ride along under an original_ prefix.
	for k, v := range msg.Headers {
		headers["original_"+k] = v
	}

	return p.producer.PublishJSON(ctx, msg.OriginalTopic+p.config.TopicSuffix, msg.OriginalKey, msg, headers)
}

// NoOpDLQPublisher drops dead letters. Used when a consumer runs
// without a DLQ, such as the in-memory local mode.
type NoOpDLQPublisher struct{}

// NewNoOpDLQPublisher creates a publisher that discards messages.
func NewNoOpDLQPublisher() *NoOpDLQPublisher {
	return &NoOpDLQPublisher{}
}

// PublishToDLQ does nothing.
func (p *NoOpDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	return nil
}

var (
	_ DLQPublisher = (*KafkaDLQPublisher)(nil)
	_ DLQPublisher = (*NoOpDLQPublisher)(nil)
)
