package retry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingProducer struct {
	topic   string
	key     string
	data    interface{}
	headers map[string]string
	err     error
}

func (p *capturingProducer) PublishJSON(_ context.Context, topic string, key string, data interface{}, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.key = key
	p.data = data
	p.headers = headers
	return nil
}

func pricedDeadLetter() *DLQMessage {
	now := time.Now()
	return &DLQMessage{
		ID:            "dlq-1",
		OriginalTopic: "booking-events",
		OriginalKey:   "f6a7f3d2-9d4e-4c1b-8a5e-2b9f0c3d1e55",
		Payload:       json.RawMessage(`{"event_type":"booking.priced","transaction_id":"f6a7f3d2-9d4e-4c1b-8a5e-2b9f0c3d1e55"}`),
		Headers: map[string]string{
			"event_type":     "booking.priced",
			"transaction_id": "f6a7f3d2-9d4e-4c1b-8a5e-2b9f0c3d1e55",
		},
		Error:          "quota handler failed: connection refused",
		Attempts:       6,
		FirstAttemptAt: now.Add(-time.Minute),
		LastAttemptAt:  now,
	}
}

func TestPublishToDLQ(t *testing.T) {
	producer := &capturingProducer{}
	publisher := NewKafkaDLQPublisher(producer, &DLQConfig{Source: "booking-quota"})

	msg := pricedDeadLetter()
	require.NoError(t, publisher.PublishToDLQ(context.Background(), msg))

	assert.Equal(t, "booking-events.dlq", producer.topic)
	assert.Equal(t, msg.OriginalKey, producer.key)

	published, ok := producer.data.(*DLQMessage)
	require.True(t, ok)
	assert.Equal(t, "booking-quota", published.Source)
	assert.False(t, published.MovedToDLQAt.IsZero())

	assert.Equal(t, "booking-events", producer.headers["original_topic"])
	assert.Equal(t, "6", producer.headers["attempts"])
	assert.Equal(t, "booking-quota", producer.headers["source"])
	assert.Equal(t, "booking.priced", producer.headers["original_event_type"])
	assert.Equal(t, msg.OriginalKey, producer.headers["original_transaction_id"])
}

func TestPublishToDLQNilMessage(t *testing.T) {
	publisher := NewKafkaDLQPublisher(&capturingProducer{}, nil)
	require.Error(t, publisher.PublishToDLQ(context.Background(), nil))
}

func TestPublishToDLQProducerFailure(t *testing.T) {
	producer := &capturingProducer{err: errors.New("produce failed")}
	publisher := NewKafkaDLQPublisher(producer, nil)

	err := publisher.PublishToDLQ(context.Background(), pricedDeadLetter())
	assert.ErrorContains(t, err, "produce failed")
}

func TestDLQConfigDefaults(t *testing.T) {
	publisher := NewKafkaDLQPublisher(&capturingProducer{}, nil)
	assert.Equal(t, ".dlq", publisher.config.TopicSuffix)

	// A config with only a source still gets the suffix convention.
	publisher = NewKafkaDLQPublisher(&capturingProducer{}, &DLQConfig{Source: "booking-pricer"})
	assert.Equal(t, ".dlq", publisher.config.TopicSuffix)
	assert.Equal(t, "booking-pricer", publisher.config.Source)
}

func TestNoOpDLQPublisher(t *testing.T) {
	assert.NoError(t, NewNoOpDLQPublisher().PublishToDLQ(context.Background(), pricedDeadLetter()))
}

func TestDLQMessageRoundTrip(t *testing.T) {
	msg := pricedDeadLetter()

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded DLQMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, msg.OriginalTopic, decoded.OriginalTopic)
	assert.Equal(t, msg.Error, decoded.Error)
	assert.Equal(t, msg.Attempts, decoded.Attempts)
	assert.JSONEq(t, string(msg.Payload), string(decoded.Payload))
}
