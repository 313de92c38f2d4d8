package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/retry"
)

// ConsumerConfig holds configuration for a booking event consumer.
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	ClientID         string
	Topic            string
	Handler          Handler
	Publisher        Publisher
	Retry            *retry.Config
	DLQ              retry.DLQPublisher
	SessionTimeout   time.Duration
	RebalanceTimeout time.Duration
}

// Consumer reads booking events from Kafka and dispatches them to a
// handler. Events emitted by the handler are published back to the bus.
// Deliveries that keep failing go to the dead-letter topic and the
// offset is committed, so one poison message cannot stall a partition.
type Consumer struct {
	config  *ConsumerConfig
	client  *kgo.Client
	retrier *retry.Retrier
	wg      sync.WaitGroup
	stopCh  chan struct{}
	stop    sync.Once
}

// NewConsumer creates a consumer-group member on the booking topic.
func NewConsumer(ctx context.Context, cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("consumer handler is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = TopicBookingEvents
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.RebalanceTimeout == 0 {
		cfg.RebalanceTimeout = 60 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.DLQ == nil {
		cfg.DLQ = retry.NewNoOpDLQPublisher()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ClientID(cfg.ClientID),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.RebalanceTimeout(cfg.RebalanceTimeout),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &Consumer{
		config:  cfg,
		client:  client,
		retrier: retry.New(cfg.Retry),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start polls the booking topic until the context is canceled or Stop
// is called. Records are processed in order per partition; offsets are
// committed only after every record in the poll was handled or
// dead-lettered.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	defer c.wg.Done()

	log := logger.Get()
	log.Info("consumer started",
		zap.String("topic", c.config.Topic),
		zap.String("group", c.config.GroupID))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, err := range errs {
				log.Error("fetch error",
					zap.String("topic", err.Topic),
					zap.Int32("partition", err.Partition),
					zap.Error(err.Err))
			}
			continue
		}

		fetches.EachRecord(func(record *kgo.Record) {
			c.processRecord(ctx, record)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error("failed to commit offsets", zap.Error(err))
		}
	}
}

// Stop stops the consumer, waits for the poll loop to finish, and
// closes the client.
func (c *Consumer) Stop() {
	c.stop.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
		c.client.Close()
	})
}

// processRecord dispatches one record through the handler with retry.
// Records that do not decode fail permanently; either way, exhausted
// deliveries move to the DLQ so the offset can still be committed.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	firstAttempt := time.Now()

	var e *event.Envelope
	result := c.retrier.Do(ctx, func(ctx context.Context) error {
		if e == nil {
			parsed, err := event.Unmarshal(record.Value)
			if err != nil {
				return retry.Permanent(fmt.Errorf("malformed event record: %w", err))
			}
			e = parsed
		}

		emitted, err := c.config.Handler.Handle(ctx, e)
		if err != nil {
			return err
		}
		for _, out := range emitted {
			if err := c.config.Publisher.Publish(ctx, out); err != nil {
				return fmt.Errorf("failed to publish %s event: %w", out.EventType, err)
			}
		}
		return nil
	})

	if result.Err == nil {
		return
	}
	if result.Err == retry.ErrContextCanceled {
		// Shutting down; the record will be redelivered.
		return
	}

	fields := []zap.Field{
		zap.Int("attempts", result.Attempts),
		zap.Error(result.LastError),
	}
	msg := &retry.DLQMessage{
		ID:             uuid.NewString(),
		OriginalTopic:  record.Topic,
		OriginalKey:    string(record.Key),
		Payload:        record.Value,
		Headers:        recordHeaders(record),
		Error:          result.LastError.Error(),
		Attempts:       result.Attempts,
		FirstAttemptAt: firstAttempt,
		LastAttemptAt:  time.Now(),
	}
	if e != nil {
		fields = append(fields,
			zap.String("event_type", e.EventType),
			zap.String("transaction_id", e.TransactionID))
		msg.Metadata = map[string]interface{}{
			"event_type":     e.EventType,
			"transaction_id": e.TransactionID,
		}
	}
	logger.Get().Error("handler failed, dead-lettering record", fields...)

	if err := c.config.DLQ.PublishToDLQ(ctx, msg); err != nil {
		logger.Get().Error("failed to publish to DLQ", zap.Error(err))
	}
}

func recordHeaders(record *kgo.Record) map[string]string {
	if len(record.Headers) == 0 {
		return nil
	}
	headers := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}
