package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSQueue implements Queue on a NATS JetStream work-queue stream.
// Elements persist on the broker until polled and acknowledged, so they
// survive client restarts. Each element is delivered to exactly one
// poller via a shared durable consumer.
type NATSQueue struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	config   NATSQueueConfig
	subject  string
	closed   atomic.Bool

	mu sync.Mutex
}

// NATSQueueConfig holds NATS queue configuration.
type NATSQueueConfig struct {
	// Conn is the NATS connection to use.
	Conn *nats.Conn

	// Name is the queue identity, used to derive the stream, subject
	// and durable consumer names.
	Name string

	// MaxInFlight caps unacknowledged deliveries across all pollers.
	// Default: 10
	MaxInFlight int

	// MaxDeliver bounds redeliveries of an element whose poller died
	// before acknowledging. Default: 3
	MaxDeliver int

	// AckWait is how long the broker waits for an acknowledgment before
	// redelivering. Default: 30s
	AckWait time.Duration
}

// DefaultNATSQueueConfig returns configuration with sensible defaults.
func DefaultNATSQueueConfig() NATSQueueConfig {
	return NATSQueueConfig{
		Name:        "tasks-queue",
		MaxInFlight: 10,
		MaxDeliver:  3,
		AckWait:     30 * time.Second,
	}
}

// NewNATSQueue creates a new JetStream-backed queue. The stream and its
// durable consumer are created on first use and reused afterwards.
func NewNATSQueue(cfg NATSQueueConfig) (*NATSQueue, error) {
	if cfg.Conn == nil {
		return nil, fmt.Errorf("nats connection required")
	}
	if cfg.Name == "" {
		cfg.Name = DefaultNATSQueueConfig().Name
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultNATSQueueConfig().MaxInFlight
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = DefaultNATSQueueConfig().MaxDeliver
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = DefaultNATSQueueConfig().AckWait
	}

	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streamName := streamNameFor(cfg.Name)
	subject := streamName + ".push"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       streamName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxInFlight,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	return &NATSQueue{
		conn:     cfg.Conn,
		js:       js,
		stream:   stream,
		consumer: consumer,
		config:   cfg,
		subject:  subject,
	}, nil
}

// Offer appends an element to the stream.
func (q *NATSQueue) Offer(ctx context.Context, data []byte) error {
	if q.closed.Load() {
		return ErrClosed
	}

	if _, err := q.js.Publish(ctx, q.subject, data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Poll fetches the next element, blocking until one arrives or the
// context ends.
func (q *NATSQueue) Poll(ctx context.Context) ([]byte, error) {
	for {
		if q.closed.Load() {
			return nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := q.consumer.Fetch(1, jetstream.FetchMaxWait(time.Second))
		if err != nil {
			if err == nats.ErrTimeout {
				continue
			}
			return nil, fmt.Errorf("fetch: %w", err)
		}

		for msg := range batch.Messages() {
			if err := msg.Ack(); err != nil {
				return nil, fmt.Errorf("ack: %w", err)
			}
			return msg.Data(), nil
		}

		if err := batch.Error(); err != nil && err != nats.ErrTimeout {
			return nil, fmt.Errorf("fetch: %w", err)
		}
	}
}

// Clear purges every pending element from the stream.
func (q *NATSQueue) Clear() error {
	if q.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	return nil
}

// Close shuts down the queue. The stream and its pending elements remain
// on the broker.
func (q *NATSQueue) Close() error {
	q.closed.Store(true)
	return nil
}

// streamNameFor renders a valid stream name from a queue identity.
func streamNameFor(name string) string {
	return strings.NewReplacer(":", "-", ".", "-", "/", "-").Replace(name)
}
