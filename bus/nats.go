package bus

import (
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/irtaza129/datashare/errors"
	"github.com/irtaza129/datashare/logging"
)

// NATSBus implements Bus over one long-lived NATS connection.
//
// The connection relies on client-level automatic recovery: reconnect wait
// is the configured recovery interval and the ping interval acts as the
// heartbeat. The initial connection is attempted once and failure is fatal
// to the caller; there is no startup retry loop here.
type NATSBus struct {
	conn   *nats.Conn
	opts   Options
	log    *logging.Logger
	closed atomic.Bool

	mu              sync.Mutex
	publishChannels map[string]string // queueID -> subject
	consumerSeq     atomic.Int32
}

// Connect establishes the broker connection described by opts.
func Connect(opts Options, log *logging.Logger) (*NATSBus, error) {
	if opts.URL == "" {
		opts.URL = DefaultOptions().URL
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultOptions().MaxInFlight
	}
	if log == nil {
		log = logging.New()
	}
	log = log.WithComponent("bus")

	natsOpts := []nats.Option{
		nats.ReconnectWait(opts.RecoveryInterval),
		nats.PingInterval(opts.Heartbeat),
		nats.Timeout(opts.ConnectTimeout),
		nats.MaxReconnects(-1),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}
	if opts.User != "" {
		natsOpts = append(natsOpts, nats.UserInfo(opts.User, opts.Password))
	}

	log.Info("connecting", map[string]interface{}{"url": opts.URL})
	conn, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, errors.Connection("connecting to broker "+opts.URL, errors.WithCause(err))
	}
	log.Info("connected", map[string]interface{}{"url": opts.URL})

	return &NATSBus{
		conn:            conn,
		opts:            opts,
		log:             log,
		publishChannels: make(map[string]string),
	}, nil
}

// NewNATSBusFromConn wraps an existing connection; the caller keeps
// ownership of the connection's lifetime only if it also skips Close.
func NewNATSBusFromConn(conn *nats.Conn, opts Options, log *logging.Logger) *NATSBus {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultOptions().MaxInFlight
	}
	if log == nil {
		log = logging.New()
	}
	return &NATSBus{
		conn:            conn,
		opts:            opts,
		log:             log.WithComponent("bus"),
		publishChannels: make(map[string]string),
	}
}

// Conn exposes the underlying connection for the durable-store and queue
// layers, which share it.
func (b *NATSBus) Conn() *nats.Conn {
	return b.conn
}

// OpenPublishChannel registers a publish channel for a logical queue.
func (b *NATSBus) OpenPublishChannel(queueID string) error {
	if err := ValidateQueueID(queueID); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}

	subject := subjectFor(b.opts.VirtualHost, queueID)

	b.mu.Lock()
	b.publishChannels[queueID] = subject
	b.mu.Unlock()

	b.log.ChannelOpened("publish", queueID, 0)
	return nil
}

// OpenConsumeChannel creates a fresh consumer channel for a queue.
func (b *NATSBus) OpenConsumeChannel(queueID string) (*ConsumerChannel, error) {
	if err := ValidateQueueID(queueID); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	subject := subjectFor(b.opts.VirtualHost, queueID)
	sub := &natsSubscription{ch: make(chan *Message, b.opts.MaxInFlight)}

	natsSub, err := b.conn.Subscribe(subject, func(m *nats.Msg) {
		msg := &Message{Queue: queueID, Data: m.Data}
		if !sub.send(msg) {
			// Consumer is over its in-flight budget; shed to dead-letter
			// instead of blocking the connection's dispatch loop.
			b.publishDeadLetter(msg)
		}
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeIO, "subscribing to "+subject,
			errors.WithQueueID(queueID))
	}
	sub.sub = natsSub

	number := int(b.consumerSeq.Add(1))
	b.log.ChannelOpened("consume", queueID, number)

	return &ConsumerChannel{
		queueID:    queueID,
		number:     number,
		sub:        sub,
		deadLetter: b.publishDeadLetter,
	}, nil
}

// Publish sends a payload on a previously opened publish channel.
func (b *NATSBus) Publish(queueID string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	subject, ok := b.publishChannels[queueID]
	b.mu.Unlock()
	if !ok {
		return unknownChannel(queueID)
	}

	if err := b.conn.Publish(subject, data); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeIO, "publishing to "+subject,
			errors.WithQueueID(queueID))
	}
	return nil
}

// publishDeadLetter forwards an unprocessable message to the dead-letter
// subject. Best effort: a broken dead-letter path must not take down the
// consumer.
func (b *NATSBus) publishDeadLetter(m *Message) error {
	if b.opts.DeadLetter == "" || b.closed.Load() {
		return nil
	}
	subject := subjectFor(b.opts.VirtualHost, b.opts.DeadLetter)
	if err := b.conn.Publish(subject, m.Data); err != nil {
		b.log.Warn("dead-letter publish failed", map[string]interface{}{
			"queue": m.Queue,
			"error": err.Error(),
		})
		return errors.WrapWithCode(err, errors.ErrCodeIO, "dead-lettering message",
			errors.WithQueueID(m.Queue))
	}
	return nil
}

// Close closes all tracked publish channels, then the connection.
func (b *NATSBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	b.publishChannels = make(map[string]string)
	b.mu.Unlock()

	if !b.conn.IsClosed() {
		b.conn.Close()
		b.log.Info("connection closed", map[string]interface{}{"url": b.opts.URL})
	}
	return nil
}

// natsSubscription adapts a NATS subscription to the Subscription
// interface. Its lock makes sends and the channel close mutually
// exclusive: a delivery dispatched just before Unsubscribe can never hit
// a closed channel.
type natsSubscription struct {
	sub *nats.Subscription

	mu     sync.RWMutex
	ch     chan *Message
	closed bool
}

// send delivers a message to the consumer's buffer. It reports false
// when the buffer is full; a message arriving after Unsubscribe is
// dropped and reported as delivered.
func (s *natsSubscription) send(m *Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return true
	}
	select {
	case s.ch <- m:
		return true
	default:
		return false
	}
}

// Messages returns the delivery channel.
func (s *natsSubscription) Messages() <-chan *Message {
	return s.ch
}

// Unsubscribe cancels the subscription.
func (s *natsSubscription) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.sub.Unsubscribe()
	close(s.ch)
	return err
}
