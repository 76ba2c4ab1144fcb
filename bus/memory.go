package bus

import (
	"sync"
	"sync/atomic"
)

// MemoryBus implements Bus with in-process channels. Useful for tests and
// single-process deployments; it mirrors the NATS backend's channel-table
// and dead-letter behavior exactly.
type MemoryBus struct {
	opts Options

	mu              sync.RWMutex
	publishChannels map[string]bool
	subs            map[string][]*memorySubscription // queueID -> subscribers
	consumerSeq     atomic.Int32
	closed          atomic.Bool
}

// NewMemoryBus creates a new in-memory bus.
func NewMemoryBus(opts Options) *MemoryBus {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultOptions().MaxInFlight
	}
	return &MemoryBus{
		opts:            opts,
		publishChannels: make(map[string]bool),
		subs:            make(map[string][]*memorySubscription),
	}
}

// OpenPublishChannel registers a publish channel for a logical queue.
func (b *MemoryBus) OpenPublishChannel(queueID string) error {
	if err := ValidateQueueID(queueID); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	b.publishChannels[queueID] = true
	b.mu.Unlock()
	return nil
}

// OpenConsumeChannel creates a fresh consumer channel for a queue.
func (b *MemoryBus) OpenConsumeChannel(queueID string) (*ConsumerChannel, error) {
	if err := ValidateQueueID(queueID); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySubscription{
		bus:     b,
		queueID: queueID,
		ch:      make(chan *Message, b.opts.MaxInFlight),
	}

	b.mu.Lock()
	b.subs[queueID] = append(b.subs[queueID], sub)
	b.mu.Unlock()

	return &ConsumerChannel{
		queueID:    queueID,
		number:     int(b.consumerSeq.Add(1)),
		sub:        sub,
		deadLetter: b.deadLetter,
	}, nil
}

// Publish sends a payload to every subscriber of the queue.
func (b *MemoryBus) Publish(queueID string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.RLock()
	opened := b.publishChannels[queueID]
	b.mu.RUnlock()
	if !opened {
		return unknownChannel(queueID)
	}

	b.deliver(queueID, data)
	return nil
}

// deliver fans a payload out to subscribers, shedding to dead-letter when
// a subscriber's in-flight budget is exhausted. Sends happen under the
// bus lock so a concurrent Unsubscribe cannot close a channel mid-send.
func (b *MemoryBus) deliver(queueID string, data []byte) {
	msg := &Message{Queue: queueID, Data: data}

	b.mu.RLock()
	shed := false
	for _, sub := range b.subs[queueID] {
		if sub.closed.Load() {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			shed = true
		}
	}
	b.mu.RUnlock()

	if shed {
		b.deadLetter(msg)
	}
}

// deadLetter forwards a message to dead-letter subscribers.
func (b *MemoryBus) deadLetter(m *Message) error {
	if b.opts.DeadLetter == "" || m.Queue == b.opts.DeadLetter {
		return nil
	}
	b.deliver(b.opts.DeadLetter, m.Data)
	return nil
}

// Close shuts down the bus and every open subscription.
func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.subs {
		for _, sub := range subs {
			if !sub.closed.Swap(true) {
				close(sub.ch)
			}
		}
	}
	b.subs = make(map[string][]*memorySubscription)
	b.publishChannels = make(map[string]bool)
	return nil
}

// memorySubscription is one subscriber's feed.
type memorySubscription struct {
	bus     *MemoryBus
	queueID string
	ch      chan *Message
	closed  atomic.Bool
}

// Messages returns the delivery channel.
func (s *memorySubscription) Messages() <-chan *Message {
	return s.ch
}

// Unsubscribe cancels the subscription. The channel is closed under the
// bus lock, which excludes in-flight deliveries.
func (s *memorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.closed.Swap(true) {
		return nil
	}
	subs := s.bus.subs[s.queueID]
	for i, sub := range subs {
		if sub == s {
			s.bus.subs[s.queueID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(s.ch)
	return nil
}
