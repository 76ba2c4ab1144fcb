package queue

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryQueue implements Queue with a bounded in-process channel. Contents
// do not survive a restart; it exists for tests and single-process use.
type MemoryQueue struct {
	mu     sync.Mutex
	ch     chan []byte
	closed atomic.Bool
	done   chan struct{}
}

// NewMemoryQueue creates a queue holding at most capacity elements.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		ch:   make(chan []byte, capacity),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Offer(ctx context.Context, data []byte) error {
	if q.closed.Load() {
		return ErrClosed
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	select {
	case q.ch <- stored:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Poll(ctx context.Context) ([]byte, error) {
	select {
	case data := <-q.ch:
		return data, nil
	case <-q.done:
		// Drain what was queued before the close.
		select {
		case data := <-q.ch:
			return data, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Clear() error {
	if q.closed.Load() {
		return ErrClosed
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case <-q.ch:
		default:
			return nil
		}
	}
}

func (q *MemoryQueue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	close(q.done)
	return nil
}
