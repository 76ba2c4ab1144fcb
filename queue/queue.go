package queue

import (
	"context"
	stderrors "errors"
)

// Common errors.
var (
	ErrClosed = stderrors.New("queue closed")
)

// Queue is a durable FIFO of serialized task records shared between task
// managers and workers. Each element is delivered to exactly one poller.
// Implementations must be safe for concurrent use.
type Queue interface {
	// Offer appends an element, blocking while the queue is at capacity.
	// It returns when the element is accepted, the context ends, or the
	// queue closes.
	Offer(ctx context.Context, data []byte) error

	// Poll removes and returns the head element, blocking while the
	// queue is empty. It returns when an element arrives, the context
	// ends, or the queue closes.
	Poll(ctx context.Context) ([]byte, error)

	// Clear discards every pending element.
	Clear() error

	// Close releases the queue's resources. Pending elements survive
	// for durable backends.
	Close() error
}
