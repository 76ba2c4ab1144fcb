package tasks

import (
	"sync"
	"time"
)

// Countdown is a signal that fires after a fixed number of counts. The
// manager decrements it once per applied event when one is attached;
// tests use it to wait for event propagation without polling. It plays
// no part in state transitions.
type Countdown struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

// NewCountdown creates a countdown firing after n counts. A countdown of
// zero or less is already fired.
func NewCountdown(n int) *Countdown {
	c := &Countdown{count: n, done: make(chan struct{})}
	if n <= 0 {
		close(c.done)
	}
	return c
}

// CountDown records one count. Counting past zero is a no-op.
func (c *Countdown) CountDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count <= 0 {
		return
	}
	c.count--
	if c.count == 0 {
		close(c.done)
	}
}

// Await blocks until the countdown fires or the timeout elapses, and
// reports whether it fired.
func (c *Countdown) Await(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
