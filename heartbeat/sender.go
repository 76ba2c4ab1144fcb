package heartbeat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irtaza129/datashare/bus"
)

// Sender publishes periodic heartbeats for one worker on the shared
// heartbeat topic.
type Sender struct {
	bus      bus.Bus
	workerID string
	interval time.Duration

	mu     sync.RWMutex
	status string
	taskID string

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSender creates a heartbeat sender and opens the heartbeat topic for
// publishing.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSenderConfig().Interval
	}

	if err := cfg.Bus.OpenPublishChannel(Topic); err != nil {
		return nil, err
	}

	return &Sender{
		bus:      cfg.Bus,
		workerID: cfg.WorkerID,
		interval: interval,
		status:   StatusIdle,
	}, nil
}

// Start begins sending heartbeats at the configured interval.
func (s *Sender) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return ErrAlreadyStarted
	}

	if ctx == nil {
		ctx = context.Background()
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx)
	return nil
}

// run is the main heartbeat loop.
func (s *Sender) run(ctx context.Context) {
	defer close(s.doneCh)

	// Send the first heartbeat immediately.
	s.send()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.running.Store(false)
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.send()
		}
	}
}

// send publishes one heartbeat.
func (s *Sender) send() error {
	hb := s.build()
	data, err := hb.Marshal()
	if err != nil {
		return err
	}
	return s.bus.Publish(Topic, data)
}

// build snapshots the current state into a heartbeat.
func (s *Sender) build() *Heartbeat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Heartbeat{
		WorkerID:  s.workerID,
		Timestamp: time.Now(),
		Status:    s.status,
		TaskID:    s.taskID,
	}
}

// SetStatus updates the status included in heartbeats.
func (s *Sender) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// SetTask records the in-flight task id, or clears it when empty.
func (s *Sender) SetTask(taskID string) {
	s.mu.Lock()
	s.taskID = taskID
	if taskID == "" {
		s.status = StatusIdle
	} else {
		s.status = StatusBusy
	}
	s.mu.Unlock()
}

// Stop stops sending heartbeats.
func (s *Sender) Stop() error {
	if !s.running.Swap(false) {
		return ErrNotStarted
	}
	close(s.stopCh)
	<-s.doneCh
	return nil
}

// WorkerID returns the sender's worker id.
func (s *Sender) WorkerID() string {
	return s.workerID
}
