package heartbeat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/irtaza129/datashare/bus"
)

// Monitor tracks worker liveness from heartbeats on the shared topic and
// reports workers whose heartbeats stop arriving.
type Monitor struct {
	bus           bus.Bus
	timeout       time.Duration
	checkInterval time.Duration

	mu       sync.RWMutex
	lastSeen map[string]*Heartbeat
	deadCBs  []func(workerID string)
	reported map[string]bool

	running atomic.Bool
	ch      *bus.ConsumerChannel
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a heartbeat monitor.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultMonitorConfig().Timeout
	}
	checkInterval := cfg.CheckInterval
	if checkInterval <= 0 {
		checkInterval = DefaultMonitorConfig().CheckInterval
	}

	return &Monitor{
		bus:           cfg.Bus,
		timeout:       timeout,
		checkInterval: checkInterval,
		lastSeen:      make(map[string]*Heartbeat),
		reported:      make(map[string]bool),
	}, nil
}

// Start subscribes to the heartbeat topic and begins the dead-worker
// checker.
func (m *Monitor) Start() error {
	if m.running.Swap(true) {
		return ErrAlreadyStarted
	}

	ch, err := m.bus.OpenConsumeChannel(Topic)
	if err != nil {
		m.running.Store(false)
		return err
	}
	m.ch = ch

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run()
	return nil
}

// run processes incoming heartbeats and checks for dead workers.
func (m *Monitor) run() {
	defer close(m.doneCh)

	checkTicker := time.NewTicker(m.checkInterval)
	defer checkTicker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case msg, ok := <-m.ch.Messages():
			if !ok {
				return
			}
			m.record(msg.Data)
		case <-checkTicker.C:
			m.checkDeadWorkers()
		}
	}
}

// record handles one incoming heartbeat payload.
func (m *Monitor) record(data []byte) {
	hb, err := Unmarshal(data)
	if err != nil || hb.WorkerID == "" {
		return
	}

	m.mu.Lock()
	m.lastSeen[hb.WorkerID] = hb
	// The worker is alive again; allow a fresh dead report later.
	delete(m.reported, hb.WorkerID)
	m.mu.Unlock()
}

// checkDeadWorkers reports workers whose last heartbeat is too old.
func (m *Monitor) checkDeadWorkers() {
	now := time.Now()
	var dead []string

	m.mu.RLock()
	for workerID, hb := range m.lastSeen {
		if now.Sub(hb.Timestamp) > m.timeout && !m.reported[workerID] {
			dead = append(dead, workerID)
		}
	}
	callbacks := make([]func(string), len(m.deadCBs))
	copy(callbacks, m.deadCBs)
	m.mu.RUnlock()

	if len(dead) == 0 {
		return
	}

	m.mu.Lock()
	for _, id := range dead {
		m.reported[id] = true
	}
	m.mu.Unlock()

	for _, workerID := range dead {
		for _, cb := range callbacks {
			cb(workerID)
		}
	}
}

// IsAlive reports whether a worker sent a heartbeat within timeout.
func (m *Monitor) IsAlive(workerID string, timeout time.Duration) bool {
	m.mu.RLock()
	hb, ok := m.lastSeen[workerID]
	m.mu.RUnlock()

	if !ok {
		return false
	}
	return time.Since(hb.Timestamp) <= timeout
}

// LastHeartbeat returns the last heartbeat from a worker, if any.
func (m *Monitor) LastHeartbeat(workerID string) *Heartbeat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeen[workerID]
}

// Workers returns the ids of every worker seen so far.
func (m *Monitor) Workers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.lastSeen))
	for id := range m.lastSeen {
		out = append(out, id)
	}
	return out
}

// OnDead registers a callback invoked once per worker presumed dead.
func (m *Monitor) OnDead(callback func(workerID string)) {
	m.mu.Lock()
	m.deadCBs = append(m.deadCBs, callback)
	m.mu.Unlock()
}

// Stop stops monitoring.
func (m *Monitor) Stop() error {
	if !m.running.Swap(false) {
		return ErrNotStarted
	}

	close(m.stopCh)
	<-m.doneCh
	return m.ch.Close()
}
