package heartbeat

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/irtaza129/datashare/bus"
)

// Common errors.
var (
	ErrAlreadyStarted = stderrors.New("heartbeat already started")
	ErrNotStarted     = stderrors.New("heartbeat not started")
	ErrInvalidConfig  = stderrors.New("invalid configuration")
)

// Topic is the shared queue id heartbeats travel on.
const Topic = "tasks:heartbeat"

// Worker status values.
const (
	StatusIdle     = "idle"
	StatusBusy     = "busy"
	StatusDraining = "draining"
)

// Heartbeat is one liveness report from a worker process.
type Heartbeat struct {
	// WorkerID uniquely identifies the sending worker.
	WorkerID string `json:"worker_id"`

	// Timestamp when the heartbeat was generated.
	Timestamp time.Time `json:"timestamp"`

	// Status of the worker.
	Status string `json:"status"`

	// TaskID is the in-flight task, if any.
	TaskID string `json:"task_id,omitempty"`
}

// Marshal serializes a heartbeat to JSON.
func (h *Heartbeat) Marshal() ([]byte, error) {
	return json.Marshal(h)
}

// Unmarshal deserializes a heartbeat from JSON.
func Unmarshal(data []byte) (*Heartbeat, error) {
	var h Heartbeat
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// SenderConfig configures a heartbeat sender.
type SenderConfig struct {
	// Bus carries the heartbeats.
	Bus bus.Bus

	// WorkerID is the unique identifier for this worker.
	WorkerID string

	// Interval between heartbeats.
	// Default: 5 seconds
	Interval time.Duration
}

// Validate checks the configuration.
func (c *SenderConfig) Validate() error {
	if c.Bus == nil {
		return ErrInvalidConfig
	}
	if c.WorkerID == "" {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultSenderConfig returns configuration with sensible defaults.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Interval: 5 * time.Second,
	}
}

// MonitorConfig configures a heartbeat monitor.
type MonitorConfig struct {
	// Bus carries the heartbeats.
	Bus bus.Bus

	// Timeout for presuming a worker dead. Should be 2-3x the expected
	// heartbeat interval.
	// Default: 15 seconds
	Timeout time.Duration

	// CheckInterval for the dead worker checker.
	// Default: 1 second
	CheckInterval time.Duration
}

// Validate checks the configuration.
func (c *MonitorConfig) Validate() error {
	if c.Bus == nil {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultMonitorConfig returns configuration with sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Timeout:       15 * time.Second,
		CheckInterval: 1 * time.Second,
	}
}
