package tasks

import (
	"encoding/json"
	"time"

	"github.com/irtaza129/datashare/codec"
	"github.com/irtaza129/datashare/errors"
)

// State is a task's lifecycle state.
type State string

const (
	StateCreated   State = "CREATED"
	StateQueued    State = "QUEUED"
	StateRunning   State = "RUNNING"
	StateDone      State = "DONE"
	StateError     State = "ERROR"
	StateCancelled State = "CANCELLED"
)

// IsFinished reports whether the state is terminal.
func (s State) IsFinished() bool {
	return s == StateDone || s == StateError || s == StateCancelled
}

// poisonID marks the sentinel record that wakes exactly one blocked
// worker at shutdown. It never enters the store.
const poisonID = "#poison#"

// Poison returns the shutdown sentinel record.
func Poison() *Task {
	return &Task{ID: poisonID}
}

// Task is the durable record of one unit of work. ID, Name, Owner and
// Properties are immutable after creation; everything else changes only
// through the registry applying events.
type Task struct {
	// ID is globally unique and stable for the task's lifetime.
	ID string `json:"id"`

	// Name identifies the task body workers dispatch to.
	Name string `json:"name"`

	// Owner is the requesting principal, used for filtering.
	Owner string `json:"owner,omitempty"`

	// Properties is the task body's input.
	Properties map[string]interface{} `json:"properties,omitempty"`

	// State is the lifecycle state.
	State State `json:"state"`

	// Progress is the completion rate in [0, 1] while running.
	Progress float64 `json:"progress"`

	// Result is set only in state DONE.
	Result interface{} `json:"-"`

	// Error is set only in state ERROR.
	Error *codec.Failure `json:"error,omitempty"`

	// RetriesLeft is decremented each time a cancellation requeues the
	// task.
	RetriesLeft int `json:"retries_left"`

	// CreatedAt is when the record was built.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is set on the terminal transition.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsPoison reports whether the record is the shutdown sentinel.
func (t *Task) IsPoison() bool {
	return t.ID == poisonID
}

// IsFinished reports whether the record reached a terminal state.
func (t *Task) IsFinished() bool {
	return t.State.IsFinished()
}

// Clone returns an independent copy of the record.
func (t *Task) Clone() *Task {
	out := *t
	if t.Properties != nil {
		out.Properties = make(map[string]interface{}, len(t.Properties))
		for k, v := range t.Properties {
			out.Properties[k] = v
		}
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		out.CompletedAt = &completed
	}
	return &out
}

// taskWire is the stored shape. The result travels through the codec so
// its concrete type survives the round trip.
type taskWire struct {
	Task
	ResultValue json.RawMessage `json:"result,omitempty"`
}

// EncodeTask serializes a record for the store and the work queue.
func EncodeTask(t *Task) ([]byte, error) {
	wire := taskWire{Task: *t}
	if t.Result != nil {
		value, err := codec.Encode(t.Result)
		if err != nil {
			return nil, errors.Wrap(err, "encoding task result", errors.WithTaskID(t.ID))
		}
		wire.ResultValue = value
	}
	return json.Marshal(wire)
}

// DecodeTask deserializes a stored record.
func DecodeTask(data []byte) (*Task, error) {
	var wire taskWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errors.Wrap(err, "decoding task record",
			errors.WithCategory(errors.CategoryInternal))
	}
	task := wire.Task
	if len(wire.ResultValue) > 0 {
		value, err := codec.Decode(wire.ResultValue)
		if err != nil {
			return nil, errors.Wrap(err, "decoding task result", errors.WithTaskID(task.ID))
		}
		task.Result = value
	}
	return &task, nil
}
