// Package events defines the closed set of messages exchanged on the shared
// task topic.
//
// Four kinds exist: progress reports, results (which may carry a failure),
// cancellation acknowledgements, and cancellation requests. Every process
// subscribed to the topic receives every event at least once; receivers
// apply them idempotently and ignore events for records that already
// reached a terminal state.
package events

import (
	"encoding/json"

	"github.com/irtaza129/datashare/codec"
	"github.com/irtaza129/datashare/errors"
)

// Kind discriminates event variants on the wire.
type Kind string

const (
	KindProgress Kind = "progress"
	KindResult   Kind = "result"
	KindCanceled Kind = "canceled"
	KindCancel   Kind = "cancel"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Event is implemented by the four task event variants.
type Event interface {
	// Kind identifies the variant.
	Kind() Kind

	// TaskID is the task the event belongs to.
	TaskID() string
}

// Progress reports a task's completion rate in [0, 1].
type Progress struct {
	Task string
	Rate float64
}

func (e Progress) Kind() Kind     { return KindProgress }
func (e Progress) TaskID() string { return e.Task }

// Result carries a task's terminal outcome. Value holds either the result
// proper or a *codec.Failure when the task body reported an error.
type Result struct {
	Task  string
	Value interface{}
}

func (e Result) Kind() Kind     { return KindResult }
func (e Result) TaskID() string { return e.Task }

// Failure returns the carried failure, if the outcome is one.
func (e Result) Failure() (*codec.Failure, bool) {
	f, ok := e.Value.(*codec.Failure)
	return f, ok
}

// Canceled acknowledges that a cancellation took effect on the worker.
// Requeue asks the registry to put the task back on the work queue.
type Canceled struct {
	Task    string
	Requeue bool
}

func (e Canceled) Kind() Kind     { return KindCanceled }
func (e Canceled) TaskID() string { return e.Task }

// Cancel requests cancellation of a task. It is published by the manager
// and observed by the worker running the task; it is never applied to the
// registry directly.
type Cancel struct {
	Task    string
	Requeue bool
}

func (e Cancel) Kind() Kind     { return KindCancel }
func (e Cancel) TaskID() string { return e.Task }

// envelope is the wire shape shared by all variants.
type envelope struct {
	Kind    Kind            `json:"kind"`
	TaskID  string          `json:"task_id"`
	Rate    float64         `json:"rate,omitempty"`
	Requeue bool            `json:"requeue,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// Encode serializes an event for the bus.
func Encode(e Event) ([]byte, error) {
	env := envelope{Kind: e.Kind(), TaskID: e.TaskID()}

	switch ev := e.(type) {
	case Progress:
		env.Rate = ev.Rate
	case Result:
		value, err := codec.Encode(ev.Value)
		if err != nil {
			return nil, errors.Wrap(err, "encoding result payload", errors.WithTaskID(ev.Task))
		}
		env.Value = value
	case Canceled:
		env.Requeue = ev.Requeue
	case Cancel:
		env.Requeue = ev.Requeue
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "unknown event kind %q", e.Kind())
	}

	return json.Marshal(env)
}

// Decode rebuilds an event from its wire form.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeCorruption, "decoding event")
	}
	if env.TaskID == "" {
		return nil, errors.New(errors.ErrCodeCorruption, "event without task id")
	}

	switch env.Kind {
	case KindProgress:
		return Progress{Task: env.TaskID, Rate: env.Rate}, nil
	case KindResult:
		value, err := codec.Decode(env.Value)
		if err != nil {
			return nil, errors.Wrap(err, "decoding result payload", errors.WithTaskID(env.TaskID))
		}
		return Result{Task: env.TaskID, Value: value}, nil
	case KindCanceled:
		return Canceled{Task: env.TaskID, Requeue: env.Requeue}, nil
	case KindCancel:
		return Cancel{Task: env.TaskID, Requeue: env.Requeue}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeCorruption, "unknown event kind %q", env.Kind)
	}
}
