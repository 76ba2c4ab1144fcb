package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/irtaza129/datashare/bus"
	"github.com/irtaza129/datashare/codec"
	"github.com/irtaza129/datashare/errors"
	"github.com/irtaza129/datashare/events"
	"github.com/irtaza129/datashare/logging"
	"github.com/irtaza129/datashare/queue"
	"github.com/irtaza129/datashare/store"
	"github.com/irtaza129/datashare/tasks"
)

// Runner pulls one task at a time from the shared work queue, dispatches
// it through the factory and reports progress and outcomes as events on
// the shared topic. It observes Cancel events for its in-flight task and
// answers with a Canceled acknowledgement.
type Runner struct {
	id      string
	store   store.Store
	queue   queue.Queue
	bus     bus.Bus
	factory *Factory
	log     *logging.Logger

	eventCh *bus.ConsumerChannel

	mu            sync.Mutex
	currentTask   string
	cancelCurrent context.CancelFunc
	requeue       bool
}

// NewRunner wires a runner to the shared store, queue and bus. It opens
// the event topic for publishing and subscribes to observe cancellation
// requests.
func NewRunner(st store.Store, q queue.Queue, b bus.Bus, factory *Factory, log *logging.Logger) (*Runner, error) {
	r := &Runner{
		id:      uuid.NewString(),
		store:   st,
		queue:   q,
		bus:     b,
		factory: factory,
		log:     log.WithComponent("worker"),
	}

	if err := b.OpenPublishChannel(tasks.EventTopic); err != nil {
		return nil, errors.Wrap(err, "opening event publish channel")
	}
	ch, err := b.OpenConsumeChannel(tasks.EventTopic)
	if err != nil {
		return nil, errors.Wrap(err, "opening event consume channel")
	}
	r.eventCh = ch

	go r.observeCancels()

	return r, nil
}

// ID returns the runner's identity.
func (r *Runner) ID() string {
	return r.id
}

// Run dequeues and executes tasks until the poison sentinel arrives or
// the context ends. It returns nil on orderly shutdown.
func (r *Runner) Run(ctx context.Context) error {
	defer r.eventCh.Close()

	for {
		data, err := r.queue.Poll(ctx)
		if err != nil {
			if err == queue.ErrClosed || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "polling work queue")
		}

		task, err := tasks.DecodeTask(data)
		if err != nil {
			r.log.Error("dropping undecodable queue entry", map[string]interface{}{"error": err.Error()})
			continue
		}
		if task.IsPoison() {
			r.log.Info("shutdown sentinel received", map[string]interface{}{"worker_id": r.id})
			return nil
		}
		if r.stale(task) {
			continue
		}

		r.execute(ctx, task)
	}
}

// stale reports whether a dequeued record was cancelled or finished
// after it was enqueued, so the runner should skip it.
func (r *Runner) stale(task *tasks.Task) bool {
	data, err := r.store.Get(task.ID)
	if err != nil {
		// Record cleared while queued.
		return true
	}
	current, err := tasks.DecodeTask(data)
	if err != nil {
		return true
	}
	return current.IsFinished()
}

// execute runs one task body and publishes its outcome.
func (r *Runner) execute(parent context.Context, task *tasks.Task) {
	r.log.WorkerDispatch(r.id, task.ID, task.Name)

	work, err := r.factory.Build(task)
	if err != nil {
		r.publishFailure(task.ID, err)
		return
	}

	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	r.currentTask = task.ID
	r.cancelCurrent = cancel
	r.requeue = false
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		r.currentTask = ""
		r.cancelCurrent = nil
		r.mu.Unlock()
	}()

	r.publishProgress(task.ID, 0)

	result, err := work(ctx, func(rate float64) {
		r.publishProgress(task.ID, rate)
	})

	if ctx.Err() != nil && parent.Err() == nil {
		// Cancelled by request, not by process shutdown.
		r.mu.Lock()
		requeue := r.requeue
		r.mu.Unlock()
		r.publishEvent(events.Canceled{Task: task.ID, Requeue: requeue})
		return
	}
	if err != nil {
		r.publishFailure(task.ID, err)
		return
	}
	r.publishEvent(events.Result{Task: task.ID, Value: result})
}

// observeCancels watches the event topic for Cancel requests addressed
// to the runner's in-flight task.
func (r *Runner) observeCancels() {
	for msg := range r.eventCh.Messages() {
		event, err := events.Decode(msg.Data)
		if err != nil {
			continue
		}
		cancel, ok := event.(events.Cancel)
		if !ok {
			continue
		}

		r.mu.Lock()
		if r.currentTask == cancel.Task && r.cancelCurrent != nil {
			r.requeue = cancel.Requeue
			r.cancelCurrent()
		}
		r.mu.Unlock()
	}
}

func (r *Runner) publishProgress(taskID string, rate float64) {
	r.publishEvent(events.Progress{Task: taskID, Rate: rate})
}

func (r *Runner) publishFailure(taskID string, err error) {
	r.publishEvent(events.Result{Task: taskID, Value: codec.FailureFrom(err)})
}

func (r *Runner) publishEvent(event events.Event) {
	data, err := events.Encode(event)
	if err != nil {
		r.log.Error("encoding event", map[string]interface{}{
			"kind":  string(event.Kind()),
			"error": err.Error(),
		})
		return
	}
	if err := r.bus.Publish(tasks.EventTopic, data); err != nil {
		r.log.Error("publishing event", map[string]interface{}{
			"kind":    string(event.Kind()),
			"task_id": event.TaskID(),
			"error":   err.Error(),
		})
	}
}
