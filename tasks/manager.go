package tasks

import (
	"context"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/irtaza129/datashare/bus"
	"github.com/irtaza129/datashare/errors"
	"github.com/irtaza129/datashare/events"
	"github.com/irtaza129/datashare/logging"
	"github.com/irtaza129/datashare/queue"
	"github.com/irtaza129/datashare/store"
)

// EventTopic is the shared queue id every process publishes and observes
// task events on.
const EventTopic = "tasks:events"

// Manager is the task registry and the facade the resource layer calls.
// It is the single writer of persisted task state: every mutation goes
// through its methods or through its event listener. Several Manager
// instances across processes may share one store, queue and bus.
type Manager struct {
	store store.Store
	queue queue.Queue
	bus   bus.Bus
	log   *logging.Logger

	maxRetries  int
	requeueWait time.Duration
	idGen       func() string
	countdown   *Countdown

	eventCh *bus.ConsumerChannel
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed atomic.Bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIDGenerator sets a custom task id generator.
func WithIDGenerator(gen func() string) ManagerOption {
	return func(m *Manager) {
		m.idGen = gen
	}
}

// WithMaxRetries sets the retry budget new tasks start with.
func WithMaxRetries(n int) ManagerOption {
	return func(m *Manager) {
		m.maxRetries = n
	}
}

// WithCountdown attaches a countdown decremented once per applied event.
func WithCountdown(c *Countdown) ManagerOption {
	return func(m *Manager) {
		m.countdown = c
	}
}

// NewManager wires a manager to its store, queue and bus. It opens the
// shared event topic for publishing and subscribes its listener to it.
func NewManager(st store.Store, q queue.Queue, b bus.Bus, log *logging.Logger, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		store:       st,
		queue:       q,
		bus:         b,
		log:         log.WithComponent("tasks"),
		maxRetries:  3,
		requeueWait: 5 * time.Second,
		idGen:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := b.OpenPublishChannel(EventTopic); err != nil {
		return nil, errors.Wrap(err, "opening event publish channel")
	}
	ch, err := b.OpenConsumeChannel(EventTopic)
	if err != nil {
		return nil, errors.Wrap(err, "opening event consume channel")
	}
	m.eventCh = ch

	m.wg.Add(1)
	go m.listen()

	return m, nil
}

// StartTask builds a record, persists it as QUEUED and pushes it onto
// the work queue. A reader never observes the record on the queue before
// it is retrievable from the store.
func (m *Manager) StartTask(ctx context.Context, name, owner string, properties map[string]interface{}) (*Task, error) {
	if m.closed.Load() {
		return nil, errors.New(errors.ErrCodeNotPermitted, "manager closed")
	}
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "task name required")
	}

	task := &Task{
		ID:          m.idGen(),
		Name:        name,
		Owner:       owner,
		Properties:  properties,
		State:       StateQueued,
		RetriesLeft: m.maxRetries,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := EncodeTask(task)
	if err != nil {
		return nil, err
	}
	if err := m.store.Put(task.ID, data); err != nil {
		return nil, errors.Wrap(err, "persisting task", errors.WithTaskID(task.ID))
	}
	if err := m.queue.Offer(ctx, data); err != nil {
		// Roll the record back so no reader sees a QUEUED task that
		// will never be dequeued.
		_ = m.store.Delete(task.ID)
		return nil, errors.Wrap(err, "enqueuing task", errors.WithTaskID(task.ID))
	}

	m.log.TaskQueued(task.ID, task.Name, task.Owner)
	return task.Clone(), nil
}

// GetTask returns the record for an id.
func (m *Manager) GetTask(id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadTask(id)
}

// GetTasks returns records filtered by owner and/or a name glob pattern.
// Empty filters match everything.
func (m *Manager) GetTasks(owner, namePattern string) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys, err := m.store.Keys("*")
	if err != nil {
		return nil, errors.Wrap(err, "listing tasks")
	}

	var out []*Task
	for _, key := range keys {
		task, err := m.loadTask(key)
		if err != nil {
			continue
		}
		if owner != "" && task.Owner != owner {
			continue
		}
		if namePattern != "" {
			if ok, err := path.Match(namePattern, task.Name); err != nil || !ok {
				continue
			}
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// StopTask requests cancellation of a task. It reports whether the
// request was published; the stop itself is asynchronous and confirmed
// by a later Canceled event.
func (m *Manager) StopTask(id string) (bool, error) {
	m.mu.RLock()
	task, err := m.loadTask(id)
	m.mu.RUnlock()
	if err != nil {
		return false, err
	}
	if task.IsFinished() {
		return false, nil
	}

	data, err := events.Encode(events.Cancel{Task: id, Requeue: false})
	if err != nil {
		return false, err
	}
	if err := m.bus.Publish(EventTopic, data); err != nil {
		return false, errors.Wrap(err, "publishing cancel request", errors.WithTaskID(id))
	}
	return true, nil
}

// StopAllTasks requests cancellation of every non-finished task owned by
// owner, or of all non-finished tasks when owner is empty. It returns a
// task-id to publish-outcome mapping.
func (m *Manager) StopAllTasks(owner string) (map[string]bool, error) {
	tasks, err := m.GetTasks(owner, "")
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool)
	for _, task := range tasks {
		if task.IsFinished() {
			continue
		}
		ok, err := m.StopTask(task.ID)
		if err != nil {
			ok = false
		}
		out[task.ID] = ok
	}
	return out, nil
}

// ClearTask removes a finished record. Clearing a record that is still
// in flight is rejected.
func (m *Manager) ClearTask(id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.loadTask(id)
	if err != nil {
		return nil, err
	}
	if !task.IsFinished() {
		return nil, errors.NotPermitted("task is not finished", errors.WithTaskID(id))
	}
	if err := m.store.Delete(id); err != nil {
		return nil, errors.Wrap(err, "removing task", errors.WithTaskID(id))
	}
	return task, nil
}

// ClearDoneTasks removes every finished record and returns them.
func (m *Manager) ClearDoneTasks() ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.store.Keys("*")
	if err != nil {
		return nil, errors.Wrap(err, "listing tasks")
	}

	var cleared []*Task
	for _, key := range keys {
		task, err := m.loadTask(key)
		if err != nil {
			continue
		}
		if !task.IsFinished() {
			continue
		}
		if err := m.store.Delete(key); err != nil {
			continue
		}
		cleared = append(cleared, task)
	}
	return cleared, nil
}

// WaitTasksToBeDone blocks until every known task is finished or the
// timeout elapses, and returns the tasks finished by then. A timeout is
// not a failure of the underlying tasks.
func (m *Manager) WaitTasksToBeDone(timeout time.Duration) []*Task {
	deadline := time.Now().Add(timeout)
	for {
		tasks, err := m.GetTasks("", "")
		if err == nil {
			pending := 0
			for _, task := range tasks {
				if !task.IsFinished() {
					pending++
				}
			}
			if pending == 0 || !time.Now().Before(deadline) {
				var finished []*Task
				for _, task := range tasks {
					if task.IsFinished() {
						finished = append(finished, task)
					}
				}
				return finished
			}
		} else if !time.Now().Before(deadline) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// ShutdownAndAwaitTermination pushes the poison sentinel so exactly one
// blocked worker wakes up and exits, then waits for in-flight tasks to
// finish. It reports whether everything finished within the timeout.
func (m *Manager) ShutdownAndAwaitTermination(ctx context.Context, timeout time.Duration) (bool, error) {
	data, err := EncodeTask(Poison())
	if err != nil {
		return false, err
	}
	if err := m.queue.Offer(ctx, data); err != nil {
		return false, errors.Wrap(err, "enqueuing shutdown sentinel")
	}

	finished := m.WaitTasksToBeDone(timeout)
	tasks, err := m.GetTasks("", "")
	if err != nil {
		return false, err
	}
	return len(finished) == len(tasks), nil
}

// Close unsubscribes from the event topic and stops the listener. The
// store, queue and bus are owned by the caller and stay open; other
// managers in the process group may still use them.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	err := m.eventCh.Close()
	m.wg.Wait()
	return err
}

// listen applies incoming events to the registry until the consumer
// channel closes.
func (m *Manager) listen() {
	defer m.wg.Done()

	for msg := range m.eventCh.Messages() {
		event, err := events.Decode(msg.Data)
		if err != nil {
			m.log.Error("dropping undecodable event", map[string]interface{}{"error": err.Error()})
			_ = m.eventCh.DeadLetter(msg)
			continue
		}
		if err := m.applyEvent(event); err != nil {
			m.log.Error("applying event", map[string]interface{}{
				"kind":    string(event.Kind()),
				"task_id": event.TaskID(),
				"error":   err.Error(),
			})
		}
		if m.countdown != nil {
			m.countdown.CountDown()
		}
	}
}

// applyEvent runs the registry's event application rules. Application is
// idempotent; events for missing or already terminal records are no-ops.
func (m *Manager) applyEvent(event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.loadTask(event.TaskID())
	if err != nil {
		if errors.Is(err, errors.ErrCodeUnknownTask) {
			return nil
		}
		return err
	}

	switch ev := event.(type) {
	case events.Progress:
		if task.IsFinished() {
			return nil
		}
		task.State = StateRunning
		task.Progress = ev.Rate
		m.log.TaskProgress(task.ID, ev.Rate)
		return m.saveTask(task)

	case events.Result:
		if task.IsFinished() {
			return nil
		}
		now := time.Now()
		task.CompletedAt = &now
		if failure, ok := ev.Failure(); ok {
			task.State = StateError
			task.Error = failure
		} else {
			task.State = StateDone
			task.Result = ev.Value
			task.Progress = 1
		}
		m.log.TaskDone(task.ID, task.State == StateError)
		return m.saveTask(task)

	case events.Canceled:
		if task.IsFinished() {
			return nil
		}
		m.log.TaskCanceled(task.ID, ev.Requeue)
		if ev.Requeue && task.RetriesLeft > 0 {
			task.State = StateQueued
			task.Progress = 0
			task.Result = nil
			task.Error = nil
			task.RetriesLeft--
			if err := m.saveTask(task); err != nil {
				return err
			}
			data, err := EncodeTask(task)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), m.requeueWait)
			defer cancel()
			if err := m.queue.Offer(ctx, data); err == nil {
				return nil
			}
			// The queue refused the record. A QUEUED record with no
			// queue entry would never be dequeued again, so finish it
			// as cancelled instead.
			m.log.Warn("requeue rejected, cancelling task",
				map[string]interface{}{"task_id": task.ID})
		}
		now := time.Now()
		task.State = StateCancelled
		task.CompletedAt = &now
		return m.saveTask(task)

	case events.Cancel:
		// A record no worker claimed yet has nobody to acknowledge the
		// request, so the registry cancels it directly. Workers observe
		// the same event for running tasks and answer with Canceled.
		if task.State != StateCreated && task.State != StateQueued {
			return nil
		}
		if ev.Requeue {
			// The record is still on the queue; cancelling with requeue
			// would just put it back where it is.
			return nil
		}
		m.log.TaskCanceled(task.ID, ev.Requeue)
		now := time.Now()
		task.State = StateCancelled
		task.CompletedAt = &now
		return m.saveTask(task)
	}
	return nil
}

func (m *Manager) loadTask(id string) (*Task, error) {
	data, err := m.store.Get(id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errors.UnknownTask(id)
		}
		return nil, errors.Wrap(err, "loading task", errors.WithTaskID(id))
	}
	return DecodeTask(data)
}

func (m *Manager) saveTask(task *Task) error {
	data, err := EncodeTask(task)
	if err != nil {
		return err
	}
	if err := m.store.Put(task.ID, data); err != nil {
		return errors.Wrap(err, "persisting task", errors.WithTaskID(task.ID))
	}
	return nil
}
