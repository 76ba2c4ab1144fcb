package worker

import (
	"context"
	"sync"

	"github.com/irtaza129/datashare/errors"
	"github.com/irtaza129/datashare/tasks"
)

// Work is one runnable unit of work. It reports progress in [0, 1]
// through the callback and returns the task's result or an error. It
// must return promptly when the context is canceled.
type Work func(ctx context.Context, progress func(float64)) (interface{}, error)

// Builder constructs the work for one task record.
type Builder func(task *tasks.Task) (Work, error)

// Factory maps task names to builders. Workers dispatch dequeued records
// through it.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{builders: make(map[string]Builder)}
}

// Register binds a task name to a builder. Re-registering replaces the
// previous builder.
func (f *Factory) Register(name string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[name] = builder
}

// Build returns the work for a record, or NOT_FOUND when no builder is
// registered for its name.
func (f *Factory) Build(task *tasks.Task) (Work, error) {
	f.mu.RLock()
	builder, ok := f.builders[task.Name]
	f.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("no task body registered for "+task.Name,
			errors.WithTaskID(task.ID))
	}
	return builder(task)
}

// Names returns the registered task names.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.builders))
	for name := range f.builders {
		names = append(names, name)
	}
	return names
}
