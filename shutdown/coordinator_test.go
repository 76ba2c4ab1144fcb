package shutdown

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestHandlersRunInPhaseOrder(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	c.RegisterFuncWithPhase("transport", record("transport"), PhaseTransport)
	c.RegisterFuncWithPhase("intake", record("intake"), PhaseStopIntake)
	c.RegisterFuncWithPhase("drain", record("drain"), PhaseDrain)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []string{"intake", "drain", "transport"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestSamePhaseRunsConcurrently(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	var running atomic.Int32
	var peak atomic.Int32
	body := func(context.Context) error {
		n := running.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(50 * time.Millisecond)
		running.Add(-1)
		return nil
	}

	c.RegisterFuncWithPhase("a", body, PhaseDrain)
	c.RegisterFuncWithPhase("b", body, PhaseDrain)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if peak.Load() < 2 {
		t.Errorf("expected concurrent execution, peak %d", peak.Load())
	}
}

func TestContinueOnError(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	var ran atomic.Bool
	c.RegisterFuncWithPhase("failing", func(context.Context) error {
		return stderrors.New("boom")
	}, PhaseStopIntake)
	c.RegisterFuncWithPhase("later", func(context.Context) error {
		ran.Store(true)
		return nil
	}, PhaseTransport)

	err := c.Shutdown(context.Background())
	if err != ErrHandlerFailed {
		t.Errorf("expected ErrHandlerFailed, got %v", err)
	}
	if !ran.Load() {
		t.Error("later handler should still run")
	}
}

func TestStopOnError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContinueOnError = false
	c := NewCoordinator(cfg)

	var ran atomic.Bool
	c.RegisterFuncWithPhase("failing", func(context.Context) error {
		return stderrors.New("boom")
	}, PhaseStopIntake)
	c.RegisterFuncWithPhase("later", func(context.Context) error {
		ran.Store(true)
		return nil
	}, PhaseTransport)

	if err := c.Shutdown(context.Background()); err != ErrHandlerFailed {
		t.Errorf("expected ErrHandlerFailed, got %v", err)
	}
	if ran.Load() {
		t.Error("later handler should not run")
	}
}

func TestRepeatedShutdown(t *testing.T) {
	c := NewCoordinator(DefaultConfig())
	c.RegisterFunc("noop", func(context.Context) error { return nil })

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	// After completion the original outcome is returned.
	if err := c.Shutdown(context.Background()); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}

func TestTimeoutSkipsLaterPhases(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	var ran atomic.Bool
	c.RegisterFuncWithPhase("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, PhaseStopIntake)
	c.RegisterFuncWithPhase("later", func(context.Context) error {
		ran.Store(true)
		return nil
	}, PhaseTransport)

	if err := c.ShutdownWithTimeout(50 * time.Millisecond); err != ErrTimeout {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if ran.Load() {
		t.Error("later phase should not run after timeout")
	}
}

func TestTriggerInitiatesShutdown(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	var ran atomic.Bool
	c.RegisterFunc("noop", func(context.Context) error {
		ran.Store(true)
		return nil
	})

	c.HandleSignals()
	c.Trigger()

	select {
	case <-c.Done():
		if !ran.Load() {
			t.Error("handler did not run")
		}
		if err := c.Err(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown never completed")
	}
}
