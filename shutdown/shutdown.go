package shutdown

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/irtaza129/datashare/logging"
)

// Common errors.
var (
	ErrAlreadyShutdown = stderrors.New("shutdown already initiated")
	ErrTimeout         = stderrors.New("shutdown timeout exceeded")
	ErrHandlerFailed   = stderrors.New("one or more handlers failed")
)

// Handler is implemented by components that need graceful shutdown. The
// context is cancelled when the shutdown timeout is reached; handlers
// should stop accepting work, finish what they can and release their
// resources.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// Func adapts a function to Handler.
type Func func(ctx context.Context) error

func (f Func) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// Phases used by the manager and worker processes. Lower phases run
// first: stop producing work, then drain workers, then close the
// transport and storage.
const (
	PhaseStopIntake = 10
	PhaseDrain      = 50
	PhaseTransport  = 100
)

// Config configures a Coordinator.
type Config struct {
	// DefaultTimeout bounds ShutdownWithTimeout when no timeout is
	// given.
	// Default: 30 seconds
	DefaultTimeout time.Duration

	// DefaultPhase is assigned to handlers registered without a phase.
	// Default: PhaseTransport
	DefaultPhase int

	// ContinueOnError keeps running later handlers after one fails.
	// Default: true
	ContinueOnError bool

	// Log receives per-handler completion entries. Optional.
	Log *logging.Logger
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:  30 * time.Second,
		DefaultPhase:    PhaseTransport,
		ContinueOnError: true,
	}
}

// registration holds a registered handler with its metadata.
type registration struct {
	name    string
	handler Handler
	phase   int
}
