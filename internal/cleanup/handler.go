// Package cleanup spawns tool processes in their own process group and
// tears a CLI run down on interrupt
package cleanup

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dbdump/internal/logger"

	"github.com/hashicorp/go-multierror"
)

// Func releases one resource. The context carries the shutdown deadline.
type Func func(ctx context.Context) error

type entry struct {
	name string
	fn   Func
}

// Handler owns the context of one CLI run. The first SIGINT or SIGTERM
// runs the interrupt hooks and cancels the context; a second one exits.
// Registered cleanups run in reverse order on Shutdown.
type Handler struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logger.Logger

	mu         sync.Mutex
	entries    []entry
	interrupts []func()

	timeout time.Duration
	signals chan os.Signal
	once    sync.Once
	err     error
}

// NewHandler derives the run context from parent
func NewHandler(parent context.Context, log logger.Logger) *Handler {
	ctx, cancel := context.WithCancel(parent)
	return &Handler{
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		timeout: 30 * time.Second,
	}
}

// Context is cancelled on the first interrupt or on Shutdown
func (h *Handler) Context() context.Context {
	return h.ctx
}

// SetShutdownTimeout bounds the time all cleanups may take together
func (h *Handler) SetShutdownTimeout(d time.Duration) {
	h.timeout = d
}

// Register adds a named cleanup
func (h *Handler) Register(name string, fn Func) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry{name: name, fn: fn})
}

// OnInterrupt adds a hook run before the context is cancelled, such as
// asking a builder to stop its tool
func (h *Handler) OnInterrupt(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.interrupts = append(h.interrupts, fn)
}

// Interrupt runs the interrupt hooks and cancels the context
func (h *Handler) Interrupt() {
	h.mu.Lock()
	hooks := append([]func(){}, h.interrupts...)
	h.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	h.cancel()
}

// Listen installs the signal handler. It stops listening on Shutdown.
func (h *Handler) Listen() {
	h.signals = make(chan os.Signal, 2)
	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig, ok := <-h.signals
		if !ok {
			return
		}
		h.log.Warn("Received signal, cancelling", "signal", sig.String())
		h.Interrupt()

		sig, ok = <-h.signals
		if !ok {
			return
		}
		h.log.Warn("Received second signal, forcing exit", "signal", sig.String())
		os.Exit(130)
	}()
}

// Shutdown cancels the context and runs the cleanups once, newest first.
// Failures are logged and returned together.
func (h *Handler) Shutdown() error {
	h.once.Do(func() {
		if h.signals != nil {
			signal.Stop(h.signals)
			close(h.signals)
		}
		h.cancel()

		h.mu.Lock()
		entries := append([]entry(nil), h.entries...)
		h.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		var result *multierror.Error
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			h.log.Debug("Running cleanup", "name", e.name)
			if err := e.fn(ctx); err != nil {
				h.log.Warn("Cleanup failed", "name", e.name, "error", err)
				result = multierror.Append(result, fmt.Errorf("%s: %w", e.name, err))
			}
		}
		h.err = result.ErrorOrNil()
	})
	return h.err
}

// Closer adapts a Close method
func Closer(closer func() error) Func {
	return func(context.Context) error {
		return closer()
	}
}

// Waiter adapts a blocking wait that honours the shutdown deadline
func Waiter(wait func()) Func {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
