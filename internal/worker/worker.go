// Package worker runs cyclic engine tasks on a fixed schedule and keeps
// them alive across failing cycles.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ErrAlreadyStarted is returned by Start on a running worker.
var ErrAlreadyStarted = errors.New("worker already started")

// Cycle is one unit of work. The context is cancelled when the worker stops.
type Cycle func(ctx context.Context) error

// PanicError wraps a panic recovered from a cycle.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("cycle panicked: %v", e.Value)
}

// Worker executes a Cycle every interval until stopped.
type Worker struct {
	name     string
	interval time.Duration
	cycle    Cycle
	logger   hclog.Logger
	onError  func(error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}

	cycles   atomic.Int64
	failures atomic.Int64
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger used to report failing cycles.
func WithLogger(logger hclog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithErrorHandler registers a hook called with every cycle failure.
func WithErrorHandler(fn func(error)) Option {
	return func(w *Worker) { w.onError = fn }
}

// New creates a stopped worker.
func New(name string, interval time.Duration, cycle Cycle, opts ...Option) *Worker {
	done := make(chan struct{})
	close(done)
	w := &Worker{
		name:     name,
		interval: max(interval, time.Millisecond),
		cycle:    cycle,
		logger:   hclog.NewNullLogger(),
		done:     done,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(name)
	return w
}

// Name returns the worker name.
func (w *Worker) Name() string { return w.name }

// Start launches the scheduling goroutine.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.loop(ctx, w.done)

	w.logger.Debug("worker started", "interval", w.interval)
	return nil
}

// Stop cancels the running cycle and waits for the loop to exit.
// It must not be called from inside a cycle.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Debug("worker stopped", "cycles", w.cycles.Load(), "failures", w.failures.Load())
}

// IsRunning returns true between Start and Stop.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Done returns a channel closed once the loop has exited.
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Wake runs the next cycle immediately instead of waiting for the tick.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Cycles returns the number of executed cycles.
func (w *Worker) Cycles() int64 { return w.cycles.Load() }

// Failures returns the number of cycles that returned an error or panicked.
func (w *Worker) Failures() int64 { return w.failures.Load() }

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// RunCycle executes a single cycle, recovering panics and reporting
// failures. It returns the cycle error, if any.
func (w *Worker) RunCycle(ctx context.Context) error {
	err := w.safeCycle(ctx)
	w.cycles.Add(1)

	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	w.failures.Add(1)
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		w.logger.Error("cycle panicked", "panic", panicErr.Value, "stack", string(panicErr.Stack))
	} else {
		w.logger.Error("cycle failed", "error", err)
	}
	if w.onError != nil {
		w.onError(err)
	}
	return err
}

func (w *Worker) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return w.cycle(ctx)
}
