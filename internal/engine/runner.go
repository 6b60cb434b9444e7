package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ConserveLee/immortals-bot/internal/constants"
)

// RunnerStatus represents the current state of the worker
type RunnerStatus int

const (
	StatusStopped RunnerStatus = iota
	StatusRunning
)

// LoopFunc is a control loop. It must return once ctx is cancelled.
type LoopFunc func(ctx context.Context) error

// Runner owns a single background worker goroutine.
// Starting while a loop is active is a no-op.
type Runner struct {
	mu     sync.Mutex
	status RunnerStatus
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	// OnExit is called from the worker goroutine after the loop returns.
	OnExit func(name string, err error)
}

// NewRunner creates an idle runner
func NewRunner() *Runner {
	return &Runner{status: StatusStopped}
}

// Start launches loop on a new goroutine. Returns false if a loop is already running.
func (r *Runner) Start(name string, loop LoopFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusRunning {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.status = StatusRunning
	r.name = name
	r.cancel = cancel
	r.err = nil
	done := make(chan struct{})
	r.done = done

	go func() {
		defer close(done)
		err := loop(ctx)

		r.mu.Lock()
		r.status = StatusStopped
		r.err = err
		onExit := r.OnExit
		r.mu.Unlock()
		cancel()

		if onExit != nil {
			onExit(name, err)
		}
	}()

	return true
}

// Stop cancels the running loop and waits up to StopWaitTimeout for it to return.
// A loop stuck in a device call is abandoned; it will still observe the cancellation.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	if r.status == StatusStopped {
		r.mu.Unlock()
		return true
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()

	select {
	case <-done:
		return true
	case <-time.After(constants.StopWaitTimeout):
		return false
	}
}

// Running reports whether a loop is active
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == StatusRunning
}

// Name returns the name of the current (or last) loop
func (r *Runner) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// Done returns a channel closed when the current loop exits. Nil if never started.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the error the last loop returned
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Sleep waits for d or until ctx is cancelled. It returns true if interrupted.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() != nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}

// Seconds converts a float seconds setting into a Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
