package executor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Task is a unit of work executed by a Pool. Long running tasks should
// check ctx at convenient points; it is cancelled when the task's Future is
// cancelled.
type Task func(ctx context.Context) error

type futureState uint8

const (
	pending futureState = iota
	running
	done
	cancelled
)

// Future tracks the outcome of a submitted task.
type Future struct {
	id     int
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state futureState
	err   error

	// Set if Cancel was called while the task was running.
	cancelRequested bool

	doneCh chan struct{}
}

func newFuture(id int) *Future {
	ctx, cancel := context.WithCancel(context.Background())
	return &Future{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		doneCh: make(chan struct{}),
	}
}

// failedFuture returns an already settled future.
func failedFuture(id int, err error) *Future {
	f := newFuture(id)
	f.settle(done, err)
	return f
}

// ID returns the pool-assigned task id.
func (f *Future) ID() int {
	return f.id
}

// Cancel requests cancellation without blocking. A task that has not
// started yet will never run. A running task has its context cancelled and
// settles once it returns. Cancel returns false if the task had already
// settled.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case pending:
		f.settleLocked(cancelled, ErrCancelled)
		return true
	case running:
		f.cancelRequested = true
		f.cancel()
		return true
	}
	return false
}

// IsCancelled reports whether Cancel was called before the task settled.
func (f *Future) IsCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == cancelled || f.cancelRequested
}

// Done returns a channel that is closed once the task settles.
func (f *Future) Done() <-chan struct{} {
	return f.doneCh
}

// Err returns the task outcome once settled or nil while still pending.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the task settles, ctx is cancelled or timeout elapses
// (a non-positive timeout waits forever). It returns the task error, or
// ErrInterrupted / ErrTimeout if the wait itself ended early.
func (f *Future) Wait(ctx context.Context, timeout time.Duration) error {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-f.doneCh:
		return f.Err()
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	case <-timer:
		return ErrTimeout
	}
}

// run executes task unless the future was cancelled before it started.
func (f *Future) run(task Task) {
	f.mu.Lock()
	if f.state != pending {
		f.mu.Unlock()
		return
	}
	f.state = running
	f.mu.Unlock()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			}
		}()
		err = task(f.ctx)
	}()
	f.settle(done, err)
}

func (f *Future) settle(state futureState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settleLocked(state, err)
}

func (f *Future) settleLocked(state futureState, err error) {
	if f.state == done || f.state == cancelled {
		return
	}
	f.state = state
	f.err = err
	f.cancel()
	close(f.doneCh)
}
