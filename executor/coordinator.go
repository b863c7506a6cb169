package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Kind selects one of the two pools managed by a Coordinator.
type Kind uint8

const (
	// Pool running render session jobs.
	Jobs Kind = iota

	// Pool running the periodic engine status task.
	Polls
)

func (k Kind) String() string {
	if k == Jobs {
		return "jobs"
	}
	return "polls"
}

// Default bound on every blocking wait performed by the coordinator.
const DefaultAwaitTimeout = 24 * time.Hour

// Options configures a Coordinator.
type Options struct {
	JobWorkers   int
	PollWorkers  int
	AwaitTimeout time.Duration
}

type lane struct {
	kind Kind
	size int

	// Guards pool replacement and the current task.
	mu      sync.Mutex
	pool    *Pool
	current *Future
}

// Coordinator owns a job pool and a poll pool and remembers the most
// recently submitted task of each.
type Coordinator struct {
	awaitTimeout time.Duration
	lanes        [2]*lane
}

// NewCoordinator creates both pools.
func NewCoordinator(opts Options) *Coordinator {
	if opts.AwaitTimeout <= 0 {
		opts.AwaitTimeout = DefaultAwaitTimeout
	}
	c := &Coordinator{awaitTimeout: opts.AwaitTimeout}
	for kind, size := range []int{opts.JobWorkers, opts.PollWorkers} {
		l := &lane{kind: Kind(kind), size: size}
		l.pool = NewPool(l.kind.String(), size)
		c.lanes[kind] = l
	}
	return c
}

// Submit queues task on the selected pool and records it as that pool's
// current task.
func (c *Coordinator) Submit(kind Kind, task Task) *Future {
	l := c.lanes[kind]
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = l.pool.Submit(task)
	return l.current
}

// Current returns the last task submitted to the selected pool.
func (c *Coordinator) Current(kind Kind) *Future {
	l := c.lanes[kind]
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// CancelCurrent requests cancellation of the selected pool's current task
// without waiting for it.
func (c *Coordinator) CancelCurrent(kind Kind) bool {
	f := c.Current(kind)
	if f == nil {
		return false
	}
	return f.Cancel()
}

// AwaitCurrent blocks until the selected pool's current task settles.
// Task failures, cancellation and timeouts are logged and swallowed; the
// only error returned is ErrInterrupted when ctx is cancelled, so that
// callers further up still observe the interruption.
func (c *Coordinator) AwaitCurrent(ctx context.Context, kind Kind) error {
	f := c.Current(kind)
	if f == nil {
		return nil
	}

	err := f.Wait(ctx, c.awaitTimeout)
	switch {
	case err == nil:
	case errors.Is(err, ErrInterrupted):
		logger.Warningf("[%s] interrupted while waiting for task %d", kind, f.ID())
		return err
	case errors.Is(err, ErrCancelled):
		logger.Infof("[%s] task %d was cancelled", kind, f.ID())
	case errors.Is(err, ErrTimeout):
		logger.Errorf("[%s] task %d did not settle within %s", kind, f.ID(), c.awaitTimeout)
	default:
		logger.Warningf("[%s] task %d failed: %v", kind, f.ID(), err)
	}
	return nil
}

// DrainAndRecreate shuts the selected pool down, waits for every task it
// accepted to settle and replaces it with a fresh pool of the same size.
// Tasks submitted concurrently block until the new pool is in place. If ctx
// is cancelled the old pool is abandoned, a new one is still installed and
// ErrInterrupted is returned.
func (c *Coordinator) DrainAndRecreate(ctx context.Context, kind Kind) error {
	l := c.lanes[kind]
	l.mu.Lock()
	defer l.mu.Unlock()

	err := c.drain(ctx, l)
	l.pool = NewPool(kind.String(), l.size)
	return err
}

// Close drains both pools without replacing them. Later submissions fail
// with ErrPoolShutdown.
func (c *Coordinator) Close(ctx context.Context) error {
	var errs []error
	for _, l := range c.lanes {
		l.mu.Lock()
		if err := c.drain(ctx, l); err != nil {
			errs = append(errs, err)
		}
		l.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (c *Coordinator) drain(ctx context.Context, l *lane) error {
	l.pool.Shutdown()
	for {
		terminated, err := l.pool.AwaitTermination(ctx, c.awaitTimeout)
		if err != nil {
			logger.Warningf("[%s] interrupted while draining pool", l.kind)
			return fmt.Errorf("%w: draining %s pool", err, l.kind)
		}
		if terminated {
			return nil
		}
		logger.Warningf("[%s] pool still draining after %s", l.kind, c.awaitTimeout)
	}
}
