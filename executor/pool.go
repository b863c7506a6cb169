package executor

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/achilleasa/rtsession/log"
)

var logger = log.New("executor")

const (
	// Capacity of the task queue feeding the workers.
	queueSize = 64

	workerIdleTimeout = time.Minute
)

// Pool runs submitted tasks on a fixed set of workers. Once Shutdown is
// called no new tasks are accepted but already submitted ones still run.
type Pool struct {
	name    string
	size    int
	workers worker.DynamicWorkerPool

	mu       sync.Mutex
	shutdown bool
	nextID   int

	// Tracks tasks submitted but not yet settled.
	pending    sync.WaitGroup
	terminated chan struct{}
}

// NewPool creates a pool with size workers. Non-positive sizes are
// treated as 1.
func NewPool(name string, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		name:       name,
		size:       size,
		workers:    worker.NewDynamicWorkerPool(size, queueSize, workerIdleTimeout),
		terminated: make(chan struct{}),
	}
}

// Name returns the pool name used in log messages.
func (p *Pool) Name() string {
	return p.name
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit queues task for execution. Submitting to a pool that has been
// shut down returns an already settled Future failing with
// ErrPoolShutdown.
func (p *Pool) Submit(task Task) *Future {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		logger.Warningf("[%s] rejected task submitted after shutdown", p.name)
		return failedFuture(0, ErrPoolShutdown)
	}
	p.nextID++
	f := newFuture(p.nextID)
	p.pending.Add(1)
	p.mu.Unlock()

	p.workers.SubmitTask(worker.Task{
		ID:      f.id,
		Payload: p.name,
		Do: func() (any, error) {
			defer p.pending.Done()
			f.run(task)
			return nil, f.Err()
		},
	})
	logger.Debugf("[%s] submitted task %d", p.name, f.id)
	return f
}

// Shutdown stops accepting tasks. Workers exit once every submitted task
// has settled. Calling Shutdown more than once is a no-op.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	go func() {
		p.pending.Wait()
		p.workers.Stop()
		close(p.terminated)
		logger.Debugf("[%s] terminated", p.name)
	}()
}

// IsShutdown reports whether Shutdown has been called.
func (p *Pool) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// IsTerminated reports whether the pool has shut down and every task
// has settled.
func (p *Pool) IsTerminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

// AwaitTermination blocks until the pool terminates, timeout elapses or
// ctx is cancelled. It reports whether the pool terminated; an error is
// only returned if ctx was cancelled.
func (p *Pool) AwaitTermination(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.terminated:
		return true, nil
	case <-ctx.Done():
		return false, ErrInterrupted
	case <-timer.C:
		return false, nil
	}
}
