package executor

import "errors"

var (
	ErrPoolShutdown = errors.New("executor: pool has been shut down")
	ErrCancelled    = errors.New("executor: task was cancelled")
	ErrTimeout      = errors.New("executor: timed out waiting for task")
	ErrInterrupted  = errors.New("executor: interrupted while waiting")
	ErrTaskPanicked = errors.New("executor: task panicked")
)
