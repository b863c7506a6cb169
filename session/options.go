package session

import (
	"time"

	"github.com/achilleasa/rtsession/executor"
)

type Options struct {
	// Interval between engine status polls.
	PollInterval time.Duration

	// Upper bound for every blocking wait on a pool. It only guards
	// against lockups; waits are expected to finish well before it.
	AwaitTimeout time.Duration

	// Number of workers in the job and poll pools.
	JobWorkers  int
	PollWorkers int
}

// DefaultOptions returns the options used by interactive sessions.
func DefaultOptions() Options {
	return Options{
		PollInterval: 250 * time.Millisecond,
		AwaitTimeout: executor.DefaultAwaitTimeout,
		JobWorkers:   1,
		PollWorkers:  1,
	}
}

// Fill zero values with their defaults.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.AwaitTimeout <= 0 {
		o.AwaitTimeout = def.AwaitTimeout
	}
	if o.JobWorkers <= 0 {
		o.JobWorkers = def.JobWorkers
	}
	if o.PollWorkers <= 0 {
		o.PollWorkers = def.PollWorkers
	}
	return o
}
