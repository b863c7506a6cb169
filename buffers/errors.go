package buffers

import "errors"

var (
	ErrNotAcquired = errors.New("buffers: scene buffers have not been acquired")
	ErrNoBuffer    = errors.New("buffers: engine returned no buffer")
)
