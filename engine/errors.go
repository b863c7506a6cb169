package engine

import "errors"

var (
	ErrOutOfMemory   = errors.New("engine: out of memory")
	ErrInvalidConfig = errors.New("engine: invalid render configuration")
	ErrNotStarted    = errors.New("engine: render requested without a start signal")
	ErrNoScene       = errors.New("engine: no scene loaded")
)
