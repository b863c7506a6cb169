package memory

import "errors"

var (
	ErrInvalidArgument = errors.New("memory: required megabytes must be positive")
	ErrLowMemory       = errors.New("memory: not enough free memory")
)
