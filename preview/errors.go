package preview

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedBuffer = errors.New("preview: scene buffer length is not a multiple of the vertex stride")
	ErrBufferMismatch  = errors.New("preview: vertex and color buffers describe a different number of vertices")
	ErrInvalidSize     = errors.New("preview: output dimensions must be positive")
)

// Stage identifies the part of program construction that failed.
type Stage string

const (
	VertexStage   Stage = "vertex shader"
	FragmentStage Stage = "fragment shader"
	LinkStage     Stage = "link"
)

// ShaderError is returned when the rasterization program cannot be built.
// It indicates a broken build or graphics environment rather than a
// transient condition.
type ShaderError struct {
	Stage  Stage
	Log    string
	Source string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("preview: %s failed: %s", e.Stage, e.Log)
}
