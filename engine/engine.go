package engine

import (
	"github.com/achilleasa/rtsession/frame"
)

// State is the engine lifecycle state as reported by Engine.State.
type State int32

const (
	Idle State = iota
	Busy
	Finished
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Busy:
		return "BUSY"
	case Finished:
		return "FINISHED"
	case Stopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// BufferKind identifies one of the scene buffers an engine can export.
type BufferKind uint8

const (
	Vertices BufferKind = iota
	Colors
	Camera
)

func (k BufferKind) String() string {
	switch k {
	case Vertices:
		return "vertices"
	case Colors:
		return "colors"
	case Camera:
		return "camera"
	}
	return "unknown"
}

// Buffer is a block of scene data exported by an engine. Data stays valid
// until the buffer is handed back through ReleaseBuffer.
//
// Vertex and color buffers hold 4 native-endian float32 values per vertex.
// The camera buffer holds 20 float32 values (see package camera).
type Buffer struct {
	Kind BufferKind
	Data []byte
}

// The Engine interface is implemented by ray tracing backends.
type Engine interface {
	// Signal the start of a render session. The engine reports Busy
	// until the session finishes or is stopped.
	Start()

	// Ask the engine to abandon the current render as soon as possible.
	Stop()

	// Load the scene described by cfg and return its primitive count.
	// Fails with ErrOutOfMemory if the scene does not fit.
	Initialize(cfg RenderConfig) (int, error)

	// Begin rendering into img using numThreads workers. The call
	// returns once rendering has been dispatched.
	RenderAsync(img *frame.Image, numThreads int) error

	// Wait for any outstanding render work and return the engine to Idle.
	Finish()

	// Get the current lifecycle state.
	State() State

	// Export the geometry of the loaded scene.
	AcquireVerticesBuffer() (*Buffer, error)
	AcquireColorsBuffer() (*Buffer, error)
	AcquireCameraBuffer() (*Buffer, error)

	// Hand back a buffer obtained from one of the Acquire methods.
	ReleaseBuffer(*Buffer)

	// Get the number of lights in the loaded scene.
	LightCount() int
}
