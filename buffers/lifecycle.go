package buffers

import (
	"errors"
	"fmt"

	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/log"
	"github.com/achilleasa/rtsession/memory"
)

var logger = log.New("buffers")

// Memory margin checked after acquiring the color and camera buffers.
const defaultMarginMB = 1

// Scene is a read-only view of the acquired scene buffers.
type Scene struct {
	Vertices      []byte
	Colors        []byte
	Camera        []byte
	NumPrimitives int
}

// Lifecycle owns the vertex, color and camera buffers exported by an
// engine. It is not safe for concurrent use; a single worker owns it for
// the duration of a render session.
type Lifecycle struct {
	engine engine.Engine
	guard  *memory.Guard

	numPrimitives int
	slots         [3]slot
}

// New creates a lifecycle manager for buffers exported by eng.
func New(eng engine.Engine, guard *memory.Guard) *Lifecycle {
	l := &Lifecycle{
		engine: eng,
		guard:  guard,
	}
	for i := range l.slots {
		l.slots[i].kind = engine.BufferKind(i)
	}
	return l
}

// AcquireVertices fetches the vertex buffer and verifies that there is
// enough memory left to rasterize numPrimitives triangles.
func (l *Lifecycle) AcquireVertices(numPrimitives int) (*engine.Buffer, error) {
	l.numPrimitives = numPrimitives
	return l.acquire(engine.Vertices, l.engine.AcquireVerticesBuffer, memory.PreviewSceneSizeMB(numPrimitives))
}

// AcquireColors fetches the per-vertex color buffer.
func (l *Lifecycle) AcquireColors() (*engine.Buffer, error) {
	return l.acquire(engine.Colors, l.engine.AcquireColorsBuffer, defaultMarginMB)
}

// AcquireCamera fetches the camera buffer.
func (l *Lifecycle) AcquireCamera() (*engine.Buffer, error) {
	return l.acquire(engine.Camera, l.engine.AcquireCameraBuffer, defaultMarginMB)
}

// AcquireAll runs the full acquisition sequence and returns the resulting
// scene view. On failure no buffer is left acquired.
func (l *Lifecycle) AcquireAll(numPrimitives int) (Scene, error) {
	if _, err := l.AcquireVertices(numPrimitives); err != nil {
		return Scene{}, err
	}
	if _, err := l.AcquireColors(); err != nil {
		return Scene{}, err
	}
	if _, err := l.AcquireCamera(); err != nil {
		return Scene{}, err
	}
	return l.Scene()
}

// Scene returns the acquired buffers or ErrNotAcquired if any of them is
// missing.
func (l *Lifecycle) Scene() (Scene, error) {
	vertices, okV := l.slots[engine.Vertices].get()
	colors, okC := l.slots[engine.Colors].get()
	cam, okCam := l.slots[engine.Camera].get()
	if !okV || !okC || !okCam {
		return Scene{}, ErrNotAcquired
	}
	return Scene{
		Vertices:      vertices.Data,
		Colors:        colors.Data,
		Camera:        cam.Data,
		NumPrimitives: l.numPrimitives,
	}, nil
}

// Acquired reports whether the buffer of the given kind is currently held.
func (l *Lifecycle) Acquired(kind engine.BufferKind) bool {
	_, ok := l.slots[kind].get()
	return ok
}

// ReleaseAll hands every held buffer back to the engine. Calling it with
// nothing acquired is a no-op.
func (l *Lifecycle) ReleaseAll() {
	released := 0
	for i := range l.slots {
		if l.slots[i].release(l.engine) {
			released++
		}
	}
	l.numPrimitives = 0
	if released > 0 {
		logger.Debugf("released %d scene buffers", released)
	}
}

func (l *Lifecycle) acquire(kind engine.BufferKind, fetch func() (*engine.Buffer, error), marginMB int) (*engine.Buffer, error) {
	s := &l.slots[kind]
	s.release(l.engine)

	buf, err := fetch()
	if err != nil {
		l.ReleaseAll()
		if errors.Is(err, engine.ErrOutOfMemory) {
			return nil, fmt.Errorf("%w: acquiring %s buffer: %w", memory.ErrLowMemory, kind, err)
		}
		return nil, fmt.Errorf("buffers: acquiring %s buffer: %w", kind, err)
	}
	if buf == nil {
		l.ReleaseAll()
		return nil, fmt.Errorf("%w: %s", ErrNoBuffer, kind)
	}
	s.set(buf)

	if err = l.guard.Check(marginMB); err != nil {
		logger.Warningf("releasing scene buffers after acquiring %s buffer: %v", kind, err)
		l.ReleaseAll()
		return nil, err
	}

	logger.Debugf("acquired %s buffer (%d bytes)", kind, len(buf.Data))
	return buf, nil
}
