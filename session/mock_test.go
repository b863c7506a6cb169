package session

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/achilleasa/rtsession/camera"
	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/memory"
	"github.com/achilleasa/rtsession/types"
)

type fakeMemory struct {
	availMB uint64
}

func (m fakeMemory) MemoryInfo() (memory.Info, error) {
	return memory.Info{Available: m.availMB * memory.MB, Total: m.availMB * memory.MB}, nil
}

func plentyOfMemory() *memory.Guard { return memory.NewGuard(fakeMemory{availMB: 4096}) }

// mockEngine follows the engine state machine. Renders complete
// immediately unless hold was set when the session started, in which case
// the engine stays busy until stopped.
type mockEngine struct {
	mu sync.Mutex

	state engine.State
	hold  bool

	// Value of hold captured by the last Start.
	holding bool

	numPrimitives int
	initErr       error
	initPanic     bool

	starts   int
	stops    int
	renders  int
	finishes int

	// Start calls observed while another session was busy.
	overlaps int

	live map[*engine.Buffer]struct{}
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		numPrimitives: 1,
		live:          make(map[*engine.Buffer]struct{}),
	}
}

func (e *mockEngine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == engine.Busy {
		e.overlaps++
	}
	e.starts++
	e.holding = e.hold
	e.state = engine.Busy
}

func (e *mockEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
	if e.state == engine.Busy {
		e.state = engine.Stopped
	}
}

func (e *mockEngine) Initialize(engine.RenderConfig) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initPanic {
		panic("corrupted scene")
	}
	return e.numPrimitives, e.initErr
}

func (e *mockEngine) RenderAsync(*frame.Image, int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renders++
	if !e.holding && e.state == engine.Busy {
		e.state = engine.Finished
	}
	return nil
}

func (e *mockEngine) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finishes++
	e.state = engine.Idle
}

func (e *mockEngine) State() engine.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *mockEngine) LightCount() int { return 2 }

// A single triangle in front of a camera at engine z=-3, exported with the
// z axis flipped.
func (e *mockEngine) AcquireVerticesBuffer() (*engine.Buffer, error) {
	return e.export(engine.Vertices, floatBytes(-1, -1, 0, 1, 1, -1, 0, 1, 0, 1, 0, 1))
}

func (e *mockEngine) AcquireColorsBuffer() (*engine.Buffer, error) {
	return e.export(engine.Colors, floatBytes(1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1))
}

func (e *mockEngine) AcquireCameraBuffer() (*engine.Buffer, error) {
	cam := camera.Parameters{
		Eye:       types.XYZ(0, 0, -3),
		Direction: types.XYZ(0, 0, 1),
		Up:        types.XYZ(0, 1, 0),
		FovX:      60,
		FovY:      60,
	}
	return e.export(engine.Camera, cam.Encode())
}

func (e *mockEngine) ReleaseBuffer(buf *engine.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.live, buf)
}

func (e *mockEngine) export(kind engine.BufferKind, data []byte) (*engine.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf := &engine.Buffer{Kind: kind, Data: data}
	e.live[buf] = struct{}{}
	return buf, nil
}

func (e *mockEngine) counters() (starts, stops, renders, finishes, overlaps int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts, e.stops, e.renders, e.finishes, e.overlaps
}

func (e *mockEngine) liveBuffers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

func floatBytes(values ...float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.NativeEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

type recordingView struct {
	mu sync.Mutex

	labels    []Label
	warnings  []string
	statuses  []string
	presented []*frame.Image
	refreshes int

	// Invoked synchronously from SetButtonLabel.
	onLabel func(Label)
}

func (v *recordingView) SetButtonLabel(l Label) {
	v.mu.Lock()
	v.labels = append(v.labels, l)
	hook := v.onLabel
	v.mu.Unlock()

	if hook != nil {
		hook(l)
	}
}

func (v *recordingView) ShowWarning(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.warnings = append(v.warnings, msg)
}

func (v *recordingView) SetStatus(status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, status)
}

func (v *recordingView) Present(img *frame.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.presented = append(v.presented, img)
}

func (v *recordingView) RequestRender() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.refreshes++
}

func (v *recordingView) labelHistory() []Label {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Label(nil), v.labels...)
}

func (v *recordingView) warningCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.warnings)
}

func (v *recordingView) lastPresented() *frame.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.presented) == 0 {
		return nil
	}
	return v.presented[len(v.presented)-1]
}

func (v *recordingView) statusCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.statuses)
}

// A log sink that can be written from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Poll cond until it holds or a generous deadline expires.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}
