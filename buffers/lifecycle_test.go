package buffers

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/log"
	"github.com/achilleasa/rtsession/memory"
)

func TestMain(m *testing.M) {
	log.SetSink(io.Discard)
	os.Exit(m.Run())
}

func TestAcquireAll(t *testing.T) {
	eng := newMockEngine()
	l := New(eng, memory.NewGuard(&scriptedMemory{availMB: []uint64{512}}))

	sc, err := l.AcquireAll(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Vertices) != 96 || len(sc.Colors) != 96 || len(sc.Camera) != 80 {
		t.Fatalf("unexpected buffer sizes %d/%d/%d", len(sc.Vertices), len(sc.Colors), len(sc.Camera))
	}
	if sc.NumPrimitives != 2 {
		t.Fatalf("expected 2 primitives; got %d", sc.NumPrimitives)
	}
	if eng.outstanding() != 3 {
		t.Fatalf("expected 3 outstanding buffers; got %d", eng.outstanding())
	}

	l.ReleaseAll()
	if eng.outstanding() != 0 {
		t.Fatalf("expected all buffers to be released; got %d outstanding", eng.outstanding())
	}
	if _, err = l.Scene(); err != ErrNotAcquired {
		t.Fatalf("expected ErrNotAcquired after release; got %v", err)
	}
}

func TestReleaseAllIsIdempotent(t *testing.T) {
	eng := newMockEngine()
	l := New(eng, memory.NewGuard(&scriptedMemory{availMB: []uint64{512}}))

	l.ReleaseAll()
	if _, err := l.AcquireColors(); err != nil {
		t.Fatal(err)
	}
	l.ReleaseAll()
	l.ReleaseAll()

	if eng.doubleFrees != 0 {
		t.Fatalf("expected no double frees; got %d", eng.doubleFrees)
	}
	if eng.releases != 1 {
		t.Fatalf("expected exactly 1 release; got %d", eng.releases)
	}
}

func TestReacquireReleasesPreviousHandle(t *testing.T) {
	eng := newMockEngine()
	l := New(eng, memory.NewGuard(&scriptedMemory{availMB: []uint64{512}}))

	for i := 0; i < 3; i++ {
		if _, err := l.AcquireCamera(); err != nil {
			t.Fatal(err)
		}
	}
	if eng.outstanding() != 1 {
		t.Fatalf("expected a single outstanding camera buffer; got %d", eng.outstanding())
	}
}

func TestLowMemoryReleasesEverything(t *testing.T) {
	type spec struct {
		// Available memory reported by successive probes.
		availMB []uint64
		// Number of acquisitions expected to reach the engine.
		expAcquires int
	}
	specs := []spec{
		// Low right after the vertex buffer.
		{[]uint64{2}, 1},
		// Low after the color buffer.
		{[]uint64{512, 2}, 2},
		// Low after the camera buffer.
		{[]uint64{512, 512, 2}, 3},
	}

	for index, s := range specs {
		eng := newMockEngine()
		l := New(eng, memory.NewGuard(&scriptedMemory{availMB: s.availMB}))

		_, err := l.AcquireAll(10)
		if !errors.Is(err, memory.ErrLowMemory) {
			t.Fatalf("[spec %d] expected ErrLowMemory; got %v", index, err)
		}
		if eng.acquires != s.expAcquires {
			t.Fatalf("[spec %d] expected %d acquisitions; got %d", index, s.expAcquires, eng.acquires)
		}
		if eng.outstanding() != 0 {
			t.Fatalf("[spec %d] expected no dangling buffers; got %d", index, eng.outstanding())
		}
		for kind := engine.Vertices; kind <= engine.Camera; kind++ {
			if l.Acquired(kind) {
				t.Fatalf("[spec %d] expected %s slot to be absent", index, kind)
			}
		}
	}
}

func TestVertexMarginDependsOnScene(t *testing.T) {
	eng := newMockEngine()
	// 3 MB available: enough for a 1 MB margin but not for the 2 MB
	// preview estimate of a 10000 triangle scene.
	l := New(eng, memory.NewGuard(&scriptedMemory{availMB: []uint64{3}}))

	if _, err := l.AcquireVertices(10); err != nil {
		t.Fatalf("expected small scene to pass; got %v", err)
	}
	if _, err := l.AcquireVertices(10000); !errors.Is(err, memory.ErrLowMemory) {
		t.Fatalf("expected large scene to fail with ErrLowMemory; got %v", err)
	}
	if eng.outstanding() != 0 {
		t.Fatalf("expected no dangling buffers; got %d", eng.outstanding())
	}
}

func TestEngineOutOfMemory(t *testing.T) {
	eng := newMockEngine()
	eng.failKind = engine.Colors
	eng.failErr = engine.ErrOutOfMemory
	l := New(eng, memory.NewGuard(&scriptedMemory{availMB: []uint64{512}}))

	_, err := l.AcquireAll(1)
	if !errors.Is(err, memory.ErrLowMemory) || !errors.Is(err, engine.ErrOutOfMemory) {
		t.Fatalf("expected error to match both ErrLowMemory and ErrOutOfMemory; got %v", err)
	}
	if eng.outstanding() != 0 {
		t.Fatalf("expected vertex buffer to be released; got %d outstanding", eng.outstanding())
	}
}

// scriptedMemory reports the next entry of availMB on every probe and
// repeats the last one once the script runs out.
type scriptedMemory struct {
	availMB []uint64
	calls   int
}

func (m *scriptedMemory) MemoryInfo() (memory.Info, error) {
	idx := m.calls
	if idx >= len(m.availMB) {
		idx = len(m.availMB) - 1
	}
	m.calls++
	return memory.Info{Available: m.availMB[idx] * memory.MB}, nil
}

type mockEngine struct {
	live        map[*engine.Buffer]bool
	acquires    int
	releases    int
	doubleFrees int

	failKind engine.BufferKind
	failErr  error
}

func newMockEngine() *mockEngine {
	return &mockEngine{live: make(map[*engine.Buffer]bool), failKind: 255}
}

func (m *mockEngine) outstanding() int {
	count := 0
	for _, live := range m.live {
		if live {
			count++
		}
	}
	return count
}

func (m *mockEngine) acquire(kind engine.BufferKind, size int) (*engine.Buffer, error) {
	m.acquires++
	if kind == m.failKind {
		return nil, m.failErr
	}
	b := &engine.Buffer{Kind: kind, Data: make([]byte, size)}
	m.live[b] = true
	return b, nil
}

func (m *mockEngine) Start()                                        {}
func (m *mockEngine) Stop()                                         {}
func (m *mockEngine) Initialize(_ engine.RenderConfig) (int, error) { return 2, nil }
func (m *mockEngine) RenderAsync(_ *frame.Image, _ int) error       { return nil }
func (m *mockEngine) Finish()                                       {}
func (m *mockEngine) State() engine.State                           { return engine.Idle }
func (m *mockEngine) LightCount() int                               { return 0 }

func (m *mockEngine) AcquireVerticesBuffer() (*engine.Buffer, error) {
	return m.acquire(engine.Vertices, 96)
}

func (m *mockEngine) AcquireColorsBuffer() (*engine.Buffer, error) {
	return m.acquire(engine.Colors, 96)
}

func (m *mockEngine) AcquireCameraBuffer() (*engine.Buffer, error) {
	return m.acquire(engine.Camera, 80)
}

func (m *mockEngine) ReleaseBuffer(b *engine.Buffer) {
	if !m.live[b] {
		m.doubleFrees++
		return
	}
	m.live[b] = false
	m.releases++
}
