package sim

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"testing"
	"time"

	"github.com/achilleasa/rtsession/camera"
	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/log"
)

func TestMain(m *testing.M) {
	log.SetSink(io.Discard)
	os.Exit(m.Run())
}

func mustConfig(t *testing.T, b *engine.ConfigBuilder) engine.RenderConfig {
	t.Helper()
	cfg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func waitWhileBusy(t *testing.T, e *Engine) engine.State {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if state := e.State(); state != engine.Busy {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for engine to leave the busy state")
	return engine.Busy
}

func TestInitializeBuiltinScenes(t *testing.T) {
	type spec struct {
		scene     engine.Scene
		expPrims  int
		expLights int
	}
	specs := []spec{
		{engine.CornellBox, 36, 1},
		{engine.Triangle, 3, 1},
		{engine.Pyramid, 8, 2},
	}

	for index, s := range specs {
		e := New(Options{})
		cfg := mustConfig(t, engine.NewConfigBuilder().WithScene(s.scene).WithWidth(64).WithHeight(48))
		prims, err := e.Initialize(cfg)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if prims != s.expPrims {
			t.Fatalf("[spec %d] expected %d primitives; got %d", index, s.expPrims, prims)
		}
		if got := e.LightCount(); got != s.expLights {
			t.Fatalf("[spec %d] expected %d lights; got %d", index, s.expLights, got)
		}
	}
}

func TestInitializeErrors(t *testing.T) {
	e := New(Options{MaxPrimitives: 10})

	cfg := mustConfig(t, engine.NewConfigBuilder().WithScene(engine.CornellBox))
	if _, err := e.Initialize(cfg); !errors.Is(err, engine.ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory; got %v", err)
	}

	cfg = mustConfig(t, engine.NewConfigBuilder().WithScene(engine.SceneFile).WithOBJ("scene.obj"))
	if _, err := e.Initialize(cfg); !errors.Is(err, engine.ErrNoScene) {
		t.Fatalf("expected ErrNoScene; got %v", err)
	}

	if _, err := e.AcquireCameraBuffer(); !errors.Is(err, engine.ErrNoScene) {
		t.Fatalf("expected ErrNoScene when acquiring without a scene; got %v", err)
	}
}

func TestRenderLifecycle(t *testing.T) {
	e := New(Options{})
	cfg := mustConfig(t, engine.NewConfigBuilder().
		WithScene(engine.Triangle).
		WithShader(engine.DiffuseMaterial).
		WithWidth(32).
		WithHeight(24).
		WithSamplesPixel(2))
	if _, err := e.Initialize(cfg); err != nil {
		t.Fatal(err)
	}

	img := frame.New(32, 24)
	if err := e.RenderAsync(img, 2); !errors.Is(err, engine.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted; got %v", err)
	}

	e.Start()
	if got := e.State(); got != engine.Busy {
		t.Fatalf("expected state %s after start; got %s", engine.Busy, got)
	}
	if err := e.RenderAsync(img, 2); err != nil {
		t.Fatal(err)
	}
	if got := waitWhileBusy(t, e); got != engine.Finished {
		t.Fatalf("expected state %s; got %s", engine.Finished, got)
	}
	e.Finish()
	if got := e.State(); got != engine.Idle {
		t.Fatalf("expected state %s after finish; got %s", engine.Idle, got)
	}

	// The top row looks at the empty sky; the center hits the triangle.
	if got := img.Pixel(0, 0); got != frame.Black {
		t.Fatalf("expected sky pixel to be black; got %#08x", got)
	}
	if got := img.Pixel(16, 12); got == frame.Black {
		t.Fatal("expected center pixel to hit the triangle")
	}
}

func TestStopInterruptsRender(t *testing.T) {
	e := New(Options{PassDelay: time.Hour})
	cfg := mustConfig(t, engine.NewConfigBuilder().
		WithScene(engine.Pyramid).
		WithWidth(16).
		WithHeight(16).
		WithSamplesPixel(4))
	if _, err := e.Initialize(cfg); err != nil {
		t.Fatal(err)
	}

	e.Start()
	if err := e.RenderAsync(frame.New(16, 16), 4); err != nil {
		t.Fatal(err)
	}
	e.Stop()
	if got := e.State(); got != engine.Stopped {
		t.Fatalf("expected state %s after stop; got %s", engine.Stopped, got)
	}

	done := make(chan struct{})
	go func() {
		e.Finish()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("expected finish to return once the render observed the stop request")
	}
	if got := e.State(); got != engine.Idle {
		t.Fatalf("expected state %s after finish; got %s", engine.Idle, got)
	}
}

func TestStopBeforeDispatch(t *testing.T) {
	e := New(Options{})
	cfg := mustConfig(t, engine.NewConfigBuilder().WithScene(engine.Triangle).WithWidth(8).WithHeight(8))
	if _, err := e.Initialize(cfg); err != nil {
		t.Fatal(err)
	}

	e.Start()
	e.Stop()
	img := frame.New(8, 8)
	if err := e.RenderAsync(img, 1); err != nil {
		t.Fatal(err)
	}
	e.Finish()
	for _, px := range img.Pixels() {
		if px != frame.Black {
			t.Fatal("expected a stopped engine not to render")
		}
	}
}

func TestExportedBuffers(t *testing.T) {
	e := New(Options{})
	cfg := mustConfig(t, engine.NewConfigBuilder().WithScene(engine.Triangle).WithWidth(40).WithHeight(30))
	prims, err := e.Initialize(cfg)
	if err != nil {
		t.Fatal(err)
	}

	verts, err := e.AcquireVerticesBuffer()
	if err != nil {
		t.Fatal(err)
	}
	colors, err := e.AcquireColorsBuffer()
	if err != nil {
		t.Fatal(err)
	}
	cam, err := e.AcquireCameraBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if got := e.LiveBuffers(); got != 3 {
		t.Fatalf("expected 3 live buffers; got %d", got)
	}

	expLen := prims * 3 * 4 * 4
	if len(verts.Data) != expLen || len(colors.Data) != expLen {
		t.Fatalf("expected vertex and color buffers of %d bytes; got %d and %d", expLen, len(verts.Data), len(colors.Data))
	}

	// First vertex of the triangle is (-1, 0, 1) in engine space.
	exp := []float32{-1, 0, -1, 1}
	for i, v := range exp {
		if got := readFloat(verts.Data, i); got != v {
			t.Fatalf("expected vertex component %d to be %f; got %f", i, v, got)
		}
	}
	// First vertex color is pure red.
	exp = []float32{1, 0, 0, 1}
	for i, v := range exp {
		if got := readFloat(colors.Data, i); got != v {
			t.Fatalf("expected color component %d to be %f; got %f", i, v, got)
		}
	}

	params, err := camera.ParseParameters(cam.Data)
	if err != nil {
		t.Fatal(err)
	}
	if params.Projection() != camera.Perspective {
		t.Fatalf("expected perspective camera; got %s", params.Projection())
	}
	if params.FovY != 60 || params.FovX <= params.FovY {
		t.Fatalf("expected fovY 60 and a wider fovX for a 4:3 frame; got %f, %f", params.FovY, params.FovX)
	}

	for _, buf := range []*engine.Buffer{verts, colors, cam} {
		e.ReleaseBuffer(buf)
	}
	e.ReleaseBuffer(cam)
	if got := e.LiveBuffers(); got != 0 {
		t.Fatalf("expected all buffers to be released; got %d live", got)
	}
}

func TestAcceleratorsAgree(t *testing.T) {
	sc, err := builtinScene(engine.CornellBox, 4.0/3.0)
	if err != nil {
		t.Fatal(err)
	}
	lin := &naive{tris: sc.tris}
	tree := newBVH(sc.tris)
	gen := newRayGen(sc.cam)

	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			r := gen.generate(2*(float32(x)+0.5)/32-1, 1-2*(float32(y)+0.5)/24)
			h1, ok1 := lin.closest(r, math.MaxFloat32)
			h2, ok2 := tree.closest(r, math.MaxFloat32)
			if ok1 != ok2 {
				t.Fatalf("[ray %d,%d] expected hit to be %t; got %t", x, y, ok1, ok2)
			}
			if ok1 && math.Abs(float64(h1.t-h2.t)) > 1e-4 {
				t.Fatalf("[ray %d,%d] expected hit distance %f; got %f", x, y, h1.t, h2.t)
			}
			if lin.occluded(r, 1) != tree.occluded(r, 1) {
				t.Fatalf("[ray %d,%d] occlusion mismatch", x, y)
			}
		}
	}
}

func TestOrthographicRays(t *testing.T) {
	sc, err := builtinScene(engine.Pyramid, 1)
	if err != nil {
		t.Fatal(err)
	}
	gen := newRayGen(sc.cam)

	r1 := gen.generate(-1, 0)
	r2 := gen.generate(1, 0)
	if r1.dir != r2.dir {
		t.Fatal("expected orthographic rays to be parallel")
	}
	if got := r2.origin.Sub(r1.origin).Len(); math.Abs(float64(got-sc.cam.SizeH)) > 1e-4 {
		t.Fatalf("expected ray origins to span %f units; got %f", sc.cam.SizeH, got)
	}
}

func TestRadicalInverse(t *testing.T) {
	type spec struct {
		i, base int
		exp     float32
	}
	specs := []spec{
		{1, 2, 0.5},
		{2, 2, 0.25},
		{3, 2, 0.75},
		{1, 3, 1.0 / 3.0},
		{4, 3, 4.0 / 9.0},
	}

	for index, s := range specs {
		if got := radicalInverse(s.i, s.base); math.Abs(float64(got-s.exp)) > 1e-6 {
			t.Fatalf("[spec %d] expected %f; got %f", index, s.exp, got)
		}
	}
}

func readFloat(buf []byte, slot int) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(buf[slot*4:]))
}
