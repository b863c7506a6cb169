package session

import (
	"context"
	"testing"
	"time"

	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/engine/sim"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/preview"
	"github.com/achilleasa/rtsession/preview/soft"
)

func TestSimEngineSession(t *testing.T) {
	eng := sim.New(sim.Options{})
	guard := plentyOfMemory()
	view := &recordingView{}
	c := NewController(eng, guard, preview.NewBridge(soft.New(48, 36), guard), view, testOptions())
	defer c.Close(context.Background())

	cfg, err := engine.NewConfigBuilder().
		WithScene(engine.CornellBox).
		WithShader(engine.Whitted).
		WithAccelerator(engine.BVH).
		WithWidth(32).
		WithHeight(24).
		WithSamplesPixel(2).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if err := c.RenderScene(context.Background(), cfg, 2, true); err != nil {
		t.Fatal(err)
	}
	waitForIdleLabels(t, view, 1)

	if got := c.EngineState(); got != engine.Idle {
		t.Fatalf("expected engine to be %s; got %s", engine.Idle, got)
	}
	st := c.Stats()
	if st.Err != nil || !st.Rasterized || st.Primitives != 36 || st.Lights != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}

	img := view.lastPresented()
	if img == nil || img.Width() != 32 || img.Height() != 24 {
		t.Fatal("expected a 32x24 frame to be presented")
	}
	lit := 0
	for _, px := range img.Pixels() {
		if px != frame.Black {
			lit++
		}
	}
	if lit < len(img.Pixels())/4 {
		t.Fatalf("expected the cornell box to cover a quarter of the frame; %d of %d pixels lit", lit, len(img.Pixels()))
	}

	// Release the preview buffers through a second session.
	if err := c.RenderScene(context.Background(), cfg, 1, false); err != nil {
		t.Fatal(err)
	}
	waitForIdleLabels(t, view, 2)
	if got := eng.LiveBuffers(); got != 0 {
		t.Fatalf("expected buffers from the first session to be released; got %d", got)
	}
}

func TestSimEngineStopDrawing(t *testing.T) {
	eng := sim.New(sim.Options{PassDelay: time.Hour})
	view := &recordingView{}
	c := NewController(eng, plentyOfMemory(), nil, view, testOptions())
	defer c.Close(context.Background())

	cfg, err := engine.NewConfigBuilder().
		WithScene(engine.Pyramid).
		WithWidth(16).
		WithHeight(16).
		WithSamplesPixel(8).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if err := c.RenderScene(context.Background(), cfg, 2, false); err != nil {
		t.Fatal(err)
	}
	if !eventually(func() bool { return view.lastPresented() != nil }) {
		t.Fatal("timed out waiting for the render to start")
	}
	if err := c.StopDrawing(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := c.EngineState(); got != engine.Idle {
		t.Fatalf("expected engine to be %s; got %s", engine.Idle, got)
	}
	if got := view.labelHistory(); got[len(got)-1] != RenderLabel {
		t.Fatalf("expected render control to be reset; got %v", got)
	}
}
