// Package sim provides an in-process progressive CPU ray caster that
// implements the engine.Engine interface.
package sim

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/log"
	"github.com/achilleasa/rtsession/types"
)

var logger = log.New("sim engine")

// Options tweak the behavior of the sim engine.
type Options struct {
	// Scenes with more primitives fail to initialize with
	// engine.ErrOutOfMemory. Zero disables the limit.
	MaxPrimitives int

	// Pause between progressive passes.
	PassDelay time.Duration
}

// Engine is a CPU ray caster for the built-in scenes.
type Engine struct {
	opts Options

	mu      sync.Mutex
	state   engine.State
	started bool
	stopCh  chan struct{}
	stopped bool

	cfg    engine.RenderConfig
	scene  *scene
	shader *shader

	// Tracks exported buffers that have not been released yet.
	live map[*engine.Buffer]struct{}

	wg sync.WaitGroup
}

var _ engine.Engine = (*Engine)(nil)

// New creates an idle engine with no scene loaded.
func New(opts Options) *Engine {
	return &Engine{
		opts:  opts,
		state: engine.Idle,
		live:  make(map[*engine.Buffer]struct{}),
	}
}

// Start signals the start of a render session.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = true
	e.stopped = false
	e.stopCh = make(chan struct{})
	e.state = engine.Busy
}

// Stop asks the running render, if any, to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopCh != nil && !e.stopped {
		close(e.stopCh)
		e.stopped = true
	}
	if e.state == engine.Busy {
		e.state = engine.Stopped
		logger.Info("render stopped")
	}
}

// Initialize loads the scene described by cfg.
func (e *Engine) Initialize(cfg engine.RenderConfig) (int, error) {
	sc, err := builtinScene(cfg.Scene(), float32(cfg.Width())/float32(cfg.Height()))
	if err != nil {
		return 0, err
	}
	if e.opts.MaxPrimitives > 0 && len(sc.tris) > e.opts.MaxPrimitives {
		return 0, fmt.Errorf("%w: scene has %d primitives; limit is %d", engine.ErrOutOfMemory, len(sc.tris), e.opts.MaxPrimitives)
	}

	var accel intersector
	switch cfg.Accelerator() {
	case engine.BVH:
		accel = newBVH(sc.tris)
	case engine.RegGrid:
		logger.Notice("regular grid acceleration is not available; using a BVH")
		accel = newBVH(sc.tris)
	default:
		accel = &naive{tris: sc.tris}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.scene = sc
	e.shader = &shader{
		sc:           sc,
		accel:        accel,
		kind:         cfg.Shader(),
		samplesLight: cfg.SamplesLight(),
	}
	logger.Infof("loaded scene %s (%d primitives, %d lights)", cfg.Scene(), len(sc.tris), len(sc.lights))
	return len(sc.tris), nil
}

// RenderAsync dispatches a progressive render into img and returns
// immediately. The number of passes equals the configured samples per pixel.
func (e *Engine) RenderAsync(img *frame.Image, numThreads int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return engine.ErrNotStarted
	}
	if e.scene == nil {
		return engine.ErrNoScene
	}
	if e.state != engine.Busy {
		// Stopped before the render got dispatched.
		return nil
	}

	width, height := img.Width(), img.Height()
	if numThreads < 1 {
		numThreads = 1
	}
	if numThreads > height {
		numThreads = height
	}
	passes := e.cfg.SamplesPixel()
	if passes < 1 {
		passes = 1
	}

	r := &render{
		shader:    e.shader,
		gen:       newRayGen(e.scene.cam),
		img:       img,
		width:     width,
		height:    height,
		passes:    passes,
		threads:   numThreads,
		passDelay: e.opts.PassDelay,
		accum:     make([]types.Vec3, width*height),
		stop:      e.stopCh,
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		start := time.Now()
		completed := r.run()

		e.mu.Lock()
		defer e.mu.Unlock()
		if completed && e.state == engine.Busy {
			e.state = engine.Finished
			logger.Infof("render completed in %s", time.Since(start))
		}
	}()
	logger.Debugf("dispatched %dx%d render with %d threads and %d passes", width, height, numThreads, passes)
	return nil
}

// Finish waits for outstanding render work and returns the engine to Idle.
func (e *Engine) Finish() {
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = engine.Idle
	e.started = false
}

// State returns the current lifecycle state.
func (e *Engine) State() engine.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LightCount returns the number of lights in the loaded scene.
func (e *Engine) LightCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scene == nil {
		return 0
	}
	return len(e.scene.lights)
}

// AcquireVerticesBuffer exports 4 floats per vertex in a right-handed
// system (z negated) with w set to 1.
func (e *Engine) AcquireVerticesBuffer() (*engine.Buffer, error) {
	return e.export(engine.Vertices, func(sc *scene) []byte {
		data := make([]float32, 0, len(sc.tris)*12)
		for _, tri := range sc.tris {
			for _, v := range tri.v {
				data = append(data, v[0], v[1], -v[2], 1)
			}
		}
		return floatBytes(data)
	})
}

// AcquireColorsBuffer exports an RGBA color per vertex.
func (e *Engine) AcquireColorsBuffer() (*engine.Buffer, error) {
	return e.export(engine.Colors, func(sc *scene) []byte {
		data := make([]float32, 0, len(sc.tris)*12)
		for _, tri := range sc.tris {
			for _, c := range tri.c {
				c = c.Clamp(0, 1)
				data = append(data, c[0], c[1], c[2], 1)
			}
		}
		return floatBytes(data)
	})
}

// AcquireCameraBuffer exports the scene camera.
func (e *Engine) AcquireCameraBuffer() (*engine.Buffer, error) {
	return e.export(engine.Camera, func(sc *scene) []byte {
		return sc.cam.Encode()
	})
}

// ReleaseBuffer hands back an exported buffer.
func (e *Engine) ReleaseBuffer(buf *engine.Buffer) {
	if buf == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.live[buf]; !ok {
		logger.Warningf("ignoring release of unknown %s buffer", buf.Kind)
		return
	}
	delete(e.live, buf)
}

// LiveBuffers returns the number of exported buffers not yet released.
func (e *Engine) LiveBuffers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

func (e *Engine) export(kind engine.BufferKind, encode func(*scene) []byte) (*engine.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scene == nil {
		return nil, engine.ErrNoScene
	}
	buf := &engine.Buffer{Kind: kind, Data: encode(e.scene)}
	e.live[buf] = struct{}{}
	return buf, nil
}

func floatBytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, f := range data {
		binary.NativeEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
