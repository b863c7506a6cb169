// Package session drives render sessions: it starts and stops the engine,
// prepares the optional rasterized preview and polls the engine until the
// render completes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/rtsession/buffers"
	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/executor"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/log"
	"github.com/achilleasa/rtsession/memory"
	"github.com/achilleasa/rtsession/preview"
)

var logger = log.New("session")

// Controller runs at most one render session at a time. Sessions execute on
// the job pool; the engine status poll runs on the poll pool.
type Controller struct {
	opts    Options
	engine  engine.Engine
	guard   *memory.Guard
	buffers *buffers.Lifecycle
	bridge  *preview.Bridge
	view    View
	exec    *executor.Coordinator

	// Serializes session starts.
	startMu sync.Mutex

	mu     sync.Mutex
	stats  Stats
	closed bool
}

// NewController creates a controller. The bridge may be nil, in which case
// rasterization requests are ignored.
func NewController(eng engine.Engine, guard *memory.Guard, bridge *preview.Bridge, view View, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		opts:    opts,
		engine:  eng,
		guard:   guard,
		buffers: buffers.New(eng, guard),
		bridge:  bridge,
		view:    view,
		exec: executor.NewCoordinator(executor.Options{
			JobWorkers:   opts.JobWorkers,
			PollWorkers:  opts.PollWorkers,
			AwaitTimeout: opts.AwaitTimeout,
		}),
	}
}

// RenderScene starts a new session. It waits for the previous session to
// settle, signals the engine to start and queues the session job. The
// render control switches to the stop label before the job runs.
//
// If the previous session is still rendering, RenderScene blocks until it
// completes; call StopDrawing first to abandon it.
func (c *Controller) RenderScene(ctx context.Context, cfg engine.RenderConfig, numThreads int, rasterize bool) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}

	if err := c.exec.AwaitCurrent(ctx, executor.Jobs); err != nil {
		return err
	}
	if err := c.exec.AwaitCurrent(ctx, executor.Polls); err != nil {
		return err
	}

	c.mu.Lock()
	c.stats = Stats{
		Config:    cfg,
		Threads:   numThreads,
		StartedAt: time.Now(),
		State:     engine.Busy,
	}
	c.mu.Unlock()

	logger.Noticef("starting session: %s, %d threads, rasterize: %t", cfg, numThreads, rasterize)
	c.engine.Start()
	c.view.SetButtonLabel(StopLabel)
	c.exec.Submit(executor.Jobs, c.job(cfg, numThreads, rasterize))
	return nil
}

// StopDrawing cancels the current session and waits until the engine is
// idle again.
func (c *Controller) StopDrawing(ctx context.Context) error {
	if c.exec.CancelCurrent(executor.Jobs) {
		logger.Info("cancelling render job")
	}
	if err := c.exec.AwaitCurrent(ctx, executor.Jobs); err != nil {
		return err
	}

	c.engine.Stop()
	if err := c.exec.AwaitCurrent(ctx, executor.Polls); err != nil {
		return err
	}

	if c.engine.State() != engine.Idle {
		c.engine.Finish()
	}
	c.setState(c.engine.State())
	c.view.SetButtonLabel(RenderLabel)
	return nil
}

// EngineState returns the engine state.
func (c *Controller) EngineState() engine.State {
	return c.engine.State()
}

// Stats returns the statistics of the last session.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the current session, shuts down both pools and releases the
// scene buffers. The controller cannot be used afterwards.
func (c *Controller) Close(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.StopDrawing(ctx)
	if closeErr := c.exec.Close(ctx); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	c.buffers.ReleaseAll()
	return err
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) job(cfg engine.RenderConfig, numThreads int, rasterize bool) executor.Task {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", executor.ErrTaskPanicked, r)
			}
			switch {
			case err == nil:
			case ctx.Err() != nil:
				logger.Infof("render job cancelled: %v", err)
			default:
				c.fail(err)
			}
		}()
		return c.runSession(ctx, cfg, numThreads, rasterize)
	}
}

func (c *Controller) runSession(ctx context.Context, cfg engine.RenderConfig, numThreads int, rasterize bool) error {
	// The previous session's poll task must be gone before this one
	// starts its own.
	if err := c.exec.DrainAndRecreate(ctx, executor.Polls); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.buffers.ReleaseAll()
	numPrimitives, err := c.engine.Initialize(cfg)
	if err != nil {
		if errors.Is(err, engine.ErrOutOfMemory) {
			return fmt.Errorf("%w: %w", memory.ErrLowMemory, err)
		}
		return fmt.Errorf("initializing engine: %w", err)
	}
	numLights := c.engine.LightCount()
	c.update(func(st *Stats) {
		st.Primitives = numPrimitives
		st.Lights = numLights
	})
	logger.Infof("scene loaded: %d primitives, %d lights", numPrimitives, numLights)

	if err := c.guard.Check(memory.EngineSceneSizeMB(numPrimitives)); err != nil {
		return err
	}

	img := frame.New(cfg.Width(), cfg.Height())
	if rasterize {
		if img, err = c.rasterize(numPrimitives, cfg.Width(), cfg.Height()); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.engine.RenderAsync(img, numThreads); err != nil {
		if errors.Is(err, engine.ErrOutOfMemory) {
			return fmt.Errorf("%w: %w", memory.ErrLowMemory, err)
		}
		return fmt.Errorf("starting render: %w", err)
	}

	c.view.Present(img)
	task := NewRenderTask(c.engine, c.view, c.opts.PollInterval, c.pollStatus)
	c.exec.Submit(executor.Polls, task.Run)
	c.view.RequestRender()
	return nil
}

func (c *Controller) rasterize(numPrimitives, width, height int) (*frame.Image, error) {
	if c.bridge == nil {
		logger.Warning("no preview device available; skipping rasterization")
		return frame.New(width, height), nil
	}

	start := time.Now()
	sc, err := c.buffers.AcquireAll(numPrimitives)
	if err != nil {
		return nil, err
	}
	img, err := c.bridge.Render(sc, width, height)
	if err != nil {
		c.buffers.ReleaseAll()
		return nil, err
	}

	c.update(func(st *Stats) {
		st.Rasterized = true
		st.PreviewTime = time.Since(start)
	})
	return img, nil
}

// Runs on the job worker when a session fails. Leaves the engine idle and
// the render control showing the render label.
func (c *Controller) fail(err error) {
	var shaderErr *preview.ShaderError
	switch {
	case errors.Is(err, memory.ErrLowMemory):
		logger.Warningf("session aborted: %v", err)
		c.view.ShowWarning("Not enough memory to render the scene")
	case errors.As(err, &shaderErr):
		logger.Errorf("preview pipeline failed: %v", err)
		c.view.ShowWarning(fmt.Sprintf("Preview pipeline failure in %s", shaderErr.Stage))
	default:
		logger.Errorf("session failed: %v", err)
		c.view.ShowWarning(fmt.Sprintf("Render failed: %v", err))
	}

	c.buffers.ReleaseAll()
	c.engine.Stop()
	c.engine.Finish()
	c.update(func(st *Stats) {
		st.Err = err
		st.State = engine.Idle
	})
	c.view.SetButtonLabel(RenderLabel)
}

func (c *Controller) pollStatus(state engine.State) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Polls++
	c.stats.State = state
	if state != engine.Busy && c.stats.RenderTime == 0 {
		c.stats.RenderTime = time.Since(c.stats.StartedAt)
	}
	return c.stats.String()
}

func (c *Controller) setState(state engine.State) {
	c.update(func(st *Stats) {
		st.State = state
	})
}

func (c *Controller) update(fn func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}
