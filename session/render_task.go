package session

import (
	"context"
	"time"

	"github.com/achilleasa/rtsession/engine"
)

// RenderTask polls the engine at a fixed interval while it renders. Each
// tick refreshes the view and its status line. Once the engine leaves the
// busy state the task completes the engine's finish transition, resets the
// render control and returns.
type RenderTask struct {
	engine   engine.Engine
	view     View
	interval time.Duration

	// Called on every tick with the observed state; returns the status line.
	status func(engine.State) string
}

// NewRenderTask creates a poll task. A nil status func shows the bare
// engine state.
func NewRenderTask(eng engine.Engine, view View, interval time.Duration, status func(engine.State) string) *RenderTask {
	if status == nil {
		status = engine.State.String
	}
	return &RenderTask{
		engine:   eng,
		view:     view,
		interval: interval,
		status:   status,
	}
}

// Run polls until the engine stops being busy or ctx is cancelled.
func (t *RenderTask) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		state := t.engine.State()
		t.view.RequestRender()
		t.view.SetStatus(t.status(state))

		if state != engine.Busy {
			logger.Debugf("engine reported %s; finishing session", state)
			t.engine.Finish()
			t.view.SetButtonLabel(RenderLabel)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
