package cmd

import (
	"sync"

	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/session"
)

// A session view that logs instead of drawing.
type headlessView struct {
	mu  sync.Mutex
	img *frame.Image

	// Signalled each time the render control returns to the render label.
	idle chan struct{}
}

func newHeadlessView() *headlessView {
	return &headlessView{
		idle: make(chan struct{}, 1),
	}
}

func (v *headlessView) SetButtonLabel(l session.Label) {
	logger.Debugf("render control: %s", l)
	if l == session.RenderLabel {
		select {
		case v.idle <- struct{}{}:
		default:
		}
	}
}

func (v *headlessView) ShowWarning(msg string) {
	logger.Warning(msg)
}

func (v *headlessView) SetStatus(status string) {
	logger.Info(status)
}

func (v *headlessView) Present(img *frame.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.img = img
}

func (v *headlessView) RequestRender() {}

func (v *headlessView) frame() *frame.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.img
}
