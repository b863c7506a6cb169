package session

import "github.com/achilleasa/rtsession/frame"

// Label selects the caption of the render control.
type Label uint8

const (
	// The control starts a new session.
	RenderLabel Label = iota

	// The control stops the running session.
	StopLabel
)

func (l Label) String() string {
	if l == StopLabel {
		return "Stop"
	}
	return "Render"
}

// The View interface is implemented by the display layer. Its methods are
// called from pool workers and must not block.
type View interface {
	// Update the caption of the render control.
	SetButtonLabel(Label)

	// Show a warning to the user.
	ShowWarning(msg string)

	// Show a one-line status summary of the running session.
	SetStatus(status string)

	// Display img. The engine keeps updating it until the session ends.
	Present(img *frame.Image)

	// Ask for the displayed frame to be redrawn.
	RequestRender()
}
