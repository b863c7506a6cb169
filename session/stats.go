package session

import (
	"fmt"
	"time"

	"github.com/achilleasa/rtsession/engine"
)

// Stats describes the most recent render session.
type Stats struct {
	Config  engine.RenderConfig
	Threads int

	Primitives int
	Lights     int

	// True if a rasterized preview was drawn before ray tracing started.
	Rasterized  bool
	PreviewTime time.Duration

	// Session start and time spent until the engine left the busy state.
	StartedAt  time.Time
	RenderTime time.Duration

	// Number of status polls.
	Polls int

	// Last engine state observed by the controller.
	State engine.State

	// Set if the session failed.
	Err error
}

// Elapsed returns the render time of a finished session or the time since
// the session started.
func (s Stats) Elapsed() time.Duration {
	if s.RenderTime > 0 || s.StartedAt.IsZero() {
		return s.RenderTime
	}
	return time.Since(s.StartedAt)
}

// RefreshRate returns the number of status polls per second.
func (s Stats) RefreshRate() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Polls) / elapsed
}

// String formats the stats as a status line.
func (s Stats) String() string {
	return fmt.Sprintf(
		"%dx%d | threads: %d | spp: %d | spl: %d | primitives: %d | lights: %d | %s | %.1f Hz | %s",
		s.Config.Width(), s.Config.Height(),
		s.Threads,
		s.Config.SamplesPixel(), s.Config.SamplesLight(),
		s.Primitives, s.Lights,
		s.Elapsed().Round(time.Millisecond),
		s.RefreshRate(),
		s.State,
	)
}
