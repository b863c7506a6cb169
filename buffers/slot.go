package buffers

import (
	"github.com/achilleasa/rtsession/engine"
)

type slotState uint8

const (
	absent slotState = iota
	acquired
)

// slot tracks the ownership of a single engine buffer. A handle can only be
// read while the slot is acquired and is handed back to the engine exactly
// once.
type slot struct {
	kind   engine.BufferKind
	state  slotState
	handle *engine.Buffer
}

func (s *slot) set(h *engine.Buffer) {
	s.state = acquired
	s.handle = h
}

func (s *slot) get() (*engine.Buffer, bool) {
	if s.state != acquired {
		return nil, false
	}
	return s.handle, true
}

// release hands the buffer back to the engine and reports whether the slot
// was holding one.
func (s *slot) release(eng engine.Engine) bool {
	if s.state != acquired {
		return false
	}
	eng.ReleaseBuffer(s.handle)
	s.state = absent
	s.handle = nil
	return true
}
