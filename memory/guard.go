package memory

import (
	"errors"
	"fmt"

	"github.com/achilleasa/rtsession/log"
)

var logger = log.New("memory")

// Per-primitive cost of the rasterized preview: 9 geometry floats plus
// 11 engine-side pointers.
const previewBytesPerPrimitive = 9*4 + 8*11

// Per-primitive cost of a triangle held by the engine: 3 vertices, 3 normals,
// 3 texture coordinates, a material index and 21 pointers of bookkeeping.
const engineBytesPerPrimitive = 3*4*3 + 3*4*3 + 2*4*3 + 4 + 8*21

// Guard decides whether an allocation of a given size can proceed.
type Guard struct {
	provider Provider
}

// NewGuard creates a guard backed by the given provider. A nil provider
// selects SystemProvider with the default threshold.
func NewGuard(provider Provider) *Guard {
	if provider == nil {
		provider = SystemProvider{}
	}
	return &Guard{provider: provider}
}

// IsLowMemory reports whether available memory is at most 1+requiredMB
// megabytes or the platform has raised its low memory flag.
func (g *Guard) IsLowMemory(requiredMB int) (bool, error) {
	if requiredMB <= 0 {
		return false, ErrInvalidArgument
	}

	info, err := g.provider.MemoryInfo()
	if err != nil {
		return true, fmt.Errorf("memory: could not query available memory: %w", err)
	}

	availMB := info.AvailableMB()
	low := availMB <= uint64(1+requiredMB) || info.LowMemory
	if low {
		logger.Warningf("low memory: %d MB available, %d MB required (flag: %t)", availMB, requiredMB, info.LowMemory)
	}
	return low, nil
}

// Check returns ErrLowMemory if an allocation of requiredMB megabytes should
// not proceed. Provider failures count as low memory.
func (g *Guard) Check(requiredMB int) error {
	low, err := g.IsLowMemory(requiredMB)
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return err
	case err != nil:
		return fmt.Errorf("%w: %v", ErrLowMemory, err)
	case low:
		return ErrLowMemory
	}
	return nil
}

// PreviewSceneSizeMB estimates the megabytes needed to rasterize a scene
// with the given number of primitives.
func PreviewSceneSizeMB(numPrimitives int) int {
	return 1 + numPrimitives*previewBytesPerPrimitive/MB
}

// EngineSceneSizeMB estimates the megabytes the engine holds for a scene
// with the given number of primitives.
func EngineSceneSizeMB(numPrimitives int) int {
	return 1 + numPrimitives*engineBytesPerPrimitive/MB
}
