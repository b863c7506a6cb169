package preview

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Program is a device-specific handle to a linked shader program. The zero
// value never refers to a valid program.
type Program uint32

// The Device interface is implemented by rasterization backends.
//
// Pixels returned by ReadPixels follow OpenGL conventions: each uint32 holds
// the RGBA bytes of a pixel in memory order (red in the low byte) and rows
// are ordered bottom to top.
type Device interface {
	// Get the size of the render surface.
	Size() (width, height int)

	// Clear the color and depth buffers.
	Clear() error

	// Compile and link a program whose vertex attributes are bound to
	// consecutive locations in the order given by attribs. On failure the
	// returned error is a *ShaderError; if the returned program is non-zero
	// the caller still owns it and must delete it.
	CompileProgram(vertexSrc, fragmentSrc string, attribs []string) (Program, error)

	// Release a program. Deleting the zero program is a no-op.
	DeleteProgram(Program)

	// Make p the active program.
	UseProgram(p Program) error

	// Upload per-vertex data for the named attribute of the active program.
	SetAttribute(name string, components int, data []float32) error

	// Upload a 4x4 matrix to the named uniform of the active program.
	SetUniformMatrix(name string, m mgl32.Mat4) error

	// Draw vertexCount vertices as a triangle list with depth testing.
	DrawTriangles(vertexCount int) error

	// Copy the color buffer into dst, which must hold width*height pixels.
	ReadPixels(dst []uint32) error
}
