// Package camera converts the engine camera buffer into the matrices used
// by the rasterized preview.
//
// The camera buffer holds 20 native-endian float32 values:
//
//	[0..2]   eye position
//	[4..6]   view direction
//	[8..10]  up vector
//	[16..17] horizontal and vertical field of view in degrees (perspective)
//	[18..19] horizontal and vertical extent (orthographic)
//
// The engine uses a left-handed system, so the z component of every vector
// is negated before building the view matrix.
package camera

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/achilleasa/rtsession/types"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrShortBuffer = errors.New("camera: buffer too small for camera parameters")

const (
	// Number of float32 slots in a camera buffer.
	BufferFloats = 20

	// Camera buffer size in bytes.
	BufferSize = BufferFloats * 4

	NearPlane float32 = 0.1
	FarPlane  float32 = 1.0e+30

	perspectiveFix  float32 = 0.955
	orthographicFix float32 = 0.5
)

// Float slot offsets.
const (
	eyeSlot   = 0
	dirSlot   = 4
	upSlot    = 8
	fovXSlot  = 16
	fovYSlot  = 17
	sizeHSlot = 18
	sizeVSlot = 19
)

// Projection identifies the projection a camera buffer selects.
type Projection uint8

const (
	Degenerate Projection = iota
	Perspective
	Orthographic
)

func (p Projection) String() string {
	switch p {
	case Perspective:
		return "perspective"
	case Orthographic:
		return "orthographic"
	}
	return "degenerate"
}

// Parameters is a decoded camera buffer. Values are stored exactly as the
// engine wrote them.
type Parameters struct {
	Eye       types.Vec3
	Direction types.Vec3
	Up        types.Vec3

	FovX float32
	FovY float32

	SizeH float32
	SizeV float32
}

// ParseParameters decodes a camera buffer.
func ParseParameters(buf []byte) (Parameters, error) {
	if len(buf) < BufferSize {
		return Parameters{}, ErrShortBuffer
	}

	return Parameters{
		Eye:       readVec3(buf, eyeSlot),
		Direction: readVec3(buf, dirSlot),
		Up:        readVec3(buf, upSlot),
		FovX:      readFloat(buf, fovXSlot),
		FovY:      readFloat(buf, fovYSlot),
		SizeH:     readFloat(buf, sizeHSlot),
		SizeV:     readFloat(buf, sizeVSlot),
	}, nil
}

// Encode serializes p into a camera buffer.
func (p Parameters) Encode() []byte {
	buf := make([]byte, BufferSize)
	writeVec3(buf, eyeSlot, p.Eye)
	writeVec3(buf, dirSlot, p.Direction)
	writeVec3(buf, upSlot, p.Up)
	writeFloat(buf, fovXSlot, p.FovX)
	writeFloat(buf, fovYSlot, p.FovY)
	writeFloat(buf, sizeHSlot, p.SizeH)
	writeFloat(buf, sizeVSlot, p.SizeV)
	return buf
}

// Projection reports which projection ProjectionMatrix builds. When both
// the field of view and the extent are positive the orthographic
// projection is the one that ends up in the matrix.
func (p Parameters) Projection() Projection {
	fovX, fovY, sizeH, sizeV := p.scaled()
	switch {
	case sizeH > 0 && sizeV > 0:
		return Orthographic
	case fovX > 0 && fovY > 0:
		return Perspective
	}
	return Degenerate
}

// ViewMatrix builds the look-at matrix for the camera.
func (p Parameters) ViewMatrix() mgl32.Mat4 {
	eye := mgl32.Vec3(p.Eye.FlipZ())
	dir := mgl32.Vec3(p.Direction.FlipZ())
	up := mgl32.Vec3(p.Up.FlipZ())
	return mgl32.LookAtV(eye, eye.Add(dir), up)
}

// ProjectionMatrix builds the projection matrix for a viewport with the
// given width/height ratio. A camera with neither a positive field of
// view nor a positive extent yields the zero matrix.
func (p Parameters) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	fovX, fovY, sizeH, sizeV := p.scaled()

	var proj mgl32.Mat4
	if fovX > 0 && fovY > 0 {
		proj = mgl32.Perspective(mgl32.DegToRad(fovY), aspect, NearPlane, FarPlane)
	}
	if sizeH > 0 && sizeV > 0 {
		proj = mgl32.Ortho(-sizeH, sizeH, -sizeV, sizeV, NearPlane, FarPlane)
	}
	return proj
}

func (p Parameters) scaled() (fovX, fovY, sizeH, sizeV float32) {
	return p.FovX * perspectiveFix, p.FovY * perspectiveFix, p.SizeH * orthographicFix, p.SizeV * orthographicFix
}

// ViewMatrix decodes buf and returns its view matrix.
func ViewMatrix(buf []byte) (mgl32.Mat4, error) {
	p, err := ParseParameters(buf)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return p.ViewMatrix(), nil
}

// ProjectionMatrix decodes buf and returns its projection matrix.
func ProjectionMatrix(buf []byte, aspect float32) (mgl32.Mat4, error) {
	p, err := ParseParameters(buf)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return p.ProjectionMatrix(aspect), nil
}

// ModelMatrix returns the model transform of the preview, which is always
// the identity as scene geometry is exported in world space.
func ModelMatrix() mgl32.Mat4 {
	return mgl32.Ident4()
}

func readFloat(buf []byte, slot int) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(buf[slot*4:]))
}

func readVec3(buf []byte, slot int) types.Vec3 {
	return types.XYZ(readFloat(buf, slot), readFloat(buf, slot+1), readFloat(buf, slot+2))
}

func writeFloat(buf []byte, slot int, v float32) {
	binary.NativeEndian.PutUint32(buf[slot*4:], math.Float32bits(v))
}

func writeVec3(buf []byte, slot int, v types.Vec3) {
	for i := 0; i < 3; i++ {
		writeFloat(buf, slot+i, v[i])
	}
}
