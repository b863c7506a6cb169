package preview

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/achilleasa/rtsession/buffers"
	"github.com/achilleasa/rtsession/camera"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/log"
	"github.com/achilleasa/rtsession/memory"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

var logger = log.New("preview")

// Shader interface names shared with the embedded GLSL sources.
const (
	AttribPosition = "vertexPosition"
	AttribColor    = "vertexColor"

	UniformModel      = "uniformModelMatrix"
	UniformView       = "uniformViewMatrix"
	UniformProjection = "uniformProjectionMatrix"
)

const (
	// Components per vertex in the vertex and color buffers.
	componentsPerVertex = 4
	vertexStride        = componentsPerVertex * 4

	// Margin checked between every step of the pass.
	stepMarginMB = 1
)

var (
	//go:embed shaders/raster.vert
	DefaultVertexShader string

	//go:embed shaders/raster.frag
	DefaultFragmentShader string
)

// Bridge rasterizes the scene buffers exported by an engine into a frame.
type Bridge struct {
	device Device
	guard  *memory.Guard

	vertexSrc   string
	fragmentSrc string
	scaler      draw.Scaler
}

// NewBridge creates a bridge that draws with the embedded shaders.
func NewBridge(device Device, guard *memory.Guard) *Bridge {
	return &Bridge{
		device:      device,
		guard:       guard,
		vertexSrc:   DefaultVertexShader,
		fragmentSrc: DefaultFragmentShader,
		scaler:      draw.BiLinear,
	}
}

// SetShaders overrides the vertex and fragment shader sources.
func (b *Bridge) SetShaders(vertexSrc, fragmentSrc string) {
	b.vertexSrc = vertexSrc
	b.fragmentSrc = fragmentSrc
}

// Render draws sc on the device and returns the result scaled to
// width x height. Low memory at any step aborts the pass with an error
// matching memory.ErrLowMemory; a program that fails to build aborts it
// with a *ShaderError.
func (b *Bridge) Render(sc buffers.Scene, width, height int) (*frame.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}

	if err := b.device.Clear(); err != nil {
		return nil, err
	}
	if err := b.guard.Check(memory.PreviewSceneSizeMB(sc.NumPrimitives)); err != nil {
		return nil, err
	}

	vertices, colors, err := decodeGeometry(sc)
	if err != nil {
		return nil, err
	}
	if err = b.guard.Check(stepMarginMB); err != nil {
		return nil, err
	}

	cam, err := camera.ParseParameters(sc.Camera)
	if err != nil {
		return nil, err
	}
	if err = b.guard.Check(stepMarginMB); err != nil {
		return nil, err
	}

	prog, err := b.device.CompileProgram(b.vertexSrc, b.fragmentSrc, []string{AttribPosition, AttribColor})
	defer b.device.DeleteProgram(prog)
	if err != nil {
		var shaderErr *ShaderError
		if errors.As(err, &shaderErr) {
			logger.Errorf("could not build rasterization program (%s): %s\n%s", shaderErr.Stage, shaderErr.Log, shaderErr.Source)
		}
		return nil, err
	}
	if err = b.guard.Check(stepMarginMB); err != nil {
		return nil, err
	}

	if err = b.device.UseProgram(prog); err != nil {
		return nil, err
	}

	viewW, viewH := b.device.Size()
	aspect := float32(viewW) / float32(viewH)
	uniforms := []struct {
		name  string
		value mgl32.Mat4
	}{
		{UniformModel, camera.ModelMatrix()},
		{UniformView, cam.ViewMatrix()},
		{UniformProjection, cam.ProjectionMatrix(aspect)},
	}
	for _, u := range uniforms {
		if err = b.device.SetUniformMatrix(u.name, u.value); err != nil {
			return nil, err
		}
	}
	if err = b.guard.Check(stepMarginMB); err != nil {
		return nil, err
	}

	if err = b.device.SetAttribute(AttribPosition, componentsPerVertex, vertices); err != nil {
		return nil, err
	}
	if err = b.guard.Check(stepMarginMB); err != nil {
		return nil, err
	}
	if err = b.device.SetAttribute(AttribColor, componentsPerVertex, colors); err != nil {
		return nil, err
	}
	if err = b.guard.Check(stepMarginMB); err != nil {
		return nil, err
	}

	vertexCount := len(vertices) / componentsPerVertex
	if err = b.device.DrawTriangles(vertexCount); err != nil {
		return nil, err
	}
	logger.Debugf("rasterized %d vertices (%s projection) on a %dx%d surface", vertexCount, cam.Projection(), viewW, viewH)

	raw := make([]uint32, viewW*viewH)
	if err = b.device.ReadPixels(raw); err != nil {
		return nil, err
	}
	if err = b.guard.Check(stepMarginMB); err != nil {
		return nil, err
	}

	return b.scale(convertFrame(raw, viewW, viewH), viewW, viewH, width, height)
}

func (b *Bridge) scale(pix []uint32, srcW, srcH, dstW, dstH int) (*frame.Image, error) {
	src, err := frame.FromPixels(srcW, srcH, pix)
	if err != nil {
		return nil, err
	}
	if srcW == dstW && srcH == dstH {
		return src, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	b.scaler.Scale(dst, dst.Bounds(), src.Snapshot(), src.Bounds(), draw.Src, nil)
	return frame.FromImage(dst), nil
}

func decodeGeometry(sc buffers.Scene) (vertices, colors []float32, err error) {
	if len(sc.Vertices)%vertexStride != 0 || len(sc.Colors)%vertexStride != 0 {
		return nil, nil, ErrMalformedBuffer
	}
	if len(sc.Vertices) != len(sc.Colors) {
		return nil, nil, fmt.Errorf("%w: %d vs %d bytes", ErrBufferMismatch, len(sc.Vertices), len(sc.Colors))
	}
	return decodeFloats(sc.Vertices), decodeFloats(sc.Colors), nil
}

func decodeFloats(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(buf[i*4:]))
	}
	return out
}
