// Package soft implements a software rasterization device.
//
// The device understands the subset of GLSL used by the preview shaders: it
// checks the declared attributes and uniforms and then runs a fixed pipeline
// that transforms vertexPosition by the projection, view and model uniforms
// and interpolates vertexColor across each triangle.
package soft

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/achilleasa/rtsession/preview"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrUnknownProgram   = errors.New("soft: unknown program")
	ErrNoActiveProgram  = errors.New("soft: no active program")
	ErrUnknownAttribute = errors.New("soft: attribute not declared by the active program")
	ErrUnknownUniform   = errors.New("soft: uniform not declared by the active program")
	ErrShortAttribute   = errors.New("soft: attribute data shorter than the draw call")
	ErrBadReadBuffer    = errors.New("soft: read buffer does not match the surface size")
)

// Opaque black in device (RGBA memory) order.
const clearColor uint32 = 0xFF000000

var (
	attribDecl  = regexp.MustCompile(`attribute\s+vec4\s+(\w+)\s*;`)
	uniformDecl = regexp.MustCompile(`uniform\s+mat4\s+(\w+)\s*;`)
)

type attribute struct {
	components int
	data       []float32
}

type program struct {
	attribs  map[string]*attribute
	uniforms map[string]mgl32.Mat4
}

// Device rasterizes triangles into an in-memory color and depth buffer.
// It is not safe for concurrent use.
type Device struct {
	width  int
	height int

	color []uint32
	depth []float32

	nextID   preview.Program
	programs map[preview.Program]*program
	active   *program

	draws int
}

var _ preview.Device = (*Device)(nil)

// New creates a device with a width x height surface.
func New(width, height int) *Device {
	d := &Device{
		width:    width,
		height:   height,
		color:    make([]uint32, width*height),
		depth:    make([]float32, width*height),
		programs: make(map[preview.Program]*program),
	}
	d.Clear()
	return d
}

func (d *Device) Size() (int, int) {
	return d.width, d.height
}

func (d *Device) Clear() error {
	for i := range d.color {
		d.color[i] = clearColor
		d.depth[i] = 1
	}
	return nil
}

func (d *Device) CompileProgram(vertexSrc, fragmentSrc string, attribs []string) (preview.Program, error) {
	d.nextID++
	id := d.nextID
	d.programs[id] = &program{
		attribs:  make(map[string]*attribute),
		uniforms: make(map[string]mgl32.Mat4),
	}

	if !strings.Contains(vertexSrc, "void main") || !strings.Contains(vertexSrc, "gl_Position") {
		return id, &preview.ShaderError{Stage: preview.VertexStage, Log: "vertex shader must write gl_Position from main", Source: vertexSrc}
	}
	if !strings.Contains(fragmentSrc, "void main") || !strings.Contains(fragmentSrc, "gl_FragColor") {
		return id, &preview.ShaderError{Stage: preview.FragmentStage, Log: "fragment shader must write gl_FragColor from main", Source: fragmentSrc}
	}

	declared := make(map[string]bool)
	for _, m := range attribDecl.FindAllStringSubmatch(vertexSrc, -1) {
		declared[m[1]] = true
	}
	for _, name := range attribs {
		if !declared[name] {
			return id, &preview.ShaderError{Stage: preview.LinkStage, Log: fmt.Sprintf("attribute %q is not declared", name), Source: vertexSrc}
		}
	}

	prog := d.programs[id]
	for name := range declared {
		prog.attribs[name] = &attribute{}
	}
	for _, m := range uniformDecl.FindAllStringSubmatch(vertexSrc, -1) {
		prog.uniforms[m[1]] = mgl32.Ident4()
	}
	return id, nil
}

func (d *Device) DeleteProgram(p preview.Program) {
	if prog, ok := d.programs[p]; ok {
		if d.active == prog {
			d.active = nil
		}
		delete(d.programs, p)
	}
}

func (d *Device) UseProgram(p preview.Program) error {
	prog, ok := d.programs[p]
	if !ok {
		return ErrUnknownProgram
	}
	d.active = prog
	return nil
}

func (d *Device) SetAttribute(name string, components int, data []float32) error {
	if d.active == nil {
		return ErrNoActiveProgram
	}
	attr, ok := d.active.attribs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	attr.components = components
	attr.data = data
	return nil
}

func (d *Device) SetUniformMatrix(name string, m mgl32.Mat4) error {
	if d.active == nil {
		return ErrNoActiveProgram
	}
	if _, ok := d.active.uniforms[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUniform, name)
	}
	d.active.uniforms[name] = m
	return nil
}

func (d *Device) DrawTriangles(vertexCount int) error {
	if d.active == nil {
		return ErrNoActiveProgram
	}
	pos, err := d.active.input(preview.AttribPosition, vertexCount)
	if err != nil {
		return err
	}
	col, err := d.active.input(preview.AttribColor, vertexCount)
	if err != nil {
		return err
	}

	u := d.active.uniforms
	mvp := u[preview.UniformProjection].Mul4(u[preview.UniformView]).Mul4(u[preview.UniformModel])

	d.draws++
	for t := 0; t+2 < vertexCount; t += 3 {
		var tri [3]vertex
		visible := true
		for k := 0; k < 3 && visible; k++ {
			tri[k], visible = d.project(mvp, pos.vec4(t+k), col.vec4(t+k))
		}
		if visible {
			d.rasterize(tri)
		}
	}
	return nil
}

func (d *Device) ReadPixels(dst []uint32) error {
	if len(dst) != len(d.color) {
		return ErrBadReadBuffer
	}
	copy(dst, d.color)
	return nil
}

// LivePrograms returns the number of programs that have not been deleted.
func (d *Device) LivePrograms() int {
	return len(d.programs)
}

// Draws returns the number of completed draw calls.
func (d *Device) Draws() int {
	return d.draws
}

func (p *program) input(name string, vertexCount int) (*attribute, error) {
	attr, ok := p.attribs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	if attr.components < 1 || len(attr.data) < vertexCount*attr.components {
		return nil, fmt.Errorf("%w: %s", ErrShortAttribute, name)
	}
	return attr, nil
}

// vec4 expands vertex i to 4 components using the GL defaults (0, 0, 0, 1)
// for missing ones.
func (a *attribute) vec4(i int) mgl32.Vec4 {
	out := mgl32.Vec4{0, 0, 0, 1}
	n := a.components
	if n > 4 {
		n = 4
	}
	copy(out[:n], a.data[i*a.components:i*a.components+n])
	return out
}

// A vertex in window coordinates.
type vertex struct {
	x, y, z float32
	color   mgl32.Vec4
}

// project runs the vertex stage for one vertex. Vertices behind the eye
// are reported as not visible since the device does not clip.
func (d *Device) project(mvp mgl32.Mat4, pos, color mgl32.Vec4) (vertex, bool) {
	clip := mvp.Mul4x1(pos)
	if clip[3] <= 0 {
		return vertex{}, false
	}
	inv := 1 / clip[3]
	return vertex{
		x:     (clip[0]*inv + 1) * 0.5 * float32(d.width),
		y:     (clip[1]*inv + 1) * 0.5 * float32(d.height),
		z:     (clip[2]*inv + 1) * 0.5,
		color: color,
	}, true
}

func edge(a, b vertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func (d *Device) rasterize(tri [3]vertex) {
	area := edge(tri[0], tri[1], tri[2].x, tri[2].y)
	if area == 0 {
		return
	}

	minX := clampInt(int(math.Floor(float64(min3(tri[0].x, tri[1].x, tri[2].x)))), 0, d.width-1)
	maxX := clampInt(int(math.Ceil(float64(max3(tri[0].x, tri[1].x, tri[2].x)))), 0, d.width-1)
	minY := clampInt(int(math.Floor(float64(min3(tri[0].y, tri[1].y, tri[2].y)))), 0, d.height-1)
	maxY := clampInt(int(math.Ceil(float64(max3(tri[0].y, tri[1].y, tri[2].y)))), 0, d.height-1)

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(tri[1], tri[2], px, py) / area
			w1 := edge(tri[2], tri[0], px, py) / area
			w2 := edge(tri[0], tri[1], px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*tri[0].z + w1*tri[1].z + w2*tri[2].z
			idx := y*d.width + x
			if z < 0 || z > 1 || z > d.depth[idx] {
				continue
			}
			d.depth[idx] = z

			c := tri[0].color.Mul(w0).Add(tri[1].color.Mul(w1)).Add(tri[2].color.Mul(w2))
			d.color[idx] = packRGBA(c)
		}
	}
}

// packRGBA stores a color in GL memory order with red in the low byte.
func packRGBA(c mgl32.Vec4) uint32 {
	var out uint32
	for i := 3; i >= 0; i-- {
		v := c[i]
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out = out<<8 | uint32(v*255+0.5)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float32) float32 {
	return float32(math.Min(float64(a), math.Min(float64(b), float64(c))))
}

func max3(a, b, c float32) float32 {
	return float32(math.Max(float64(a), math.Max(float64(b), float64(c))))
}
