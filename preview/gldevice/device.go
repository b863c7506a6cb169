// Package gldevice implements a preview device on top of an OpenGL 2.1
// context owned by a hidden glfw window.
//
// OpenGL contexts are bound to a single OS thread, so every call is
// forwarded to a dedicated goroutine that locks its thread for the lifetime
// of the device.
package gldevice

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/achilleasa/rtsession/log"
	"github.com/achilleasa/rtsession/preview"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("gl device")

var (
	ErrClosed          = errors.New("gldevice: device is closed")
	ErrNoActiveProgram = errors.New("gldevice: no active program")
	ErrBadReadBuffer   = errors.New("gldevice: read buffer does not match the surface size")
)

// Device renders into the default framebuffer of an invisible window.
type Device struct {
	calls chan func()
	done  chan struct{}

	window *glfw.Window
	width  int
	height int

	active  uint32
	buffers map[string]uint32
}

var _ preview.Device = (*Device)(nil)

// New creates a hidden width x height window and an OpenGL 2.1 context.
func New(width, height int) (*Device, error) {
	d := &Device{
		calls:   make(chan func()),
		done:    make(chan struct{}),
		buffers: make(map[string]uint32),
	}

	initErr := make(chan error, 1)
	go d.loop(width, height, initErr)
	if err := <-initErr; err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) loop(width, height int, initErr chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.done)

	if err := d.initGL(width, height); err != nil {
		initErr <- err
		return
	}
	initErr <- nil

	for fn := range d.calls {
		fn()
	}

	for _, vbo := range d.buffers {
		gl.DeleteBuffers(1, &vbo)
	}
	d.window.Destroy()
	glfw.Terminate()
}

func (d *Device) initGL(width, height int) error {
	var err error
	if err = glfw.Init(); err != nil {
		return fmt.Errorf("gldevice: failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	d.window, err = glfw.CreateWindow(width, height, "rtsession preview", nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("gldevice: could not create opengl window: %w", err)
	}
	d.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		d.window.Destroy()
		glfw.Terminate()
		return fmt.Errorf("gldevice: could not init opengl: %w", err)
	}

	// The framebuffer can be larger than the window on high density displays.
	d.width, d.height = d.window.GetFramebufferSize()
	gl.Viewport(0, 0, int32(d.width), int32(d.height))
	gl.ClearColor(0, 0, 0, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)

	logger.Infof("opengl %s on %s (%dx%d framebuffer)", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)), d.width, d.height)
	return nil
}

// do runs fn on the GL thread and waits for it to return.
func (d *Device) do(fn func() error) (err error) {
	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	result := make(chan error, 1)
	d.calls <- func() { result <- fn() }
	return <-result
}

// Close destroys the window and releases the context.
func (d *Device) Close() {
	select {
	case <-d.done:
		return
	default:
	}
	close(d.calls)
	<-d.done
}

func (d *Device) Size() (int, int) {
	return d.width, d.height
}

func (d *Device) Clear() error {
	return d.do(func() error {
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
		return glError("clear")
	})
}

func (d *Device) CompileProgram(vertexSrc, fragmentSrc string, attribs []string) (preview.Program, error) {
	var prog uint32
	err := d.do(func() error {
		prog = gl.CreateProgram()
		if prog == 0 {
			return &preview.ShaderError{Stage: preview.LinkStage, Log: "glCreateProgram returned 0"}
		}

		vs, err := compileShader(gl.VERTEX_SHADER, preview.VertexStage, vertexSrc)
		if err != nil {
			return err
		}
		defer gl.DeleteShader(vs)

		fs, err := compileShader(gl.FRAGMENT_SHADER, preview.FragmentStage, fragmentSrc)
		if err != nil {
			return err
		}
		defer gl.DeleteShader(fs)

		for index, name := range attribs {
			gl.BindAttribLocation(prog, uint32(index), gl.Str(name+"\x00"))
		}
		gl.AttachShader(prog, vs)
		gl.AttachShader(prog, fs)
		gl.LinkProgram(prog)

		var status int32
		gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
		if status == gl.FALSE {
			var logLength int32
			gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
			infoLog := strings.Repeat("\x00", int(logLength+1))
			gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(infoLog))
			return &preview.ShaderError{Stage: preview.LinkStage, Log: strings.TrimRight(infoLog, "\x00")}
		}
		return glError("link program")
	})
	return preview.Program(prog), err
}

func compileShader(shaderType uint32, stage preview.Stage, source string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, &preview.ShaderError{Stage: stage, Log: strings.TrimRight(infoLog, "\x00"), Source: source}
	}
	return shader, nil
}

func (d *Device) DeleteProgram(p preview.Program) {
	if p == 0 {
		return
	}
	d.do(func() error {
		if d.active == uint32(p) {
			gl.UseProgram(0)
			d.active = 0
		}
		gl.DeleteProgram(uint32(p))
		return nil
	})
}

func (d *Device) UseProgram(p preview.Program) error {
	return d.do(func() error {
		gl.UseProgram(uint32(p))
		if err := glError("use program"); err != nil {
			return err
		}
		d.active = uint32(p)
		return nil
	})
}

func (d *Device) SetAttribute(name string, components int, data []float32) error {
	return d.do(func() error {
		if d.active == 0 {
			return ErrNoActiveProgram
		}
		loc := gl.GetAttribLocation(d.active, gl.Str(name+"\x00"))
		if loc < 0 {
			return fmt.Errorf("gldevice: attribute %q not found", name)
		}

		vbo, ok := d.buffers[name]
		if !ok {
			gl.GenBuffers(1, &vbo)
			d.buffers[name] = vbo
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
		if len(data) > 0 {
			gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
		}
		gl.VertexAttribPointerWithOffset(uint32(loc), int32(components), gl.FLOAT, false, 0, 0)
		gl.EnableVertexAttribArray(uint32(loc))
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		return glError("set attribute " + name)
	})
}

func (d *Device) SetUniformMatrix(name string, m mgl32.Mat4) error {
	return d.do(func() error {
		if d.active == 0 {
			return ErrNoActiveProgram
		}
		loc := gl.GetUniformLocation(d.active, gl.Str(name+"\x00"))
		if loc < 0 {
			return fmt.Errorf("gldevice: uniform %q not found", name)
		}
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
		return glError("set uniform " + name)
	})
}

func (d *Device) DrawTriangles(vertexCount int) error {
	return d.do(func() error {
		if d.active == 0 {
			return ErrNoActiveProgram
		}
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
		gl.DrawArrays(gl.TRIANGLES, 0, int32(vertexCount))
		gl.Disable(gl.DEPTH_TEST)
		return glError("draw")
	})
}

func (d *Device) ReadPixels(dst []uint32) error {
	if len(dst) != d.width*d.height {
		return ErrBadReadBuffer
	}
	return d.do(func() error {
		gl.Finish()
		gl.ReadPixels(0, 0, int32(d.width), int32(d.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(dst))
		return glError("read pixels")
	})
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gldevice: %s failed with GL error %#x", op, code)
	}
	return nil
}
