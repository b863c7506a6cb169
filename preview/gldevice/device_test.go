package gldevice

import (
	"os"
	"runtime"
	"testing"

	"github.com/achilleasa/rtsession/preview"
)

func newDevice(t *testing.T) *Device {
	t.Helper()
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		t.Skip("no display available")
	}
	d, err := New(16, 16)
	if err != nil {
		t.Skipf("opengl unavailable: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestClearAndRead(t *testing.T) {
	d := newDevice(t)
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}

	w, h := d.Size()
	out := make([]uint32, w*h)
	if err := d.ReadPixels(out); err != nil {
		t.Fatal(err)
	}
	for i, p := range out {
		if p != 0xFF000000 {
			t.Fatalf("expected pixel %d to be opaque black; got %#08x", i, p)
		}
	}
	if err := d.ReadPixels(out[:1]); err != ErrBadReadBuffer {
		t.Fatalf("expected ErrBadReadBuffer; got %v", err)
	}
}

func TestCompileDefaultProgram(t *testing.T) {
	d := newDevice(t)
	prog, err := d.CompileProgram(preview.DefaultVertexShader, preview.DefaultFragmentShader, []string{preview.AttribPosition, preview.AttribColor})
	defer d.DeleteProgram(prog)
	if err != nil {
		t.Fatal(err)
	}
	if err = d.UseProgram(prog); err != nil {
		t.Fatal(err)
	}
}

func TestCompileBrokenProgram(t *testing.T) {
	d := newDevice(t)
	prog, err := d.CompileProgram("#version 120\nvoid main() { gl_Position = undefined; }", preview.DefaultFragmentShader, nil)
	defer d.DeleteProgram(prog)
	shaderErr, ok := err.(*preview.ShaderError)
	if !ok || shaderErr.Stage != preview.VertexStage {
		t.Fatalf("expected vertex stage ShaderError; got %v", err)
	}
}

func TestClosedDevice(t *testing.T) {
	d := newDevice(t)
	d.Close()
	if err := d.Clear(); err != ErrClosed {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
}
