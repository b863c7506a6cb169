package frame

import (
	"errors"
	"image"
	"image/color"
	"sync"
)

var ErrSizeMismatch = errors.New("frame: pixel count does not match frame dimensions")

// Opaque black in ARGB order.
const Black uint32 = 0xFF000000

// Image is a display-ready frame of ARGB pixels stored row-major with the
// top row first. Access is synchronized so that a producer can update the
// frame while a consumer reads it.
type Image struct {
	mu     sync.RWMutex
	width  int
	height int
	pix    []uint32
}

// New allocates a width x height frame cleared to opaque black.
func New(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	img := &Image{
		width:  width,
		height: height,
		pix:    make([]uint32, width*height),
	}
	img.Fill(Black)
	return img
}

// FromPixels wraps a copy of the given ARGB pixels.
func FromPixels(width, height int, pix []uint32) (*Image, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, ErrSizeMismatch
	}
	img := &Image{width: width, height: height, pix: make([]uint32, len(pix))}
	copy(img.pix, pix)
	return img, nil
}

// FromImage converts any image into a frame.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := &Image{width: b.Dx(), height: b.Dy(), pix: make([]uint32, b.Dx()*b.Dy())}
	for y := 0; y < img.height; y++ {
		for x := 0; x < img.width; x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			img.pix[y*img.width+x] = PackARGB(c)
		}
	}
	return img
}

func (img *Image) Width() int  { return img.width }
func (img *Image) Height() int { return img.height }

// Fill sets every pixel to argb.
func (img *Image) Fill(argb uint32) {
	img.mu.Lock()
	defer img.mu.Unlock()
	for i := range img.pix {
		img.pix[i] = argb
	}
}

// Update runs fn with exclusive access to the pixel slice.
func (img *Image) Update(fn func(pix []uint32)) {
	img.mu.Lock()
	defer img.mu.Unlock()
	fn(img.pix)
}

// Pixels returns a copy of the frame contents.
func (img *Image) Pixels() []uint32 {
	img.mu.RLock()
	defer img.mu.RUnlock()
	out := make([]uint32, len(img.pix))
	copy(out, img.pix)
	return out
}

// Pixel returns the ARGB value at (x, y) or 0 when out of bounds.
func (img *Image) Pixel(x, y int) uint32 {
	if x < 0 || y < 0 || x >= img.width || y >= img.height {
		return 0
	}
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.pix[y*img.width+x]
}

// Snapshot returns an independent copy of the frame as an *image.NRGBA.
func (img *Image) Snapshot() *image.NRGBA {
	img.mu.RLock()
	defer img.mu.RUnlock()

	out := image.NewNRGBA(image.Rect(0, 0, img.width, img.height))
	for i, p := range img.pix {
		o := i * 4
		out.Pix[o+0] = uint8(p >> 16)
		out.Pix[o+1] = uint8(p >> 8)
		out.Pix[o+2] = uint8(p)
		out.Pix[o+3] = uint8(p >> 24)
	}
	return out
}

// ColorModel, Bounds, At and Set implement draw.Image.
func (img *Image) ColorModel() color.Model { return color.NRGBAModel }

func (img *Image) Bounds() image.Rectangle { return image.Rect(0, 0, img.width, img.height) }

func (img *Image) At(x, y int) color.Color {
	return UnpackARGB(img.Pixel(x, y))
}

func (img *Image) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= img.width || y >= img.height {
		return
	}
	argb := PackARGB(color.NRGBAModel.Convert(c).(color.NRGBA))
	img.mu.Lock()
	img.pix[y*img.width+x] = argb
	img.mu.Unlock()
}

// PackARGB packs a color into a 32-bit ARGB value.
func PackARGB(c color.NRGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// UnpackARGB expands a 32-bit ARGB value.
func UnpackARGB(argb uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
		A: uint8(argb >> 24),
	}
}
