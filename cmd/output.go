package cmd

import (
	"image/png"
	"os"

	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/preview"
	"github.com/achilleasa/rtsession/preview/gldevice"
	"github.com/achilleasa/rtsession/preview/soft"
	"github.com/urfave/cli"
)

// Write a copy of img to a png file.
func writePNG(imgFile string, img *frame.Image) error {
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img.Snapshot())
}

// Open the rasterization device selected by the --gl flag. The returned
// func releases it.
func previewDevice(ctx *cli.Context, width, height int) (preview.Device, func(), error) {
	if vw := ctx.Int("view-width"); vw > 0 {
		width = vw
	}
	if vh := ctx.Int("view-height"); vh > 0 {
		height = vh
	}

	if !ctx.Bool("gl") {
		logger.Infof("using software rasterizer (%dx%d)", width, height)
		return soft.New(width, height), func() {}, nil
	}

	dev, err := gldevice.New(width, height)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("using opengl rasterizer (%dx%d)", width, height)
	return dev, dev.Close, nil
}
