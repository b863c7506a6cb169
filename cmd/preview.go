package cmd

import (
	"time"

	"github.com/achilleasa/rtsession/buffers"
	"github.com/achilleasa/rtsession/engine/sim"
	"github.com/achilleasa/rtsession/preview"
	"github.com/urfave/cli"
)

// Rasterize a preview of a scene and save it.
func RenderPreview(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	cfg, err := renderConfig(ctx)
	if err != nil {
		return err
	}
	guard := memoryGuard(ctx)
	eng := sim.New(sim.Options{MaxPrimitives: ctx.Int("max-primitives")})

	numPrimitives, err := eng.Initialize(cfg)
	if err != nil {
		return err
	}

	dev, closeDev, err := previewDevice(ctx, cfg.Width(), cfg.Height())
	if err != nil {
		return err
	}
	defer closeDev()

	bufs := buffers.New(eng, guard)
	defer bufs.ReleaseAll()
	sc, err := bufs.AcquireAll(numPrimitives)
	if err != nil {
		return err
	}

	start := time.Now()
	img, err := preview.NewBridge(dev, guard).Render(sc, cfg.Width(), cfg.Height())
	if err != nil {
		return err
	}
	logger.Noticef("rasterized %d primitives in %s", numPrimitives, time.Since(start))

	imgFile := ctx.String("out")
	if err = writePNG(imgFile, img); err != nil {
		return err
	}
	logger.Noticef("saved preview to %s", imgFile)
	return nil
}
