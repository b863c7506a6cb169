package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/achilleasa/rtsession/engine/sim"
	"github.com/achilleasa/rtsession/preview"
	"github.com/achilleasa/rtsession/session"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a scene with the sim engine and save the final frame.
func RenderScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	cfg, err := renderConfig(ctx)
	if err != nil {
		return err
	}
	guard := memoryGuard(ctx)
	eng := sim.New(sim.Options{
		MaxPrimitives: ctx.Int("max-primitives"),
		PassDelay:     ctx.Duration("pass-delay"),
	})

	rasterize := ctx.Bool("rasterize")
	var bridge *preview.Bridge
	if rasterize {
		dev, closeDev, err := previewDevice(ctx, cfg.Width(), cfg.Height())
		if err != nil {
			return err
		}
		defer closeDev()
		bridge = preview.NewBridge(dev, guard)
	}

	opts := session.DefaultOptions()
	if interval := ctx.Duration("poll-interval"); interval > 0 {
		opts.PollInterval = interval
	}
	view := newHeadlessView()
	ctrl := session.NewController(eng, guard, bridge, view, opts)
	defer ctrl.Close(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	if err = ctrl.RenderScene(context.Background(), cfg, ctx.Int("threads"), rasterize); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if limit := ctx.Duration("timeout"); limit > 0 {
		timeout = time.After(limit)
	}

	select {
	case <-view.idle:
	case <-sigCh:
		logger.Notice("interrupted; stopping render")
		err = ctrl.StopDrawing(context.Background())
	case <-timeout:
		logger.Notice("time limit reached; stopping render")
		err = ctrl.StopDrawing(context.Background())
	}
	if err != nil {
		return err
	}

	stats := ctrl.Stats()
	displaySessionStats(stats)
	if stats.Err != nil {
		return stats.Err
	}

	img := view.frame()
	if img == nil {
		return errors.New("no frame was rendered")
	}
	imgFile := ctx.String("out")
	if err = writePNG(imgFile, img); err != nil {
		return err
	}
	logger.Noticef("saved frame to %s", imgFile)
	return nil
}

func displaySessionStats(stats session.Stats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Setting", "Value"})

	cfg := stats.Config
	table.AppendBulk([][]string{
		{"Scene", cfg.Scene().String()},
		{"Shader", cfg.Shader().String()},
		{"Accelerator", cfg.Accelerator().String()},
		{"Resolution", fmt.Sprintf("%dx%d", cfg.Width(), cfg.Height())},
		{"Threads", fmt.Sprintf("%d", stats.Threads)},
		{"Samples per pixel", fmt.Sprintf("%d", cfg.SamplesPixel())},
		{"Samples per light", fmt.Sprintf("%d", cfg.SamplesLight())},
		{"Primitives", fmt.Sprintf("%d", stats.Primitives)},
		{"Lights", fmt.Sprintf("%d", stats.Lights)},
		{"Preview", previewSummary(stats)},
		{"Status polls", fmt.Sprintf("%d (%.1f Hz)", stats.Polls, stats.RefreshRate())},
		{"Engine state", stats.State.String()},
	})
	table.SetFooter([]string{"RENDER TIME", stats.Elapsed().String()})

	table.Render()
	logger.Noticef("session statistics\n%s", buf.String())
}

func previewSummary(stats session.Stats) string {
	if !stats.Rasterized {
		return "none"
	}
	return stats.PreviewTime.String()
}
