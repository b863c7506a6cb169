package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/achilleasa/rtsession/cmd"
	"github.com/achilleasa/rtsession/memory"
	"github.com/achilleasa/rtsession/session"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sceneFlags := []cli.Flag{
		cli.StringFlag{
			Name:   "scene, s",
			Value:  "Cornell",
			Usage:  "built-in scene to render (see the list command)",
			EnvVar: "RTSESSION_SCENE",
		},
		cli.StringFlag{
			Name:   "shader",
			Value:  "Whitted",
			Usage:  "shading model",
			EnvVar: "RTSESSION_SHADER",
		},
		cli.StringFlag{
			Name:   "accelerator, a",
			Value:  "BVH",
			Usage:  "ray intersection acceleration structure",
			EnvVar: "RTSESSION_ACCELERATOR",
		},
		cli.IntFlag{
			Name:   "width",
			Value:  640,
			Usage:  "frame width",
			EnvVar: "RTSESSION_WIDTH",
		},
		cli.IntFlag{
			Name:   "height",
			Value:  480,
			Usage:  "frame height",
			EnvVar: "RTSESSION_HEIGHT",
		},
		cli.IntFlag{
			Name:  "spp",
			Value: 4,
			Usage: "samples per pixel",
		},
		cli.IntFlag{
			Name:  "spl",
			Value: 1,
			Usage: "samples per light",
		},
		cli.StringFlag{
			Name:  "obj",
			Usage: "wavefront obj file for the File scene",
		},
		cli.StringFlag{
			Name:  "mtl",
			Usage: "material library for the File scene",
		},
		cli.StringFlag{
			Name:  "cam",
			Usage: "camera file for the File scene",
		},
		cli.IntFlag{
			Name:  "max-primitives",
			Usage: "reject scenes with more primitives than this (0 disables the limit)",
		},
	}

	previewFlags := []cli.Flag{
		cli.BoolFlag{
			Name:  "gl",
			Usage: "rasterize with opengl instead of the software rasterizer",
		},
		cli.IntFlag{
			Name:  "view-width",
			Usage: "rasterization surface width (defaults to the frame width)",
		},
		cli.IntFlag{
			Name:  "view-height",
			Usage: "rasterization surface height (defaults to the frame height)",
		},
	}

	app := cli.NewApp()
	app.Name = "rtsession"
	app.Usage = "drive ray traced render sessions with a rasterized preview"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "log level (debug, info, notice, warning, error)",
			EnvVar: "RTSESSION_LOG_LEVEL",
		},
		cli.Uint64Flag{
			Name:   "low-memory-threshold",
			Value:  memory.DefaultLowMemoryThreshold / memory.MB,
			Usage:  "raise the low memory flag when available memory (MB) drops below this value",
			EnvVar: "RTSESSION_LOW_MEMORY_THRESHOLD",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene",
			Description: `
Run a render session with the built-in CPU engine. When --rasterize is set a
preview of the scene geometry is rasterized first and progressively replaced
by ray traced samples. The final frame is saved as a png image.`,
			Flags: append(append(sceneFlags, previewFlags...),
				cli.IntFlag{
					Name:   "threads, t",
					Value:  runtime.NumCPU(),
					Usage:  "number of render threads",
					EnvVar: "RTSESSION_THREADS",
				},
				cli.BoolFlag{
					Name:  "rasterize, r",
					Usage: "draw a rasterized preview before ray tracing",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "stop the render after this long (0 waits for completion)",
				},
				cli.DurationFlag{
					Name:  "poll-interval",
					Value: session.DefaultOptions().PollInterval,
					Usage: "engine status poll interval",
				},
				cli.DurationFlag{
					Name:  "pass-delay",
					Usage: "pause between progressive passes",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			),
			Action: cmd.RenderScene,
		},
		{
			Name:        "preview",
			Usage:       "rasterize a scene preview",
			Description: `Rasterize the scene geometry once and save it as a png image.`,
			Flags: append(append(sceneFlags, previewFlags...),
				cli.StringFlag{
					Name:  "out, o",
					Value: "preview.png",
					Usage: "image filename for the preview",
				},
			),
			Action: cmd.RenderPreview,
		},
		{
			Name:   "list",
			Usage:  "list available scenes, shaders and accelerators",
			Action: cmd.ListCatalog,
		},
		{
			Name:  "memory",
			Usage: "report available memory and scene size estimates",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "primitives, p",
					Value: 100000,
					Usage: "scene size used for the estimates",
				},
				cli.IntFlag{
					Name:  "margin, m",
					Usage: "additional margin (MB) to check",
				},
			},
			Action: cmd.ShowMemory,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
