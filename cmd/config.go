package cmd

import (
	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/memory"
	"github.com/urfave/cli"
)

// Build a render config from the scene flags.
func renderConfig(ctx *cli.Context) (engine.RenderConfig, error) {
	scene, err := engine.ParseScene(ctx.String("scene"))
	if err != nil {
		return engine.RenderConfig{}, err
	}
	shader, err := engine.ParseShader(ctx.String("shader"))
	if err != nil {
		return engine.RenderConfig{}, err
	}
	accel, err := engine.ParseAccelerator(ctx.String("accelerator"))
	if err != nil {
		return engine.RenderConfig{}, err
	}

	return engine.NewConfigBuilder().
		WithScene(scene).
		WithShader(shader).
		WithAccelerator(accel).
		WithWidth(ctx.Int("width")).
		WithHeight(ctx.Int("height")).
		WithSamplesPixel(ctx.Int("spp")).
		WithSamplesLight(ctx.Int("spl")).
		WithOBJ(ctx.String("obj")).
		WithMAT(ctx.String("mtl")).
		WithCAM(ctx.String("cam")).
		Build()
}

func memoryGuard(ctx *cli.Context) *memory.Guard {
	return memory.NewGuard(memory.SystemProvider{
		Threshold: ctx.GlobalUint64("low-memory-threshold") * memory.MB,
	})
}
