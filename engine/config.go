package engine

import (
	"fmt"
)

// RenderConfig describes a render request. Values are built through a
// ConfigBuilder and never modified afterwards.
type RenderConfig struct {
	scene       Scene
	shader      Shader
	accelerator Accelerator

	width  int
	height int

	samplesPixel int
	samplesLight int

	objFile string
	matFile string
	camFile string
}

func (c RenderConfig) Scene() Scene             { return c.scene }
func (c RenderConfig) Shader() Shader           { return c.shader }
func (c RenderConfig) Accelerator() Accelerator { return c.accelerator }
func (c RenderConfig) Width() int               { return c.width }
func (c RenderConfig) Height() int              { return c.height }
func (c RenderConfig) SamplesPixel() int        { return c.samplesPixel }
func (c RenderConfig) SamplesLight() int        { return c.samplesLight }
func (c RenderConfig) OBJFile() string          { return c.objFile }
func (c RenderConfig) MATFile() string          { return c.matFile }
func (c RenderConfig) CAMFile() string          { return c.camFile }

func (c RenderConfig) String() string {
	return fmt.Sprintf(
		"scene=%s shader=%s accelerator=%s %dx%d spp=%d spl=%d",
		c.scene, c.shader, c.accelerator, c.width, c.height, c.samplesPixel, c.samplesLight,
	)
}

// ConfigBuilder assembles a RenderConfig.
type ConfigBuilder struct {
	cfg RenderConfig
}

// NewConfigBuilder returns a builder preloaded with a 1x1 single sample
// render of the Cornell box.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: RenderConfig{
		width:        1,
		height:       1,
		samplesPixel: 1,
		samplesLight: 1,
	}}
}

func (b *ConfigBuilder) WithScene(s Scene) *ConfigBuilder {
	b.cfg.scene = s
	return b
}

func (b *ConfigBuilder) WithShader(s Shader) *ConfigBuilder {
	b.cfg.shader = s
	return b
}

func (b *ConfigBuilder) WithAccelerator(a Accelerator) *ConfigBuilder {
	b.cfg.accelerator = a
	return b
}

func (b *ConfigBuilder) WithWidth(w int) *ConfigBuilder {
	b.cfg.width = w
	return b
}

func (b *ConfigBuilder) WithHeight(h int) *ConfigBuilder {
	b.cfg.height = h
	return b
}

func (b *ConfigBuilder) WithSamplesPixel(n int) *ConfigBuilder {
	b.cfg.samplesPixel = n
	return b
}

func (b *ConfigBuilder) WithSamplesLight(n int) *ConfigBuilder {
	b.cfg.samplesLight = n
	return b
}

func (b *ConfigBuilder) WithOBJ(path string) *ConfigBuilder {
	b.cfg.objFile = path
	return b
}

func (b *ConfigBuilder) WithMAT(path string) *ConfigBuilder {
	b.cfg.matFile = path
	return b
}

func (b *ConfigBuilder) WithCAM(path string) *ConfigBuilder {
	b.cfg.camFile = path
	return b
}

// Build validates the accumulated settings and returns the config.
func (b *ConfigBuilder) Build() (RenderConfig, error) {
	c := b.cfg
	switch {
	case c.width <= 0 || c.height <= 0:
		return RenderConfig{}, fmt.Errorf("%w: frame dimensions must be positive; got %dx%d", ErrInvalidConfig, c.width, c.height)
	case c.samplesPixel < 0 || c.samplesLight < 0:
		return RenderConfig{}, fmt.Errorf("%w: sample counts must not be negative", ErrInvalidConfig)
	case int(c.scene) < 0 || int(c.scene) >= len(sceneNames):
		return RenderConfig{}, fmt.Errorf("%w: unknown scene %d", ErrInvalidConfig, c.scene)
	case int(c.shader) < 0 || int(c.shader) >= len(shaderNames):
		return RenderConfig{}, fmt.Errorf("%w: unknown shader %d", ErrInvalidConfig, c.shader)
	case int(c.accelerator) < 0 || int(c.accelerator) >= len(acceleratorNames):
		return RenderConfig{}, fmt.Errorf("%w: unknown accelerator %d", ErrInvalidConfig, c.accelerator)
	case c.scene == SceneFile && c.objFile == "":
		return RenderConfig{}, fmt.Errorf("%w: file scene requires an OBJ path", ErrInvalidConfig)
	}
	return c, nil
}
