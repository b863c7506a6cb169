package engine

import (
	"fmt"
	"strings"
)

// Scene selects one of the built-in scenes.
type Scene int

const (
	CornellBox Scene = iota
	Triangle
	Pyramid
	// Load geometry from the OBJ/MTL/CAM paths of the config.
	SceneFile
)

// Shader selects the shading model.
type Shader int

const (
	NoShadows Shader = iota
	Whitted
	DepthMap
	DiffuseMaterial
)

// Accelerator selects the ray intersection acceleration structure.
type Accelerator int

const (
	NoAccelerator Accelerator = iota
	Naive
	RegGrid
	BVH
)

var (
	sceneNames       = []string{"Cornell", "Triangle", "Pyramid", "File"}
	shaderNames      = []string{"NoShadows", "Whitted", "DepthMap", "DiffuseMaterial"}
	acceleratorNames = []string{"None", "Naive", "RegGrid", "BVH"}
)

func (s Scene) String() string       { return name(sceneNames, int(s)) }
func (s Shader) String() string      { return name(shaderNames, int(s)) }
func (a Accelerator) String() string { return name(acceleratorNames, int(a)) }

// Get the names of all scenes, shaders and accelerators in id order.
func SceneNames() []string       { return append([]string(nil), sceneNames...) }
func ShaderNames() []string      { return append([]string(nil), shaderNames...) }
func AcceleratorNames() []string { return append([]string(nil), acceleratorNames...) }

// ParseScene looks up a scene by (case-insensitive) name.
func ParseScene(s string) (Scene, error) {
	id, err := lookup(sceneNames, "scene", s)
	return Scene(id), err
}

// ParseShader looks up a shader by (case-insensitive) name.
func ParseShader(s string) (Shader, error) {
	id, err := lookup(shaderNames, "shader", s)
	return Shader(id), err
}

// ParseAccelerator looks up an accelerator by (case-insensitive) name.
func ParseAccelerator(s string) (Accelerator, error) {
	id, err := lookup(acceleratorNames, "accelerator", s)
	return Accelerator(id), err
}

func name(names []string, id int) string {
	if id < 0 || id >= len(names) {
		return fmt.Sprintf("unknown(%d)", id)
	}
	return names[id]
}

func lookup(names []string, kind, s string) (int, error) {
	for id, n := range names {
		if strings.EqualFold(n, s) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, kind, s)
}
