package sim

import (
	"fmt"
	"math"

	"github.com/achilleasa/rtsession/camera"
	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/types"
)

type material struct {
	// Fraction of light mirrored by the surface (Whitted shader only).
	reflectivity float32

	// Emissive surfaces are drawn with their own color and cast no shadows.
	emissive bool
}

type triangle struct {
	v   [3]types.Vec3
	c   [3]types.Vec3
	mat material
}

type light struct {
	pos    types.Vec3
	radius float32
	color  types.Vec3
}

// A scene uses the engine's left-handed coordinate system: x points right,
// y up and z away from the viewer.
type scene struct {
	tris   []triangle
	lights []light
	cam    camera.Parameters

	// Distance from the eye to the farthest vertex; used by the depth map shader.
	far float32
}

func flat(a, b, c, color types.Vec3, mat material) triangle {
	return triangle{
		v:   [3]types.Vec3{a, b, c},
		c:   [3]types.Vec3{color, color, color},
		mat: mat,
	}
}

func quad(a, b, c, d, color types.Vec3, mat material) []triangle {
	return []triangle{
		flat(a, b, c, color, mat),
		flat(a, c, d, color, mat),
	}
}

// Build an axis aligned box.
func box(lo, hi, color types.Vec3, mat material) []triangle {
	corner := func(x, y, z int) types.Vec3 {
		pick := func(axis, sel int) float32 {
			if sel == 0 {
				return lo[axis]
			}
			return hi[axis]
		}
		return types.XYZ(pick(0, x), pick(1, y), pick(2, z))
	}

	var tris []triangle
	faces := [][4][3]int{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, // front
		{{0, 0, 1}, {0, 1, 1}, {1, 1, 1}, {1, 0, 1}}, // back
		{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}}, // left
		{{1, 0, 0}, {1, 0, 1}, {1, 1, 1}, {1, 1, 0}}, // right
		{{0, 1, 0}, {1, 1, 0}, {1, 1, 1}, {0, 1, 1}}, // top
		{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 0, 0}}, // bottom
	}
	for _, f := range faces {
		var p [4]types.Vec3
		for i, c := range f {
			p[i] = corner(c[0], c[1], c[2])
		}
		tris = append(tris, quad(p[0], p[1], p[2], p[3], color, mat)...)
	}
	return tris
}

// Build a perspective camera with a vertical field of view of fovY degrees.
// The horizontal field of view is derived from the aspect ratio.
func perspective(eye, dir, up types.Vec3, fovY, aspect float32) camera.Parameters {
	halfY := float64(fovY) * math.Pi / 360
	fovX := float32(2 * math.Atan(float64(aspect)*math.Tan(halfY)) * 180 / math.Pi)
	return camera.Parameters{
		Eye:       eye,
		Direction: dir.Normalize(),
		Up:        up,
		FovX:      fovX,
		FovY:      fovY,
	}
}

// Build an orthographic camera covering sizeV world units vertically.
func orthographic(eye, dir, up types.Vec3, sizeV, aspect float32) camera.Parameters {
	return camera.Parameters{
		Eye:       eye,
		Direction: dir.Normalize(),
		Up:        up,
		SizeH:     sizeV * aspect,
		SizeV:     sizeV,
	}
}

var (
	white = types.XYZ(0.85, 0.85, 0.85)
	red   = types.XYZ(0.75, 0.1, 0.1)
	green = types.XYZ(0.1, 0.7, 0.15)
	blue  = types.XYZ(0.15, 0.2, 0.8)
	gold  = types.XYZ(0.9, 0.7, 0.2)
	gray  = types.XYZ(0.5, 0.5, 0.5)
)

// Load one of the built-in scenes for a frame with the given aspect ratio.
func builtinScene(id engine.Scene, aspect float32) (*scene, error) {
	var sc *scene
	switch id {
	case engine.CornellBox:
		sc = cornellBox(aspect)
	case engine.Triangle:
		sc = triangleScene(aspect)
	case engine.Pyramid:
		sc = pyramidScene(aspect)
	default:
		return nil, fmt.Errorf("%w: scene %s is not supported by the sim engine", engine.ErrNoScene, id)
	}

	eye := sc.cam.Eye
	for _, tri := range sc.tris {
		for _, v := range tri.v {
			if d := v.Sub(eye).Len(); d > sc.far {
				sc.far = d
			}
		}
	}
	return sc, nil
}

func cornellBox(aspect float32) *scene {
	var (
		diffuse = material{}
		mirror  = material{reflectivity: 0.6}
		lamp    = material{emissive: true}
	)

	var tris []triangle
	// floor, ceiling and back wall
	tris = append(tris, quad(types.XYZ(-1, 0, 0), types.XYZ(-1, 0, 2), types.XYZ(1, 0, 2), types.XYZ(1, 0, 0), white, diffuse)...)
	tris = append(tris, quad(types.XYZ(-1, 2, 0), types.XYZ(1, 2, 0), types.XYZ(1, 2, 2), types.XYZ(-1, 2, 2), white, diffuse)...)
	tris = append(tris, quad(types.XYZ(-1, 0, 2), types.XYZ(-1, 2, 2), types.XYZ(1, 2, 2), types.XYZ(1, 0, 2), white, diffuse)...)
	// left and right walls
	tris = append(tris, quad(types.XYZ(-1, 0, 0), types.XYZ(-1, 2, 0), types.XYZ(-1, 2, 2), types.XYZ(-1, 0, 2), red, diffuse)...)
	tris = append(tris, quad(types.XYZ(1, 0, 0), types.XYZ(1, 0, 2), types.XYZ(1, 2, 2), types.XYZ(1, 2, 0), green, diffuse)...)
	// ceiling lamp
	tris = append(tris, quad(types.XYZ(-0.25, 1.995, 0.75), types.XYZ(0.25, 1.995, 0.75), types.XYZ(0.25, 1.995, 1.25), types.XYZ(-0.25, 1.995, 1.25), types.XYZ(1, 1, 1), lamp)...)
	// short and tall blocks
	tris = append(tris, box(types.XYZ(0.1, 0, 0.4), types.XYZ(0.7, 0.6, 1.0), white, diffuse)...)
	tris = append(tris, box(types.XYZ(-0.7, 0, 0.9), types.XYZ(-0.1, 1.2, 1.5), white, mirror)...)

	return &scene{
		tris: tris,
		lights: []light{
			{pos: types.XYZ(0, 1.85, 1), radius: 0.08, color: types.XYZ(1, 1, 1)},
		},
		cam: perspective(types.XYZ(0, 1, -2.6), types.XYZ(0, 0, 1), types.XYZ(0, 1, 0), 60, aspect),
	}
}

func triangleScene(aspect float32) *scene {
	tris := []triangle{
		{
			v: [3]types.Vec3{types.XYZ(-1, 0, 1), types.XYZ(1, 0, 1), types.XYZ(0, 1.6, 1)},
			c: [3]types.Vec3{types.XYZ(1, 0, 0), types.XYZ(0, 1, 0), types.XYZ(0, 0, 1)},
		},
	}
	tris = append(tris, quad(types.XYZ(-3, 0, -1), types.XYZ(-3, 0, 4), types.XYZ(3, 0, 4), types.XYZ(3, 0, -1), gray, material{})...)

	return &scene{
		tris: tris,
		lights: []light{
			{pos: types.XYZ(0, 3, -1), radius: 0.2, color: types.XYZ(1, 1, 1)},
		},
		cam: perspective(types.XYZ(0, 0.8, -2), types.XYZ(0, 0, 1), types.XYZ(0, 1, 0), 60, aspect),
	}
}

func pyramidScene(aspect float32) *scene {
	var (
		apex = types.XYZ(0, 1.5, 0)
		a    = types.XYZ(-1, 0, -1)
		b    = types.XYZ(1, 0, -1)
		c    = types.XYZ(1, 0, 1)
		d    = types.XYZ(-1, 0, 1)
	)

	tris := []triangle{
		flat(a, b, apex, gold, material{}),
		flat(b, c, apex, red, material{}),
		flat(c, d, apex, green, material{}),
		flat(d, a, apex, blue, material{}),
	}
	tris = append(tris, quad(a, d, c, b, gold, material{})...)
	tris = append(tris, quad(types.XYZ(-4, -0.01, -4), types.XYZ(-4, -0.01, 4), types.XYZ(4, -0.01, 4), types.XYZ(4, -0.01, -4), white, material{reflectivity: 0.2})...)

	return &scene{
		tris: tris,
		lights: []light{
			{pos: types.XYZ(2, 4, -3), radius: 0.3, color: types.XYZ(1, 1, 1)},
			{pos: types.XYZ(-3, 2, 1), radius: 0.2, color: types.XYZ(0.3, 0.3, 0.4)},
		},
		cam: orthographic(types.XYZ(4, 4, -4), types.XYZ(-1, -1, 1), types.XYZ(0, 1, 0), 4, aspect),
	}
}
