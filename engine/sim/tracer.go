package sim

import (
	"math"
	"sync"
	"time"

	"github.com/achilleasa/rtsession/camera"
	"github.com/achilleasa/rtsession/engine"
	"github.com/achilleasa/rtsession/frame"
	"github.com/achilleasa/rtsession/types"
)

const (
	ambient = 0.1

	// Max number of reflection bounces traced by the Whitted shader.
	maxBounces = 3
)

// Primary ray generator for a camera.
type rayGen struct {
	eye, dir, right, up types.Vec3

	ortho        bool
	tanX, tanY   float32
	halfH, halfV float32
}

func newRayGen(p camera.Parameters) rayGen {
	dir := p.Direction.Normalize()
	// Left-handed basis.
	right := p.Up.Cross(dir).Normalize()
	up := dir.Cross(right)

	return rayGen{
		eye:   p.Eye,
		dir:   dir,
		right: right,
		up:    up,
		ortho: p.SizeH > 0 && p.SizeV > 0,
		tanX:  float32(math.Tan(float64(p.FovX) * math.Pi / 360)),
		tanY:  float32(math.Tan(float64(p.FovY) * math.Pi / 360)),
		halfH: p.SizeH / 2,
		halfV: p.SizeV / 2,
	}
}

// Generate a ray through the normalized screen position (sx, sy) where
// both coordinates lie in [-1, 1] and sy points up.
func (g rayGen) generate(sx, sy float32) ray {
	if g.ortho {
		origin := g.eye.Add(g.right.Mul(sx * g.halfH)).Add(g.up.Mul(sy * g.halfV))
		return ray{origin: origin, dir: g.dir}
	}
	dir := g.dir.Add(g.right.Mul(sx * g.tanX)).Add(g.up.Mul(sy * g.tanY))
	return ray{origin: g.eye, dir: dir.Normalize()}
}

type shader struct {
	sc           *scene
	accel        intersector
	kind         engine.Shader
	samplesLight int
}

func (sh *shader) trace(r ray, depth int) types.Vec3 {
	h, ok := sh.accel.closest(r, math.MaxFloat32)
	if !ok {
		return types.Vec3{}
	}

	tri := &sh.sc.tris[h.tri]
	albedo := tri.c[0].Mul(1 - h.u - h.v).Add(tri.c[1].Mul(h.u)).Add(tri.c[2].Mul(h.v))

	switch sh.kind {
	case engine.DepthMap:
		g := float32(1)
		if sh.sc.far > 0 {
			g = 1 - h.t/sh.sc.far
		}
		return types.XYZ(g, g, g).Clamp(0, 1)
	case engine.DiffuseMaterial:
		return albedo
	}

	if tri.mat.emissive {
		return albedo
	}

	point := r.origin.Add(r.dir.Mul(h.t))
	n := tri.v[1].Sub(tri.v[0]).Cross(tri.v[2].Sub(tri.v[0])).Normalize()
	if n.Dot(r.dir) > 0 {
		n = n.Mul(-1)
	}

	shadows := sh.kind == engine.Whitted
	color := albedo.Mul(ambient)
	for li := range sh.sc.lights {
		color = color.Add(sh.direct(point, n, albedo, &sh.sc.lights[li], shadows))
	}

	if k := tri.mat.reflectivity; shadows && k > 0 && depth < maxBounces {
		refl := r.dir.Sub(n.Mul(2 * r.dir.Dot(n))).Normalize()
		bounce := sh.trace(ray{origin: point.Add(n.Mul(rayEpsilon)), dir: refl}, depth+1)
		color = color.Mul(1 - k).Add(bounce.Mul(k))
	}
	return color
}

// Direct lighting from l, averaged over samplesLight points of its volume.
func (sh *shader) direct(point, n, albedo types.Vec3, l *light, shadows bool) types.Vec3 {
	samples := sh.samplesLight
	if samples < 1 {
		samples = 1
	}

	origin := point.Add(n.Mul(rayEpsilon))
	var sum float32
	for s := 0; s < samples; s++ {
		target := l.pos
		if samples > 1 {
			offset := types.XYZ(
				2*radicalInverse(s+1, 2)-1,
				2*radicalInverse(s+1, 3)-1,
				2*radicalInverse(s+1, 5)-1,
			)
			target = target.Add(offset.Mul(l.radius))
		}

		toLight := target.Sub(origin)
		dist := toLight.Len()
		if dist < rayEpsilon {
			continue
		}
		dir := toLight.Mul(1 / dist)
		cos := n.Dot(dir)
		if cos <= 0 {
			continue
		}
		if shadows && sh.accel.occluded(ray{origin: origin, dir: dir}, dist-rayEpsilon) {
			continue
		}
		sum += cos
	}
	return albedo.MulVec(l.color).Mul(sum / float32(samples))
}

// Van der Corput sequence in the given base.
func radicalInverse(i, base int) float32 {
	var (
		inv    = 1 / float64(base)
		factor = inv
		out    float64
	)
	for ; i > 0; i /= base {
		out += float64(i%base) * factor
		factor *= inv
	}
	return float32(out)
}

// Sub-pixel sample position for a progressive pass.
func passOffset(pass int) (float32, float32) {
	if pass == 0 {
		return 0.5, 0.5
	}
	return radicalInverse(pass, 2), radicalInverse(pass, 3)
}

func packColor(c types.Vec3) uint32 {
	c = c.Clamp(0, 1)
	r := uint32(c[0]*255 + 0.5)
	g := uint32(c[1]*255 + 0.5)
	b := uint32(c[2]*255 + 0.5)
	return 0xFF000000 | r<<16 | g<<8 | b
}

// A progressive render of one frame. Each pass adds one sample per pixel
// and publishes the running average to the target image.
type render struct {
	shader *shader
	gen    rayGen
	img    *frame.Image

	width, height int
	passes        int
	threads       int
	passDelay     time.Duration

	accum []types.Vec3
	sched blockScheduler
	stop  <-chan struct{}
}

func (r *render) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// Run all passes. Returns false if the render was stopped before completing.
func (r *render) run() bool {
	stats := make([]blockStats, r.threads)
	for pass := 0; pass < r.passes; pass++ {
		if r.stopped() {
			return false
		}

		start := time.Now()
		var wg sync.WaitGroup
		row := 0
		for tr, rows := range r.sched.schedule(stats, uint32(r.height)) {
			wg.Add(1)
			go func(tr, first, count int) {
				defer wg.Done()
				blockStart := time.Now()
				r.traceRows(pass, first, count)
				stats[tr] = blockStats{rows: uint32(count), elapsed: time.Since(blockStart)}
			}(tr, row, int(rows))
			row += int(rows)
		}
		wg.Wait()

		if r.stopped() {
			return false
		}
		r.publish(pass + 1)
		logger.Debugf("pass %d/%d completed in %s", pass+1, r.passes, time.Since(start))

		if r.passDelay > 0 && pass+1 < r.passes {
			select {
			case <-r.stop:
				return false
			case <-time.After(r.passDelay):
			}
		}
	}
	return true
}

func (r *render) traceRows(pass, first, count int) {
	ox, oy := passOffset(pass)
	w, h := float32(r.width), float32(r.height)
	for y := first; y < first+count; y++ {
		if r.stopped() {
			return
		}
		sy := 1 - 2*(float32(y)+oy)/h
		for x := 0; x < r.width; x++ {
			sx := 2*(float32(x)+ox)/w - 1
			idx := y*r.width + x
			r.accum[idx] = r.accum[idx].Add(r.shader.trace(r.gen.generate(sx, sy), 0))
		}
	}
}

func (r *render) publish(samples int) {
	scale := 1 / float32(samples)
	r.img.Update(func(pix []uint32) {
		for i, c := range r.accum {
			pix[i] = packColor(c.Mul(scale))
		}
	})
}
