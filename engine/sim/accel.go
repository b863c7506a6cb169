package sim

import (
	"math"
	"sort"

	"github.com/achilleasa/rtsession/types"
)

const rayEpsilon = 1e-4

type ray struct {
	origin types.Vec3
	dir    types.Vec3
}

type hit struct {
	t    float32
	tri  int
	u, v float32
}

// The intersector interface is implemented by ray/scene intersection
// strategies.
type intersector interface {
	// Find the closest hit with a distance below tMax.
	closest(r ray, tMax float32) (hit, bool)

	// Check whether any non-emissive triangle blocks the ray before tMax.
	occluded(r ray, tMax float32) bool
}

// Möller-Trumbore ray/triangle intersection. Both windings are accepted.
func intersectTri(r ray, tri *triangle) (t, u, v float32, ok bool) {
	e1 := tri.v[1].Sub(tri.v[0])
	e2 := tri.v[2].Sub(tri.v[0])
	p := r.dir.Cross(e2)
	det := e1.Dot(p)
	if det > -1e-8 && det < 1e-8 {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	s := r.origin.Sub(tri.v[0])
	u = s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	q := s.Cross(e1)
	v = r.dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = e2.Dot(q) * invDet
	return t, u, v, t > rayEpsilon
}

// Test every triangle in the scene.
type naive struct {
	tris []triangle
}

func (n *naive) closest(r ray, tMax float32) (hit, bool) {
	best := hit{t: tMax}
	found := false
	for i := range n.tris {
		if t, u, v, ok := intersectTri(r, &n.tris[i]); ok && t < best.t {
			best = hit{t: t, tri: i, u: u, v: v}
			found = true
		}
	}
	return best, found
}

func (n *naive) occluded(r ray, tMax float32) bool {
	for i := range n.tris {
		if n.tris[i].mat.emissive {
			continue
		}
		if t, _, _, ok := intersectTri(r, &n.tris[i]); ok && t < tMax {
			return true
		}
	}
	return false
}

const bvhLeafSize = 4

type bvhNode struct {
	min, max types.Vec3

	// Child node indices; only set for inner nodes.
	left, right int

	// Range in bvh.order; count is zero for inner nodes.
	first, count int
}

// A bounding volume hierarchy built by splitting triangle centroids at the
// median of the longest axis.
type bvh struct {
	tris  []triangle
	order []int
	nodes []bvhNode
}

func newBVH(tris []triangle) *bvh {
	b := &bvh{
		tris:  tris,
		order: make([]int, len(tris)),
	}
	for i := range b.order {
		b.order[i] = i
	}
	if len(tris) > 0 {
		b.build(0, len(tris))
	}
	return b
}

func (b *bvh) build(first, count int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{})

	sub := b.order[first : first+count]
	lo := b.tris[sub[0]].v[0]
	hi := lo
	for _, ti := range sub {
		for _, v := range b.tris[ti].v {
			lo = types.MinVec3(lo, v)
			hi = types.MaxVec3(hi, v)
		}
	}
	pad := types.XYZ(rayEpsilon, rayEpsilon, rayEpsilon)
	node := bvhNode{min: lo.Sub(pad), max: hi.Add(pad)}

	if count <= bvhLeafSize {
		node.first, node.count = first, count
		b.nodes[idx] = node
		return idx
	}

	ext := hi.Sub(lo)
	axis := 0
	if ext[1] > ext[axis] {
		axis = 1
	}
	if ext[2] > ext[axis] {
		axis = 2
	}
	sort.Slice(sub, func(i, j int) bool {
		return centroid(&b.tris[sub[i]])[axis] < centroid(&b.tris[sub[j]])[axis]
	})

	half := count / 2
	node.left = b.build(first, half)
	node.right = b.build(first+half, count-half)
	b.nodes[idx] = node
	return idx
}

func centroid(tri *triangle) types.Vec3 {
	return tri.v[0].Add(tri.v[1]).Add(tri.v[2]).Mul(1.0 / 3.0)
}

// Visit the triangles of every leaf whose bounds the ray crosses before
// tMax. The visitor returns the (possibly shrunk) tMax and whether to stop.
func (b *bvh) traverse(r ray, tMax float32, visit func(ti int, tMax float32) (float32, bool)) {
	if len(b.nodes) == 0 {
		return
	}

	var inv types.Vec3
	for a := range inv {
		inv[a] = 1 / r.dir[a]
	}

	stack := []int{0}
	for len(stack) > 0 {
		node := &b.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !hitsBox(r, inv, node.min, node.max, tMax) {
			continue
		}
		if node.count == 0 {
			stack = append(stack, node.left, node.right)
			continue
		}
		for _, ti := range b.order[node.first : node.first+node.count] {
			var stop bool
			if tMax, stop = visit(ti, tMax); stop {
				return
			}
		}
	}
}

func (b *bvh) closest(r ray, tMax float32) (hit, bool) {
	best := hit{t: tMax}
	found := false
	b.traverse(r, tMax, func(ti int, tMax float32) (float32, bool) {
		if t, u, v, ok := intersectTri(r, &b.tris[ti]); ok && t < tMax {
			best = hit{t: t, tri: ti, u: u, v: v}
			found = true
			return t, false
		}
		return tMax, false
	})
	return best, found
}

func (b *bvh) occluded(r ray, tMax float32) bool {
	blocked := false
	b.traverse(r, tMax, func(ti int, tMax float32) (float32, bool) {
		if b.tris[ti].mat.emissive {
			return tMax, false
		}
		if t, _, _, ok := intersectTri(r, &b.tris[ti]); ok && t < tMax {
			blocked = true
			return tMax, true
		}
		return tMax, false
	})
	return blocked
}

// Slab test.
func hitsBox(r ray, inv, lo, hi types.Vec3, tMax float32) bool {
	tNear, tFar := float32(0), tMax
	for a := 0; a < 3; a++ {
		t0 := (lo[a] - r.origin[a]) * inv[a]
		t1 := (hi[a] - r.origin[a]) * inv[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if math.IsNaN(float64(t0)) || math.IsNaN(float64(t1)) {
			// Ray runs parallel to the slab through its boundary.
			continue
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return false
		}
	}
	return true
}
