package types

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestVec3Ops(t *testing.T) {
	a := XYZ(1, 2, 3)
	b := XYZ(4, 5, 6)

	if got := a.Add(b); got != XYZ(5, 7, 9) {
		t.Fatalf("Add: got %v", got)
	}
	if got := b.Sub(a); got != XYZ(3, 3, 3) {
		t.Fatalf("Sub: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Fatalf("Dot: got %f", got)
	}
	if got := XYZ(1, 0, 0).Cross(XYZ(0, 1, 0)); got != XYZ(0, 0, 1) {
		t.Fatalf("Cross: got %v", got)
	}
	if got := a.FlipZ(); got != XYZ(1, 2, -3) {
		t.Fatalf("FlipZ: got %v", got)
	}
	if got := XYZ(-1, 0.5, 2).Clamp(0, 1); got != XYZ(0, 0.5, 1) {
		t.Fatalf("Clamp: got %v", got)
	}
	if got := MinVec3(a, XYZ(0, 5, 1)); got != XYZ(0, 2, 1) {
		t.Fatalf("MinVec3: got %v", got)
	}
	if got := MaxVec3(a, XYZ(0, 5, 1)); got != XYZ(1, 5, 3) {
		t.Fatalf("MaxVec3: got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	n := XYZ(3, 0, 4).Normalize()
	if !approx(n.Len(), 1) || !approx(n[0], 0.6) || !approx(n[2], 0.8) {
		t.Fatalf("unexpected normalized vector %v", n)
	}

	if z := (Vec3{}).Normalize(); z != (Vec3{}) {
		t.Fatalf("expected zero vector to normalize to zero; got %v", z)
	}
}
