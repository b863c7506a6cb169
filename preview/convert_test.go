package preview

import "testing"

func TestConvertPixel(t *testing.T) {
	in := uint32(0xAABBCCDD)
	out := ConvertPixel(in)
	if out != 0xAADDCCBB {
		t.Fatalf("expected 0xAADDCCBB; got %#08x", out)
	}
	if out>>24 != 0xAA {
		t.Fatalf("expected alpha to be preserved; got %#02x", out>>24)
	}

	// The conversion is a channel permutation, not a projection.
	if twice := ConvertPixel(out); twice == out {
		t.Fatalf("expected a second conversion to change the pixel; got %#08x", twice)
	}

	// Pixels whose byte 0 and byte 2 match are fixed points.
	if p := uint32(0x11553355); ConvertPixel(p) != p {
		t.Fatalf("expected %#08x to be unchanged; got %#08x", p, ConvertPixel(p))
	}
}

func TestConvertIndex(t *testing.T) {
	type spec struct {
		index int
		exp   int
	}
	// 3 columns x 4 rows.
	specs := []spec{
		{0, 9},
		{2, 11},
		{4, 7},
		{9, 0},
		{11, 2},
	}

	for index, s := range specs {
		if got := ConvertIndex(s.index, 3, 4); got != s.exp {
			t.Fatalf("[spec %d] expected index %d to map to %d; got %d", index, s.index, s.exp, got)
		}
	}
}

func TestConvertFrame(t *testing.T) {
	// Bottom-up 2x2 device frame with red in the low byte.
	src := []uint32{
		0xFF0000FF, 0xFF00FF00, // bottom row: red, green
		0xFFFF0000, 0x80000000, // top row: blue, half transparent black
	}
	exp := []uint32{
		0xFF0000FF, 0x80000000,
		0xFFFF0000, 0xFF00FF00,
	}
	got := convertFrame(src, 2, 2)
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("pixel %d: expected %#08x; got %#08x", i, exp[i], got[i])
		}
	}
}
