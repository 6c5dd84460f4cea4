package renderer

import (
	"testing"

	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

func approxPixel(a, b []float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > 1e-6 {
			return false
		}
	}
	return true
}

func TestAddAlphaOverMaskBoundaries(t *testing.T) {
	type spec struct {
		destMask, srcMask uint16
		ref               func([]float32, types.Vec4)
	}
	specs := []spec{
		// Disjoint sample sets are added
		{0x0F, 0xF0, AddAlphaAdd},
		{0x01, 0x02, AddAlphaAdd},
		// Identical sample sets use alpha-over
		{0xFF, 0xFF, AddAlphaOver},
		{0x01, 0x01, AddAlphaOver},
		// Source covering every destination sample
		{0x03, 0x0F, AddAlphaOver},
		// Empty masks fall back to alpha-over
		{0, 0x0F, AddAlphaOver},
		{0x0F, 0, AddAlphaOver},
	}

	src := types.Vec4{0.2, 0.1, 0.05, 0.4}
	for index, s := range specs {
		got := []float32{0.5, 0.6, 0.7, 0.8}
		exp := []float32{0.5, 0.6, 0.7, 0.8}
		AddAlphaOverMask(got, src, s.destMask, s.srcMask)
		s.ref(exp, src)
		if !approxPixel(got, exp) {
			t.Fatalf("[spec %d] expected %v; got %v", index, exp, got)
		}
	}
}

func TestAddAlphaOverMaskPartialOverlap(t *testing.T) {
	src := types.Vec4{0.2, 0.1, 0.05, 0.4}
	got := []float32{0.5, 0.6, 0.7, 0.8}

	// One shared sample out of three covered ones.
	AddAlphaOverMask(got, src, 0x3, 0x6)
	add := float32(2) / 3
	mul := add + (1-add)*(1-src[3])
	exp := []float32{mul*0.5 + 0.2, mul*0.6 + 0.1, mul*0.7 + 0.05, mul*0.8 + 0.4}
	if !approxPixel(got, exp) {
		t.Fatalf("expected %v; got %v", exp, got)
	}
}

func TestAddAlphaUnder(t *testing.T) {
	type spec struct {
		dest []float32
		src  types.Vec4
		exp  []float32
	}
	specs := []spec{
		{[]float32{0.5, 0.5, 0.5, 1}, types.Vec4{1, 0, 0, 1}, []float32{0.5, 0.5, 0.5, 1}},
		{[]float32{0, 0, 0, 0}, types.Vec4{1, 0.5, 0, 1}, []float32{1, 0.5, 0, 1}},
		{[]float32{0.25, 0, 0, 0.5}, types.Vec4{0, 1, 0, 1}, []float32{0.25, 0.5, 0, 1}},
		{[]float32{0.25, 0, 0, 0.5}, types.Vec4{0, 1, 0, 0}, []float32{0.25, 0, 0, 0.5}},
	}

	for index, s := range specs {
		AddAlphaUnder(s.dest, s.src)
		if !approxPixel(s.dest, s.exp) {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.exp, s.dest)
		}
	}
}

func TestAddAlphaOverSamples(t *testing.T) {
	red := types.Vec4{0.5, 0, 0, 0.5}
	opaqueRed := types.Vec4{1, 0, 0, 1}
	repeat := func(n int, mask uint16, col types.Vec4) []types.Vec4 {
		samp := make([]types.Vec4, n)
		for k := range samp {
			if mask&(1<<uint(k)) != 0 {
				samp[k] = col
			}
		}
		return samp
	}

	type spec struct {
		dest      []float32
		samp      []types.Vec4
		transMask uint16
		solidMask uint16
		exp       []float32
	}
	specs := []spec{
		// Every sample over opaque white
		{[]float32{1, 1, 1, 1}, repeat(8, 0xFF, red), 0xFF, 0xFF, []float32{1, 0.5, 0.5, 1}},
		// Three of eight samples over opaque white
		{[]float32{1, 1, 1, 1}, repeat(8, 0x07, red), 0x07, 0xFF, []float32{1, 0.8125, 0.8125, 1}},
		// Disjoint from the solid half of the pixel
		{[]float32{0.5, 0.5, 0.5, 0.5}, repeat(8, 0xF0, red), 0xF0, 0x0F, []float32{0.75, 0.5, 0.5, 0.75}},
		// Partial overlap also covering the empty sample
		{[]float32{0.875, 0.875, 0.875, 0.875}, repeat(8, 0xFE, opaqueRed), 0xFE, 0x7F, []float32{1, 0.125, 0.125, 1}},
		// No solid samples; the halo color covers the whole pixel
		{[]float32{0.2, 0.2, 0.2, 0.2}, repeat(4, 0x01, opaqueRed), 0x01, 0, []float32{0.4, 0.15, 0.15, 0.4}},
		// Single sample
		{[]float32{1, 1, 1, 1}, repeat(1, 0x01, red), 0x01, 0x01, []float32{1, 0.5, 0.5, 1}},
	}

	for index, s := range specs {
		AddAlphaOverSamples(s.dest, s.samp, s.transMask, s.solidMask)
		if !approxPixel(s.dest, s.exp) {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.exp, s.dest)
		}
		if s.dest[3] > 1+1e-6 {
			t.Fatalf("[spec %d] expected alpha <= 1; got %f", index, s.dest[3])
		}
	}
}
