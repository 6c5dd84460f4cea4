package renderer

import (
	"testing"

	"github.com/achilleasa/scanline/types"
)

func TestEdgeEnhance(t *testing.T) {
	const size = 6

	flat := make([]int32, size*size)
	step := make([]int32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			flat[y*size+x] = 1 << 20
			step[y*size+x] = 1 << 20
			if x >= size/2 {
				step[y*size+x] = 1 << 21
			}
		}
	}

	type spec struct {
		rectz     []int32
		intensity int
		expEdges  bool
	}
	specs := []spec{
		{flat, 255, false},
		{step, 0, false},
		{step, 255, true},
	}

	for index, s := range specs {
		edge := make([]float32, size*size)
		edgeEnhanceSample(s.rectz, size, size, s.intensity, 0, edge)

		found := false
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				fac := edge[y*size+x]
				if fac < 0 || fac > 1 {
					t.Fatalf("[spec %d] expected edge strength in [0, 1]; got %f", index, fac)
				}
				if fac == 0 {
					continue
				}
				found = true
				if x != size/2-1 && x != size/2 {
					t.Fatalf("[spec %d] expected edges next to the depth step only; got one at column %d", index, x)
				}
			}
		}
		if found != s.expEdges {
			t.Fatalf("[spec %d] expected edges: %t; got %t", index, s.expEdges, found)
		}
	}
}

func TestEdgeEnhanceOSAAccumulates(t *testing.T) {
	rectz := []int32{0, 1 << 28, 0, 1 << 28}
	edge := make([]float32, 4)
	for sample := 0; sample < 8; sample++ {
		edgeEnhanceSample(rectz, 2, 2, 255, 8, edge)
	}
	for i, fac := range edge {
		if fac <= 0 || fac > 1.0001 {
			t.Fatalf("expected accumulated edge in (0, 1] at %d; got %f", i, fac)
		}
	}

	col := []float32{1, 1, 1, 1, 0, 0, 0, 0}
	edgeEnhanceAdd(col, []float32{1, 0}, types.Vec3{0, 0, 1})
	if col[0] != 0 || col[2] != 1 || col[3] != 1 {
		t.Fatalf("expected full edge to replace the pixel color; got %v", col[:4])
	}
	if col[4] != 0 || col[7] != 0 {
		t.Fatalf("expected pixel without edge to stay untouched; got %v", col[4:])
	}
}
