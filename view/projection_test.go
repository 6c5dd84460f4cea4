package view

import (
	"testing"

	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

func perspCamera() *scene.Camera {
	cam := scene.NewCamera(math32.Pi / 3)
	cam.ClipStart = 0.1
	cam.ClipEnd = 100
	return cam
}

// Project a view space point to continuous frame coordinates.
func frameCoords(p *Projection, co types.Vec3) (float32, float32, int32) {
	hoco := p.Project(co)
	x := 0.5 * float32(p.WinX) * (1 + hoco[0]/hoco[3])
	y := 0.5 * float32(p.WinY) * (1 + hoco[1]/hoco[3])
	return x, y, EncodeZ(hoco)
}

func TestPerspectiveDepthRoundTrip(t *testing.T) {
	p := NewProjection(perspCamera(), 64, 48)

	specs := []types.Vec3{
		{0, 0, -1},
		{0.3, -0.2, -5},
		{-2, 1.5, -12},
		{4, 3, -40},
	}

	for specIndex, co := range specs {
		x, y, z := frameCoords(p, co)
		view := p.ViewVector(x, y)
		got := p.RenderCoZbuf(view, z)
		if got.Sub(co).Len() > 1e-3*co.Len() {
			t.Fatalf("[spec %d] expected reconstructed point %v; got %v", specIndex, co, got)
		}
	}
}

func TestOrthoDepthRoundTrip(t *testing.T) {
	cam := perspCamera()
	cam.Type = scene.OrthoCamera
	cam.OrthoScale = 8
	p := NewProjection(cam, 64, 32)

	if view := p.ViewVector(3, 7); view != (types.Vec3{0, 0, -0.1}) {
		t.Fatalf("expected ortho view vector to point down -Z; got %v", view)
	}

	specs := []types.Vec3{
		{0, 0, -1},
		{1.5, -0.7, -5},
		{-3.9, 1.9, -60},
	}

	for specIndex, co := range specs {
		x, y, z := frameCoords(p, co)
		got := p.RenderCoOrtho(x, y, z)
		if got.Sub(co).Len() > 1e-3*co.Len() {
			t.Fatalf("[spec %d] expected reconstructed point %v; got %v", specIndex, co, got)
		}
	}
}

func TestViewVectorCenter(t *testing.T) {
	p := NewProjection(perspCamera(), 40, 40)
	view := p.ViewVector(20, 20)
	if math32.Abs(view[0]) > 1e-6 || math32.Abs(view[1]) > 1e-6 || view[2] != -0.1 {
		t.Fatalf("expected frame center view vector (0, 0, -0.1); got %v", view)
	}
	if math32.Abs(p.ViewDx-p.PixSize) > 1e-9 {
		t.Fatalf("expected view dx to equal the pixel size")
	}
}

func TestPanoColumnConsistency(t *testing.T) {
	base := NewProjection(perspCamera(), 80, 20)

	type spec struct {
		x0, x1 int
		co     types.Vec3
	}

	specs := []spec{
		{0, 20, types.Vec3{-1, 0.2, -3}},
		{20, 40, types.Vec3{-0.2, -0.1, -4}},
		{60, 80, types.Vec3{1.5, 0.3, -2}},
	}

	for specIndex, s := range specs {
		p := base.PanoColumn(s.x0, s.x1, 4)
		x, y, _ := frameCoords(p, s.co)
		view := p.ViewVector(x, y).Normalize()
		exp := s.co.Normalize()
		if view.Sub(exp).Len() > 1e-4 {
			t.Fatalf("[spec %d] expected view vector %v to point at %v", specIndex, view, exp)
		}
	}

	// The central column has no rotation
	p := base.PanoColumn(30, 50, 4)
	if p.PanoSi != 0 || p.PanoCo != 1 {
		t.Fatalf("expected identity rotation for the center column; got sin %f cos %f", p.PanoSi, p.PanoCo)
	}
}
