package raytrace

import (
	"testing"

	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
)

func testTree(t *testing.T) *Tree {
	sc := scene.NewScene()
	sc.SetCamera(scene.NewCamera(math32.Pi / 2))
	sc.Camera.Update()

	mat := scene.NewMaterial("mat")
	if err := sc.AddMaterial(mat); err != nil {
		t.Fatal(err)
	}

	// A floor at y = 0 and a roof covering x in [-1, 1] at y = 1
	floor := scene.NewObject("floor", &scene.Mesh{
		Verts: []types.Vec3{{-10, 0, -10}, {10, 0, -10}, {10, 0, 10}, {-10, 0, 10}},
		Faces: []scene.Face{scene.Quad(0, 3, 2, 1)},
	})
	roof := scene.NewObject("roof", &scene.Mesh{
		Verts: []types.Vec3{{-1, 1, -1}, {1, 1, -1}, {1, 1, 1}, {-1, 1, 1}},
		Faces: []scene.Face{scene.Quad(0, 1, 2, 3)},
	})
	for _, obj := range []*scene.Object{floor, roof} {
		obj.Materials = []*scene.Material{mat}
		if err := sc.AddObject(obj); err != nil {
			t.Fatal(err)
		}
	}

	db := view.Build(sc, types.Ident4(), view.NewProjection(sc.Camera, 8, 8), view.Options{Lay: 1})
	return Build(db)
}

func TestOccluded(t *testing.T) {
	tree := testTree(t)

	type spec struct {
		from, to types.Vec3
		skip     int
		exp      bool
	}

	specs := []spec{
		{types.Vec3{0, 0, 0}, types.Vec3{0, 5, 0}, 0, true},
		{types.Vec3{0, 0, 0}, types.Vec3{0, 5, 0}, 1, false},
		{types.Vec3{5, 0.1, 0}, types.Vec3{5, 5, 0}, -1, false},
		{types.Vec3{0, 0.5, 0}, types.Vec3{0, 0.9, 0}, -1, false},
		{types.Vec3{0, 2, 0}, types.Vec3{0, -2, 0}, -1, true},
	}

	for specIndex, s := range specs {
		if got := tree.Occluded(s.from, s.to, s.skip); got != s.exp {
			t.Fatalf("[spec %d] expected occluded to be %t; got %t", specIndex, s.exp, got)
		}
	}
}

func TestAmbientOcclusion(t *testing.T) {
	tree := testTree(t)
	up := types.Vec3{0, 1, 0}

	open := tree.AmbientOcclusion(types.Vec3{8, 0, 0}, up, 5, 4, 0)
	if open != 1 {
		t.Fatalf("expected an unoccluded point to receive full ambient light; got %f", open)
	}

	covered := tree.AmbientOcclusion(types.Vec3{0, 0, 0}, up, 5, 4, 0)
	if covered >= open || covered <= 0 {
		t.Fatalf("expected partial occlusion under the roof; got %f", covered)
	}

	// Limiting the ray length below the roof height removes the occlusion.
	if short := tree.AmbientOcclusion(types.Vec3{0, 0, 0}, up, 0.5, 4, 0); short != 1 {
		t.Fatalf("expected no occlusion for short rays; got %f", short)
	}
}
