package halo

import (
	"testing"

	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
)

const testSize = 16

func testDB(halos ...*view.Halo) *view.DB {
	cam := scene.NewCamera(math32.Pi / 2)
	cam.Update()
	return &view.DB{
		World:   scene.NewWorld(),
		Camera:  cam,
		ViewMat: types.Ident4(),
		ViewInv: types.Ident4(),
		Proj:    view.NewProjection(cam, testSize, testSize),
		Halos:   halos,
	}
}

// A white halo of radius 4 centered in the frame.
func testHalo(mode scene.HaloMode) *view.Halo {
	mat := scene.NewMaterial("halo")
	mat.Mode |= scene.ModeHalo
	mat.HaloMode = mode
	return &view.Halo{
		Co:     types.Vec3{0, 0, -5},
		HaSize: 1,
		Xs:     testSize / 2,
		Ys:     testSize / 2,
		Rad:    4,
		RadSq:  16,
		MinY:   testSize/2 - 4,
		MaxY:   testSize/2 + 4,
		Alfa:   1,
		R:      1,
		G:      1,
		B:      1,
		Hard:   50,
		Type:   mode,
		Mat:    mat,
		Lay:    1,
	}
}

func testTile(db *view.DB, x0, y0, rectx, recty int) *Tile {
	t := &Tile{
		X0:    x0,
		Y0:    y0,
		RectX: rectx,
		RectY: recty,
		RectZ: make([]int32, rectx*recty),
		Col:   make([]float32, 4*rectx*recty),
	}
	for i := range t.RectZ {
		t.RectZ[i] = view.MaxZ
	}
	return t
}

func TestShadeHardness(t *testing.T) {
	db := testDB()
	for _, hard := range []int{10, 25, 35, 45, 60} {
		har := testHalo(0)
		har.Hard = hard

		prev := float32(2)
		for _, frac := range []float32{0, 0.25, 0.5, 0.81} {
			col, ok := Shade(db, har, view.HaloMaxZ, frac*har.RadSq, 0, 0, false)
			if !ok {
				t.Fatalf("[hard %d] expected halo to contribute at %f of its radius", hard, frac)
			}
			if col[3] >= prev {
				t.Fatalf("[hard %d] expected alpha to fall off with distance; got %f after %f", hard, col[3], prev)
			}
			prev = col[3]
		}

		if _, ok := Shade(db, har, view.HaloMaxZ, har.RadSq, 0, 0, false); ok {
			t.Fatalf("[hard %d] expected no contribution at the halo radius", hard)
		}
	}
}

func TestShadeAlphaModes(t *testing.T) {
	db := testDB()

	har := testHalo(0)
	plain, _ := Shade(db, har, view.HaloMaxZ, 4, 0, 0, false)

	har.Type = scene.HaloXAlpha
	xalpha, _ := Shade(db, har, view.HaloMaxZ, 4, 0, 0, false)
	if math32.Abs(xalpha[3]-plain[3]*plain[3]) > 1e-6 {
		t.Fatalf("expected xalpha to square the alpha %f; got %f", plain[3], xalpha[3])
	}

	har.Alfa = 0
	if _, ok := Shade(db, har, view.HaloMaxZ, 4, 0, 0, false); ok {
		t.Fatal("expected a transparent halo not to contribute")
	}

	// Geometry between the halo and its depth range hides it gradually.
	har = testHalo(0)
	har.Zs = 1000
	har.Zd = 100
	faded, ok := Shade(db, har, 1050, 4, 0, 0, false)
	if !ok || faded[3] >= plain[3] {
		t.Fatalf("expected an intersected halo to fade; got %f", faded[3])
	}
}

func TestOnlySkyDepth(t *testing.T) {
	har := testHalo(scene.HaloOnlySky)

	type spec struct {
		z   int32
		exp int32
	}
	specs := []spec{
		{view.MaxZ, view.HaloMaxZ},
		{0, -view.HaloMaxZ},
		{view.MaxZ / 2, -view.HaloMaxZ},
	}
	for specIndex, s := range specs {
		if got := haloZ(har, s.z); got != s.exp {
			t.Fatalf("[spec %d] expected %d; got %d", specIndex, s.exp, got)
		}
	}

	har.Type = 0
	if got := haloZ(har, view.MaxZ); got != view.HaloMaxZ {
		t.Fatalf("expected sky depth to map to %d; got %d", view.HaloMaxZ, got)
	}
}

func TestRenderTile(t *testing.T) {
	har := testHalo(scene.HaloFlare)
	har.FlareC = 3
	db := testDB(har)
	r := NewRenderer(db, 1)
	if r.Size() != 1 {
		t.Fatalf("expected 1 indexed halo; got %d", r.Size())
	}

	tile := testTile(db, 0, 0, testSize, testSize)
	r.RenderTile(tile)

	center := 4 * (testSize/2*testSize + testSize/2)
	if tile.Col[center+3] <= 0 {
		t.Fatal("expected the halo to cover the frame center")
	}
	if tile.Col[3] != 0 {
		t.Fatalf("expected the frame corner to stay empty; got alpha %f", tile.Col[3])
	}
	if har.Pixels() <= 0 {
		t.Fatal("expected the flare pixel counter to be updated")
	}

	// Geometry in front of the halo hides it.
	tile = testTile(db, 0, 0, testSize, testSize)
	for i := range tile.RectZ {
		tile.RectZ[i] = -view.MaxZ
	}
	r.RenderTile(tile)
	for i, v := range tile.Col {
		if v != 0 {
			t.Fatalf("expected occluded halo to leave the tile empty; got %f at %d", v, i)
		}
	}

	// A different layer set skips the halo entirely.
	if NewRenderer(db, 2).Size() != 0 {
		t.Fatal("expected halos on other layers to be skipped")
	}
}

func TestRenderTileSplit(t *testing.T) {
	db := testDB(testHalo(scene.HaloRings | scene.HaloStar))
	db.Halos[0].RingC = 4
	db.Halos[0].StarPoints = 5
	r := NewRenderer(db, 1)

	full := testTile(db, 0, 0, testSize, testSize)
	r.RenderTile(full)

	half := testSize / 2
	for _, origin := range [][2]int{{0, 0}, {half, 0}, {0, half}, {half, half}} {
		part := testTile(db, origin[0], origin[1], half, half)
		r.RenderTile(part)
		for y := 0; y < half; y++ {
			for x := 0; x < half; x++ {
				got := part.Col[4*(y*half+x) : 4*(y*half+x)+4]
				offset := 4 * ((y+origin[1])*testSize + x + origin[0])
				exp := full.Col[offset : offset+4]
				for c := 0; c < 4; c++ {
					if got[c] != exp[c] {
						t.Fatalf("[tile %v] expected pixel (%d, %d) to match the full render %v; got %v", origin, x, y, exp, got)
					}
				}
			}
		}
	}
}

func TestPixelStructCoverage(t *testing.T) {
	db := testDB(testHalo(0))
	r := NewRenderer(db, 1)

	ref := testTile(db, 0, 0, testSize, testSize)
	r.RenderTile(ref)

	// Half of the samples of every pixel are covered by geometry in front
	// of the halo; the rest see the sky.
	tile := testTile(db, 0, 0, testSize, testSize)
	tile.OSA = 8
	tile.Arena = raster.NewArena(0)
	tile.RectDaps = make([]raster.Handle, testSize*testSize)
	for i := range tile.RectDaps {
		h, err := tile.Arena.Add(0, 1, -view.MaxZ, 0x0F)
		if err != nil {
			t.Fatal(err)
		}
		tile.RectDaps[i] = h
	}
	r.RenderTile(tile)

	for i := range tile.Col {
		if math32.Abs(tile.Col[i]-0.5*ref.Col[i]) > 1e-5 {
			t.Fatalf("expected half coverage to halve the halo contribution %f; got %f at %d", ref.Col[i], tile.Col[i], i)
		}
	}
}

func TestRenderFlares(t *testing.T) {
	har := testHalo(scene.HaloFlare)
	har.FlareC = 4
	db := testDB(har)
	r := NewRenderer(db, 1)

	frame := &Frame{Width: testSize, Height: testSize, Col: make([]float32, 4*testSize*testSize)}
	r.RenderFlares(frame, 1)
	for i, v := range frame.Col {
		if v != 0 {
			t.Fatalf("expected a halo without visible pixels to draw no flares; got %f at %d", v, i)
		}
	}

	har.AddPixels(64)
	r.RenderFlares(frame, 1)
	var sum float32
	for _, v := range frame.Col {
		sum += v
	}
	if sum <= 0 {
		t.Fatal("expected a visible flare halo to draw into the frame")
	}
	if har.Rad != 4 || har.Alfa != 1 {
		t.Fatal("expected flare rendering to leave the source halo untouched")
	}
}

func TestAddAlphaAddFac(t *testing.T) {
	type spec struct {
		dest   [4]float32
		src    types.Vec4
		addFac float32
		exp    [4]float32
	}

	specs := []spec{
		{[4]float32{0.5, 0.5, 0.5, 1}, types.Vec4{0.25, 0.25, 0.25, 0.5}, 0, [4]float32{0.5, 0.5, 0.5, 1}},
		{[4]float32{0.5, 0.5, 0.5, 0.5}, types.Vec4{0.25, 0.25, 0.25, 0.5}, 255, [4]float32{0.75, 0.75, 0.75, 1}},
		{[4]float32{0, 0, 0, 0}, types.Vec4{0.2, 0.4, 0.6, 0.8}, 0, [4]float32{0.2, 0.4, 0.6, 0.8}},
	}

	for specIndex, s := range specs {
		dest := s.dest
		addAlphaAddFac(dest[:], s.src, s.addFac)
		for i := 0; i < 4; i++ {
			if math32.Abs(dest[i]-s.exp[i]) > 1e-6 {
				t.Fatalf("[spec %d] expected %v; got %v", specIndex, s.exp, dest)
			}
		}
	}
}
