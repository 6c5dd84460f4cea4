package texture

import (
	"testing"

	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

// A 2x2 image; bottom row red/green, top row blue/white.
func quadImage() *imbuf.ImBuf {
	ib := imbuf.New("quad", 2, 2, imbuf.Rgba32F)
	ib.SetPixel(0, 0, [4]float32{1, 0, 0, 1})
	ib.SetPixel(1, 0, [4]float32{0, 1, 0, 1})
	ib.SetPixel(0, 1, [4]float32{0, 0, 1, 1})
	ib.SetPixel(1, 1, [4]float32{1, 1, 1, 1})
	return ib
}

func TestImageNearestLookup(t *testing.T) {
	tex := NewImage("quad", quadImage())

	type spec struct {
		co     types.Vec3
		extend Extend
		exp    [4]float32
	}

	specs := []spec{
		{types.Vec3{-0.5, -0.5, 0}, ExtendRepeat, [4]float32{1, 0, 0, 1}},
		{types.Vec3{0.5, -0.5, 0}, ExtendRepeat, [4]float32{0, 1, 0, 1}},
		{types.Vec3{-0.5, 0.5, 0}, ExtendRepeat, [4]float32{0, 0, 1, 1}},
		{types.Vec3{0.5, 0.5, 0}, ExtendRepeat, [4]float32{1, 1, 1, 1}},
		// wraps around to the red pixel
		{types.Vec3{1.5, -0.5, 0}, ExtendRepeat, [4]float32{1, 0, 0, 1}},
		// clamps to the green pixel
		{types.Vec3{3, -0.5, 0}, ExtendEdge, [4]float32{0, 1, 0, 1}},
		// outside the image
		{types.Vec3{3, -0.5, 0}, ExtendClip, [4]float32{0, 0, 0, 0}},
		{types.Vec3{-0.5, -0.5, 2}, ExtendClipCube, [4]float32{0, 0, 0, 0}},
	}

	var res Result
	for specIndex, s := range specs {
		tex.Extend = s.extend
		tex.Sample(&Lookup{Co: s.co}, &res)
		got := [4]float32{res.Tr, res.Tg, res.Tb, res.Ta}
		if got != s.exp {
			t.Fatalf("[spec %d] expected color %v; got %v", specIndex, s.exp, got)
		}
	}
}

func TestImageFilteredClipReducesAlpha(t *testing.T) {
	ib := imbuf.New("white", 4, 4, imbuf.Rgba32F)
	ib.Clear([4]float32{1, 1, 1, 1})
	tex := NewImage("white", ib)
	tex.Extend = ExtendClip

	var res Result

	// Footprint fully inside the image
	tex.WrapFiltered([3]float32{0.5, 0.5, 0}, [2]float32{0.1, 0}, [2]float32{0, 0.1}, &res)
	if math32.Abs(res.Ta-1) > 1e-5 || math32.Abs(res.Tr-1) > 1e-5 {
		t.Fatalf("expected full coverage; got color %f alpha %f", res.Tr, res.Ta)
	}

	// Footprint centered on the right edge; half of it is clipped
	tex.WrapFiltered([3]float32{1, 0.5, 0}, [2]float32{0.2, 0}, [2]float32{0, 0.2}, &res)
	if math32.Abs(res.Ta-0.5) > 1e-3 {
		t.Fatalf("expected alpha 0.5 for half clipped footprint; got %f", res.Ta)
	}

	// Footprint completely outside
	tex.WrapFiltered([3]float32{2, 0.5, 0}, [2]float32{0.1, 0}, [2]float32{0, 0.1}, &res)
	if res.Ta != 0 {
		t.Fatalf("expected zero alpha outside the image; got %f", res.Ta)
	}
}

func TestImageMissingBuffer(t *testing.T) {
	tex := NewImage("missing", nil)
	res := Result{Tin: 5}
	if rt := tex.Sample(&Lookup{}, &res); rt != Int || res.Tin != 0 {
		t.Fatalf("expected an empty intensity result; got type %d tin %f", rt, res.Tin)
	}
}

func TestBriCont(t *testing.T) {
	type spec struct {
		bright, contrast float32
		in, exp          float32
	}

	specs := []spec{
		{1, 1, 0.3, 0.3},
		{1.2, 1, 0.3, 0.5},
		{1, 2, 0.75, 1},
		{1, 2, 0.2, 0},
		{0.5, 1, 0.1, 0},
	}

	for specIndex, s := range specs {
		b := NewBase("test")
		b.Bright, b.Contrast = s.bright, s.contrast
		res := Result{Tin: s.in}
		b.BriCont(&res)
		if math32.Abs(res.Tin-s.exp) > 1e-5 {
			t.Fatalf("[spec %d] expected %f; got %f", specIndex, s.exp, res.Tin)
		}
	}
}
