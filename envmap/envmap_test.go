package envmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var faceColors = [6][4]float32{
	{1, 0, 0, 1},
	{0, 1, 0, 1},
	{0, 0, 1, 1},
	{1, 1, 0, 1},
	{0, 1, 1, 1},
	{1, 0, 1, 1},
}

// Build a cross image with a solid color per face.
func solidCross(t *testing.T, dx int) *imbuf.ImBuf {
	t.Helper()
	cross := imbuf.New("cross", 3*dx, 2*dx, imbuf.Rgba32F)
	for face, corner := range crossLayout {
		for y := 0; y < dx; y++ {
			for x := 0; x < dx; x++ {
				cross.SetPixel(corner[0]*dx+x, corner[1]*dx+y, faceColors[face])
			}
		}
	}
	return cross
}

func loadedMap(t *testing.T) *EnvMap {
	t.Helper()
	env := New("env")
	env.Source = Load
	require.True(t, env.SplitImage(solidCross(t, 16)))
	return env
}

func TestCubeIsectAxes(t *testing.T) {
	specs := []struct {
		dir  types.Vec3
		face int
	}{
		{types.Vec3{0, 0, -1}, 0},
		{types.Vec3{0, 0, 1}, 1},
		{types.Vec3{0, 1, 0}, 2},
		{types.Vec3{1, 0, 0}, 3},
		{types.Vec3{0, -1, 0}, 4},
		{types.Vec3{-1, 0, 0}, 5},
	}

	for specIndex, s := range specs {
		face, uv := CubeIsect(Cube, 1, s.dir)
		assert.Equal(t, s.face, face, "spec %d", specIndex)
		assert.InDelta(t, 0.5, uv[0], 1e-6, "spec %d", specIndex)
		assert.InDelta(t, 0.5, uv[1], 1e-6, "spec %d", specIndex)
	}

	// Planar maps always use face 1.
	face, uv := CubeIsect(Plane, 2, types.Vec3{0.25, 0.25, 1})
	assert.Equal(t, 1, face)
	assert.InDelta(t, 0.75, uv[0], 1e-6)
	assert.InDelta(t, 0.25, uv[1], 1e-6)
}

func TestCubeIsectPartition(t *testing.T) {
	steps := []float32{-1, -0.7, -0.3, -0.01, 0, 0.01, 0.3, 0.7, 1}
	for _, x := range steps {
		for _, y := range steps {
			for _, z := range steps {
				dir := types.Vec3{x, y, z}
				if dir.LenSq() == 0 {
					continue
				}
				face, uv := CubeIsect(Cube, 1, dir)
				require.True(t, face >= 0 && face < 6, "direction %v", dir)
				require.True(t, uv[0] >= 0 && uv[0] <= 1 && uv[1] >= 0 && uv[1] <= 1, "direction %v mapped to %v", dir, uv)

				again, uvAgain := CubeIsect(Cube, 1, dir)
				require.Equal(t, face, again)
				require.Equal(t, uv, uvAgain)
			}
		}
	}

	// Directions on a face boundary resolve the same way every time.
	face, _ := CubeIsect(Cube, 1, types.Vec3{1, 1, 0})
	assert.Equal(t, 2, face)
	face, _ = CubeIsect(Cube, 1, types.Vec3{-1, 0, -1})
	assert.Equal(t, 0, face)
}

func TestSampleAxisColors(t *testing.T) {
	env := loadedMap(t)

	axes := []struct {
		dir  types.Vec3
		face int
	}{
		{types.Vec3{1, 0, 0}, 3},
		{types.Vec3{-1, 0, 0}, 5},
		{types.Vec3{0, 1, 0}, 2},
		{types.Vec3{0, -1, 0}, 4},
		{types.Vec3{0, 0, 1}, 1},
		{types.Vec3{0, 0, -1}, 0},
	}

	for _, osa := range []bool{false, true} {
		for _, axis := range axes {
			in := texture.Lookup{
				Co:      axis.dir,
				DxT:     types.Vec3{0.01, 0.01, 0.01},
				DyT:     types.Vec3{-0.01, 0.01, 0.01},
				OSA:     osa,
				ViewInv: types.Ident4(),
			}
			var res texture.Result
			rt := env.Sample(&in, &res)
			require.Equal(t, texture.RGB, rt)

			exp := faceColors[axis.face]
			assert.InDelta(t, exp[0], res.Tr, 1e-5, "osa %t axis %v", osa, axis.dir)
			assert.InDelta(t, exp[1], res.Tg, 1e-5, "osa %t axis %v", osa, axis.dir)
			assert.InDelta(t, exp[2], res.Tb, 1e-5, "osa %t axis %v", osa, axis.dir)
			assert.Equal(t, float32(1), res.Ta)
			assert.Equal(t, float32(1), res.Tin)
		}
	}
}

func TestSampleViewSpace(t *testing.T) {
	env := loadedMap(t)

	// A camera rotated 90 degrees about Y looks down world -X.
	viewInv := types.EulerToMat4(types.Vec3{0, math32.Pi / 2, 0})
	in := texture.Lookup{Co: types.Vec3{0, 0, -1}, ViewInv: viewInv}
	var res texture.Result
	env.Sample(&in, &res)
	assert.InDelta(t, faceColors[5][0], res.Tr, 1e-5)
	assert.InDelta(t, faceColors[5][1], res.Tg, 1e-5)
	assert.InDelta(t, faceColors[5][2], res.Tb, 1e-5)
}

func TestSampleSeamBlend(t *testing.T) {
	env := loadedMap(t)

	// Right next to the +Z/+X edge with a footprint reaching into +X.
	in := texture.Lookup{
		Co:      types.Vec3{0.99, 0, 1},
		DxT:     types.Vec3{0.2, 0, 0},
		DyT:     types.Vec3{0, 0.02, 0},
		OSA:     true,
		ViewInv: types.Ident4(),
	}
	var res texture.Result
	env.Sample(&in, &res)

	home, other := faceColors[1], faceColors[3]
	assert.Equal(t, float32(1), res.Ta)
	assert.True(t, res.Tr > home[0] && res.Tr < other[0], "expected red to blend between faces; got %f", res.Tr)
	assert.InDelta(t, 1, res.Tg, 1e-5)
	assert.InDelta(t, 0, res.Tb, 1e-5)
}

func TestSampleNotReady(t *testing.T) {
	env := New("env")
	in := texture.Lookup{Co: types.Vec3{0, 0, 1}, ViewInv: types.Ident4()}
	var res texture.Result
	assert.Equal(t, texture.Int, env.Sample(&in, &res))
	assert.Equal(t, float32(0), res.Tin)
}

func TestSplitImage(t *testing.T) {
	env := New("env")
	assert.False(t, env.SplitImage(imbuf.New("bad", 10, 7, imbuf.Rgba8)))
	assert.Equal(t, NotReady, env.State())
	assert.False(t, env.SplitImage(nil))

	cross := solidCross(t, 8)
	require.True(t, env.SplitImage(cross))
	assert.Equal(t, Normal, env.State())
	for face := 0; face < 6; face++ {
		img := env.Face(face)
		require.NotNil(t, img)
		assert.Equal(t, 8, img.Buf.Width)
		assert.Equal(t, faceColors[face], img.Buf.Pixel(3, 5))
	}

	out := env.Cross()
	require.NotNil(t, out)
	assert.Equal(t, cross.RectFloat, out.RectFloat)

	path := filepath.Join(t.TempDir(), "cross.png")
	require.NoError(t, env.SaveCross(path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	plane := New("plane")
	plane.Type = Plane
	assert.False(t, plane.SplitImage(cross))
	assert.True(t, plane.SplitImage(imbuf.New("square", 8, 8, imbuf.Rgba8)))
	assert.NotNil(t, plane.Face(1))
	assert.Nil(t, plane.Face(0))

	env.Free()
	assert.Equal(t, NotReady, env.State())
	assert.Error(t, env.SaveCross(path))
}

// A render func that paints every pixel with its world space ray
// direction mapped to [0, 1].
func directionRender(calls *int) RenderFunc {
	return func(_ context.Context, db *view.DB, size int) (*imbuf.ImBuf, error) {
		*calls++
		out := imbuf.New("face", size, size, imbuf.Rgba32F)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dir := types.Vec3{
					2*(float32(x)+0.5)/float32(size) - 1,
					2*(float32(y)+0.5)/float32(size) - 1,
					-1,
				}
				dir = db.ViewInv.MulDir(dir).Normalize()
				out.SetPixel(x, y, [4]float32{0.5 + 0.5*dir[0], 0.5 + 0.5*dir[1], 0.5 + 0.5*dir[2], 0})
			}
		}
		return out, nil
	}
}

func TestCaptureOrientation(t *testing.T) {
	probe := scene.NewObject("probe", nil)
	probe.Position = types.Vec3{1, 2, 3}
	probe.Rotation = types.Vec3{0.3, 0, math32.Pi / 2}
	probe.Scale = types.Vec3{2, 2, 2}
	probe.Update()

	env := New("env")
	env.Object = probe
	env.CubeRes = 64

	var calls int
	require.NoError(t, Capture(context.Background(), scene.NewScene(), env, Options{Lay: 1}, directionRender(&calls)))
	assert.Equal(t, 6, calls)
	assert.Equal(t, Normal, env.State())
	assert.Equal(t, float32(1), env.Face(0).Buf.Pixel(0, 0)[3])

	dirs := []types.Vec3{
		{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
		{0.8, 0.3, -0.2}, {-0.1, 0.9, 0.4}, {0.2, -0.3, -0.9}, {-0.7, 0.1, 0.5},
	}
	for _, dir := range dirs {
		in := texture.Lookup{Co: dir, ViewInv: types.Ident4()}
		var res texture.Result
		env.Sample(&in, &res)

		exp := dir.Normalize()
		assert.InDelta(t, 0.5+0.5*exp[0], res.Tr, 0.03, "direction %v", dir)
		assert.InDelta(t, 0.5+0.5*exp[1], res.Tg, 0.03, "direction %v", dir)
		assert.InDelta(t, 0.5+0.5*exp[2], res.Tb, 0.03, "direction %v", dir)
	}

	// Planar maps capture a single face.
	calls = 0
	env.Type = Plane
	require.NoError(t, Capture(context.Background(), scene.NewScene(), env, Options{Lay: 1, OSA: true}, directionRender(&calls)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, OSA, env.State())
}

func TestCaptureInterrupted(t *testing.T) {
	env := New("env")
	env.Object = scene.NewObject("probe", nil)

	var calls int
	err := Capture(context.Background(), scene.NewScene(), env, Options{Lay: 1, Test: func() bool { return true }}, directionRender(&calls))
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 0, calls)
	assert.Equal(t, NotReady, env.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Capture(ctx, scene.NewScene(), env, Options{Lay: 1}, directionRender(&calls))
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)

	env.Object = nil
	assert.Error(t, Capture(context.Background(), scene.NewScene(), env, Options{Lay: 1}, directionRender(&calls)))
}

func TestMakeEnvMaps(t *testing.T) {
	sc := scene.NewScene()

	static := New("static")
	static.Object = scene.NewObject("probe", nil)
	static.CubeRes = 4
	static.Depth = 2
	require.NoError(t, sc.AddTexture(static))

	anim := New("anim")
	anim.Source = Anim
	anim.Type = Plane
	anim.Object = static.Object
	anim.CubeRes = 4
	require.NoError(t, sc.AddTexture(anim))

	hidden := New("hidden")
	hidden.Object = scene.NewObject("hidden probe", nil)
	hidden.Object.Lay = 2
	require.NoError(t, sc.AddTexture(hidden))

	loaded := New("loaded")
	loaded.Source = Load
	loaded.Image = &scene.Image{Name: "cross", Buf: solidCross(t, 4)}
	require.NoError(t, sc.AddTexture(loaded))

	var calls int
	m := NewManager(sc, directionRender(&calls), Options{Lay: 1, Size: 64})
	require.NoError(t, m.MakeEnvMaps(context.Background()))

	// The static map is captured once per recursion level.
	assert.Equal(t, 3*6+1, calls)
	assert.Equal(t, 3*6+1, m.Captured)
	assert.Equal(t, NotReady, hidden.State())
	assert.Equal(t, Normal, loaded.State())

	// Only the animated map is refreshed on the next frame.
	calls = 0
	require.NoError(t, m.MakeEnvMaps(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, Normal, static.State())

	// Switching to oversampling invalidates the static map.
	calls = 0
	m = NewManager(sc, directionRender(&calls), Options{Lay: 1, Size: 64, OSA: true})
	require.NoError(t, m.MakeEnvMaps(context.Background()))
	assert.Equal(t, 3*6+1, calls)
	assert.Equal(t, OSA, static.State())

	m.Free()
	assert.Equal(t, NotReady, static.State())
	assert.Equal(t, Normal, loaded.State())
}
