package shade

import (
	"testing"

	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrame = 8

// Build a view snapshot with a single quad at z = -2 covering the whole
// frame of a 90 degree camera looking down -Z.
func testContext(t *testing.T, mat *scene.Material, setup func(sc *scene.Scene)) *Context {
	sc := scene.NewScene()
	sc.SetCamera(scene.NewCamera(math32.Pi / 2))
	sc.Camera.Update()
	sc.World.Ambient = types.Vec3{}

	require.NoError(t, sc.AddMaterial(mat))
	obj := scene.NewObject("quad", &scene.Mesh{
		Verts: []types.Vec3{{-4, -4, -2}, {4, -4, -2}, {4, 4, -2}, {-4, 4, -2}},
		Faces: []scene.Face{scene.Quad(0, 1, 2, 3)},
		UVLayers: []scene.UVLayer{
			{Name: "uv", UV: [][4]types.Vec2{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}},
		},
	})
	obj.Materials = []*scene.Material{mat}
	require.NoError(t, sc.AddObject(obj))
	if setup != nil {
		setup(sc)
	}

	proj := view.NewProjection(sc.Camera, testFrame, testFrame)
	db := view.Build(sc, sc.Camera.ViewMat, proj, view.Options{Lay: 1})
	return NewContext(db, nil)
}

// Shade the pixel center of frame pixel (x, y) on face facenr.
func shadePixel(t *testing.T, si *Input, facenr int32, x, y int) *Result {
	require.True(t, si.SetTriangle(facenr, true))
	si.SetViewCo(float32(x)+0.5, float32(y)+0.5, float32(x), float32(y), 0)
	si.SetUV()
	si.SetNormals()
	si.SetShadeTexco()

	var res Result
	si.DoShade(&res)
	return &res
}

// Find the face id of the quad half that covers frame position (x, y).
func coveringFace(si *Input, x, y float32) int32 {
	for _, facenr := range []int32{1, 1 | view.QuadOffs} {
		si.SetTriangle(facenr, true)
		si.SetViewCo(x, y, x, y, 0)
		si.SetUV()
		if si.U <= 0 && si.V <= 0 && si.U+si.V >= -1 {
			return facenr
		}
	}
	return 1
}

func whiteMaterial() *scene.Material {
	mat := scene.NewMaterial("white")
	mat.Col = types.Vec3{1, 1, 1}
	mat.Spec = 0
	return mat
}

func TestAmbientOnlyShading(t *testing.T) {
	ctx := testContext(t, whiteMaterial(), func(sc *scene.Scene) {
		sc.World.Ambient = types.Vec3{0.5, 0.5, 0.5}
	})
	ctx.Passes |= scene.PassUV
	si := NewInput(ctx)

	for y := 0; y < testFrame; y++ {
		for x := 0; x < testFrame; x++ {
			res := shadePixel(t, si, coveringFace(si, float32(x)+0.5, float32(y)+0.5), x, y)
			assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.5, 1}, res.Combined[:], 1e-5, "pixel (%d, %d)", x, y)

			// The quad spans [-4, 4] at depth 2 while the frame spans [-2, 2].
			expU := 0.5 + 0.25*((float32(x)+0.5)/testFrame*4-2)/2
			expV := 0.5 + 0.25*((float32(y)+0.5)/testFrame*4-2)/2
			assert.InDelta(t, expU, res.UV[0], 1e-4, "pixel (%d, %d)", x, y)
			assert.InDelta(t, expV, res.UV[1], 1e-4, "pixel (%d, %d)", x, y)
			assert.InDelta(t, 2, res.Z, 1e-4)
		}
	}
}

func TestSetUVInterpolation(t *testing.T) {
	ctx := testContext(t, whiteMaterial(), nil)
	si := NewInput(ctx)
	require.True(t, si.SetTriangle(1, true))

	points := []types.Vec3{
		si.V1.Co,
		si.V2.Co,
		si.V3.Co,
		{1, -1, -2},
		{3, -3.5, -2},
	}
	for index, co := range points {
		si.SetCo(co, co.Normalize())
		si.SetUV()
		got := types.InterpVec3(si.V1.Co, si.V2.Co, si.V3.Co, si.U, si.V)
		assert.InDeltaSlice(t, co[:], got[:], 1e-4, "point %d", index)
	}

	// Vertex weights follow the 1+u+v convention.
	si.SetCo(si.V3.Co, types.Vec3{0, 0, -1})
	si.SetUV()
	assert.Equal(t, float32(0), si.U)
	assert.Equal(t, float32(0), si.V)
	si.SetCo(si.V1.Co, types.Vec3{0, 0, -1})
	si.SetUV()
	assert.InDelta(t, -1, si.U, 1e-6)
	assert.InDelta(t, 0, si.V, 1e-6)
}

func TestNormalFlip(t *testing.T) {
	mat := whiteMaterial()
	ctx := testContext(t, mat, func(sc *scene.Scene) {
		// Reverse the winding so the quad faces away from the camera.
		sc.Objects[0].Mesh.Faces[0] = scene.Quad(3, 2, 1, 0)
	})
	si := NewInput(ctx)

	require.True(t, si.SetTriangle(1, true))
	assert.True(t, si.Flipped)
	assert.InDelta(t, 1, si.FaceNo[2], 1e-5)

	require.True(t, si.SetTriangle(1, false))
	assert.False(t, si.Flipped)
	assert.InDelta(t, -1, si.FaceNo[2], 1e-5)

	mat.Mode |= scene.ModeNoNormalFlip
	require.True(t, si.SetTriangle(1, true))
	assert.False(t, si.Flipped)

	assert.False(t, si.SetTriangle(0, true))
	assert.False(t, si.SetTriangle(42, true))
}

func TestLampLoop(t *testing.T) {
	mat := whiteMaterial()
	mat.Ref = 0.8
	ctx := testContext(t, mat, func(sc *scene.Scene) {
		lamp := scene.NewLamp("point", scene.LampPoint)
		lamp.Falloff = scene.FalloffConstant
		require.NoError(t, sc.AddLamp(lamp))
	})
	si := NewInput(ctx)

	center := testFrame / 2
	res := shadePixel(t, si, coveringFace(si, float32(center), float32(center)), center, center)
	// The lamp sits at the camera so the view ray and the light hit the
	// quad almost head-on at the frame center.
	assert.InDelta(t, 0.8, res.Combined[0], 0.02)
	assert.InDelta(t, res.Diff[0], res.Combined[0], 1e-5)
	assert.Equal(t, types.Vec3{1, 1, 1}, res.Shad)

	mat.Mode |= scene.ModeShadeless
	res = shadePixel(t, si, coveringFace(si, 0.5, 0.5), 0, 0)
	assert.Equal(t, types.Vec4{1, 1, 1, 1}, res.Combined)
}

func TestLampVector(t *testing.T) {
	spot := scene.NewLamp("spot", scene.LampSpot)
	spot.Falloff = scene.FalloffConstant
	spot.SpotSize = math32.Pi / 2
	spot.SpotBlend = 0.5
	lar := &view.LampRen{
		Lamp:   spot,
		Vec:    types.Vec3{0, 0, -1},
		SpotSi: math32.Cos(math32.Pi / 4),
	}
	lar.SpotBl = (1 - lar.SpotSi) * spot.SpotBlend

	type spec struct {
		co     types.Vec3
		expVis float32
	}
	specs := []spec{
		{types.Vec3{0, 0, -5}, 1},
		{types.Vec3{10, 0, -1}, 0},
		{types.Vec3{0, 0, 5}, 0},
	}
	for specIndex, s := range specs {
		_, vis := lampVector(lar, s.co)
		if math32.Abs(vis-s.expVis) > 1e-5 {
			t.Fatalf("[spec %d] expected visibility %f; got %f", specIndex, s.expVis, vis)
		}
	}

	// Inside the blend region the spot fades smoothly.
	_, edge := lampVector(lar, types.Vec3{0.9, 0, -1})
	assert.True(t, edge > 0 && edge < 1, "expected partial visibility; got %f", edge)

	point := scene.NewLamp("point", scene.LampPoint)
	point.Dist = 2
	point.Falloff = scene.FalloffInvSquare
	_, vis := lampVector(&view.LampRen{Lamp: point}, types.Vec3{0, 0, -2})
	assert.InDelta(t, 0.5, vis, 1e-6)
	point.Falloff = scene.FalloffInvLinear
	_, vis = lampVector(&view.LampRen{Lamp: point}, types.Vec3{0, 0, -6})
	assert.InDelta(t, 0.25, vis, 1e-6)
}

func TestSpecularShaders(t *testing.T) {
	n := types.Vec3{0, 0, 1}
	dir := types.Vec3{0, 0, -1}
	for _, shader := range []scene.SpecShader{scene.SpecPhong, scene.SpecBlinn, scene.SpecCookTorr} {
		head := specular(shader, n, n, dir, 20)
		grazing := specular(shader, n, types.Vec3{1, 0, 0.1}.Normalize(), dir, 20)
		assert.True(t, head > grazing, "shader %d: expected head-on highlight %f > grazing %f", shader, head, grazing)
		assert.Equal(t, float32(0), specular(shader, n, types.Vec3{0, 0, -1}, dir, 20))
	}
}

func TestMistFactor(t *testing.T) {
	type spec struct {
		mistType  scene.MistType
		height    float32
		intensity float32
		zcor      float32
		hi        float32
		exp       float32
	}

	specs := []spec{
		{scene.MistLinear, 0, 0, 5, 0, 0.5},
		{scene.MistQuadratic, 0, 0, 5, 0, 0.75},
		{scene.MistSqrt, 0, 0, 5, 0, 1 - math32.Sqrt(0.5)},
		{scene.MistLinear, 0, 0, 20, 0, 0},
		{scene.MistLinear, 0, 0, -1, 0, 1},
		{scene.MistLinear, 0, 0.5, -1, 0, 0.5},
		{scene.MistLinear, 10, 0, 5, 20, 1},
		{scene.MistLinear, 10, 0, 5, 5, 0.875},
		{scene.MistLinear, 10, 0, 5, -3, 0.5},
	}

	for specIndex, s := range specs {
		w := scene.NewWorld()
		w.MistType = s.mistType
		w.MistStart = 0
		w.MistDepth = 10
		w.MistHeight = s.height
		w.MistIntensity = s.intensity

		if got := MistFactor(w, s.zcor, s.hi); math32.Abs(got-s.exp) > 1e-5 {
			t.Fatalf("[spec %d] expected mist factor %f; got %f", specIndex, s.exp, got)
		}
	}
}

func TestBlendRGB(t *testing.T) {
	type spec struct {
		blend    scene.BlendType
		tex, out types.Vec3
		fact     float32
		exp      types.Vec3
	}

	specs := []spec{
		{scene.BlendMix, types.Vec3{1, 0, 0}, types.Vec3{0, 0, 1}, 0.5, types.Vec3{0.5, 0, 0.5}},
		{scene.BlendMul, types.Vec3{0.5, 0.5, 0.5}, types.Vec3{1, 0.5, 0}, 1, types.Vec3{0.5, 0.25, 0}},
		{scene.BlendAdd, types.Vec3{0.2, 0.2, 0.2}, types.Vec3{0.5, 0.5, 0.5}, 1, types.Vec3{0.7, 0.7, 0.7}},
		{scene.BlendSub, types.Vec3{0.2, 0.2, 0.2}, types.Vec3{0.5, 0.5, 0.5}, 1, types.Vec3{0.3, 0.3, 0.3}},
		{scene.BlendScreen, types.Vec3{0.5, 0.5, 0.5}, types.Vec3{0.5, 0.5, 0.5}, 1, types.Vec3{0.75, 0.75, 0.75}},
	}

	for specIndex, s := range specs {
		got := blendRGB(s.tex, s.out, s.fact, 1, s.blend)
		for i := 0; i < 3; i++ {
			if math32.Abs(got[i]-s.exp[i]) > 1e-5 {
				t.Fatalf("[spec %d] expected %v; got %v", specIndex, s.exp, got)
			}
		}
	}
}

func TestBlendValue(t *testing.T) {
	assert.InDelta(t, 1, blendValue(1, 0, 1, 1, scene.BlendMix, false), 1e-6)
	assert.InDelta(t, 0, blendValue(1, 0, 1, 1, scene.BlendMix, true), 1e-6)
	assert.InDelta(t, 0.75, blendValue(1, 0.5, 0.5, 1, scene.BlendMix, false), 1e-6)
	assert.InDelta(t, 0.5, blendValue(0.5, 1, 1, 1, scene.BlendMul, false), 1e-6)
	assert.InDelta(t, 0.8, blendValue(0.3, 0.5, 1, 1, scene.BlendAdd, false), 1e-6)
	assert.InDelta(t, 0.2, blendValue(0.3, 0.5, 1, 1, scene.BlendSub, false), 1e-6)
}

func TestSky(t *testing.T) {
	w := scene.NewWorld()
	w.Horizon = types.Vec3{1, 0, 0}
	w.Zenith = types.Vec3{0, 0, 1}
	up := types.Vec3{0, 1, 0}

	assert.Equal(t, w.Horizon, SkyColor(w, types.Vec3{0, 1, 0}, up))

	w.Sky = scene.SkyBlend
	assert.InDeltaSlice(t, []float32{0.5, 0, 0.5}, sliceOf(SkyColor(w, types.Vec3{0, 0, -1}, up)), 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0, 1}, sliceOf(SkyColor(w, types.Vec3{0, 1, 0}, up)), 1e-6)

	w.Sky |= scene.SkyReal
	assert.InDeltaSlice(t, []float32{1, 0, 0}, sliceOf(SkyColor(w, types.Vec3{0, 0, -1}, up)), 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0, 1}, sliceOf(SkyColor(w, types.Vec3{0, -1, 0}, up)), 1e-6)
}

func sliceOf(v types.Vec3) []float32 {
	return v[:]
}

func TestCustomStrategy(t *testing.T) {
	mat := whiteMaterial()
	ctx := testContext(t, mat, nil)
	ctx.Shaders = map[*scene.Material]Strategy{
		mat: StrategyFunc(func(si *Input, res *Result) {
			res.Combined = types.Vec4{0.2, 0.4, 0.6, 1}
			res.Alpha = 0.5
		}),
	}
	si := NewInput(ctx)

	res := shadePixel(t, si, 1, 1, 1)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3, 0.5}, res.Combined[:], 1e-6)
}

type constTex struct {
	texture.Base
	col types.Vec3
	env bool
}

func (c *constTex) Sample(_ *texture.Lookup, res *texture.Result) texture.ResultType {
	res.Tr, res.Tg, res.Tb, res.Ta = c.col[0], c.col[1], c.col[2], 1
	res.Tin = 1
	return texture.RGB
}

func (c *constTex) IsEnvironment() bool {
	return c.env
}

func TestMaterialTextures(t *testing.T) {
	mat := whiteMaterial()
	mat.Textures = []*scene.TextureSlot{
		scene.NewTextureSlot(&constTex{Base: texture.NewBase("green"), col: types.Vec3{0, 1, 0}}, scene.TexCoOrco, scene.MapCol),
	}
	ctx := testContext(t, mat, func(sc *scene.Scene) {
		sc.World.Ambient = types.Vec3{1, 1, 1}
	})
	si := NewInput(ctx)

	res := shadePixel(t, si, 1, 1, 1)
	assert.InDeltaSlice(t, []float32{0, 1, 0, 1}, res.Combined[:], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 1, 0, 1}, res.Col[:], 1e-6)

	// Env textures mapped to the mirror color replace the surface color.
	mat.Textures = []*scene.TextureSlot{
		scene.NewTextureSlot(&constTex{Base: texture.NewBase("env"), col: types.Vec3{1, 0, 0}, env: true}, scene.TexCoRefl, scene.MapColMir),
	}
	res = shadePixel(t, si, 1, 1, 1)
	assert.InDeltaSlice(t, []float32{1, 0, 0, 1}, res.Combined[:], 1e-6)
	assert.InDeltaSlice(t, []float32{0, -1, -1}, sliceOf(res.Refl), 1e-6)
}
