package shade

import (
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

// Result holds the shaded color of a sample split into render passes.
// Combined is premultiplied by its alpha.
type Result struct {
	Combined types.Vec4

	Diff types.Vec3
	Spec types.Vec3
	Shad types.Vec3
	AO   types.Vec3
	Refl types.Vec3
	Refr types.Vec3
	Emit types.Vec3
	Nor  types.Vec3
	UV   types.Vec3

	// Textured material color and alpha.
	Col   types.Vec4
	Speed types.Vec4

	Alpha   float32
	Mist    float32
	Z       float32
	IndexOb float32
}

// Strategy computes the surface color of a prepared shading input. The
// built-in strategy evaluates the classic lamp loop; materials can be given
// a custom strategy through Context.Shaders.
type Strategy interface {
	Shade(si *Input, res *Result)
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(si *Input, res *Result)

func (f StrategyFunc) Shade(si *Input, res *Result) {
	f(si, res)
}

var lampStrategy = StrategyFunc(lampLoop)

// Resolve the shading strategy for a material.
func (ctx *Context) strategy(mat *scene.Material) Strategy {
	if s, ok := ctx.Shaders[mat]; ok && s != nil {
		return s
	}
	return lampStrategy
}

// Shade the prepared sample. SetTriangle, SetViewCo (or SetCo), SetUV,
// SetNormals and SetShadeTexco must be called first.
func (si *Input) DoShade(res *Result) {
	*res = Result{}
	si.loadMaterial()
	if si.Mat.Mode&scene.ModeVertexColPaint != 0 {
		si.Col = si.VCol.Vec3()
	}
	if len(si.Mat.Textures) != 0 {
		si.doMaterialTex()
	}

	res.Alpha = si.Alpha
	si.shader.Shade(si, res)

	ctx := si.Ctx
	w := ctx.DB.World
	mistOn := w.Mist && si.Mat.Mode&scene.ModeNoMist == 0
	if mistOn || ctx.Passes&scene.PassMist != 0 {
		zcor := si.Co.Len()
		if ctx.DB.Proj.Ortho {
			zcor = -si.Co[2]
		}
		height := ctx.DB.ViewInv.MulPoint(si.Co)[1]
		res.Mist = MistFactor(w, zcor, height)
	}

	alpha := float32(1)
	if mistOn {
		alpha = res.Mist
	}
	if res.Alpha != 1 || alpha != 1 {
		fac := alpha * res.Alpha
		res.Combined = res.Combined.Vec3().Mul(fac).Vec4(fac)
	} else {
		res.Combined[3] = 1
	}

	res.Z = -si.Co[2]
	res.Nor = si.VN
	res.Col = si.Col.Vec4(si.Alpha)
	res.Speed = si.Speed
	res.IndexOb = float32(si.Obr.Object.PassIndex)
	if uv := si.uvLayer(""); uv != nil {
		res.UV = types.Vec3{uv.UV[0], uv.UV[1], 1}
	}
}

// Compute the mist visibility for a sample at distance zcor from the
// camera and world height height. Returns 1 for fully visible samples.
func MistFactor(w *scene.World, zcor, height float32) float32 {
	fac := zcor - w.MistStart
	if fac > 0 {
		if fac < w.MistDepth {
			fac /= w.MistDepth
			switch w.MistType {
			case scene.MistQuadratic:
				fac *= fac
			case scene.MistLinear:
			default:
				fac = math32.Sqrt(fac)
			}
		} else {
			fac = 1
		}
	} else {
		fac = 0
	}

	if w.MistHeight != 0 && fac != 0 {
		if height > w.MistHeight {
			fac = 0
		} else if height > 0 {
			hi := (w.MistHeight - height) / w.MistHeight
			fac *= hi * hi
		}
	}
	return (1 - fac) * (1 - w.MistIntensity)
}

// Get the sky blend factor for a normalized view space direction. up is
// the world up direction in view space.
func SkyBlend(w *scene.World, dir, up types.Vec3) float32 {
	var blend float32
	if w.Sky&scene.SkyReal != 0 {
		blend = math32.Abs(dir.Dot(up))
	} else {
		blend = math32.Abs(0.5 + dir[1])
	}
	return min(blend, 1)
}

// Get the sky color seen along a normalized view space direction.
func SkyColor(w *scene.World, dir, up types.Vec3) types.Vec3 {
	if w.Sky&scene.SkyBlend == 0 {
		return w.Horizon
	}
	return mixSky(w, SkyBlend(w, dir, up))
}

// Get the sky color behind frame position (x, y).
func (ctx *Context) Sky(x, y float32) types.Vec3 {
	w := ctx.DB.World
	if w.Sky&scene.SkyBlend == 0 {
		return w.Horizon
	}
	if w.Sky&scene.SkyPaper != 0 {
		vy := 2*y/float32(ctx.DB.Proj.WinY) - 1
		return mixSky(w, min(math32.Abs(0.5+0.5*vy), 1))
	}
	dir := ctx.DB.Proj.ViewVector(x, y).Normalize()
	return mixSky(w, SkyBlend(w, dir, ctx.Up))
}

func mixSky(w *scene.World, blend float32) types.Vec3 {
	return w.Horizon.Mul(1 - blend).Add(w.Zenith.Mul(blend))
}
