package shade

import (
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
)

// Apply the material texture slots to the material values of the sample.
func (si *Input) doMaterialTex() {
	var (
		lookup texture.Lookup
		res    texture.Result
	)
	lookup.ViewInv = si.Ctx.DB.ViewInv
	lookup.OSA = si.Ctx.OSA

	for _, slot := range si.Mat.Textures {
		if slot == nil || slot.Tex == nil {
			continue
		}

		co, dx, dy := si.slotCoords(slot)
		for axis := 0; axis < 3; axis++ {
			lookup.Co[axis] = slot.Size[axis] * (co[axis] + slot.Ofs[axis])
			lookup.DxT[axis] = slot.Size[axis] * dx[axis]
			lookup.DyT[axis] = slot.Size[axis] * dy[axis]
		}

		rt := slot.Tex.Sample(&lookup, &res)
		si.applySlot(slot, rt, &res)
	}
}

// Select the texture coordinate and derivatives for a slot.
func (si *Input) slotCoords(slot *scene.TextureSlot) (co, dx, dy types.Vec3) {
	switch {
	case slot.TexCo&scene.TexCoOrco != 0:
		return si.Lo, si.DxLo, si.DyLo
	case slot.TexCo&scene.TexCoGlobal != 0:
		return si.Gl, si.DxGl, si.DyGl
	case slot.TexCo&scene.TexCoObject != 0:
		ob := slot.Object
		if ob == nil {
			ob = si.Obr.Object
		}
		inv, ok := si.obInv[ob]
		if !ok {
			inv = ob.ObMat.Inv()
			si.obInv[ob] = inv
		}
		return inv.MulPoint(si.Gl), inv.MulDir(si.DxGl), inv.MulDir(si.DyGl)
	case slot.TexCo&scene.TexCoUV != 0:
		if uv := si.uvLayer(slot.UVName); uv != nil {
			return uv.Co, uv.DxT, uv.DyT
		}
		return
	case slot.TexCo&scene.TexCoSticky != 0:
		return si.Sticky, si.DxSt, si.DySt
	case slot.TexCo&scene.TexCoStrand != 0:
		return types.Vec3{si.Strand, 0, 0}, dx, dy
	case slot.TexCo&scene.TexCoTangent != 0:
		return si.Tang, dx, dy
	case slot.TexCo&scene.TexCoStress != 0:
		return types.Vec3{si.Stress, 0, 0}, dx, dy
	case slot.TexCo&scene.TexCoRefl != 0:
		return si.Ref, si.DxRef, si.DyRef
	case slot.TexCo&scene.TexCoWindow != 0:
		return si.WinCo, si.DxWin, si.DyWin
	case slot.TexCo&scene.TexCoNormal != 0:
		return si.Orn, dx, dy
	}
	return si.Lo, si.DxLo, si.DyLo
}

// Blend a texture result into the channels selected by the slot.
func (si *Input) applySlot(slot *scene.TextureSlot, rt texture.ResultType, res *texture.Result) {
	hasRGB := rt&texture.RGB != 0

	if slot.MapTo&(scene.MapCol|scene.MapColSpec|scene.MapColMir) != 0 {
		tcol := slot.Col
		tin := res.Tin
		if hasRGB {
			tcol = types.Vec3{res.Tr, res.Tg, res.Tb}
			tin = res.Ta
		}

		if slot.MapTo&scene.MapCol != 0 {
			si.Col = blendRGB(tcol, si.Col, tin, slot.ColFac, slot.Blend)
		}
		if slot.MapTo&scene.MapColSpec != 0 {
			si.SpecCol = blendRGB(tcol, si.SpecCol, tin, slot.ColFac, slot.Blend)
		}
		if slot.MapTo&scene.MapColMir != 0 {
			env, isEnv := slot.Tex.(texture.Environment)
			if isEnv && env.IsEnvironment() && slot.Blend == scene.BlendMix {
				fact := tin * slot.ColFac
				facm := 1 - fact
				si.RefCol[0] = fact + facm*si.RefCol[0]
				for i := 0; i < 3; i++ {
					si.RefCol[i+1] = fact*tcol[i] + facm*si.RefCol[i+1]
				}
			} else {
				si.MirCol = blendRGB(tcol, si.MirCol, tin, slot.ColFac, slot.Blend)
			}
		}
	}

	if slot.MapTo&scene.MapNorm != 0 && rt&texture.Nor != 0 {
		fact := min(slot.NorFac, 1)
		si.VN = si.VN.Mul(1 - fact).Add(res.Nor.Mul(fact)).Normalize()
		if si.Mat.TexCo()&scene.TexCoRefl != 0 {
			si.calcRef()
		}
	}

	if !slot.MapsVars() {
		return
	}

	tin := res.Tin
	if hasRGB {
		if res.TAlpha {
			tin = res.Ta
		} else {
			tin = 0.35*res.Tr + 0.45*res.Tg + 0.2*res.Tb
		}
	}
	neg := slot.MapToNeg
	if slot.MapTo&scene.MapRef != 0 {
		si.Refl = max(0, blendValue(slot.DefVar, si.Refl, tin, slot.VarFac, slot.Blend, neg&scene.MapRef != 0))
	}
	if slot.MapTo&scene.MapSpec != 0 {
		si.Spec = max(0, blendValue(slot.DefVar, si.Spec, tin, slot.VarFac, slot.Blend, neg&scene.MapSpec != 0))
	}
	if slot.MapTo&scene.MapEmit != 0 {
		si.Emit = max(0, blendValue(slot.DefVar, si.Emit, tin, slot.VarFac, slot.Blend, neg&scene.MapEmit != 0))
	}
	if slot.MapTo&scene.MapAlpha != 0 {
		si.Alpha = clamp(blendValue(slot.DefVar, si.Alpha, tin, slot.VarFac, slot.Blend, neg&scene.MapAlpha != 0), 0, 1)
	}
	if slot.MapTo&scene.MapAmb != 0 {
		si.Amb = clamp(blendValue(slot.DefVar, si.Amb, tin, slot.VarFac, slot.Blend, neg&scene.MapAmb != 0), 0, 1)
	}
}

// Blend a texture color over out. fact is the texture intensity and facg
// the slot color factor.
func blendRGB(tex, out types.Vec3, fact, facg float32, blend scene.BlendType) types.Vec3 {
	var in types.Vec3
	switch blend {
	case scene.BlendMul:
		fact *= facg
		facm := 1 - facg
		for i := 0; i < 3; i++ {
			in[i] = (facm + fact*tex[i]) * out[i]
		}
	case scene.BlendScreen:
		fact *= facg
		facm := 1 - facg
		for i := 0; i < 3; i++ {
			in[i] = 1 - (facm+fact*(1-tex[i]))*(1-out[i])
		}
	case scene.BlendSub, scene.BlendAdd:
		if blend == scene.BlendSub {
			fact = -fact
		}
		fact *= facg
		for i := 0; i < 3; i++ {
			in[i] = fact*tex[i] + out[i]
		}
	default:
		fact *= facg
		facm := 1 - fact
		for i := 0; i < 3; i++ {
			in[i] = fact*tex[i] + facm*out[i]
		}
	}
	return in
}

// Blend a scalar texture value over out. If flip is set the texture and
// material weights are swapped.
func blendValue(tex, out, fact, facg float32, blend scene.BlendType, flip bool) float32 {
	fact *= facg
	facm := 1 - fact
	if flip {
		fact, facm = facm, fact
	}

	switch blend {
	case scene.BlendMul:
		facm = 1 - facg
		return (facm + fact*tex) * out
	case scene.BlendScreen:
		facm = 1 - facg
		return 1 - (facm+fact*(1-tex))*(1-out)
	case scene.BlendSub:
		return -fact*tex + out
	case scene.BlendAdd:
		return fact*tex + out
	}
	return fact*tex + facm*out
}
