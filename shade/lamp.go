package shade

import (
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
)

// Sun shadow rays are cast up to this distance.
const sunShadowDist = 1e5

// Get the normalized direction from co towards the lamp and the lamp
// visibility factor (distance falloff and spot cone). A zero factor means
// the lamp does not reach co.
func lampVector(lar *view.LampRen, co types.Vec3) (types.Vec3, float32) {
	lamp := lar.Lamp
	if lamp.Type == scene.LampSun || lamp.Type == scene.LampHemi {
		return lar.Vec.Neg(), 1
	}

	lv := lar.Co.Sub(co)
	dist := lv.Len()
	if dist == 0 {
		return types.Vec3{}, 0
	}
	lv = lv.Mul(1 / dist)

	visifac := float32(1)
	ld := lamp.Dist
	switch lamp.Falloff {
	case scene.FalloffInvLinear:
		visifac = ld / (ld + dist)
	case scene.FalloffInvSquare:
		visifac = ld * ld / (ld*ld + dist*dist)
	}

	if lamp.Type == scene.LampSpot {
		inpr := lv.Neg().Dot(lar.Vec)
		if inpr <= lar.SpotSi {
			return lv, 0
		}
		t := inpr - lar.SpotSi
		if lar.SpotBl != 0 && t < lar.SpotBl {
			i := t / lar.SpotBl
			inpr *= i * i * (3 - 2*i)
		}
		visifac *= inpr
	}
	return lv, visifac
}

// Returns true if the lamp affects faces on the given layers.
func lampReaches(lamp *scene.Lamp, lay uint32) bool {
	return !lamp.LayerOnly || lamp.Lay&lay != 0
}

// Compute the specular intensity for normal n, normalized lamp vector l
// and view direction view (pointing away from the camera).
func specular(shader scene.SpecShader, n, l, view types.Vec3, hard int) float32 {
	toView := view.Neg()
	exp := float32(hard)

	switch shader {
	case scene.SpecBlinn:
		h := l.Add(toView).Normalize()
		nh := n.Dot(h)
		if nh <= 0 {
			return 0
		}
		return math32.Pow(nh, exp)
	case scene.SpecCookTorr:
		h := l.Add(toView).Normalize()
		nh := n.Dot(h)
		if nh <= 0 {
			return 0
		}
		nv := max(n.Dot(toView), 0)
		return math32.Pow(nh, exp) / (0.1 + nv)
	}

	r := n.Mul(2 * n.Dot(l)).Sub(l)
	rv := r.Dot(toView)
	if rv <= 0 {
		return 0
	}
	return math32.Pow(rv, exp)
}

// Apply the built-in lamp loop: diffuse and specular terms for every lamp,
// ray traced shadows, ambient light, ambient occlusion, emission and the
// env map reflection blend.
func lampLoop(si *Input, res *Result) {
	ctx := si.Ctx
	w := ctx.DB.World
	rgb := si.Col
	res.Alpha = si.Alpha

	if si.Mat.Mode&scene.ModeShadeless != 0 {
		res.Diff = rgb
		res.Combined = rgb.Vec4(si.Alpha)
		res.AO = types.Vec3{1, 1, 1}
		return
	}

	var diff, spec, shad types.Vec3
	faceIndex := si.FaceIndex()
	castShadows := si.Mat.Mode&scene.ModeShadow != 0 && ctx.Ray != nil

	for _, lar := range ctx.DB.Lamps {
		lamp := lar.Lamp
		if !lampReaches(lamp, si.Vlr.Lay) {
			continue
		}
		lv, visifac := lampVector(lar, si.Co)
		if visifac <= 0 {
			continue
		}

		inp := si.VN.Dot(lv)
		if lamp.Type == scene.LampHemi {
			inp = 0.5*inp + 0.5
		}

		shadfac := float32(1)
		if castShadows && lamp.Shadow && lamp.Type != scene.LampHemi && inp > 0 {
			target := lar.Co
			if lamp.Type == scene.LampSun {
				target = si.Co.Add(lv.Mul(sunShadowDist))
			}
			if ctx.Ray.Occluded(si.Co, target, faceIndex) {
				shadfac = 0
			}
		}
		shad = shad.Add(lamp.Col.Mul(shadfac))

		lampCol := lamp.Col.Mul(lamp.Energy)
		if inp <= 0 {
			continue
		}
		if !lamp.NoDiffuse {
			diff = diff.Add(lampCol.Mul(inp * visifac * shadfac * si.Refl))
		}
		if !lamp.NoSpecular && si.Spec != 0 && lamp.Type != scene.LampHemi {
			t := specular(si.Mat.SpecShader, si.VN, lv, si.View, si.Hard) * si.Spec * visifac * shadfac
			spec = spec.Add(lampCol.MulVec(si.SpecCol).Mul(t))
		}
	}

	if si.Mat.Mode&scene.ModeVertexColLight != 0 {
		diff = diff.Add(si.VCol.Vec3())
	}

	res.Diff = diff.MulVec(rgb)
	res.Spec = spec
	res.Shad = shad
	res.Emit = rgb.Mul(si.Emit)

	amb := w.Ambient.Mul(si.Amb).MulVec(rgb)
	res.AO = types.Vec3{1, 1, 1}
	if w.AO && ctx.Ray != nil {
		ao := ctx.Ray.AmbientOcclusion(si.Co, si.VN, w.AODist, w.AOSamples, faceIndex)
		res.AO = types.Vec3{ao, ao, ao}
		amb = amb.Add(rgb.Mul(ao * w.AOEnergy * si.Amb))
	}

	combined := res.Diff.Add(res.Spec).Add(amb).Add(res.Emit)
	if si.RefCol[0] != 0 {
		var mixed types.Vec3
		for i := 0; i < 3; i++ {
			mixed[i] = si.MirCol[i]*si.RefCol[i+1] + (1-si.MirCol[i]*si.RefCol[0])*combined[i]
		}
		res.Refl = mixed.Sub(combined)
		combined = mixed
	}
	res.Combined = combined.Vec4(si.Alpha)
}

// Sum the light reaching co from all lamps affecting the given layers,
// ignoring surface orientation. Used for shaded halos.
func LampLight(db *view.DB, co types.Vec3, lay uint32) types.Vec3 {
	var light types.Vec3
	for _, lar := range db.Lamps {
		if !lampReaches(lar.Lamp, lay) {
			continue
		}
		_, visifac := lampVector(lar, co)
		if visifac <= 0 {
			continue
		}
		light = light.Add(lar.Lamp.Col.Mul(lar.Lamp.Energy * visifac))
	}
	return light
}
