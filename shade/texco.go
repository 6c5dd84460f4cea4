package shade

import (
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
)

// Interpolate the texture coordinates required by the current material.
// Coordinate spaces the material does not use are left untouched; missing
// attribute layers resolve to zero.
func (si *Input) SetShadeTexco() {
	texco := si.Mat.TexCo()
	mesh := si.Obr.Mesh
	u, v := si.U, si.V
	dxu, dxv, dyu, dyv := si.DxU, si.DxV, si.DyU, si.DyV

	if texco&scene.TexCoOrco != 0 {
		o1, o2, o3 := si.V1.Orco, si.V2.Orco, si.V3.Orco
		si.Lo = types.InterpVec3(o1, o2, o3, u, v)
		si.DxLo = derivVec3(o1, o2, o3, dxu, dxv)
		si.DyLo = derivVec3(o1, o2, o3, dyu, dyv)
	}

	if texco&(scene.TexCoGlobal|scene.TexCoObject) != 0 {
		viewInv := &si.Ctx.DB.ViewInv
		si.Gl = viewInv.MulPoint(si.Co)
		si.DxGl = viewInv.MulDir(si.DxCo)
		si.DyGl = viewInv.MulDir(si.DyCo)
	}

	if texco&scene.TexCoStrand != 0 {
		s1, s2, s3 := vertFloat(mesh.Strand, si.V1), vertFloat(mesh.Strand, si.V2), vertFloat(mesh.Strand, si.V3)
		si.Strand = interpFloat(s1, s2, s3, u, v)
	}

	if texco&scene.TexCoStress != 0 {
		s1, s2, s3 := vertFloat(mesh.Stress, si.V1), vertFloat(mesh.Stress, si.V2), vertFloat(mesh.Stress, si.V3)
		si.Stress = interpFloat(s1, s2, s3, u, v)
	}

	if texco&scene.TexCoTangent != 0 {
		si.Tang = types.Vec3{}
		if len(mesh.Tangents) == len(mesh.Verts) {
			t1 := si.Obr.ObViewMat.MulDir(mesh.Tangents[si.V1.Index])
			t2 := si.Obr.ObViewMat.MulDir(mesh.Tangents[si.V2.Index])
			t3 := si.Obr.ObViewMat.MulDir(mesh.Tangents[si.V3.Index])
			si.Tang = types.InterpVec3(t1, t2, t3, u, v).Normalize()
		}
	}

	if texco&scene.TexCoSticky != 0 {
		si.Sticky, si.DxSt, si.DySt = types.Vec3{}, types.Vec3{}, types.Vec3{}
		if len(mesh.Sticky) == len(mesh.Verts) {
			s1 := mesh.Sticky[si.V1.Index].Vec3(0)
			s2 := mesh.Sticky[si.V2.Index].Vec3(0)
			s3 := mesh.Sticky[si.V3.Index].Vec3(0)
			si.Sticky = types.InterpVec3(s1, s2, s3, u, v)
			si.DxSt = derivVec3(s1, s2, s3, dxu, dxv)
			si.DySt = derivVec3(s1, s2, s3, dyu, dyv)
		}
	}

	if texco&scene.TexCoUV != 0 || si.Ctx.Passes&scene.PassUV != 0 {
		si.setUVLayers()
	}

	if texco&scene.TexCoNormal != 0 {
		si.Orn = si.VN
	}

	if texco&scene.TexCoRefl != 0 {
		si.calcRef()
	}

	if si.Ctx.Passes&scene.PassVector != 0 {
		si.Speed = types.Vec4{}
		if len(mesh.Speed) == len(mesh.Verts) {
			si.Speed = types.InterpVec4(mesh.Speed[si.V1.Index], mesh.Speed[si.V2.Index], mesh.Speed[si.V3.Index], u, v)
		}
	}

	if si.Mat.Mode&(scene.ModeVertexColLight|scene.ModeVertexColPaint) != 0 {
		si.VCol = types.Vec4{1, 1, 1, 1}
		if len(mesh.ColLayers) != 0 {
			cols := mesh.ColLayers[0].Col
			if fi := si.Vlr.Index; fi < len(cols) {
				si.VCol = types.InterpVec4(cols[fi][si.I1], cols[fi][si.I2], cols[fi][si.I3], u, v)
			}
		}
	}
}

// Interpolate every UV layer of the mesh.
func (si *Input) setUVLayers() {
	mesh := si.Obr.Mesh
	si.UV = si.UV[:0]
	fi := si.Vlr.Index
	for li := range mesh.UVLayers {
		layer := &mesh.UVLayers[li]
		if fi >= len(layer.UV) {
			continue
		}
		corners := &layer.UV[fi]
		uv1, uv2, uv3 := corners[si.I1].Vec3(0), corners[si.I2].Vec3(0), corners[si.I3].Vec3(0)

		uv := types.InterpVec3(uv1, uv2, uv3, si.U, si.V)
		dx := derivVec3(uv1, uv2, uv3, si.DxU, si.DxV)
		dy := derivVec3(uv1, uv2, uv3, si.DyU, si.DyV)
		si.UV = append(si.UV, UVSample{
			Name: layer.Name,
			UV:   types.Vec2{uv[0], uv[1]},
			Co:   types.Vec3{2*uv[0] - 1, 2*uv[1] - 1, 0},
			DxT:  dx.Mul(2),
			DyT:  dy.Mul(2),
		})
	}
}

// Find a UV layer sample by name; an empty name selects the first layer.
func (si *Input) uvLayer(name string) *UVSample {
	if len(si.UV) == 0 {
		return nil
	}
	if name == "" {
		return &si.UV[0]
	}
	for i := range si.UV {
		if si.UV[i].Name == name {
			return &si.UV[i]
		}
	}
	return &si.UV[0]
}

// Calculate the reflection vector and its screen space derivatives.
func (si *Input) calcRef() {
	si.Ref = reflect(si.View, si.VN)
	if !si.Ctx.OSA {
		si.DxRef, si.DyRef = types.Vec3{}, types.Vec3{}
		return
	}
	si.DxRef = reflect(si.View.Add(si.DxView), si.VN.Add(si.DxNo)).Sub(si.Ref)
	si.DyRef = reflect(si.View.Add(si.DyView), si.VN.Add(si.DyNo)).Sub(si.Ref)
}

// Mirror dir about n.
func reflect(dir, n types.Vec3) types.Vec3 {
	return dir.Sub(n.Mul(2 * n.Dot(dir)))
}

// Get a per vertex float attribute or zero if the layer is missing.
func vertFloat(values []float32, vr *view.VertRen) float32 {
	if int(vr.Index) >= len(values) {
		return 0
	}
	return values[vr.Index]
}

func interpFloat(a1, a2, a3, u, v float32) float32 {
	return (1+u+v)*a3 - u*a1 - v*a2
}
