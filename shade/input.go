package shade

import (
	"github.com/achilleasa/scanline/raytrace"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
)

// Context holds the per-render settings shared by all shading samples of
// one view snapshot. A Context is read-only while rendering.
type Context struct {
	DB *view.DB

	// Optional ray tree used for shadows and ambient occlusion.
	Ray *raytrace.Tree

	// Compute screen space derivatives for filtered texture lookups.
	OSA bool

	// Passes requested by the render layer.
	Passes scene.PassFlag

	// Shading strategies overriding the built-in lamp loop per material.
	Shaders map[*scene.Material]Strategy

	// World up direction in view space.
	Up types.Vec3
}

// Create a shading context for a view snapshot.
func NewContext(db *view.DB, ray *raytrace.Tree) *Context {
	return &Context{
		DB:     db,
		Ray:    ray,
		Passes: scene.PassCombined,
		Up:     db.ViewMat.MulDir(types.Vec3{0, 1, 0}).Normalize(),
	}
}

// A UV layer sample. Texture coordinates are mapped to [-1, 1].
type UVSample struct {
	Name string

	// The interpolated layer value.
	UV types.Vec2

	Co       types.Vec3
	DxT, DyT types.Vec3
}

// Input holds everything known about one shading sample: the hit face,
// its position with screen space derivatives, interpolated normals and
// texture coordinates and the material values after texturing. An Input
// is reused for consecutive samples by a single worker.
type Input struct {
	Ctx *Context

	// Hit face and its resolved vertices.
	Vlr    *view.VlakRen
	FaceNr int32
	Obr    *view.ObjectRen
	Mat    *scene.Material
	V1     *view.VertRen
	V2     *view.VertRen
	V3     *view.VertRen
	// Face corners of V1, V2, V3.
	I1, I2, I3 int

	// Face normal; flipped to face the viewer when Flipped is set.
	FaceNo  types.Vec3
	Flipped bool

	// Sample position in frame coordinates and its stored depth.
	Scanco types.Vec3
	Xs, Ys int

	Co         types.Vec3
	DxCo, DyCo types.Vec3

	// Normalized view vector and its per pixel deltas.
	View           types.Vec3
	DxView, DyView types.Vec3

	U, V     float32
	DxU, DyU float32
	DxV, DyV float32

	// Shading normal, the normal before texturing and its derivatives.
	VN         types.Vec3
	VNo        types.Vec3
	DxNo, DyNo types.Vec3

	// Texture coordinates.
	Lo, DxLo, DyLo      types.Vec3
	Gl, DxGl, DyGl      types.Vec3
	Ref, DxRef, DyRef   types.Vec3
	WinCo, DxWin, DyWin types.Vec3
	Sticky, DxSt, DySt  types.Vec3
	Orn                 types.Vec3
	Tang                types.Vec3
	Speed               types.Vec4
	VCol                types.Vec4
	Strand              float32
	Stress              float32
	UV                  []UVSample

	// Material values; textures modify these copies.
	Col     types.Vec3
	SpecCol types.Vec3
	MirCol  types.Vec3
	Alpha   float32
	Refl    float32
	Spec    float32
	Emit    float32
	Amb     float32
	Hard    int
	// Env map reflection: blend factor followed by the color.
	RefCol types.Vec4

	// Sample coverage mask of the shaded samples.
	Mask uint16

	shader Strategy
	obInv  map[*scene.Object]types.Mat4
}

// Create an input bound to a shading context.
func NewInput(ctx *Context) *Input {
	return &Input{
		Ctx:   ctx,
		obInv: make(map[*scene.Object]types.Mat4),
	}
}

// Resolve a face id into the vertices, material and normal of the addressed
// triangle. If normalFlip is set the face normal is flipped to point at the
// viewer unless the material disables it. Returns false for sky and
// invalid ids.
func (si *Input) SetTriangle(facenr int32, normalFlip bool) bool {
	vlr, i1, i2, i3, ok := si.Ctx.DB.Face(facenr)
	if !ok {
		si.Vlr = nil
		si.FaceNr = 0
		return false
	}

	si.FaceNr = facenr
	si.Vlr = vlr
	si.Obr = vlr.Obr
	si.I1, si.I2, si.I3 = i1, i2, i3
	si.V1, si.V2, si.V3 = vlr.Vert(i1), vlr.Vert(i2), vlr.Vert(i3)
	si.FaceNo = vlr.N
	si.Flipped = false

	if si.Mat != vlr.Mat || si.shader == nil {
		si.Mat = vlr.Mat
		si.shader = si.Ctx.strategy(si.Mat)
	}

	if normalFlip && si.Mat.Mode&scene.ModeNoNormalFlip == 0 {
		var facing float32
		if si.Ctx.DB.Proj.Ortho {
			facing = -si.FaceNo[2]
		} else {
			facing = si.FaceNo.Dot(si.V1.Co)
		}
		if facing > 0 {
			si.FaceNo = si.FaceNo.Neg()
			si.Flipped = true
		}
	}
	return true
}

// Get the 0-based index of the current face.
func (si *Input) FaceIndex() int {
	return int((si.FaceNr - 1) & view.FaceMask)
}

// Intersect the view ray through frame position (x, y) with the plane of
// the current face.
func (si *Input) planeCo(x, y float32) types.Vec3 {
	p := si.Ctx.DB.Proj
	n := si.FaceNo
	dface := n.Dot(si.V1.Co)

	if p.Ortho {
		co := p.RenderCoOrtho(x, y, 0)
		if n[2] != 0 {
			co[2] = (dface - n[0]*co[0] - n[1]*co[1]) / n[2]
		} else {
			co[2] = 0
		}
		return co
	}

	viewVec := p.ViewVector(x, y)
	var fac float32
	if div := n.Dot(viewVec); div != 0 {
		fac = dface / div
	}
	return viewVec.Mul(fac)
}

// Compute the view space position of the sample at continuous frame
// position (x, y) inside pixel (xs, ys) together with its derivatives. z is
// the stored depth of the sample.
func (si *Input) SetViewCo(x, y, xs, ys, z float32) {
	p := si.Ctx.DB.Proj
	si.Scanco = types.Vec3{xs, ys, z}
	si.Xs, si.Ys = int(xs), int(ys)

	si.Co = si.planeCo(x, y)
	si.View = p.ViewVector(x, y).Normalize()
	if p.Ortho {
		si.View = types.Vec3{0, 0, -1}
	}

	si.DxCo = si.planeCo(x+1, y).Sub(si.Co)
	si.DyCo = si.planeCo(x, y+1).Sub(si.Co)
	if si.Ctx.OSA && !p.Ortho {
		si.DxView = p.ViewVector(x+1, y).Normalize().Sub(si.View)
		si.DyView = p.ViewVector(x, y+1).Normalize().Sub(si.View)
	} else {
		si.DxView, si.DyView = types.Vec3{}, types.Vec3{}
	}

	si.WinCo = types.Vec3{-1 + 2*x/float32(p.WinX), -1 + 2*y/float32(p.WinY), 0}
	si.DxWin = types.Vec3{2 / float32(p.WinX), 0, 0}
	si.DyWin = types.Vec3{0, 2 / float32(p.WinY), 0}
}

// Set the sample position directly; used when the shaded point is not
// derived from a view ray (texture baking).
func (si *Input) SetCo(co, view types.Vec3) {
	si.Co = co
	si.View = view
	si.DxCo, si.DyCo = types.Vec3{}, types.Vec3{}
	si.DxView, si.DyView = types.Vec3{}, types.Vec3{}
}

// Solve the (u, v) coordinates of Co within the current triangle. The
// triangle is projected on the axis pair with the largest footprint.
// Coordinates follow the l = 1+u+v convention and are clamped to [-2, 1].
func (si *Input) SetUV() {
	v1, v2, v3 := si.V1.Co, si.V2.Co, si.V3.Co

	xn := math32.Abs(si.FaceNo[0])
	yn := math32.Abs(si.FaceNo[1])
	zn := math32.Abs(si.FaceNo[2])
	axis1, axis2 := 1, 2
	if zn >= xn && zn >= yn {
		axis1, axis2 = 0, 1
	} else if yn >= xn && yn >= zn {
		axis1, axis2 = 0, 2
	}

	t00 := v3[axis1] - v1[axis1]
	t01 := v3[axis2] - v1[axis2]
	t10 := v3[axis1] - v2[axis1]
	t11 := v3[axis2] - v2[axis2]
	det := t00*t11 - t10*t01
	if det == 0 {
		si.U, si.V = 0, 0
		si.DxU, si.DyU, si.DxV, si.DyV = 0, 0, 0, 0
		return
	}
	detsh := 1 / det
	t00 *= detsh
	t01 *= detsh
	t10 *= detsh
	t11 *= detsh

	si.U = (si.Co[axis1]-v3[axis1])*t11 - (si.Co[axis2]-v3[axis2])*t10
	si.V = (si.Co[axis2]-v3[axis2])*t00 - (si.Co[axis1]-v3[axis1])*t01

	si.DxU = si.DxCo[axis1]*t11 - si.DxCo[axis2]*t10
	si.DxV = si.DxCo[axis2]*t00 - si.DxCo[axis1]*t01
	si.DyU = si.DyCo[axis1]*t11 - si.DyCo[axis2]*t10
	si.DyV = si.DyCo[axis2]*t00 - si.DyCo[axis1]*t01

	si.U = clamp(si.U, -2, 1)
	si.V = clamp(si.V, -2, 1)
}

// Set the shading normal: interpolated vertex normals for smooth faces,
// the face normal otherwise.
func (si *Input) SetNormals() {
	if !si.Vlr.Smooth {
		si.VN = si.FaceNo
		si.VNo = si.VN
		si.DxNo, si.DyNo = types.Vec3{}, types.Vec3{}
		return
	}

	n1, n2, n3 := si.V1.N, si.V2.N, si.V3.N
	if si.Flipped {
		n1, n2, n3 = n1.Neg(), n2.Neg(), n3.Neg()
	}
	si.VN = types.InterpVec3(n1, n2, n3, si.U, si.V).Normalize()
	si.VNo = si.VN
	si.DxNo = derivVec3(n1, n2, n3, si.DxU, si.DxV)
	si.DyNo = derivVec3(n1, n2, n3, si.DyU, si.DyV)
}

// Load the material values into the input before texturing.
func (si *Input) loadMaterial() {
	m := si.Mat
	si.Col = m.Col
	si.SpecCol = m.SpecCol
	si.MirCol = m.MirCol
	si.Alpha = m.Alpha
	si.Refl = m.Ref
	si.Spec = m.Spec
	si.Emit = m.Emit
	si.Amb = m.Amb
	si.Hard = m.Hard
	si.RefCol = types.Vec4{}
}

// Derivative of an interpolated attribute for (u, v) deltas.
func derivVec3(a1, a2, a3 types.Vec3, du, dv float32) types.Vec3 {
	return a3.Mul(du + dv).Sub(a1.Mul(du)).Sub(a2.Mul(dv))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
