package bake

import (
	"time"

	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/raytrace"
	"github.com/achilleasa/scanline/shade"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
)

// State shared by the workers of one bake.
type baker struct {
	opts Options
	db   *view.DB
	ctx  *shade.Context
	ray  *raytrace.Tree
	test raster.BreakFunc
}

type worker struct {
	stat WorkerStat

	si  *shade.Input
	res shade.Result

	// Span buffers are sized for the current target image.
	zs     *raster.ZSpan
	texels []texel
}

func (b *baker) newWorker(id int) *worker {
	return &worker{
		stat: WorkerStat{Id: id},
		si:   shade.NewInput(b.ctx),
	}
}

// Bake faces until the cursor runs dry.
func (b *baker) run(w *worker, cur *cursor) error {
	for {
		if b.test() {
			return ErrInterrupted
		}
		f, ok := cur.next()
		if !ok {
			return nil
		}

		start := time.Now()
		b.bakeFace(w, f)
		w.stat.Faces++
		w.stat.Texels += len(w.texels)
		w.stat.BakeTime += time.Since(start)
	}
}

// Scan convert the uv footprint of a face into its target image and shade
// every covered texel. Quads are baked as two triangles.
func (b *baker) bakeFace(w *worker, f bakeFace) {
	vlr := b.db.Faces[f.index]
	buf := f.target.img.Buf
	if w.zs == nil || w.zs.RectX != buf.Width || w.zs.RectY != buf.Height {
		w.zs = raster.NewZSpan(buf.Width, buf.Height)
	}
	w.texels = w.texels[:0]

	facenr := int32(f.index + 1)
	ids := []int32{facenr}
	if vlr.IsQuad() {
		ids = append(ids, facenr|view.QuadOffs)
	}

	corners := &f.uv.UV[vlr.Index]
	for _, id := range ids {
		if !w.si.SetTriangle(id, false) {
			continue
		}

		// Texel centers are integer raster positions.
		var verts [3]types.Vec3
		for i, corner := range [3]int{w.si.I1, w.si.I2, w.si.I3} {
			uv := corners[corner]
			verts[i] = types.Vec3{uv[0]*float32(buf.Width) - 0.5, uv[1]*float32(buf.Height) - 0.5, 0}
		}
		w.zs.ScanConvert(verts[0], verts[1], verts[2], func(x, y int, u, v float32) {
			w.texels = append(w.texels, texel{x: x, y: y, col: b.shadeTexel(w, u, v)})
		})
	}
	f.target.write(w.texels)
}

// Shade the point of the current triangle with barycentric weights u (v1)
// and v (v2). The surface is viewed head-on.
func (b *baker) shadeTexel(w *worker, u, v float32) [4]float32 {
	si := w.si
	co := si.V1.Co.Mul(u).Add(si.V2.Co.Mul(v)).Add(si.V3.Co.Mul(1 - u - v))

	si.U, si.V = -u, -v
	si.DxU, si.DyU, si.DxV, si.DyV = 0, 0, 0, 0
	si.SetCo(co, si.FaceNo.Neg())
	si.SetNormals()
	si.SetShadeTexco()

	switch b.opts.Mode {
	case ModeAO:
		ao := float32(1)
		if b.ray != nil {
			wo := b.db.World
			ao = b.ray.AmbientOcclusion(si.Co, si.VN, wo.AODist, wo.AOSamples, si.FaceIndex())
		}
		return [4]float32{ao, ao, ao, 1}
	case ModeNormals:
		// Textures may perturb the normal.
		si.DoShade(&w.res)
		n := b.normal(si)
		return [4]float32{0.5*n[0] + 0.5, 0.5*n[1] + 0.5, 0.5*n[2] + 0.5, 1}
	case ModeTextures:
		si.DoShade(&w.res)
		return [4]float32(w.res.Col)
	}

	si.DoShade(&w.res)
	return [4]float32(w.res.Combined)
}

// Express the shading normal in the configured space.
func (b *baker) normal(si *shade.Input) types.Vec3 {
	n := si.VN
	switch b.opts.NormalSpace {
	case SpaceWorld:
		n = b.db.ViewInv.MulDir(n)
	case SpaceObject:
		n = si.Obr.ViewObMat.MulDir(n)
	case SpaceTangent:
		geo := si.VNo
		t := tangent(si)
		t = t.Sub(geo.Mul(geo.Dot(t))).Normalize()
		bt := geo.Cross(t)
		n = types.Vec3{n.Dot(t), n.Dot(bt), n.Dot(geo)}
	}
	return n.Normalize()
}

// Get the view space tangent at the current sample. Meshes without stored
// tangents get the tangent of the first uv layer.
func tangent(si *shade.Input) types.Vec3 {
	mesh := si.Obr.Mesh
	if len(mesh.Tangents) == len(mesh.Verts) {
		t1 := si.Obr.ObViewMat.MulDir(mesh.Tangents[si.V1.Index])
		t2 := si.Obr.ObViewMat.MulDir(mesh.Tangents[si.V2.Index])
		t3 := si.Obr.ObViewMat.MulDir(mesh.Tangents[si.V3.Index])
		return types.InterpVec3(t1, t2, t3, si.U, si.V)
	}

	uv := mesh.UVLayer("")
	if uv == nil || si.Vlr.Index >= len(uv.UV) {
		return types.Vec3{1, 0, 0}
	}
	corners := &uv.UV[si.Vlr.Index]
	duv1 := corners[si.I2].Sub(corners[si.I1])
	duv2 := corners[si.I3].Sub(corners[si.I1])
	e1 := si.V2.Co.Sub(si.V1.Co)
	e2 := si.V3.Co.Sub(si.V1.Co)

	det := duv1[0]*duv2[1] - duv2[0]*duv1[1]
	if det == 0 {
		return e1.Normalize()
	}
	return e1.Mul(duv2[1]).Sub(e2.Mul(duv1[1])).Mul(1 / det).Normalize()
}
