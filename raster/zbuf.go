package raster

import (
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
)

// BreakFunc is polled by long running loops; returning true requests the
// loop to stop. Work completed before the poll is kept.
type BreakFunc func() bool

// Faces rasterized between two BreakFunc polls.
const breakPollInterval = 256

// ZBuffer rasterizes the faces of a view snapshot into the depth and face
// id buffers of a rectangular frame region and collects the per-sample hits
// into PixStr chains.
type ZBuffer struct {
	DB   *view.DB
	Proj *view.Projection

	// Frame position of the raster origin and the raster size.
	X0, Y0       int
	RectX, RectY int

	OSA    int
	Jitter [][2]float32

	// Visible layers.
	Lay uint32
	// Leave transparent materials out of the solid passes.
	SkipTransp bool

	Test BreakFunc

	// Depth buffer per sample and the face id buffer of the last solid
	// pass.
	RectZ [][]int32
	RectP []int32

	Arena    *Arena
	RectDaps []Handle

	zspan *ZSpan
	face  int32

	clipA, clipB []types.Vec4
}

// Create a z-buffer for the frame region starting at (x0, y0).
func NewZBuffer(db *view.DB, proj *view.Projection, x0, y0, rectx, recty, osa int, arena *Arena) *ZBuffer {
	samples := max(osa, 1)
	zb := &ZBuffer{
		DB:       db,
		Proj:     proj,
		X0:       x0,
		Y0:       y0,
		RectX:    rectx,
		RectY:    recty,
		OSA:      osa,
		Jitter:   JitterTable(osa),
		Lay:      db.Lay,
		RectZ:    make([][]int32, samples),
		RectP:    make([]int32, rectx*recty),
		Arena:    arena,
		RectDaps: make([]Handle, rectx*recty),
		zspan:    NewZSpan(rectx, recty),
		clipA:    make([]types.Vec4, 0, 8),
		clipB:    make([]types.Vec4, 0, 8),
	}
	for i := range zb.RectZ {
		zb.RectZ[i] = make([]int32, rectx*recty)
	}
	return zb
}

// Get the number of samples per pixel.
func (zb *ZBuffer) Samples() int {
	return len(zb.RectZ)
}

// Rasterize the non-transparent faces for one sample into RectZ[sample]
// and RectP. On equal depth the face rasterized first is kept. The pass
// stops early if the break function requests it.
func (zb *ZBuffer) Solid(sample int) {
	rz := zb.RectZ[sample]
	for i := range rz {
		rz[i] = view.MaxZ
		zb.RectP[i] = 0
	}

	rp := zb.RectP
	plot := func(x, y int, z int32) {
		i := y*zb.RectX + x
		if z < rz[i] {
			rz[i] = z
			rp[i] = zb.face
		}
	}

	for index, vlr := range zb.DB.Faces {
		if index%breakPollInterval == 0 && zb.Test != nil && zb.Test() {
			return
		}
		if vlr.Lay&zb.Lay == 0 || (zb.SkipTransp && vlr.Mat.IsTransparent()) {
			continue
		}
		zb.rasterFace(vlr, int32(index+1), zb.Jitter[sample], plot)
	}
}

// Append the face hits of the last solid pass for the given sample to the
// pixel chains.
func (zb *ZBuffer) MakePixelStructs(sample int) error {
	mask := uint16(1) << uint(sample)
	rz := zb.RectZ[sample]
	for i, facenr := range zb.RectP {
		if facenr == 0 {
			continue
		}
		head, err := zb.Arena.Add(zb.RectDaps[i], facenr, rz[i], mask)
		if err != nil {
			return err
		}
		zb.RectDaps[i] = head
	}
	return nil
}

// Rasterize the transparent faces for one sample and collect every sample
// that lies in front of the solid depth of that sample into the chains
// rooted at heads. Transparent faces do not occlude each other.
func (zb *ZBuffer) Transparent(sample int, arena *Arena, heads []Handle) error {
	rz := zb.RectZ[sample]
	mask := uint16(1) << uint(sample)

	var err error
	plot := func(x, y int, z int32) {
		if err != nil {
			return
		}
		i := y*zb.RectX + x
		if z < rz[i] {
			heads[i], err = arena.Add(heads[i], zb.face, z, mask)
		}
	}

	for index, vlr := range zb.DB.Faces {
		if index%breakPollInterval == 0 && zb.Test != nil && zb.Test() {
			return nil
		}
		if vlr.Lay&zb.Lay == 0 || !vlr.Mat.IsTransparent() {
			continue
		}
		zb.rasterFace(vlr, int32(index+1), zb.Jitter[sample], plot)
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear the pixel chains and release the arena nodes.
func (zb *ZBuffer) ResetPixelStructs() {
	for i := range zb.RectDaps {
		zb.RectDaps[i] = 0
	}
	zb.Arena.Reset()
}

// Rasterize a face as one or two triangles.
func (zb *ZBuffer) rasterFace(vlr *view.VlakRen, facenr int32, jit [2]float32, plot func(x, y int, z int32)) {
	var ho [4]types.Vec4
	numVerts := 3
	if vlr.IsQuad() {
		numVerts = 4
	}
	for i := 0; i < numVerts; i++ {
		ho[i] = zb.Proj.Project(vlr.Vert(i).Co)
	}

	zb.face = facenr
	zb.fillClipped(ho[0], ho[1], ho[2], jit, plot)
	if numVerts == 4 {
		zb.face = facenr | view.QuadOffs
		zb.fillClipped(ho[0], ho[2], ho[3], jit, plot)
	}
}

// Clip a triangle in homogeneous coordinates against the near and far
// planes and fill the remaining polygon.
func (zb *ZBuffer) fillClipped(h1, h2, h3 types.Vec4, jit [2]float32, plot func(x, y int, z int32)) {
	// Trivial reject when all vertices lie outside the same side plane.
	if allOutside(h1, h2, h3) {
		return
	}

	poly := append(zb.clipA[:0], h1, h2, h3)
	poly = clipPoly(poly, zb.clipB[:0], func(h types.Vec4) float32 { return h[2] + h[3] })
	zb.clipB = poly[:0]
	poly = clipPoly(poly, zb.clipA[:0], func(h types.Vec4) float32 { return h[3] - h[2] })
	zb.clipA = poly[:0]
	if len(poly) < 3 {
		return
	}

	var screen [8]types.Vec3
	for i, h := range poly {
		screen[i] = zb.toRaster(h, jit)
	}
	for i := 1; i+1 < len(poly); i++ {
		zb.zspan.FillTriangle(screen[0], screen[i], screen[i+1], plot)
	}
}

// Convert a homogeneous point to raster coordinates for a sample offset.
func (zb *ZBuffer) toRaster(h types.Vec4, jit [2]float32) types.Vec3 {
	p := zb.Proj
	return types.Vec3{
		0.5*float32(p.WinX)*(1+h[0]/h[3]) - float32(zb.X0) - jit[0] - 0.5,
		0.5*float32(p.WinY)*(1+h[1]/h[3]) - float32(zb.Y0) - jit[1] - 0.5,
		view.MaxZ * (h[2] / h[3]),
	}
}

func allOutside(h1, h2, h3 types.Vec4) bool {
	for axis := 0; axis < 2; axis++ {
		if h1[axis] > h1[3] && h2[axis] > h2[3] && h3[axis] > h3[3] {
			return true
		}
		if h1[axis] < -h1[3] && h2[axis] < -h2[3] && h3[axis] < -h3[3] {
			return true
		}
	}
	return false
}

// Sutherland-Hodgman clip of a convex polygon against the half space where
// dist >= 0.
func clipPoly(in, out []types.Vec4, dist func(types.Vec4) float32) []types.Vec4 {
	if len(in) == 0 {
		return out
	}
	prev := in[len(in)-1]
	dPrev := dist(prev)
	for _, cur := range in {
		dCur := dist(cur)
		if dCur >= 0 {
			if dPrev < 0 {
				out = append(out, lerp4(prev, cur, dPrev/(dPrev-dCur)))
			}
			out = append(out, cur)
		} else if dPrev >= 0 {
			out = append(out, lerp4(prev, cur, dPrev/(dPrev-dCur)))
		}
		prev, dPrev = cur, dCur
	}
	return out
}

func lerp4(a, b types.Vec4, t float32) types.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}
