package raster

import (
	"math"

	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

// ZSpan scan converts triangles into a rectx x recty raster. Integer
// raster coordinates are sample points; a triangle covers a sample when
// the sample lies inside its left and right edge spans.
type ZSpan struct {
	RectX, RectY int

	span1, span2 []float32

	// Triangle vertices being converted; span bookkeeping refers to them
	// by index.
	verts [3]types.Vec3

	minp1, maxp1, minp2, maxp2 int
	miny1, maxy1, miny2, maxy2 int
}

// Create a span converter for a rectx x recty raster.
func NewZSpan(rectx, recty int) *ZSpan {
	return &ZSpan{
		RectX: rectx,
		RectY: recty,
		span1: make([]float32, recty),
		span2: make([]float32, recty),
	}
}

func (zs *ZSpan) reset() {
	zs.minp1, zs.maxp1, zs.minp2, zs.maxp2 = -1, -1, -1, -1
	zs.miny1, zs.miny2 = zs.RectY+1, zs.RectY+1
	zs.maxy1, zs.maxy2 = -1, -1
}

// Add the edge between verts a and b to the left or right span.
func (zs *ZSpan) addEdge(a, b int) {
	minv, maxv := b, a
	if zs.verts[a][1] < zs.verts[b][1] {
		minv, maxv = a, b
	}
	vmin, vmax := zs.verts[minv], zs.verts[maxv]

	my0 := int(math32.Ceil(vmin[1]))
	my2 := int(math32.Floor(vmax[1]))
	if my2 < 0 || my0 >= zs.RectY {
		return
	}
	if my2 >= zs.RectY {
		my2 = zs.RectY - 1
	}
	if my0 < 0 {
		my0 = 0
	}
	if my0 > my2 {
		return
	}

	var dx0, xs0 float32
	if dy := vmax[1] - vmin[1]; dy > flatEdgeEpsilon {
		dx0 = (vmin[0] - vmax[0]) / dy
		xs0 = dx0*(vmin[1]-float32(my2)) + vmin[0]
	} else {
		xs0 = math32.Min(vmin[0], vmax[0])
	}

	// An edge joining the first span's extremes completes it.
	span := zs.span2
	if zs.maxp1 == -1 || maxv == zs.minp1 || minv == zs.maxp1 {
		span = zs.span1
		if zs.minp1 == -1 || zs.verts[zs.minp1][1] > vmin[1] {
			zs.minp1 = minv
		}
		if zs.maxp1 == -1 || zs.verts[zs.maxp1][1] < vmax[1] {
			zs.maxp1 = maxv
		}
		zs.miny1 = min(zs.miny1, my0)
		zs.maxy1 = max(zs.maxy1, my2)
	} else {
		if zs.minp2 == -1 || zs.verts[zs.minp2][1] > vmin[1] {
			zs.minp2 = minv
		}
		if zs.maxp2 == -1 || zs.verts[zs.maxp2][1] < vmax[1] {
			zs.maxp2 = maxv
		}
		zs.miny2 = min(zs.miny2, my0)
		zs.maxy2 = max(zs.maxy2, my2)
	}

	for y := my2; y >= my0; y-- {
		span[y] = xs0
		xs0 += dx0
	}
}

// Build the spans for a triangle and return the covered row range.
func (zs *ZSpan) setup(v1, v2, v3 types.Vec3) (my0, my2 int, ok bool) {
	zs.verts = [3]types.Vec3{v1, v2, v3}
	zs.reset()
	zs.addEdge(0, 1)
	zs.addEdge(1, 2)
	zs.addEdge(2, 0)

	// Clipped
	if zs.minp2 == -1 || zs.maxp2 == -1 {
		return 0, 0, false
	}
	my0 = max(zs.miny1, zs.miny2)
	my2 = min(zs.maxy1, zs.maxy2)
	return my0, my2, my2 >= my0
}

// Get the left and right span for the rows of the current triangle.
func (zs *ZSpan) orderedSpans(my0, my2 int) ([]float32, []float32) {
	mid := (my0 + my2) / 2
	if zs.span1[mid] < zs.span2[mid] {
		return zs.span1, zs.span2
	}
	return zs.span2, zs.span1
}

// Get the covered sample range of a row.
func (zs *ZSpan) rowRange(left, right float32) (int, int) {
	sn1 := int(math32.Floor(left)) + 1
	sn2 := int(math32.Floor(right))
	if sn2 >= zs.RectX {
		sn2 = zs.RectX - 1
	}
	if sn1 < 0 {
		sn1 = 0
	}
	return sn1, sn2
}

// Fill a triangle whose vertices are given as (x, y, z) raster coordinates
// and invoke plot for every covered sample with its interpolated depth.
func (zs *ZSpan) FillTriangle(v1, v2, v3 types.Vec3, plot func(x, y int, z int32)) {
	my0, my2, ok := zs.setup(v1, v2, v3)
	if !ok {
		return
	}

	x1, x2 := v1[0]-v2[0], v2[0]-v3[0]
	y1, y2 := v1[1]-v2[1], v2[1]-v3[1]
	z1, z2 := v1[2]-v2[2], v2[2]-v3[2]
	x0 := y1*z2 - z1*y2
	y0 := z1*x2 - x1*z2
	z0 := x1*y2 - y1*x2
	if z0 == 0 {
		return
	}

	xx1 := float64((x0*v1[0]+y0*v1[1])/z0 + v1[2])
	zxd := -float64(x0) / float64(z0)
	zyd := -float64(y0) / float64(z0)
	zy0 := float64(my2)*zyd + xx1

	left, right := zs.orderedSpans(my0, my2)
	for y := my2; y >= my0; y-- {
		sn1, sn2 := zs.rowRange(left[y], right[y])
		zverg := float64(sn1)*zxd + zy0
		for x := sn1; x <= sn2; x++ {
			plot(x, y, clampZ(zverg))
			zverg += zxd
		}
		zy0 -= zyd
	}
}

// Scan convert a triangle and invoke fn for every covered sample with the
// barycentric weights (u, v) of v1 and v2 at that sample. The weight of v3
// is 1-u-v.
func (zs *ZSpan) ScanConvert(v1, v2, v3 types.Vec3, fn func(x, y int, u, v float32)) {
	my0, my2, ok := zs.setup(v1, v2, v3)
	if !ok {
		return
	}

	x1, x2 := v1[0]-v2[0], v2[0]-v3[0]
	y1, y2 := v1[1]-v2[1], v2[1]-v3[1]
	z0 := x1*y2 - y1*x2
	if z0 == 0 {
		return
	}

	// u is 1 at v1 and 0 at v2, v3
	var z1, z2 float32 = 1, 0
	x0 := y1*z2 - z1*y2
	y0 := z1*x2 - x1*z2
	xx1 := float64((x0*v1[0]+y0*v1[1])/z0 + 1)
	uxd := -float64(x0) / float64(z0)
	uyd := -float64(y0) / float64(z0)
	uy0 := float64(my2)*uyd + xx1

	// v is 1 at v2 and 0 at v1, v3
	z1, z2 = -1, 1
	x0 = y1*z2 - z1*y2
	y0 = z1*x2 - x1*z2
	xx1 = float64((x0*v1[0] + y0*v1[1]) / z0)
	vxd := -float64(x0) / float64(z0)
	vyd := -float64(y0) / float64(z0)
	vy0 := float64(my2)*vyd + xx1

	left, right := zs.orderedSpans(my0, my2)
	for y := my2; y >= my0; y-- {
		sn1, sn2 := zs.rowRange(left[y], right[y])
		u := float64(sn1)*uxd + uy0
		v := float64(sn1)*vxd + vy0
		for x := sn1; x <= sn2; x++ {
			fn(x, y, float32(u), float32(v))
			u += uxd
			v += vxd
		}
		uy0 -= uyd
		vy0 -= vyd
	}
}

// Edges with a smaller vertical extent are treated as horizontal.
const flatEdgeEpsilon = 1.1920929e-07

func clampZ(z float64) int32 {
	if z >= math.MaxInt32 {
		return math.MaxInt32
	} else if z <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(z)
}
