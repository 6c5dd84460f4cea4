package halo

import (
	"sort"

	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
	"github.com/dhconnelly/rtreego"
)

const (
	treeMinChildren = 4
	treeMaxChildren = 16
)

// A halo indexed by its frame space bounding box.
type entry struct {
	har   *view.Halo
	order int
	rect  rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Tile describes the part of the frame a halo pass draws into.
type Tile struct {
	// Frame space origin and size.
	X0, Y0       int
	RectX, RectY int

	// Solid depth per pixel.
	RectZ []int32

	// Optional pixel struct lists of the tile; pixels with a list are
	// shaded per sample group.
	RectDaps []raster.Handle
	Arena    *raster.Arena
	OSA      int

	// RGBA output, 4 floats per pixel.
	Col []float32

	Test raster.BreakFunc
}

// Renderer draws the halos of a view snapshot. Halos are indexed in an
// R-tree so each tile only visits the halos overlapping it. A Renderer is
// safe for concurrent use by multiple tiles.
type Renderer struct {
	db   *view.DB
	tree *rtreego.Rtree
	size int
}

// Index the visible halos of a snapshot on the given layers.
func NewRenderer(db *view.DB, lay uint32) *Renderer {
	r := &Renderer{db: db}

	objs := make([]rtreego.Spatial, 0, len(db.Halos))
	for order, har := range db.Halos {
		if har.Clipped || har.Lay&lay == 0 || har.Rad <= 0 {
			continue
		}
		rect, err := rtreego.NewRect(
			rtreego.Point{float64(har.Xs - har.Rad), float64(har.MinY)},
			[]float64{float64(2 * har.Rad), float64(max(har.MaxY-har.MinY, 1e-3))},
		)
		if err != nil {
			continue
		}
		objs = append(objs, &entry{har: har, order: order, rect: rect})
	}
	r.size = len(objs)
	r.tree = rtreego.NewTree(2, treeMinChildren, treeMaxChildren, objs...)
	return r
}

// Get the number of indexed halos.
func (r *Renderer) Size() int {
	return r.size
}

// Find the halos overlapping a frame space rectangle in far to near order.
func (r *Renderer) query(x0, y0, x1, y1 int) []*entry {
	if r.size == 0 || x1 <= x0 || y1 <= y0 {
		return nil
	}
	rect, err := rtreego.NewRect(rtreego.Point{float64(x0), float64(y0)}, []float64{float64(x1 - x0), float64(y1 - y0)})
	if err != nil {
		return nil
	}

	hits := r.tree.SearchIntersect(rect)
	entries := make([]*entry, len(hits))
	for i, hit := range hits {
		entries[i] = hit.(*entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})
	return entries
}

// Draw all halos overlapping the tile on top of its colors. Returns early
// if the break callback fires.
func (r *Renderer) RenderTile(t *Tile) {
	ycor := r.db.Proj.Ycor
	x1, y1 := t.X0+t.RectX, t.Y0+t.RectY

	for _, e := range r.query(t.X0, t.Y0, x1, y1) {
		if t.Test != nil && t.Test() {
			return
		}
		har := e.har

		minx := max(int(math32.Floor(har.Xs-har.Rad)), t.X0)
		maxx := min(int(math32.Ceil(har.Xs+har.Rad)), x1)
		miny := max(int(math32.Floor(har.MinY)), t.Y0)
		maxy := min(int(math32.Ceil(har.MaxY)), y1)

		for y := miny; y < maxy; y++ {
			yn := (float32(y) + 0.5 - har.Ys) * ycor
			ysq := yn * yn
			for x := minx; x < maxx; x++ {
				xn := float32(x) + 0.5 - har.Xs
				dist := xn*xn + ysq
				if dist >= har.RadSq {
					continue
				}

				offset := (y-t.Y0)*t.RectX + (x - t.X0)
				out := t.Col[4*offset : 4*offset+4]
				if t.RectDaps != nil && t.RectDaps[offset] != 0 {
					r.pixelStruct(t, har, out, dist, xn, yn, t.RectDaps[offset])
					continue
				}

				zz := haloZ(har, t.RectZ[offset])
				if zz <= har.Zs {
					continue
				}
				if col, ok := Shade(r.db, har, zz, dist, xn, yn, har.FlareC > 0); ok {
					addAlphaAddFac(out, col, har.Add)
				}
			}
		}
	}
}

// Shade a halo over a pixel covered by a pixel struct list: every sample
// group is shaded against its own depth and the uncovered samples against
// the sky.
func (r *Renderer) pixelStruct(t *Tile, har *view.Halo, out []float32, dist, xn, yn float32, head raster.Handle) {
	osa := max(t.OSA, 1)
	soft := har.Mat != nil && har.Type&scene.HaloSoft != 0
	flare := har.FlareC > 0

	var accum types.Vec4
	covered := 0
	for h := head; h != 0; {
		ps := t.Arena.Get(h)
		count := raster.CountMask(ps.Mask)
		covered += count

		zz := haloZ(har, ps.Z)
		if zz > har.Zs || soft {
			if col, ok := Shade(r.db, har, zz, dist, xn, yn, flare); ok {
				flare = false
				accum = accum.Add(col.Mul(float32(count) / float32(osa)))
			}
		}
		h = ps.Next
	}

	if sky := osa - covered; sky > 0 {
		if col, ok := Shade(r.db, har, view.HaloMaxZ, dist, xn, yn, flare); ok {
			accum = accum.Add(col.Mul(float32(sky) / float32(osa)))
		}
	}
	addAlphaAddFac(out, accum, har.Add)
}
