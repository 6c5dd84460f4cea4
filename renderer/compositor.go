package renderer

import (
	"sort"

	"github.com/achilleasa/scanline/halo"
	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/raytrace"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/shade"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
)

// The compositor renders the parts of one frame. It only holds state that
// is read-only while the parts render; per part state lives in the
// workers.
type compositor struct {
	opts *Options
	db   *view.DB
	ray  *raytrace.Tree

	layers []*LayerResult
	// Per layer shading contexts and halo renderers.
	contexts []*shade.Context
	halos    []*halo.Renderer

	// Render parts as panorama columns.
	pano       bool
	numColumns int

	test raster.BreakFunc
}

func newCompositor(opts *Options, db *view.DB, ray *raytrace.Tree, result *Result, test raster.BreakFunc) *compositor {
	c := &compositor{
		opts:       opts,
		db:         db,
		ray:        ray,
		layers:     result.Layers,
		numColumns: (opts.FrameW + opts.PartW - 1) / opts.PartW,
		test:       test,
	}
	for _, lr := range c.layers {
		c.contexts = append(c.contexts, c.newContext(db, lr.Layer))

		var hr *halo.Renderer
		if opts.Halos && lr.Layer.Flags&scene.LayerHalo != 0 {
			hr = halo.NewRenderer(db, lr.Layer.Lay)
			if hr.Size() == 0 {
				hr = nil
			}
		}
		c.halos = append(c.halos, hr)
	}
	return c
}

func (c *compositor) newContext(db *view.DB, rl *scene.RenderLayer) *shade.Context {
	ctx := shade.NewContext(db, c.ray)
	ctx.OSA = c.opts.osa() > 0
	ctx.Passes = rl.Passes | scene.PassCombined
	ctx.Shaders = c.opts.Shaders
	return ctx
}

// Scratch buffers owned by a render worker.
type worker struct {
	id int

	arena      *raster.Arena
	transArena *raster.Arena
	transHeads []raster.Handle

	// Transparent color in front of each sample of a pixel.
	transSamples [16]types.Vec4

	chain []*raster.PixStr
	res   shade.Result
}

func newWorker(id int, opts *Options) *worker {
	return &worker{
		id:         id,
		arena:      raster.NewArena(opts.MaxArenaBlocks),
		transArena: raster.NewArena(opts.MaxArenaBlocks),
	}
}

// Render all layers of a part. The part runs through a depth prepass that
// builds the pixel structs of every sample, then each pixel is shaded once
// per visible face. Halos, transparent faces, the sky and the z-buffer
// outline are composited on top before the part is copied to the frame.
// Layers completed before an interruption are kept.
func (c *compositor) renderPart(w *worker, p Part) error {
	db := c.db
	proj := db.Proj
	contexts := c.contexts
	if c.pano {
		proj = proj.PanoColumn(p.X0, p.X0+p.RectX, c.numColumns)
		colDB := *db
		colDB.Proj = proj
		db = &colDB

		contexts = make([]*shade.Context, len(c.layers))
		for index, lr := range c.layers {
			contexts[index] = c.newContext(db, lr.Layer)
		}
	}

	osa := c.opts.osa()
	zb := raster.NewZBuffer(db, proj, p.X0, p.Y0, p.RectX, p.RectY, osa, w.arena)
	zb.Test = c.test
	zb.SkipTransp = c.opts.Transparent

	for index, lr := range c.layers {
		if c.test() {
			return ErrInterrupted
		}
		rl := lr.Layer
		ctx := contexts[index]
		si := shade.NewInput(ctx)
		pp := newPartPasses(lr, p.RectX, p.RectY)

		zb.Lay = rl.Lay & db.Lay
		zb.ResetPixelStructs()

		var edge []float32
		if c.opts.Edge && rl.Flags&scene.LayerEdge != 0 {
			edge = make([]float32, p.RectX*p.RectY)
		}
		for sample := 0; sample < zb.Samples(); sample++ {
			if rl.Flags&scene.LayerSolid == 0 {
				clearDepth(zb.RectZ[sample])
				continue
			}
			zb.Solid(sample)
			if err := zb.MakePixelStructs(sample); err != nil {
				return err
			}
			if edge != nil {
				edgeEnhanceSample(zb.RectZ[sample], p.RectX, p.RectY, c.opts.EdgeIntensity, osa, edge)
			}
		}
		if c.test() {
			return ErrInterrupted
		}

		c.shadeSolid(w, zb, si, pp)

		if hr := c.halos[index]; hr != nil {
			tile := &halo.Tile{
				X0:    p.X0,
				Y0:    p.Y0,
				RectX: p.RectX,
				RectY: p.RectY,
				RectZ: zb.RectZ[0],
				Arena: w.arena,
				OSA:   osa,
				Col:   pp.combined,
				Test:  c.test,
			}
			if osa > 0 {
				tile.RectDaps = zb.RectDaps
			}
			hr.RenderTile(tile)
		}

		if c.opts.Transparent && rl.Flags&scene.LayerZTransp != 0 {
			if err := c.shadeTransparent(w, zb, si, pp); err != nil {
				return err
			}
		}
		if c.test() {
			return ErrInterrupted
		}

		if c.opts.AlphaMode == AlphaSky && rl.Flags&scene.LayerSky != 0 {
			skyFill(ctx, p, pp.combined)
		}
		if edge != nil {
			edgeEnhanceAdd(pp.combined, edge, c.opts.EdgeColor)
		}
		if c.opts.AlphaMode == AlphaKey {
			unpremultiply(pp.combined)
		}

		pp.merge(lr, p)
	}
	return nil
}

// Shade the solid pixel structs of a part. Every face in a pixel's chain is
// shaded once at the centroid of the samples it covers and weighted by its
// share of the samples.
func (c *compositor) shadeSolid(w *worker, zb *raster.ZBuffer, si *shade.Input, pp *partPasses) {
	samples := float32(zb.Samples())
	for y := 0; y < zb.RectY; y++ {
		if y%2 == 0 && c.test() {
			return
		}
		for x := 0; x < zb.RectX; x++ {
			i := y*zb.RectX + x
			if zb.RectDaps[i] == 0 {
				continue
			}
			w.chain = w.arena.Chain(zb.RectDaps[i], w.chain)
			for _, ps := range w.chain {
				if !c.shadeSample(w, zb, si, ps, x, y) {
					continue
				}
				count := raster.CountMask(ps.Mask)
				pp.add(i, &w.res, float32(count)/samples, count)
			}
		}
	}
}

// Shade the transparent faces in front of the solid samples. Every face is
// shaded once and composited near to far under the color already in front
// of each of its samples; the per sample colors are then composited over
// the pixel.
func (c *compositor) shadeTransparent(w *worker, zb *raster.ZBuffer, si *shade.Input, pp *partPasses) error {
	npix := zb.RectX * zb.RectY
	if len(w.transHeads) < npix {
		w.transHeads = make([]raster.Handle, npix)
	}
	heads := w.transHeads[:npix]
	for i := range heads {
		heads[i] = 0
	}
	w.transArena.Reset()

	for sample := 0; sample < zb.Samples(); sample++ {
		if err := zb.Transparent(sample, w.transArena, heads); err != nil {
			return err
		}
	}

	samp := w.transSamples[:zb.Samples()]
	var solid []*raster.PixStr
	for y := 0; y < zb.RectY; y++ {
		if y%2 == 0 && c.test() {
			return nil
		}
		for x := 0; x < zb.RectX; x++ {
			i := y*zb.RectX + x
			if heads[i] == 0 {
				continue
			}

			var solidMask uint16
			solid = w.arena.Chain(zb.RectDaps[i], solid)
			for _, ps := range solid {
				solidMask |= ps.Mask
			}

			// Merged nodes sort by their nearest sample.
			w.chain = w.transArena.Chain(heads[i], w.chain)
			sort.SliceStable(w.chain, func(a, b int) bool {
				return w.chain[a].Near < w.chain[b].Near
			})

			for k := range samp {
				samp[k] = types.Vec4{}
			}
			var transMask uint16
			for _, ps := range w.chain {
				if !c.shadeSample(w, zb, si, ps, x, y) {
					continue
				}
				for k := range samp {
					if ps.Mask&(1<<uint(k)) != 0 {
						AddAlphaUnder(samp[k][:], w.res.Combined)
					}
				}
				transMask |= ps.Mask
			}
			AddAlphaOverSamples(pp.combined[4*i:4*i+4], samp, transMask, solidMask)
		}
	}
	return nil
}

// Shade the face of a pixel struct at the centroid of its samples into
// w.res. Returns false for faces that do not resolve.
func (c *compositor) shadeSample(w *worker, zb *raster.ZBuffer, si *shade.Input, ps *raster.PixStr, x, y int) bool {
	if !si.SetTriangle(ps.FaceNr, true) {
		return false
	}
	dx, dy := raster.Centroid(zb.Jitter, ps.Mask)
	xs, ys := float32(zb.X0+x), float32(zb.Y0+y)

	si.Mask = ps.Mask
	si.SetViewCo(xs+0.5+dx, ys+0.5+dy, xs, ys, float32(ps.Z))
	si.SetUV()
	si.SetNormals()
	si.SetShadeTexco()
	si.DoShade(&w.res)
	return true
}

// Composite the sky color under every pixel of a part.
func skyFill(ctx *shade.Context, p Part, col []float32) {
	for y := 0; y < p.RectY; y++ {
		for x := 0; x < p.RectX; x++ {
			i := y*p.RectX + x
			dest := col[4*i : 4*i+4]
			if dest[3] >= 1 {
				continue
			}
			sky := ctx.Sky(float32(p.X0+x)+0.5, float32(p.Y0+y)+0.5)
			AddAlphaUnder(dest, sky.Vec4(1))
		}
	}
}

func unpremultiply(col []float32) {
	for i := 0; i < len(col); i += 4 {
		if a := col[i+3]; a > 0 && a != 1 {
			inv := 1 / a
			col[i] *= inv
			col[i+1] *= inv
			col[i+2] *= inv
		}
	}
}

func clearDepth(rz []int32) {
	for i := range rz {
		rz[i] = view.MaxZ
	}
}
