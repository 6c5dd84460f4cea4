package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/envmap"
	"github.com/achilleasa/scanline/halo"
	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/pointdensity"
	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/raytrace"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/view"
	"golang.org/x/sync/errgroup"
)

type Renderer interface {
	// Render frame. On interruption the partially rendered frame is
	// returned together with ErrInterrupted.
	Render(ctx context.Context) (*Result, error)

	// Release data cached between frames.
	Close()

	// Get render statistics for the last frame.
	Stats() FrameStats
}

// The default renderer splits the frame into parts and renders them on a
// pool of CPU workers.
type defaultRenderer struct {
	logger log.Logger

	scene     *scene.Scene
	scheduler PartScheduler
	opts      Options

	envMaps   *envmap.Manager
	statsDraw func(string)

	stats     FrameStats
	lastParts []PartStat
}

// Create a new renderer for a scene.
func NewDefault(sc *scene.Scene, scheduler PartScheduler, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if err := sc.Camera.Validate(); err != nil {
		return nil, err
	}
	if opts.Threads <= 0 {
		opts.Threads = DefaultThreads()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sc.Camera.Panorama && opts.FrameW%opts.PartW != 0 {
		return nil, fmt.Errorf("%w: panorama frame width %d is not a multiple of the part width %d", ErrInvalidOptions, opts.FrameW, opts.PartW)
	}
	if scheduler == nil {
		scheduler = NewCenterScheduler()
	}

	r := &defaultRenderer{
		logger:    log.New("renderer"),
		scene:     sc,
		scheduler: scheduler,
		opts:      opts,
		statsDraw: opts.Stats,
	}
	if r.statsDraw == nil {
		r.statsDraw = log.StatsSink(r.logger)
	}
	r.envMaps = envmap.NewManager(sc, r.renderEnvFace, envmap.Options{
		Lay:  sc.Lay,
		OSA:  opts.osa() > 0,
		Size: max(opts.FrameW, opts.FrameH),
		Test: opts.TestBreak,
	})
	return r, nil
}

// Build a cancellation poll from a context and an optional user poll.
func breakFunc(ctx context.Context, testBreak func() bool) raster.BreakFunc {
	return func() bool {
		if ctx.Err() != nil {
			return true
		}
		return testBreak != nil && testBreak()
	}
}

// Get the layers to render. Scenes without render layers get a single
// layer with every feature enabled.
func (r *defaultRenderer) renderLayers() []*scene.RenderLayer {
	if len(r.scene.Layers) != 0 {
		return r.scene.Layers
	}
	return []*scene.RenderLayer{scene.NewRenderLayer("main", r.scene.Lay)}
}

// Render frame.
func (r *defaultRenderer) Render(ctx context.Context) (*Result, error) {
	start := time.Now()
	r.stats = FrameStats{}
	opts := &r.opts
	test := breakFunc(ctx, opts.TestBreak)

	r.statsDraw("Preparing scene data")
	cam := r.scene.Camera
	proj := view.NewProjection(cam, opts.FrameW, opts.FrameH)
	db := view.Build(r.scene, cam.ViewMat, proj, view.Options{Lay: r.scene.Lay})
	r.logger.Debugf("render database: %d objects, %d faces, %d lamps, %d halos", len(db.Objects), len(db.Faces), len(db.Lamps), len(db.Halos))

	pdStart := time.Now()
	release := pointdensity.CacheScene(db)
	defer release()
	r.stats.PointDensityTime = time.Since(pdStart)

	if opts.EnvMaps {
		r.statsDraw("Creating environment maps")
		err := r.envMaps.MakeEnvMaps(ctx)
		r.stats.EnvMapTime = r.envMaps.Elapsed
		r.stats.EnvMapFaces = r.envMaps.Captured
		if err != nil {
			if errors.Is(err, envmap.ErrInterrupted) {
				return nil, ErrInterrupted
			}
			return nil, err
		}
	}
	if test() {
		return nil, ErrInterrupted
	}

	result := newResult(opts.FrameW, opts.FrameH, r.renderLayers())
	c := newCompositor(opts, db, r.rayTree(db), result, test)
	c.pano = cam.Panorama

	parts := r.scheduler.Schedule(opts.FrameW, opts.FrameH, opts.PartW, opts.PartH, r.lastParts)
	r.statsDraw(fmt.Sprintf("Rendering %d parts on %d workers", len(parts), opts.Threads))
	partStats, err := renderParts(ctx, c, parts, opts.Threads)
	r.stats.Parts = partStats
	r.stats.collectWorkers(opts.Threads, opts.FrameW*opts.FrameH)
	r.stats.RenderTime = time.Since(start)
	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			r.logger.Warningf("render interrupted after %d of %d parts", len(partStats), len(parts))
		}
		return result, err
	}
	r.lastParts = partStats

	// Flares depend on the halo visibility gathered by all parts.
	for index, lr := range result.Layers {
		if hr := c.halos[index]; hr != nil {
			r.statsDraw("Rendering flares")
			hr.RenderFlares(&halo.Frame{
				Width:  opts.FrameW,
				Height: opts.FrameH,
				Col:    lr.Combined(),
				Test:   test,
			}, lr.Layer.Lay)
		}
	}
	if test() {
		return result, ErrInterrupted
	}

	r.stats.RenderTime = time.Since(start)
	r.logger.Noticef("rendered %dx%d frame in %d ms", opts.FrameW, opts.FrameH, r.stats.RenderTime.Milliseconds())
	return result, nil
}

// Render the parts of a frame on a pool of workers. Workers stop picking up
// parts once any of them fails.
func renderParts(ctx context.Context, c *compositor, parts []Part, threads int) ([]PartStat, error) {
	queue := &partQueue{parts: parts}

	var (
		mu    sync.Mutex
		stats = make([]PartStat, 0, len(parts))
	)

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < max(threads, 1); id++ {
		w := newWorker(id, c.opts)
		g.Go(func() error {
			for gctx.Err() == nil {
				p, ok := queue.pop()
				if !ok {
					return nil
				}

				start := time.Now()
				if err := c.renderPart(w, p); err != nil {
					return err
				}
				stat := PartStat{Part: p, Worker: w.id, RenderTime: time.Since(start)}

				mu.Lock()
				stats = append(stats, stat)
				mu.Unlock()
			}
			if ctx.Err() != nil {
				return ErrInterrupted
			}
			return nil
		})
	}

	err := g.Wait()
	return stats, err
}

// Build the ray tree if any lamp casts ray shadows or the world uses
// ambient occlusion.
func (r *defaultRenderer) rayTree(db *view.DB) *raytrace.Tree {
	if !r.opts.RayTracing {
		return nil
	}
	need := db.World.AO
	for _, lar := range db.Lamps {
		need = need || lar.Lamp.Shadow
	}
	if !need || len(db.Faces) == 0 {
		return nil
	}

	start := time.Now()
	tree := raytrace.Build(db)
	r.logger.Debugf("built ray tree over %d faces in %d ms", len(db.Faces), time.Since(start).Milliseconds())
	return tree
}

// Render an env map face. The face is rendered with the frame settings
// but without outlines and always with a sky background.
func (r *defaultRenderer) renderEnvFace(ctx context.Context, db *view.DB, size int) (*imbuf.ImBuf, error) {
	opts := r.opts
	opts.FrameW, opts.FrameH = size, size
	opts.Edge = false
	opts.AlphaMode = AlphaSky

	rl := scene.NewRenderLayer("envmap", db.Lay)
	result := newResult(size, size, []*scene.RenderLayer{rl})
	c := newCompositor(&opts, db, r.rayTree(db), result, breakFunc(ctx, opts.TestBreak))

	parts := NewCenterScheduler().Schedule(size, size, opts.PartW, opts.PartH, nil)
	if _, err := renderParts(ctx, c, parts, opts.Threads); err != nil {
		return nil, err
	}
	return result.Layers[0].Image(scene.PassCombined)
}

// Release the captured env maps.
func (r *defaultRenderer) Close() {
	r.envMaps.Free()
}

// Get render statistics for the last frame.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}
