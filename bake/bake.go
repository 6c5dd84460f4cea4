package bake

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/raytrace"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/shade"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
)

var logger = log.New("bake")

// Window size of the bake projection; it only feeds window coordinates.
const bakeWinSize = 512

type WorkerStat struct {
	Id     int
	Faces  int
	Texels int

	BakeTime time.Duration
}

type Stats struct {
	// Number of baked faces and target images.
	Faces  int
	Images int

	Workers []WorkerStat

	// Time spent in scan conversion, shading and edge filtering.
	BakeTime time.Duration
}

// Build a tabular representation of the bake statistics.
func (s *Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Worker", "Faces", "Texels", "Bake time"})
	var texels int
	for _, stat := range s.Workers {
		table.Append([]string{
			fmt.Sprintf("#%d", stat.Id),
			fmt.Sprintf("%d", stat.Faces),
			fmt.Sprintf("%d", stat.Texels),
			stat.BakeTime.String(),
		})
		texels += stat.Texels
	}
	table.SetFooter([]string{fmt.Sprintf("%d images", s.Images), fmt.Sprintf("%d", s.Faces), fmt.Sprintf("%d", texels), s.BakeTime.String()})
	table.Render()
	return buf.String()
}

// Bake the selected objects of a scene into the images assigned to their
// faces. Faces without an image or a uv layer are skipped; if no face can
// be baked ErrNothingToBake is returned. On interruption the texels baked
// so far are kept and ErrInterrupted is returned.
func Bake(ctx context.Context, sc *scene.Scene, opts Options) (*Stats, error) {
	start := time.Now()
	if opts.Threads <= 0 {
		opts.Threads = DefaultOptions().Threads
	}

	cam := sc.Camera
	if cam == nil {
		cam = scene.NewCamera(math32.Pi / 4)
		cam.Update()
	}
	proj := view.NewProjection(cam, bakeWinSize, bakeWinSize)
	db := view.Build(sc, cam.ViewMat, proj, view.Options{Lay: sc.Lay})

	b := &baker{
		opts: opts,
		db:   db,
		test: func() bool {
			return ctx.Err() != nil || (opts.TestBreak != nil && opts.TestBreak())
		},
	}
	if b.needsRays() && len(db.Faces) != 0 {
		b.ray = raytrace.Build(db)
	}
	b.ctx = shade.NewContext(db, b.ray)

	logger.Infof("baking %s into %d faces with %d workers", opts.Mode, len(db.Faces), opts.Threads)

	cur := newCursor(db, &opts)
	workers := make([]*worker, opts.Threads)
	var g errgroup.Group
	for id := range workers {
		w := b.newWorker(id)
		workers[id] = w
		g.Go(func() error {
			return b.run(w, cur)
		})
	}
	err := g.Wait()

	stats := &Stats{
		Faces:  cur.faces,
		Images: len(cur.targets),
	}
	for _, w := range workers {
		stats.Workers = append(stats.Workers, w.stat)
	}

	if err == nil {
		for _, t := range cur.targets {
			for pass := 0; pass < opts.Margin; pass++ {
				t.img.Buf.FilterExtend(t.mask)
			}
		}
	}
	stats.BakeTime = time.Since(start)

	if err != nil {
		logger.Warningf("bake interrupted after %d faces", stats.Faces)
		return stats, err
	}
	if stats.Faces == 0 {
		logger.Warning("nothing to bake; select objects with uv mapped images")
		return stats, ErrNothingToBake
	}
	logger.Noticef("baked %d faces into %d images in %d ms", stats.Faces, stats.Images, stats.BakeTime.Milliseconds())
	return stats, nil
}

// Ray traced occlusion is needed for AO bakes and for full bakes of worlds
// with AO or shadow casting lamps.
func (b *baker) needsRays() bool {
	switch b.opts.Mode {
	case ModeAO:
		return true
	case ModeAll:
		need := b.db.World.AO
		for _, lar := range b.db.Lamps {
			need = need || lar.Lamp.Shadow
		}
		return need
	}
	return false
}
