package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/achilleasa/scanline/bake"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/scene/reader"
	"github.com/urfave/cli"
)

// Bake the selected scene objects into their face images.
func Bake(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}
	file, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	opts := bake.DefaultOptions()
	if err = file.Bake.Apply(&opts); err != nil {
		return err
	}
	if ctx.IsSet("mode") {
		if opts.Mode, err = bake.ParseMode(ctx.String("mode")); err != nil {
			return err
		}
	}
	if ctx.IsSet("space") {
		if opts.NormalSpace, err = bake.ParseNormalSpace(ctx.String("space")); err != nil {
			return err
		}
	}
	if ctx.IsSet("margin") {
		opts.Margin = ctx.Int("margin")
	}
	if ctx.IsSet("threads") {
		opts.Threads = ctx.Int("threads")
	}
	if ctx.Bool("no-clear") {
		opts.Clear = false
	}

	bakeCtx, cancel := interruptContext()
	defer cancel()

	stats, err := bake.Bake(bakeCtx, file.Scene, opts)
	if err != nil && !errors.Is(err, bake.ErrInterrupted) {
		return err
	}

	outDir := ctx.String("out-dir")
	if mkErr := os.MkdirAll(outDir, 0755); mkErr != nil {
		return mkErr
	}
	for _, img := range bakeTargets(file.Scene) {
		target := filepath.Join(outDir, filepath.Base(img.Name))
		if filepath.Ext(target) == "" {
			target += ".png"
		}
		if saveErr := img.Buf.Save(target); saveErr != nil {
			return saveErr
		}
		logger.Noticef("wrote baked image %q to %s", img.Name, target)
	}

	logger.Noticef("bake statistics\n%s", stats.Table())
	return err
}

// Get the images assigned to the faces of selected objects.
func bakeTargets(sc *scene.Scene) []*scene.Image {
	var (
		out  []*scene.Image
		seen = make(map[*scene.Image]bool)
	)
	for _, obj := range sc.Objects {
		if !obj.Selected {
			continue
		}
		for _, f := range obj.Mesh.Faces {
			if f.Image == nil || !f.Image.Buf.Valid() || seen[f.Image] {
				continue
			}
			seen[f.Image] = true
			out = append(out, f.Image)
		}
	}
	return out
}
