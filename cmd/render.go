package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/achilleasa/scanline/envmap"
	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/renderer"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/scene/reader"
	"github.com/urfave/cli"
)

// Load the scene argument and build render options from the defaults, the
// settings stored in the scene file and the command line flags, in that
// order.
func setupRender(ctx *cli.Context) (*scene.Scene, renderer.Options, error) {
	opts := renderer.DefaultOptions()

	if ctx.NArg() != 1 {
		return nil, opts, errors.New("missing scene file argument")
	}
	file, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return nil, opts, err
	}
	if err = file.Render.Apply(&opts); err != nil {
		return nil, opts, err
	}

	intFlags := []struct {
		name string
		dst  *int
	}{
		{"width", &opts.FrameW},
		{"height", &opts.FrameH},
		{"part-width", &opts.PartW},
		{"part-height", &opts.PartH},
		{"osa", &opts.OSA},
		{"threads", &opts.Threads},
		{"edge-intensity", &opts.EdgeIntensity},
	}
	for _, f := range intFlags {
		if ctx.IsSet(f.name) {
			*f.dst = ctx.Int(f.name)
		}
	}
	if ctx.IsSet("alpha") {
		mode, ok := renderer.ParseAlphaMode(ctx.String("alpha"))
		if !ok {
			return nil, opts, fmt.Errorf("unknown alpha mode '%s'; expected one of sky, premul or key", ctx.String("alpha"))
		}
		opts.AlphaMode = mode
	}
	if ctx.Bool("edge") {
		opts.Edge = true
	}
	if ctx.Bool("no-raytrace") {
		opts.RayTracing = false
	}
	if ctx.Bool("no-envmaps") {
		opts.EnvMaps = false
	}
	if ctx.Bool("no-halos") {
		opts.Halos = false
	}
	if ctx.Bool("no-transparent") {
		opts.Transparent = false
	}
	opts.Stats = log.StatsSink(logger)
	return file.Scene, opts, nil
}

// Get a part scheduler by name.
func scheduler(name string) (renderer.PartScheduler, error) {
	switch name {
	case "center":
		return renderer.NewCenterScheduler(), nil
	case "feedback":
		return renderer.NewFeedbackScheduler(), nil
	}
	return nil, fmt.Errorf("unknown part scheduler '%s'; expected center or feedback", name)
}

// Cancel the returned context on SIGINT so that interrupted renders keep
// the parts completed so far.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, opts, err := setupRender(ctx)
	if err != nil {
		return err
	}
	sched, err := scheduler(ctx.String("scheduler"))
	if err != nil {
		return err
	}

	r, err := renderer.NewDefault(sc, sched, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, cancel := interruptContext()
	defer cancel()

	result, err := r.Render(renderCtx)
	if err != nil && !errors.Is(err, renderer.ErrInterrupted) {
		return err
	}
	if err != nil {
		logger.Warning("render interrupted; saving partial frame")
	}

	if saveErr := saveResult(result, ctx.String("out"), ctx.Bool("all-passes")); saveErr != nil {
		return saveErr
	}

	stats := r.Stats()
	logger.Noticef("frame statistics\n%s", stats.Table())
	return err
}

// Write the render layers of a frame. Single layer renders that only keep
// the combined pass are written to out as-is; otherwise every image gets
// the layer and pass names inserted before the extension.
func saveResult(result *renderer.Result, out string, allPasses bool) error {
	if result == nil {
		return nil
	}

	ext := filepath.Ext(out)
	base := strings.TrimSuffix(out, ext)
	for _, lr := range result.Layers {
		passes := []scene.PassFlag{scene.PassCombined}
		if allPasses {
			passes = lr.Layer.Passes.List()
		}

		for _, pass := range passes {
			target := out
			if len(result.Layers) > 1 || len(passes) > 1 {
				target = fmt.Sprintf("%s.%s.%s%s", base, lr.Layer.Name, pass, ext)
			}

			img, err := lr.Image(pass)
			if err != nil {
				return err
			}
			if err = img.Save(target); err != nil {
				return err
			}
			logger.Noticef("wrote %s pass of layer %q to %s", pass, lr.Layer.Name, target)
		}
	}
	return nil
}

// Render a frame to capture the scene env maps and save each map as a
// cube cross image.
func RenderEnvMaps(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, opts, err := setupRender(ctx)
	if err != nil {
		return err
	}
	opts.EnvMaps = true

	r, err := renderer.NewDefault(sc, nil, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, cancel := interruptContext()
	defer cancel()
	if _, err = r.Render(renderCtx); err != nil {
		return err
	}

	outDir := ctx.String("out-dir")
	if err = os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	var saved int
	for _, tex := range sc.Textures {
		env, ok := tex.(*envmap.EnvMap)
		if !ok || env.State() == envmap.NotReady {
			continue
		}
		target := filepath.Join(outDir, env.Name()+".png")
		if err = env.SaveCross(target); err != nil {
			return err
		}
		logger.Noticef("wrote %s map %q to %s", env.Type, env.Name(), target)
		saved++
	}
	if saved == 0 {
		return errors.New("scene does not contain any env maps visible to the camera")
	}
	return nil
}
