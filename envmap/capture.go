package envmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
)

var ErrInterrupted = errors.New("envmap: capture interrupted")

// RenderFunc renders a view snapshot into a size x size RGBA image.
type RenderFunc func(ctx context.Context, db *view.DB, size int) (*imbuf.ImBuf, error)

// Options shared by env map captures.
type Options struct {
	// Visible scene layers.
	Lay uint32

	// Captures run with oversampling.
	OSA bool

	// Frame size the maps are built for; a change invalidates captured
	// maps.
	Size int

	// Optional cancellation poll.
	Test raster.BreakFunc
}

// Rotations from the camera of each face capture to the map frame. The
// capture camera looks down its -Z axis with +Y up; these are chosen so
// that CubeIsect maps the camera x/y axes to the face coordinates.
var faceRot = [6]types.Mat4{
	types.BasisMat4(types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0}, types.Vec3{0, 0, 1}, types.Vec3{}),
	types.BasisMat4(types.Vec3{1, 0, 0}, types.Vec3{0, -1, 0}, types.Vec3{0, 0, -1}, types.Vec3{}),
	types.BasisMat4(types.Vec3{1, 0, 0}, types.Vec3{0, 0, 1}, types.Vec3{0, -1, 0}, types.Vec3{}),
	types.BasisMat4(types.Vec3{0, -1, 0}, types.Vec3{0, 0, 1}, types.Vec3{-1, 0, 0}, types.Vec3{}),
	types.BasisMat4(types.Vec3{-1, 0, 0}, types.Vec3{0, 0, 1}, types.Vec3{0, 1, 0}, types.Vec3{}),
	types.BasisMat4(types.Vec3{0, 1, 0}, types.Vec3{0, 0, 1}, types.Vec3{1, 0, 0}, types.Vec3{}),
}

// Get the view matrix that captures a face of a probe located at frame.
func faceViewMat(frame types.Mat4, face int) types.Mat4 {
	return frame.Mul4(faceRot[face]).Inv()
}

// Render the faces of an env map from the location of its probe object.
// Every face gets its own view snapshot; the scene itself is never
// modified. The probe object and the excluded layers are left out of the
// capture. On failure the map is left empty.
func Capture(ctx context.Context, sc *scene.Scene, env *EnvMap, opts Options, render RenderFunc) error {
	if env.Object == nil {
		return fmt.Errorf("envmap: map %q has no probe object", env.Name())
	}
	if env.CubeRes <= 0 {
		return fmt.Errorf("envmap: map %q has invalid face size %d", env.Name(), env.CubeRes)
	}

	env.updateProbe()
	frame := probeFrame(env.Object.ObMat)
	proj := view.NewCubeProjection(env.CubeRes, env.ClipStart, env.ClipEnd)
	dbOpts := view.Options{
		Lay:        opts.Lay,
		ExcludeLay: env.ExcludeLay,
		HideObject: env.Object,
	}

	var faces [6]*imbuf.ImBuf
	for face := range faces {
		if env.Type == Plane && face != 1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		if opts.Test != nil && opts.Test() {
			return ErrInterrupted
		}

		db := view.Build(sc, faceViewMat(frame, face), proj, dbOpts)
		buf, err := render(ctx, db, env.CubeRes)
		if err != nil {
			return fmt.Errorf("envmap: could not capture face %d of %q: %w", face, env.Name(), err)
		}
		buf.Name = fmt.Sprintf("%s.%d", env.Name(), face)
		opaque(buf)
		faces[face] = buf
		logger.Debugf("captured face %d of %q", face, env.Name())
	}

	state := Normal
	if opts.OSA {
		state = OSA
	}
	env.setFaces(imageFaces(faces), state, opts.Size)
	return nil
}

func opaque(ib *imbuf.ImBuf) {
	for y := 0; y < ib.Height; y++ {
		for x := 0; x < ib.Width; x++ {
			px := ib.Pixel(x, y)
			px[3] = 1
			ib.SetPixel(x, y, px)
		}
	}
}

func imageFaces(bufs [6]*imbuf.ImBuf) [6]*texture.Image {
	var faces [6]*texture.Image
	for i, buf := range bufs {
		if buf != nil {
			faces[i] = texture.NewImage(buf.Name, buf)
		}
	}
	return faces
}
