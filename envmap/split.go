package envmap

import (
	"fmt"

	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/texture"
)

// Lower-left corner of each face in a 3x2 cross image, in face units. The
// bottom row holds faces 0-2 and the top row faces 3-5.
var crossLayout = [6][2]int{
	{0, 0}, {1, 0}, {2, 0},
	{0, 1}, {1, 1}, {2, 1},
}

// Load the faces of the map from an image. A cube map expects a 3x2 cross
// of square faces and a planar map a single square image. Images with
// other dimensions are ignored with a warning and leave the map unusable.
func (env *EnvMap) SplitImage(ib *imbuf.ImBuf) bool {
	if !ib.Valid() {
		logger.Warningf("env map %q: no image data to split", env.Name())
		return false
	}

	var faces [6]*texture.Image
	switch {
	case env.Type == Cube && ib.Width == 3*(ib.Height/2) && ib.Height%2 == 0:
		dx := ib.Height / 2
		for face, corner := range crossLayout {
			buf := ib.Crop(fmt.Sprintf("%s.%d", ib.Name, face), corner[0]*dx, corner[1]*dx, dx, dx)
			faces[face] = texture.NewImage(buf.Name, buf)
		}
	case env.Type == Plane && ib.Width == ib.Height:
		faces[1] = texture.NewImage(ib.Name, ib)
	default:
		logger.Warningf("env map %q: invalid image dimensions %dx%d for a %s map", env.Name(), ib.Width, ib.Height, env.Type)
		return false
	}

	env.setFaces(faces, Normal, 0)
	return true
}

// Assemble the cached faces into a single image: a 3x2 cross for cube maps
// or the single face for planar maps. Returns nil if the map is not ready.
func (env *EnvMap) Cross() *imbuf.ImBuf {
	env.mu.RLock()
	defer env.mu.RUnlock()
	if env.ok == NotReady {
		return nil
	}

	if env.Type == Plane {
		if env.faces[1] == nil {
			return nil
		}
		return env.faces[1].Buf
	}

	var dx int
	format := imbuf.Rgba8
	for _, face := range env.faces {
		if face == nil || !face.Buf.Valid() {
			return nil
		}
		dx = face.Buf.Width
		format = face.Buf.Format()
	}

	out := imbuf.New(env.Name(), 3*dx, 2*dx, format)
	for face, corner := range crossLayout {
		out.Blit(env.faces[face].Buf, corner[0]*dx, corner[1]*dx)
	}
	return out
}

// Save the cached faces to an image file using the Cross layout.
func (env *EnvMap) SaveCross(path string) error {
	out := env.Cross()
	if out == nil {
		return fmt.Errorf("envmap: map %q has no captured faces", env.Name())
	}
	return out.Save(path)
}

func (t Type) String() string {
	if t == Plane {
		return "plane"
	}
	return "cube"
}
