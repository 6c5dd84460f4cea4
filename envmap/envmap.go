package envmap

import (
	"sync"

	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

var logger = log.New("envmap")

// Type selects the map layout.
type Type uint8

const (
	// Six faces around the probe.
	Cube Type = iota
	// A single face looking down the probe +Z axis.
	Plane
)

// Source selects where the map contents come from.
type Source uint8

const (
	// Captured once and reused until invalidated.
	Static Source = iota
	// Captured again for every render.
	Anim
	// Split from an image.
	Load
)

// State tracks which kind of render produced the cached faces.
type State uint8

const (
	NotReady State = iota
	// Captured without oversampling.
	Normal
	// Captured with oversampling.
	OSA
)

// Max recursion depth for env maps that see other env maps.
const MaxDepth = 5

// EnvMap is a texture that reflects the surroundings of a probe object
// through six (or one) cached face images.
type EnvMap struct {
	texture.Base

	Type   Type
	Source Source

	// The probe; maps are captured from its location and sampled in its
	// frame. Without a probe loaded maps are sampled in world space.
	Object *scene.Object

	// Source image for loaded maps.
	Image *scene.Image

	// Face size in pixels.
	CubeRes int

	ClipStart float32
	ClipEnd   float32

	// Zoom factor for planar maps.
	ViewScale float32

	// Number of times the map is captured again so that it can reflect
	// other env maps (and itself).
	Depth int

	// Layers left out of the capture.
	ExcludeLay uint32

	// Scale applied to the filter footprint of face lookups.
	FilterSize float32

	mu       sync.RWMutex
	ok       State
	faces    [6]*texture.Image
	probeInv types.Mat4
	hasProbe bool
	lastSize int
	recalc   bool
}

// Create a static cube map with default capture settings.
func New(name string) *EnvMap {
	return &EnvMap{
		Base:       texture.NewBase(name),
		Type:       Cube,
		Source:     Static,
		CubeRes:    100,
		ClipStart:  0.1,
		ClipEnd:    100,
		ViewScale:  1,
		FilterSize: 1,
	}
}

// Env maps feed the material reflection color.
func (env *EnvMap) IsEnvironment() bool {
	return true
}

// Get the capture state of the map.
func (env *EnvMap) State() State {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.ok
}

// Get a cached face image; nil if the face is not available.
func (env *EnvMap) Face(index int) *texture.Image {
	env.mu.RLock()
	defer env.mu.RUnlock()
	if index < 0 || index >= len(env.faces) {
		return nil
	}
	return env.faces[index]
}

// Release the cached faces. The next MakeEnvMaps call captures (or splits)
// the map again.
func (env *EnvMap) Free() {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.faces = [6]*texture.Image{}
	env.ok = NotReady
	env.lastSize = 0
}

// Install a new set of faces.
func (env *EnvMap) setFaces(faces [6]*texture.Image, state State, size int) {
	env.mu.Lock()
	defer env.mu.Unlock()
	for _, face := range faces {
		if face == nil {
			continue
		}
		face.Extend = texture.ExtendClip
		face.FilterSize = env.FilterSize
	}
	env.faces = faces
	env.ok = state
	env.lastSize = size
}

// Use the current transform of the probe object as the sampling frame.
func (env *EnvMap) updateProbe() {
	env.mu.Lock()
	defer env.mu.Unlock()
	if env.Object == nil {
		env.hasProbe = false
		return
	}
	env.probeInv = probeFrame(env.Object.ObMat).Inv()
	env.hasProbe = true
}

// Get the probe frame of an object matrix: its rotation with the scale
// removed, and its location.
func probeFrame(obMat types.Mat4) types.Mat4 {
	return types.BasisMat4(
		obMat.Col(0).Vec3().Normalize(),
		obMat.Col(1).Vec3().Normalize(),
		obMat.Col(2).Vec3().Normalize(),
		obMat.Translation(),
	)
}

// Intersect a direction with the unit cube and return the face it hits
// and the [0, 1] coordinate on that face. Planar maps always hit face 1.
func CubeIsect(typ Type, viewScale float32, vec types.Vec3) (int, [2]float32) {
	var (
		face int
		answ [2]float32
	)

	switch {
	case typ == Plane:
		face = 1
		labda := 1 / vec[2]
		answ[0] = viewScale * labda * vec[0]
		answ[1] = -viewScale * labda * vec[1]
	case vec[2] <= -math32.Abs(vec[0]) && vec[2] <= -math32.Abs(vec[1]):
		face = 0
		labda := -1 / vec[2]
		answ[0] = labda * vec[0]
		answ[1] = labda * vec[1]
	case vec[2] >= math32.Abs(vec[0]) && vec[2] >= math32.Abs(vec[1]):
		face = 1
		labda := 1 / vec[2]
		answ[0] = labda * vec[0]
		answ[1] = -labda * vec[1]
	case vec[1] >= math32.Abs(vec[0]):
		face = 2
		labda := 1 / vec[1]
		answ[0] = labda * vec[0]
		answ[1] = labda * vec[2]
	case vec[1] <= -math32.Abs(vec[0]):
		face = 4
		labda := -1 / vec[1]
		answ[0] = -labda * vec[0]
		answ[1] = labda * vec[2]
	case vec[0] >= math32.Abs(vec[1]):
		face = 3
		labda := 1 / vec[0]
		answ[0] = -labda * vec[1]
		answ[1] = labda * vec[2]
	default:
		face = 5
		labda := -1 / vec[0]
		answ[0] = labda * vec[1]
		answ[1] = labda * vec[2]
	}

	answ[0] = 0.5 + 0.5*answ[0]
	answ[1] = 0.5 + 0.5*answ[1]
	return face, answ
}

// Pick the derivative components that lie in the plane of a face.
func faceDerivatives(dxt, dyt types.Vec3, face int) ([2]float32, [2]float32) {
	switch face {
	case 2, 4:
		return [2]float32{0.5 * dxt[0], 0.5 * dxt[2]}, [2]float32{0.5 * dyt[0], 0.5 * dyt[2]}
	case 3, 5:
		return [2]float32{0.5 * dxt[1], 0.5 * dxt[2]}, [2]float32{0.5 * dyt[1], 0.5 * dyt[2]}
	}
	return [2]float32{0.5 * dxt[0], 0.5 * dxt[1]}, [2]float32{0.5 * dyt[0], 0.5 * dyt[1]}
}

// Rotate a view space direction into the map frame.
func (env *EnvMap) toMapSpace(viewInv types.Mat4, vec types.Vec3) types.Vec3 {
	vec = viewInv.MulDir(vec)
	if env.hasProbe {
		vec = env.probeInv.MulDir(vec)
	}
	return vec
}

// Sample the map along the view space reflection vector in.Co. Maps that
// are not ready yield a zero intensity.
func (env *EnvMap) Sample(in *texture.Lookup, res *texture.Result) texture.ResultType {
	res.Reset()

	env.mu.RLock()
	defer env.mu.RUnlock()
	if env.ok == NotReady {
		return texture.Int
	}

	vec := env.toMapSpace(in.ViewInv, in.Co)
	if vec.LenSq() == 0 {
		return texture.Int
	}
	face, sco := CubeIsect(env.Type, env.ViewScale, vec)
	img := env.faces[face]
	if img == nil {
		return texture.Int
	}

	if !in.OSA {
		img.Wrap([3]float32{clampUnit(sco[0]), clampUnit(sco[1]), 0}, res)
	} else {
		dxt := env.toMapSpace(in.ViewInv, in.DxT)
		dyt := env.toMapSpace(in.ViewInv, in.DyT)
		dxts, dyts := faceDerivatives(dxt, dyt, face)
		img.WrapFiltered([3]float32{sco[0], sco[1], 0}, dxts, dyts, res)

		// The footprint left the face; blend in the faces hit by the
		// derivative probes weighted by the coverage of each lookup.
		if res.Ta < 1 {
			probeX := env.neighbor(vec.Add(dxt), face, dxt, dyt)
			probeY := env.neighbor(vec.Add(dyt), face, dxt, dyt)
			if fac := res.Ta + probeX.Ta + probeY.Ta; fac != 0 {
				res.Tr = (res.Tr + probeX.Tr + probeY.Tr) / fac
				res.Tg = (res.Tg + probeX.Tg + probeY.Tg) / fac
				res.Tb = (res.Tb + probeX.Tb + probeY.Tb) / fac
			}
			res.Ta = 1
		}
	}

	res.Tin = 1
	res.Ta = 1
	res.TAlpha = false
	env.BriContRGB(res)
	return texture.RGB
}

// Filtered lookup into the face hit by a shifted direction. Returns an
// empty result if that face is the home face.
func (env *EnvMap) neighbor(vec types.Vec3, home int, dxt, dyt types.Vec3) texture.Result {
	var res texture.Result
	face, sco := CubeIsect(env.Type, env.ViewScale, vec)
	if face == home || env.faces[face] == nil {
		return res
	}
	dxts, dyts := faceDerivatives(dxt, dyt, face)
	env.faces[face].WrapFiltered([3]float32{sco[0], sco[1], 0}, dxts, dyts, &res)
	return res
}

func clampUnit(v float32) float32 {
	return math32.Min(math32.Max(v, 0), 1-1e-6)
}
