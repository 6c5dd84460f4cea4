package pointdensity

import (
	"sync"
	"time"

	"github.com/achilleasa/scanline/bvh"
	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
)

var logger = log.New("pointdensity")

// Max points stored in a tree leaf.
const pointsPerLeaf = 4

// Source selects where the points come from.
type Source uint8

const (
	// The current positions of a particle system.
	Particles Source = iota
	// The vertices of an object.
	ObjectVerts
)

// Space selects the coordinate space the points are stored in. Lookups
// are expected in the same space.
type Space uint8

const (
	// Relative to the object transform.
	ObjectSpace Space = iota
	// Relative to the object location.
	ObjectLocation
	WorldSpace
)

// A point indexed by the density tree.
type point types.Vec3

func (p point) BBox() [2]types.Vec3 {
	return [2]types.Vec3{types.Vec3(p), types.Vec3(p)}
}

func (p point) Center() types.Vec3 {
	return types.Vec3(p)
}

// PointDensity is a texture whose intensity is the density of a point
// cloud around the lookup position.
type PointDensity struct {
	texture.Base

	Source Source

	// Point sources; ParticleSystem is used by Particles and Object by
	// ObjectVerts. For particles Object falls back to the particle system
	// emitter when nil.
	ParticleSystem *scene.ParticleSystem
	Object         *scene.Object

	Space Space

	Radius   float32
	Falloff  Falloff
	Softness float32

	// Time spent building the index in the last Cache call.
	BuildTime time.Duration

	mu     sync.RWMutex
	tree   *bvh.Tree
	points int
}

// Create a point density texture using world space particles.
func New(name string) *PointDensity {
	return &PointDensity{
		Base:     texture.NewBase(name),
		Source:   Particles,
		Space:    WorldSpace,
		Radius:   0.3,
		Falloff:  Standard,
		Softness: 2,
	}
}

// Index the points of the source for the render described by db. Sources
// that are missing or not part of the snapshot leave the texture empty.
func (pd *PointDensity) Cache(db *view.DB) {
	pd.Free()
	start := time.Now()

	var points []bvh.BoundedVolume
	switch pd.Source {
	case Particles:
		points = pd.particlePoints()
	case ObjectVerts:
		points = pd.objectPoints(db)
	}
	if len(points) == 0 {
		logger.Debugf("%q: no points to index", pd.Name())
		return
	}

	tree := bvh.New(points, pointsPerLeaf)

	pd.mu.Lock()
	pd.tree = tree
	pd.points = len(points)
	pd.BuildTime = time.Since(start)
	pd.mu.Unlock()
	logger.Debugf("%q: indexed %d points in %d ms", pd.Name(), len(points), pd.BuildTime.Milliseconds())
}

// Release the point index.
func (pd *PointDensity) Free() {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pd.tree = nil
	pd.points = 0
}

// Returns true between Cache and Free if the source had any points.
func (pd *PointDensity) Cached() bool {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return pd.tree != nil
}

// Get the number of indexed points.
func (pd *PointDensity) NumPoints() int {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return pd.points
}

func (pd *PointDensity) particlePoints() []bvh.BoundedVolume {
	psys := pd.ParticleSystem
	if psys == nil {
		logger.Warningf("%q: no particle system", pd.Name())
		return nil
	}
	obj := pd.Object
	if obj == nil {
		obj = psys.Object
	}

	toSpace := pd.spaceTransform(obj)
	points := make([]bvh.BoundedVolume, len(psys.Points))
	for i, p := range psys.Points {
		points[i] = point(toSpace(p))
	}
	return points
}

func (pd *PointDensity) objectPoints(db *view.DB) []bvh.BoundedVolume {
	if pd.Object == nil {
		logger.Warningf("%q: no source object", pd.Name())
		return nil
	}
	obr := db.FindObject(pd.Object)
	if obr == nil {
		logger.Debugf("%q: object %q is not rendered", pd.Name(), pd.Object.Name)
		return nil
	}

	toSpace := pd.spaceTransform(pd.Object)
	points := make([]bvh.BoundedVolume, len(obr.Verts))
	for i := range obr.Verts {
		points[i] = point(toSpace(db.ViewInv.MulPoint(obr.Verts[i].Co)))
	}
	return points
}

// Get the transform from world space to the configured space.
func (pd *PointDensity) spaceTransform(obj *scene.Object) func(types.Vec3) types.Vec3 {
	if obj != nil {
		switch pd.Space {
		case ObjectSpace:
			inv := obj.ObMat.Inv()
			return inv.MulPoint
		case ObjectLocation:
			loc := obj.ObMat.Translation()
			return func(co types.Vec3) types.Vec3 {
				return co.Sub(loc)
			}
		}
	}
	return func(co types.Vec3) types.Vec3 {
		return co
	}
}

// Sample the density at in.Co. Without an index the intensity is zero.
func (pd *PointDensity) Sample(in *texture.Lookup, res *texture.Result) texture.ResultType {
	res.Reset()

	pd.mu.RLock()
	tree := pd.tree
	pd.mu.RUnlock()
	if tree == nil || pd.Radius <= 0 {
		return texture.Int
	}

	var density float32
	sqRadius := pd.Radius * pd.Radius
	tree.RangeQuery(in.Co, pd.Radius, func(_ bvh.BoundedVolume, sqDist float32) {
		density += pd.Falloff.Density(sqDist, sqRadius, pd.Softness)
	})

	res.Tin = density
	pd.BriCont(res)
	return texture.Int
}

// Cache every point density texture used by the snapshot's scene. The
// returned func frees them again.
func CacheScene(db *view.DB) func() {
	var cached []*PointDensity
	seen := make(map[*PointDensity]struct{})
	add := func(tex texture.Texture) {
		pd, ok := tex.(*PointDensity)
		if !ok {
			return
		}
		if _, dup := seen[pd]; dup {
			return
		}
		seen[pd] = struct{}{}
		pd.Cache(db)
		cached = append(cached, pd)
	}

	if sc := db.Scene; sc != nil {
		for _, tex := range sc.Textures {
			add(tex)
		}
		for _, mat := range sc.Materials {
			for _, slot := range mat.Textures {
				if slot != nil && slot.Tex != nil {
					add(slot.Tex)
				}
			}
		}
	}

	return func() {
		for _, pd := range cached {
			pd.Free()
		}
	}
}
