package raytrace

import (
	"github.com/achilleasa/scanline/bvh"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
)

const (
	minLeafItems = 4

	// Ray offset used to avoid self intersections.
	rayEpsilon = 1e-4
)

// A view space triangle stored in the BVH.
type triangle struct {
	v0, v1, v2 types.Vec3

	// Index of the owning face in the view snapshot.
	face int

	bbox   [2]types.Vec3
	center types.Vec3
}

func (t *triangle) BBox() [2]types.Vec3 {
	return t.bbox
}

func (t *triangle) Center() types.Vec3 {
	return t.center
}

// Möller-Trumbore ray/triangle test.
func (t *triangle) intersect(origin, dir types.Vec3, tMax float32) (float32, bool) {
	edge1 := t.v1.Sub(t.v0)
	edge2 := t.v2.Sub(t.v0)
	pvec := dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if math32.Abs(det) < 1e-12 {
		return 0, false
	}
	invDet := 1 / det

	tvec := origin.Sub(t.v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	qvec := tvec.Cross(edge1)
	v := dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	dist := edge2.Dot(qvec) * invDet
	if dist <= rayEpsilon || dist >= tMax {
		return 0, false
	}
	return dist, true
}

// Tree answers visibility queries against the faces of a view snapshot.
type Tree struct {
	tree *bvh.Tree
}

// Build a ray tree over the faces of the snapshot.
func Build(db *view.DB) *Tree {
	items := make([]bvh.BoundedVolume, 0, len(db.Faces))
	addTri := func(face int, v0, v1, v2 types.Vec3) {
		tri := &triangle{v0: v0, v1: v1, v2: v2, face: face}
		tri.bbox[0] = types.MinVec3(types.MinVec3(v0, v1), v2)
		tri.bbox[1] = types.MaxVec3(types.MaxVec3(v0, v1), v2)
		tri.center = v0.Add(v1).Add(v2).Mul(1.0 / 3.0)
		items = append(items, tri)
	}

	for index, vlr := range db.Faces {
		addTri(index, vlr.Vert(0).Co, vlr.Vert(1).Co, vlr.Vert(2).Co)
		if vlr.IsQuad() {
			addTri(index, vlr.Vert(0).Co, vlr.Vert(2).Co, vlr.Vert(3).Co)
		}
	}
	return &Tree{tree: bvh.New(items, minLeafItems)}
}

// Returns true if any face other than skipFace blocks the segment between
// from and to. skipFace is a 0-based face index; pass -1 to test all faces.
func (t *Tree) Occluded(from, to types.Vec3, skipFace int) bool {
	dir := to.Sub(from)
	dist := dir.Len()
	if dist == 0 {
		return false
	}
	dir = dir.Mul(1 / dist)
	return t.occludedDir(from, dir, dist*(1-rayEpsilon), skipFace)
}

func (t *Tree) occludedDir(origin, dir types.Vec3, maxDist float32, skipFace int) bool {
	_, _, hit := t.tree.Intersect(origin, dir, maxDist, true, func(item bvh.BoundedVolume, tMax float32) (float32, bool) {
		tri := item.(*triangle)
		if tri.face == skipFace {
			return 0, false
		}
		return tri.intersect(origin, dir, tMax)
	})
	return hit
}

// Estimate the unoccluded fraction of the hemisphere around normal n at
// point co. Rays are distributed over a samples x samples stratified
// grid with cosine weighting and limited to maxDist.
func (t *Tree) AmbientOcclusion(co, n types.Vec3, maxDist float32, samples, skipFace int) float32 {
	if samples < 1 {
		samples = 1
	}
	if maxDist <= 0 {
		maxDist = math32.MaxFloat32
	}

	tangent, bitangent := basis(n)
	total := samples * samples
	unoccluded := 0
	for i := 0; i < samples; i++ {
		for j := 0; j < samples; j++ {
			u1 := (float32(i) + 0.5) / float32(samples)
			u2 := (float32(j) + 0.5) / float32(samples)

			r := math32.Sqrt(u1)
			phi := 2 * math32.Pi * u2
			x, y := r*math32.Cos(phi), r*math32.Sin(phi)
			z := math32.Sqrt(math32.Max(0, 1-u1))

			dir := tangent.Mul(x).Add(bitangent.Mul(y)).Add(n.Mul(z))
			if !t.occludedDir(co, dir, maxDist, skipFace) {
				unoccluded++
			}
		}
	}
	return float32(unoccluded) / float32(total)
}

// Build an orthonormal basis around n.
func basis(n types.Vec3) (types.Vec3, types.Vec3) {
	up := types.Vec3{0, 0, 1}
	if math32.Abs(n[2]) > 0.9 {
		up = types.Vec3{1, 0, 0}
	}
	tangent := up.Cross(n).Normalize()
	return tangent, n.Cross(tangent)
}
