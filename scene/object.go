package scene

import (
	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/types"
)

// A mesh instance placed in the scene.
type Object struct {
	Name string
	Mesh *Mesh

	// Materials indexed by Face.Mat.
	Materials []*Material

	Position types.Vec3
	// Euler rotation in radians.
	Rotation types.Vec3
	Scale    types.Vec3

	// Object to world transform; refreshed by Update.
	ObMat types.Mat4

	// Layer visibility bits.
	Lay uint32

	// Value written to the object index pass.
	PassIndex int

	// Selected objects are baked.
	Selected bool
}

// Create an object with an identity transform on layer 1.
func NewObject(name string, mesh *Mesh) *Object {
	obj := &Object{
		Name:  name,
		Mesh:  mesh,
		Scale: types.Vec3{1, 1, 1},
		Lay:   1,
	}
	obj.Update()
	return obj
}

// Refresh the object matrix from the location/rotation/scale triplet.
func (o *Object) Update() {
	o.ObMat = types.Translate4(o.Position).Mul4(types.EulerToMat4(o.Rotation)).Mul4(types.Scale4(o.Scale))
}

// Get the material for a face material index. Out of range indices
// resolve to the last material; objects without materials get nil.
func (o *Object) Material(index int) *Material {
	if len(o.Materials) == 0 {
		return nil
	}
	if index < 0 || index >= len(o.Materials) {
		return o.Materials[len(o.Materials)-1]
	}
	return o.Materials[index]
}

// An image data-block.
type Image struct {
	Name string
	Path string
	Buf  *imbuf.ImBuf
}

// A particle system; Points hold the current frame positions in world
// space.
type ParticleSystem struct {
	Name   string
	Object *Object
	Points []types.Vec3

	// Optional per particle velocities; used by vector halos.
	Velocities []types.Vec3

	// Halo material used to render the particles; nil skips rendering.
	Material *Material

	Lay uint32
}
