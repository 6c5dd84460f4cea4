package scene

import (
	"fmt"
	"math"

	"github.com/achilleasa/scanline/types"
)

// A mesh face with 3 or 4 vertices. Triangles set V[3] to -1.
type Face struct {
	V      [4]int32
	Mat    int
	Smooth bool

	// Image used as bake target / face texture.
	Image *Image
}

// Create a triangle face.
func Tri(v1, v2, v3 int32) Face {
	return Face{V: [4]int32{v1, v2, v3, -1}}
}

// Create a quad face.
func Quad(v1, v2, v3, v4 int32) Face {
	return Face{V: [4]int32{v1, v2, v3, v4}}
}

// Returns true if the face has 4 vertices.
func (f *Face) IsQuad() bool {
	return f.V[3] >= 0
}

// Get the face vertex count.
func (f *Face) NumVerts() int {
	if f.IsQuad() {
		return 4
	}
	return 3
}

// Per face-corner UV coordinates.
type UVLayer struct {
	Name string
	UV   [][4]types.Vec2
}

// Per face-corner vertex colors.
type ColLayer struct {
	Name string
	Col  [][4]types.Vec4
}

// A polygon mesh. All optional attribute slices are either empty or have
// one entry per vertex (per face for layers).
type Mesh struct {
	Name string

	Verts   []types.Vec3
	Normals []types.Vec3
	Faces   []Face

	UVLayers  []UVLayer
	ColLayers []ColLayer

	Sticky   []types.Vec2
	Stress   []float32
	Speed    []types.Vec4
	Tangents []types.Vec3
	Strand   []float32
}

// Calculate area weighted vertex normals from the face normals.
func (m *Mesh) CalcNormals() {
	m.Normals = m.ComputeNormals()
}

// Get the vertex normals. Meshes without stored normals get area weighted
// normals computed from the faces; the mesh is not modified.
func (m *Mesh) ComputeNormals() []types.Vec3 {
	if len(m.Normals) == len(m.Verts) {
		return m.Normals
	}
	normals := make([]types.Vec3, len(m.Verts))
	for fi := range m.Faces {
		f := &m.Faces[fi]
		n := m.FaceNormal(fi)
		area := m.faceArea(fi)
		for c := 0; c < f.NumVerts(); c++ {
			normals[f.V[c]] = normals[f.V[c]].Add(n.Mul(area))
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}

// Get the normalized face normal using counter-clockwise winding.
func (m *Mesh) FaceNormal(fi int) types.Vec3 {
	f := &m.Faces[fi]
	if f.IsQuad() {
		v1, v2, v3, v4 := m.Verts[f.V[0]], m.Verts[f.V[1]], m.Verts[f.V[2]], m.Verts[f.V[3]]
		return v3.Sub(v1).Cross(v4.Sub(v2)).Normalize()
	}
	v1, v2, v3 := m.Verts[f.V[0]], m.Verts[f.V[1]], m.Verts[f.V[2]]
	return v2.Sub(v1).Cross(v3.Sub(v1)).Normalize()
}

func (m *Mesh) faceArea(fi int) float32 {
	f := &m.Faces[fi]
	v1, v2, v3 := m.Verts[f.V[0]], m.Verts[f.V[1]], m.Verts[f.V[2]]
	area := 0.5 * v2.Sub(v1).Cross(v3.Sub(v1)).Len()
	if f.IsQuad() {
		v4 := m.Verts[f.V[3]]
		area += 0.5 * v3.Sub(v1).Cross(v4.Sub(v1)).Len()
	}
	return area
}

// Get the mesh bounding box.
func (m *Mesh) BBox() [2]types.Vec3 {
	bbox := [2]types.Vec3{
		{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for _, v := range m.Verts {
		bbox[0] = types.MinVec3(bbox[0], v)
		bbox[1] = types.MaxVec3(bbox[1], v)
	}
	return bbox
}

// Find a UV layer by name. An empty name selects the first layer.
func (m *Mesh) UVLayer(name string) *UVLayer {
	for i := range m.UVLayers {
		if name == "" || m.UVLayers[i].Name == name {
			return &m.UVLayers[i]
		}
	}
	return nil
}

// Validate face indices and attribute layer sizes.
func (m *Mesh) Validate() error {
	numVerts := int32(len(m.Verts))
	for fi, f := range m.Faces {
		for c := 0; c < f.NumVerts(); c++ {
			if f.V[c] < 0 || f.V[c] >= numVerts {
				return fmt.Errorf("scene: mesh '%s' face %d references vertex %d; mesh has %d vertices", m.Name, fi, f.V[c], numVerts)
			}
		}
	}

	if len(m.Normals) != 0 && len(m.Normals) != len(m.Verts) {
		return fmt.Errorf("scene: mesh '%s' has %d normals for %d vertices", m.Name, len(m.Normals), len(m.Verts))
	}
	for _, l := range m.UVLayers {
		if len(l.UV) != len(m.Faces) {
			return fmt.Errorf("scene: mesh '%s' uv layer '%s' has %d entries for %d faces", m.Name, l.Name, len(l.UV), len(m.Faces))
		}
	}
	for _, l := range m.ColLayers {
		if len(l.Col) != len(m.Faces) {
			return fmt.Errorf("scene: mesh '%s' color layer '%s' has %d entries for %d faces", m.Name, l.Name, len(l.Col), len(m.Faces))
		}
	}

	type vertLayer struct {
		name  string
		count int
	}
	for _, l := range []vertLayer{
		{"sticky", len(m.Sticky)},
		{"stress", len(m.Stress)},
		{"speed", len(m.Speed)},
		{"tangent", len(m.Tangents)},
		{"strand", len(m.Strand)},
	} {
		if l.count != 0 && l.count != len(m.Verts) {
			return fmt.Errorf("scene: mesh '%s' %s layer has %d entries for %d vertices", m.Name, l.name, l.count, len(m.Verts))
		}
	}
	return nil
}
