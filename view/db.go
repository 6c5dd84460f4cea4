package view

import (
	"sort"

	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

const (
	// Face ids with this bit set refer to the second triangle (verts 0, 2, 3)
	// of a quad.
	QuadOffs int32 = 0x1000000
	// Mask for extracting the face index from a face id.
	FaceMask int32 = 0x0FFFFFF
)

// A vertex transformed into view space.
type VertRen struct {
	Co   types.Vec3
	N    types.Vec3
	Orco types.Vec3

	// Index of the source mesh vertex; used for optional attribute layers.
	Index int32
}

// An object instance transformed into view space.
type ObjectRen struct {
	Object *scene.Object
	Mesh   *scene.Mesh

	Verts []VertRen

	// Object to view transform and its inverse.
	ObViewMat types.Mat4
	ViewObMat types.Mat4

	Lay uint32
}

// A face in view space.
type VlakRen struct {
	Obr *ObjectRen
	V   [4]int32

	// Flat face normal (counter-clockwise winding).
	N types.Vec3

	Mat    *scene.Material
	Smooth bool

	// Index of the source mesh face.
	Index int
	Image *scene.Image
	Lay   uint32
}

// Returns true if the face has 4 vertices.
func (f *VlakRen) IsQuad() bool {
	return f.V[3] >= 0
}

// Get face vertex i.
func (f *VlakRen) Vert(i int) *VertRen {
	return &f.Obr.Verts[f.V[i]]
}

// A lamp transformed into view space.
type LampRen struct {
	Lamp *scene.Lamp

	Co types.Vec3
	// Normalized direction the lamp points at.
	Vec types.Vec3

	// Cosine of the spot half angle and the blend range above it.
	SpotSi float32
	SpotBl float32
}

// Options controlling which scene data ends up in a DB.
type Options struct {
	// Visible scene layers.
	Lay uint32

	// Layers excluded from the snapshot.
	ExcludeLay uint32

	// An object to leave out of the snapshot.
	HideObject *scene.Object
}

// DB is an immutable view space snapshot of the scene data for one camera.
// Multiple snapshots of the same scene can be rendered concurrently.
type DB struct {
	Scene  *scene.Scene
	World  *scene.World
	Camera *scene.Camera

	ViewMat types.Mat4
	ViewInv types.Mat4
	Proj    *Projection

	Lay uint32

	Objects []*ObjectRen
	Faces   []*VlakRen
	Lamps   []*LampRen

	// Halos sorted far to near.
	Halos []*Halo
}

// Build a render database for the given view matrix and projection.
func Build(sc *scene.Scene, viewMat types.Mat4, proj *Projection, opts Options) *DB {
	db := &DB{
		Scene:   sc,
		World:   sc.World,
		Camera:  sc.Camera,
		ViewMat: viewMat,
		ViewInv: viewMat.Inv(),
		Proj:    proj,
		Lay:     opts.Lay &^ opts.ExcludeLay,
	}
	if db.World == nil {
		db.World = scene.NewWorld()
	}

	for _, obj := range sc.Objects {
		if obj == opts.HideObject || obj.Lay&db.Lay == 0 || obj.Mesh == nil {
			continue
		}
		db.addObject(obj)
	}

	for _, lamp := range sc.Lamps {
		db.addLamp(lamp)
	}

	for _, psys := range sc.Particles {
		if psys.Material == nil || psys.Lay&db.Lay == 0 {
			continue
		}
		if psys.Object != nil && psys.Object == opts.HideObject {
			continue
		}
		for index, p := range psys.Points {
			co := viewMat.MulPoint(p)
			var vec1 *types.Vec3
			if psys.Material.HaloMode&scene.HaloVect != 0 && index < len(psys.Velocities) {
				v := viewMat.MulPoint(p.Add(psys.Velocities[index]))
				vec1 = &v
			}
			db.addHalo(psys.Material, co, vec1, psys.Material.HaloSize, index+psys.Material.Seed1, psys.Lay)
		}
	}

	// Far halos first
	sort.SliceStable(db.Halos, func(i, j int) bool {
		return db.Halos[i].Zs > db.Halos[j].Zs
	})
	return db
}

func (db *DB) addObject(obj *scene.Object) {
	mesh := obj.Mesh
	normals := mesh.ComputeNormals()

	obr := &ObjectRen{
		Object:    obj,
		Mesh:      mesh,
		ObViewMat: db.ViewMat.Mul4(obj.ObMat),
		Lay:       obj.Lay,
	}
	obr.ViewObMat = obr.ObViewMat.Inv()
	normalMat := obr.ViewObMat.Transpose().Mat3()

	// orco maps the mesh bbox to [-1, 1]
	bbox := mesh.BBox()
	var center, halfSize types.Vec3
	for axis := 0; axis < 3; axis++ {
		center[axis] = 0.5 * (bbox[0][axis] + bbox[1][axis])
		halfSize[axis] = 0.5 * (bbox[1][axis] - bbox[0][axis])
		if halfSize[axis] <= 0 {
			halfSize[axis] = 1
		}
	}

	obr.Verts = make([]VertRen, len(mesh.Verts))
	for i, v := range mesh.Verts {
		vr := &obr.Verts[i]
		vr.Co = obr.ObViewMat.MulPoint(v)
		vr.N = normalMat.Mul3x1(normals[i]).Normalize()
		vr.Index = int32(i)
		for axis := 0; axis < 3; axis++ {
			vr.Orco[axis] = (v[axis] - center[axis]) / halfSize[axis]
		}
	}
	db.Objects = append(db.Objects, obr)

	// Halo materials turn the mesh vertices into halos.
	if mat := obj.Material(0); mat != nil && mat.IsHalo() {
		for i := range obr.Verts {
			db.addHalo(mat, obr.Verts[i].Co, nil, mat.HaloSize, i+mat.Seed1, obj.Lay)
		}
		return
	}

	for fi := range mesh.Faces {
		f := &mesh.Faces[fi]
		vlr := &VlakRen{
			Obr:    obr,
			V:      f.V,
			Mat:    obj.Material(f.Mat),
			Smooth: f.Smooth,
			Index:  fi,
			Image:  f.Image,
			Lay:    obj.Lay,
		}
		if vlr.Mat == nil {
			vlr.Mat = defaultMaterial
		}
		v1, v2, v3 := obr.Verts[f.V[0]].Co, obr.Verts[f.V[1]].Co, obr.Verts[f.V[2]].Co
		if f.IsQuad() {
			v4 := obr.Verts[f.V[3]].Co
			vlr.N = v3.Sub(v1).Cross(v4.Sub(v2)).Normalize()
		} else {
			vlr.N = v2.Sub(v1).Cross(v3.Sub(v1)).Normalize()
		}
		db.Faces = append(db.Faces, vlr)
	}
}

var defaultMaterial = scene.NewMaterial("default")

func (db *DB) addLamp(lamp *scene.Lamp) {
	lar := &LampRen{
		Lamp: lamp,
		Co:   db.ViewMat.MulPoint(lamp.Position),
		Vec:  db.ViewMat.MulDir(lamp.Direction).Normalize(),
	}
	lar.SpotSi = math32.Cos(0.5 * lamp.SpotSize)
	lar.SpotBl = (1 - lar.SpotSi) * lamp.SpotBlend
	db.Lamps = append(db.Lamps, lar)
}

// Resolve a 1-based face id into a face and the indices of the three face
// vertices forming the addressed triangle. Returns false for sky (0) and
// out of range ids.
func (db *DB) Face(facenr int32) (vlr *VlakRen, i1, i2, i3 int, ok bool) {
	if facenr <= 0 {
		return nil, 0, 0, 0, false
	}
	index := int((facenr - 1) & FaceMask)
	if index >= len(db.Faces) {
		return nil, 0, 0, 0, false
	}
	vlr = db.Faces[index]
	if facenr&QuadOffs != 0 {
		return vlr, 0, 2, 3, true
	}
	return vlr, 0, 1, 2, true
}

// Find the render record for a scene object.
func (db *DB) FindObject(obj *scene.Object) *ObjectRen {
	for _, obr := range db.Objects {
		if obr.Object == obj {
			return obr
		}
	}
	return nil
}

// Get the number of vertices in the snapshot.
func (db *DB) NumVerts() int {
	count := 0
	for _, obr := range db.Objects {
		count += len(obr.Verts)
	}
	return count
}
