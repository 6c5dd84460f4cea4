package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/scanline/asset"
	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

// A mesh being assembled from obj faces. Obj files index positions and
// normals separately; every distinct (position, normal) pair becomes one
// mesh vertex.
type wavefrontMesh struct {
	mesh *scene.Mesh

	materials []*scene.Material
	matIndex  map[*scene.Material]int

	vertIndex map[[2]int]int32
	normals   []types.Vec3
	hasUV     bool
	hasNormal bool
}

func newWavefrontMesh(name string) *wavefrontMesh {
	return &wavefrontMesh{
		mesh:      &scene.Mesh{Name: name},
		matIndex:  make(map[*scene.Material]int),
		vertIndex: make(map[[2]int]int32),
		hasNormal: true,
	}
}

// A mesh instance definition.
type wavefrontInstance struct {
	mesh     string
	position types.Vec3
	rotation types.Vec3
	scale    types.Vec3
}

type wavefrontReader struct {
	logger log.Logger

	// Materials and images are registered with this scene.
	sc     *scene.Scene
	images *imageCache

	materials   map[string]*scene.Material
	added       map[*scene.Material]bool
	curMaterial *scene.Material
	smooth      bool

	meshes    []*wavefrontMesh
	instances []wavefrontInstance

	// Camera settings; nil unless the file sets any of them.
	camera *scene.Camera

	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	// An error stack that provides additional error information when
	// files include other files (models, mat libs e.t.c)
	errStack []string
}

func newWavefrontReader(sc *scene.Scene, images *imageCache) *wavefrontReader {
	return &wavefrontReader{
		logger:    log.New("wavefront reader"),
		sc:        sc,
		images:    images,
		materials: make(map[string]*scene.Material),
		added:     make(map[*scene.Material]bool),
	}
}

// Parse an obj file and return one object per instance definition. Files
// without instances get one object with an identity transform per mesh.
// Materials referenced by the objects are added to the scene.
func (r *wavefrontReader) Read(res *asset.Resource) ([]*scene.Object, error) {
	r.logger.Infof(`parsing meshes from '%s'`, res.Path())
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}

	byName := make(map[string]*wavefrontMesh, len(r.meshes))
	for _, wm := range r.meshes {
		if err := r.finishMesh(wm); err != nil {
			return nil, err
		}
		byName[wm.mesh.Name] = wm
	}

	var objects []*scene.Object
	if len(r.instances) == 0 {
		for _, wm := range r.meshes {
			objects = append(objects, r.newObject(wm.mesh.Name, wm))
		}
	}
	for index, inst := range r.instances {
		wm, ok := byName[inst.mesh]
		if !ok {
			return nil, r.emitError(res.Path(), 0, `instance %d references unknown mesh '%s'`, index, inst.mesh)
		}
		obj := r.newObject(fmt.Sprintf("%s.%d", inst.mesh, index), wm)
		obj.Position = inst.position
		obj.Rotation = inst.rotation
		obj.Scale = inst.scale
		obj.Update()
		objects = append(objects, obj)
	}

	r.logger.Infof("parsed %d meshes into %d objects in %d ms", len(r.meshes), len(objects), time.Since(start).Milliseconds())
	return objects, nil
}

func (r *wavefrontReader) newObject(name string, wm *wavefrontMesh) *scene.Object {
	obj := scene.NewObject(name, wm.mesh)
	obj.Materials = wm.materials
	return obj
}

// Register the materials of a mesh and keep its normals only if every
// vertex received one.
func (r *wavefrontReader) finishMesh(wm *wavefrontMesh) error {
	if wm.hasNormal && len(wm.normals) != 0 {
		wm.mesh.Normals = wm.normals
	}
	if !wm.hasUV {
		wm.mesh.UVLayers = nil
	}
	for _, mat := range wm.materials {
		if r.added[mat] {
			continue
		}
		if err := r.sc.AddMaterial(mat); err != nil {
			return err
		}
		r.added[mat] = true
	}
	return wm.mesh.Validate()
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}
	return fmt.Errorf("%s", strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Get the material for faces that do not select one.
func (r *wavefrontReader) defaultMaterial() *scene.Material {
	mat, exists := r.materials[""]
	if !exists {
		mat = scene.NewMaterial("default")
		mat.Col = types.Vec3{0.7, 0.7, 0.7}
		r.materials[""] = mat
	}
	return mat
}

func (r *wavefrontReader) cam() *scene.Camera {
	if r.camera == nil {
		r.camera = scene.NewCamera(math32.Pi / 4)
	}
	return r.camera
}

// Parse wavefront object scene format.
func (r *wavefrontReader) parse(res *asset.Resource) error {
	var lineNum int
	var err error

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex/uv/normal offsets we can apply them
	// while parsing faces to select the correct coordinates.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for '%s'; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			defer incRes.Close()

			switch lineTokens[0] {
			case "call":
				err = r.parse(incRes)
			case "mtllib":
				err = r.parseMaterials(incRes)
			}
			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for 'usemtl'; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			mat, exists := r.materials[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `undefined material with name '%s'`, lineTokens[1])
			}
			r.curMaterial = mat
		case "s":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for 's'; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			r.smooth = lineTokens[1] != "off" && lineTokens[1] != "0"
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for '%s'; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.verifyLastParsedMesh()
			r.meshes = append(r.meshes, newWavefrontMesh(lineTokens[1]))
		case "f":
			// If no object has been defined create a default one
			if len(r.meshes) == 0 {
				r.meshes = append(r.meshes, newWavefrontMesh("default"))
			}
			if err = r.parseFace(r.meshes[len(r.meshes)-1], lineTokens, relVertexOffset, relUvOffset, relNormalOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "camera_fov":
			var fov float32
			if fov, err = parseFloat32(lineTokens); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.cam().FOV = fov * math32.Pi / 180
		case "camera_eye":
			if r.cam().Position, err = parseVec3(lineTokens); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "camera_look":
			if r.cam().LookAt, err = parseVec3(lineTokens); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "camera_up":
			if r.cam().Up, err = parseVec3(lineTokens); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "instance":
			inst, err := parseInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.instances = append(r.instances, inst)
		}
	}
	if err = scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}

	r.verifyLastParsedMesh()
	return nil
}

// Drop the last parsed mesh if it contains no faces.
func (r *wavefrontReader) verifyLastParsedMesh() {
	last := len(r.meshes) - 1
	if last >= 0 && len(r.meshes[last].mesh.Faces) == 0 {
		r.logger.Warningf(`dropping mesh '%s' as it contains no polygons`, r.meshes[last].mesh.Name)
		r.meshes = r.meshes[:last]
	}
}

// Parse mesh instance definition. Definitions use the following format:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
func parseInstance(lineTokens []string) (wavefrontInstance, error) {
	if len(lineTokens) != 11 {
		return wavefrontInstance{}, fmt.Errorf(`unsupported syntax for 'instance'; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	inst := wavefrontInstance{mesh: lineTokens[1]}
	targets := []*types.Vec3{&inst.position, &inst.rotation, &inst.scale}
	for index, target := range targets {
		v, err := parseVec3(append([]string{"instance"}, lineTokens[2+3*index:5+3*index]...))
		if err != nil {
			return inst, err
		}
		*target = v
	}
	inst.rotation = inst.rotation.Mul(math32.Pi / 180)
	return inst, nil
}

// Parse a face definition and append it to a mesh. Only triangles and
// quads are supported.
func (r *wavefrontReader) parseFace(wm *wavefrontMesh, lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for 'f'; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	face := scene.Face{V: [4]int32{-1, -1, -1, -1}, Smooth: r.smooth}
	var uv [4]types.Vec2
	expIndices := 0
	hasUV := false
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}
		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}

		if expIndices > 1 && vTokens[1] != "" {
			uvOffset, err := selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
			uv[arg] = r.uvList[uvOffset]
			hasUV = true
		}

		nOffset := -1
		if expIndices > 2 && vTokens[2] != "" {
			nOffset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
		}
		face.V[arg] = wm.vertex(r, vOffset, nOffset)
	}

	// If no material defined select the default.
	mat := r.curMaterial
	if mat == nil {
		mat = r.defaultMaterial()
	}
	face.Mat = wm.material(mat)

	mesh := wm.mesh
	if hasUV && !wm.hasUV {
		// Faces parsed so far get zero uvs.
		mesh.UVLayers = []scene.UVLayer{{Name: "uv", UV: make([][4]types.Vec2, len(mesh.Faces))}}
		wm.hasUV = true
	}
	if wm.hasUV {
		mesh.UVLayers[0].UV = append(mesh.UVLayers[0].UV, uv)
	}
	mesh.Faces = append(mesh.Faces, face)
	return nil
}

// Get the mesh vertex for an obj position/normal pair.
func (wm *wavefrontMesh) vertex(r *wavefrontReader, vOffset, nOffset int) int32 {
	key := [2]int{vOffset, nOffset}
	if index, ok := wm.vertIndex[key]; ok {
		return index
	}
	index := int32(len(wm.mesh.Verts))
	wm.mesh.Verts = append(wm.mesh.Verts, r.vertexList[vOffset])

	var n types.Vec3
	if nOffset >= 0 {
		n = r.normalList[nOffset].Normalize()
	} else {
		wm.hasNormal = false
	}
	wm.normals = append(wm.normals, n)
	wm.vertIndex[key] = index
	return index
}

// Get the object material slot of a material.
func (wm *wavefrontMesh) material(mat *scene.Material) int {
	if index, ok := wm.matIndex[mat]; ok {
		return index
	}
	wm.materials = append(wm.materials, mat)
	wm.matIndex[mat] = len(wm.materials) - 1
	return len(wm.materials) - 1
}

// Parse a wavefront material library.
func (r *wavefrontReader) parseMaterials(res *asset.Resource) error {
	var lineNum int
	var err error

	r.logger.Infof(`parsing material library '%s'`, res.Path())

	scanner := bufio.NewScanner(res)
	var curMaterial *scene.Material
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		if lineTokens[0] == "newmtl" {
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for 'newmtl'; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			matName := lineTokens[1]
			if _, exists := r.materials[matName]; exists {
				return r.emitError(res.Path(), lineNum, `material '%s' already defined`, matName)
			}
			curMaterial = scene.NewMaterial(matName)
			r.materials[matName] = curMaterial
			continue
		}
		if curMaterial == nil {
			return r.emitError(res.Path(), lineNum, `got '%s' without a 'newmtl'`, lineTokens[0])
		}

		switch lineTokens[0] {
		case "include":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for '%s'; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			base, exists := r.materials[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `could not include unknown material '%s'`, lineTokens[1])
			}

			// Overwrite material but keep the original name
			name := curMaterial.Name
			*curMaterial = *base
			curMaterial.Name = name
			curMaterial.Textures = append([]*scene.TextureSlot(nil), base.Textures...)
		case "Kd":
			curMaterial.Col, err = parseVec3(lineTokens)
		case "Ks":
			curMaterial.SpecCol, err = parseVec3(lineTokens)
		case "Ke":
			var ke types.Vec3
			if ke, err = parseVec3(lineTokens); err == nil {
				curMaterial.Emit = ke.MaxComponent()
			}
		case "Ns":
			var ns float32
			if ns, err = parseFloat32(lineTokens); err == nil {
				curMaterial.Hard = max(1, int(ns))
			}
		case "d", "Tr":
			var d float32
			if d, err = parseFloat32(lineTokens); err == nil {
				if lineTokens[0] == "Tr" {
					d = 1 - d
				}
				curMaterial.Alpha = d
				if d < 1 {
					curMaterial.Mode |= scene.ModeTransp
				}
			}
		case "illum":
			var illum float32
			if illum, err = parseFloat32(lineTokens); err == nil && illum == 0 {
				curMaterial.Mode |= scene.ModeShadeless
			}
		case "map_Kd", "map_bump", "bump", "map_normal":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for '%s'; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			img, imgErr := r.images.load(r.sc, lineTokens[len(lineTokens)-1], res)
			if imgErr != nil {
				r.logger.Warningf("[%s: %d] skipping texture: %s", res.Path(), lineNum, imgErr.Error())
				continue
			}
			tex := texture.NewImage(img.Name, img.Buf)
			mapTo := scene.MapCol
			if lineTokens[0] != "map_Kd" {
				tex.Flags |= texture.ImageNormalMap
				mapTo = scene.MapNorm
			}
			if err = r.sc.AddTexture(tex); err == nil {
				curMaterial.AddTexture(scene.NewTextureSlot(tex, scene.TexCoUV, mapTo))
			}
		}

		// Report any errors
		if err != nil {
			return r.emitError(res.Path(), lineNum, "%s", err.Error())
		}
	}
	return scanner.Err()
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for '%s'; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}
	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for '%s'; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for '%s'; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
