package reader

import (
	"fmt"

	"github.com/achilleasa/scanline/asset"
	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/envmap"
	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/pointdensity"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

var (
	cameraTypes = map[string]scene.CameraType{
		"perspective": scene.PerspectiveCamera,
		"ortho":       scene.OrthoCamera,
	}
	skyFlags = map[string]scene.SkyFlag{
		"blend": scene.SkyBlend,
		"real":  scene.SkyReal,
		"paper": scene.SkyPaper,
	}
	mistTypes = map[string]scene.MistType{
		"quadratic": scene.MistQuadratic,
		"linear":    scene.MistLinear,
		"sqrt":      scene.MistSqrt,
	}
	layerFlags = map[string]scene.LayerFlag{
		"solid":   scene.LayerSolid,
		"ztransp": scene.LayerZTransp,
		"halo":    scene.LayerHalo,
		"sky":     scene.LayerSky,
		"edge":    scene.LayerEdge,
	}
	lampTypes = map[string]scene.LampType{
		"point": scene.LampPoint,
		"sun":   scene.LampSun,
		"spot":  scene.LampSpot,
		"hemi":  scene.LampHemi,
	}
	lampFalloffs = map[string]scene.Falloff{
		"inv_linear": scene.FalloffInvLinear,
		"inv_square": scene.FalloffInvSquare,
		"constant":   scene.FalloffConstant,
	}
	extendModes = map[string]texture.Extend{
		"clip":      texture.ExtendClip,
		"clip_cube": texture.ExtendClipCube,
		"edge":      texture.ExtendEdge,
		"repeat":    texture.ExtendRepeat,
		"checker":   texture.ExtendChecker,
	}
	imageFlags = map[string]texture.ImageFlag{
		"use_alpha":   texture.ImageUseAlpha,
		"calc_alpha":  texture.ImageCalcAlpha,
		"neg_alpha":   texture.ImageNegAlpha,
		"rotate":      texture.ImageRotate,
		"interpolate": texture.ImageInterpolate,
		"normal_map":  texture.ImageNormalMap,
	}
	envTypes = map[string]envmap.Type{
		"cube":  envmap.Cube,
		"plane": envmap.Plane,
	}
	envSources = map[string]envmap.Source{
		"static": envmap.Static,
		"anim":   envmap.Anim,
		"load":   envmap.Load,
	}
	pointSources = map[string]pointdensity.Source{
		"particles": pointdensity.Particles,
		"object":    pointdensity.ObjectVerts,
	}
	pointSpaces = map[string]pointdensity.Space{
		"object":   pointdensity.ObjectSpace,
		"location": pointdensity.ObjectLocation,
		"world":    pointdensity.WorldSpace,
	}
	pointFalloffs = map[string]pointdensity.Falloff{
		"standard": pointdensity.Standard,
		"smooth":   pointdensity.Smooth,
		"soft":     pointdensity.Soft,
		"sharp":    pointdensity.Sharp,
		"constant": pointdensity.Constant,
		"root":     pointdensity.Root,
	}
	materialModes = map[string]scene.MaterialMode{
		"shadeless":        scene.ModeShadeless,
		"transp":           scene.ModeTransp,
		"halo":             scene.ModeHalo,
		"no_mist":          scene.ModeNoMist,
		"vertex_col_light": scene.ModeVertexColLight,
		"vertex_col_paint": scene.ModeVertexColPaint,
		"shadow":           scene.ModeShadow,
		"no_normal_flip":   scene.ModeNoNormalFlip,
	}
	haloFlags = map[string]scene.HaloMode{
		"rings":      scene.HaloRings,
		"lines":      scene.HaloLines,
		"star":       scene.HaloStar,
		"xalpha":     scene.HaloXAlpha,
		"flare":      scene.HaloFlare,
		"soft":       scene.HaloSoft,
		"only_sky":   scene.HaloOnlySky,
		"shade":      scene.HaloShade,
		"tex":        scene.HaloTex,
		"vect":       scene.HaloVect,
		"flare_circ": scene.HaloFlareCirc,
	}
	specShaders = map[string]scene.SpecShader{
		"phong":     scene.SpecPhong,
		"blinn":     scene.SpecBlinn,
		"cook_torr": scene.SpecCookTorr,
	}
	texCoords = map[string]scene.TexCo{
		"orco":    scene.TexCoOrco,
		"global":  scene.TexCoGlobal,
		"object":  scene.TexCoObject,
		"uv":      scene.TexCoUV,
		"sticky":  scene.TexCoSticky,
		"strand":  scene.TexCoStrand,
		"tangent": scene.TexCoTangent,
		"stress":  scene.TexCoStress,
		"refl":    scene.TexCoRefl,
		"window":  scene.TexCoWindow,
		"normal":  scene.TexCoNormal,
		"speed":   scene.TexCoSpeed,
	}
	mapChannels = map[string]scene.MapTo{
		"col":      scene.MapCol,
		"col_spec": scene.MapColSpec,
		"col_mir":  scene.MapColMir,
		"alpha":    scene.MapAlpha,
		"emit":     scene.MapEmit,
		"ref":      scene.MapRef,
		"spec":     scene.MapSpec,
		"norm":     scene.MapNorm,
		"amb":      scene.MapAmb,
	}
	blendTypes = map[string]scene.BlendType{
		"mix":    scene.BlendMix,
		"mul":    scene.BlendMul,
		"add":    scene.BlendAdd,
		"sub":    scene.BlendSub,
		"screen": scene.BlendScreen,
	}
)

// sceneBuilder assembles a scene from a decoded description. Textures and
// materials may reference objects and particle systems that are only
// created later; those references are resolved by fixups once every
// object exists.
type sceneBuilder struct {
	logger log.Logger

	res    *asset.Resource
	sc     *scene.Scene
	images *imageCache

	// Objects loaded per resolved mesh path; shared meshes are instanced.
	meshes map[string][]*scene.Object

	fixups []func() error
}

func newSceneBuilder(res *asset.Resource) *sceneBuilder {
	return &sceneBuilder{
		logger: log.New("scene builder"),
		res:    res,
		sc:     scene.NewScene(),
		images: newImageCache(),
		meshes: make(map[string][]*scene.Object),
	}
}

// Build the scene. Errors are prefixed with the offending element.
func (b *sceneBuilder) build(desc *description) (*scene.Scene, error) {
	set(&b.sc.Lay, desc.Lay)

	for index, d := range desc.Images {
		if err := b.addImage(&d); err != nil {
			return nil, b.errorf("image %d (%s): %w", index, d.Name, err)
		}
	}
	for index, d := range desc.Textures {
		if err := b.addTexture(&d); err != nil {
			return nil, b.errorf("texture %d (%s): %w", index, d.Name, err)
		}
	}
	for index, d := range desc.Materials {
		if err := b.addMaterial(&d); err != nil {
			return nil, b.errorf("material %d (%s): %w", index, d.Name, err)
		}
	}
	for index, d := range desc.Objects {
		if err := b.addObjects(&d); err != nil {
			return nil, b.errorf("object %d (%s): %w", index, d.Name, err)
		}
	}
	for index, d := range desc.Particles {
		if err := b.addParticles(&d); err != nil {
			return nil, b.errorf("particle system %d (%s): %w", index, d.Name, err)
		}
	}
	for _, fixup := range b.fixups {
		if err := fixup(); err != nil {
			return nil, b.errorf("%w", err)
		}
	}
	for index, d := range desc.Lamps {
		if err := b.addLamp(&d); err != nil {
			return nil, b.errorf("lamp %d (%s): %w", index, d.Name, err)
		}
	}
	for index, d := range desc.Layers {
		if err := b.addLayer(&d); err != nil {
			return nil, b.errorf("layer %d (%s): %w", index, d.Name, err)
		}
	}
	if desc.World != nil {
		if err := b.setWorld(desc.World); err != nil {
			return nil, b.errorf("world: %w", err)
		}
	}

	cam, err := b.camera(desc.Camera)
	if err != nil {
		return nil, b.errorf("camera: %w", err)
	}
	b.sc.SetCamera(cam)

	b.logger.Infof("built scene with %d objects, %d materials, %d textures and %d lamps", len(b.sc.Objects), len(b.sc.Materials), len(b.sc.Textures), len(b.sc.Lamps))
	return b.sc, nil
}

func (b *sceneBuilder) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("reader: [%s] "+format, append([]interface{}{b.res.Path()}, args...)...)
}

func (b *sceneBuilder) image(name string) (*scene.Image, error) {
	for _, img := range b.sc.Images {
		if img.Name == name {
			return img, nil
		}
	}
	return nil, fmt.Errorf("unknown image '%s'", name)
}

func (b *sceneBuilder) object(name string) (*scene.Object, error) {
	if obj := b.sc.Object(name); obj != nil {
		return obj, nil
	}
	return nil, fmt.Errorf("unknown object '%s'", name)
}

func (b *sceneBuilder) material(name string) (*scene.Material, error) {
	if mat := b.sc.Material(name); mat != nil {
		return mat, nil
	}
	return nil, fmt.Errorf("unknown material '%s'", name)
}

func (b *sceneBuilder) addImage(d *imageDesc) error {
	if d.Path != "" {
		img, err := b.images.load(b.sc, d.Path, b.res)
		if err != nil {
			return err
		}
		if d.Name != "" {
			img.Name = d.Name
		}
		return nil
	}

	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("blank images need a positive size; got %dx%d", d.Width, d.Height)
	}
	format := imbuf.Rgba8
	if d.Float {
		format = imbuf.Rgba32F
	}
	return b.sc.AddImage(&scene.Image{
		Name: d.Name,
		Buf:  imbuf.New(d.Name, d.Width, d.Height, format),
	})
}

func (b *sceneBuilder) addTexture(d *textureDesc) error {
	var (
		tex  texture.Texture
		base *texture.Base
		err  error
	)

	switch d.Type {
	case "image":
		var t *texture.Image
		if t, err = b.imageTexture(d); err != nil {
			return err
		}
		tex, base = t, &t.Base
	case "envmap":
		var env *envmap.EnvMap
		if env, err = b.envMapTexture(d); err != nil {
			return err
		}
		tex, base = env, &env.Base
	case "pointdensity":
		var pd *pointdensity.PointDensity
		if pd, err = b.pointDensityTexture(d); err != nil {
			return err
		}
		tex, base = pd, &pd.Base
	default:
		return fmt.Errorf("unknown texture type '%s'; expected one of image, envmap or pointdensity", d.Type)
	}

	set(&base.Bright, d.Bright)
	set(&base.Contrast, d.Contrast)
	return b.sc.AddTexture(tex)
}

func (b *sceneBuilder) imageTexture(d *textureDesc) (*texture.Image, error) {
	img, err := b.image(d.Image)
	if err != nil {
		return nil, err
	}

	t := texture.NewImage(d.Name, img.Buf)
	if d.Extend != "" {
		if t.Extend, err = lookup("extend mode", d.Extend, extendModes); err != nil {
			return nil, err
		}
	}
	if t.Flags, err = flags("image flag", d.Flags, imageFlags); err != nil {
		return nil, err
	}
	if d.Repeat != nil {
		t.XRepeat, t.YRepeat = d.Repeat[0], d.Repeat[1]
	}
	set(&t.CheckerDist, d.CheckerDist)
	return t, nil
}

func (b *sceneBuilder) envMapTexture(d *textureDesc) (*envmap.EnvMap, error) {
	var err error
	env := envmap.New(d.Name)
	if d.EnvType != "" {
		if env.Type, err = lookup("env map type", d.EnvType, envTypes); err != nil {
			return nil, err
		}
	}
	if d.Source != "" {
		if env.Source, err = lookup("env map source", d.Source, envSources); err != nil {
			return nil, err
		}
	}
	set(&env.CubeRes, d.CubeRes)
	set(&env.ClipStart, d.ClipStart)
	set(&env.ClipEnd, d.ClipEnd)
	set(&env.ViewScale, d.ViewScale)
	set(&env.Depth, d.Depth)
	set(&env.FilterSize, d.FilterSize)
	env.ExcludeLay = d.ExcludeLay

	if env.Source == envmap.Load {
		if env.Image, err = b.image(d.Image); err != nil {
			return nil, err
		}
	}
	if d.Object != "" {
		b.fixups = append(b.fixups, func() error {
			obj, err := b.object(d.Object)
			if err != nil {
				return fmt.Errorf("env map '%s': %w", d.Name, err)
			}
			env.Object = obj
			return nil
		})
	}
	return env, nil
}

func (b *sceneBuilder) pointDensityTexture(d *textureDesc) (*pointdensity.PointDensity, error) {
	var err error
	pd := pointdensity.New(d.Name)
	if d.PointSource != "" {
		if pd.Source, err = lookup("point source", d.PointSource, pointSources); err != nil {
			return nil, err
		}
	}
	if d.Space != "" {
		if pd.Space, err = lookup("point space", d.Space, pointSpaces); err != nil {
			return nil, err
		}
	}
	if d.Falloff != "" {
		if pd.Falloff, err = lookup("falloff", d.Falloff, pointFalloffs); err != nil {
			return nil, err
		}
	}
	set(&pd.Radius, d.Radius)
	set(&pd.Softness, d.Softness)

	b.fixups = append(b.fixups, func() error {
		if d.ParticleSystem != "" {
			if pd.ParticleSystem = b.sc.ParticleSystem(d.ParticleSystem); pd.ParticleSystem == nil {
				return fmt.Errorf("point density '%s': unknown particle system '%s'", d.Name, d.ParticleSystem)
			}
		}
		if d.Object != "" {
			obj, err := b.object(d.Object)
			if err != nil {
				return fmt.Errorf("point density '%s': %w", d.Name, err)
			}
			pd.Object = obj
		}
		return nil
	})
	return pd, nil
}

func (b *sceneBuilder) addMaterial(d *materialDesc) error {
	var err error
	mat := scene.NewMaterial(d.Name)
	set(&mat.Col, d.Color)
	set(&mat.SpecCol, d.SpecColor)
	set(&mat.MirCol, d.MirColor)
	set(&mat.Alpha, d.Alpha)
	set(&mat.Ref, d.Ref)
	set(&mat.Spec, d.Spec)
	set(&mat.Emit, d.Emit)
	set(&mat.Amb, d.Amb)
	set(&mat.RayMirror, d.RayMirror)
	set(&mat.Hard, d.Hard)
	mat.PassIndex = d.PassIndex

	if d.SpecShader != "" {
		if mat.SpecShader, err = lookup("spec shader", d.SpecShader, specShaders); err != nil {
			return err
		}
	}
	if mat.Mode, err = flags("material mode", d.Modes, materialModes); err != nil {
		return err
	}

	if h := d.Halo; h != nil {
		if mat.HaloMode, err = flags("halo flag", h.Flags, haloFlags); err != nil {
			return err
		}
		mat.Mode |= scene.ModeHalo
		set(&mat.HaloSize, h.Size)
		set(&mat.HaloAdd, h.Add)
		set(&mat.HaloHard, h.Hard)
		set(&mat.FlareSize, h.FlareSize)
		set(&mat.SubSize, h.SubSize)
		set(&mat.FlareBoost, h.FlareBoost)
		set(&mat.FlareC, h.Flares)
		set(&mat.StarC, h.Stars)
		set(&mat.LineC, h.Lines)
		set(&mat.RingC, h.Rings)
		set(&mat.Seed1, h.Seed)
		set(&mat.Seed2, h.FlareSeed)
	}

	for index := range d.Textures {
		slot, err := b.textureSlot(&d.Textures[index])
		if err != nil {
			return fmt.Errorf("texture slot %d: %w", index, err)
		}
		mat.AddTexture(slot)
	}
	return b.sc.AddMaterial(mat)
}

func (b *sceneBuilder) textureSlot(d *slotDesc) (*scene.TextureSlot, error) {
	tex := b.sc.Texture(d.Texture)
	if tex == nil {
		return nil, fmt.Errorf("unknown texture '%s'", d.Texture)
	}

	texco := scene.TexCoOrco
	mapTo := scene.MapCol
	var err error
	if d.TexCo != "" {
		if texco, err = lookup("texture coordinate", d.TexCo, texCoords); err != nil {
			return nil, err
		}
	}
	if len(d.MapTo) != 0 {
		if mapTo, err = flags("map channel", d.MapTo, mapChannels); err != nil {
			return nil, err
		}
	}

	slot := scene.NewTextureSlot(tex, texco, mapTo)
	slot.UVName = d.UVLayer
	if slot.MapToNeg, err = flags("map channel", d.MapToNeg, mapChannels); err != nil {
		return nil, err
	}
	if d.Blend != "" {
		if slot.Blend, err = lookup("blend type", d.Blend, blendTypes); err != nil {
			return nil, err
		}
	}
	set(&slot.Ofs, d.Offset)
	set(&slot.Size, d.Size)
	set(&slot.Col, d.Color)
	set(&slot.ColFac, d.ColFac)
	set(&slot.VarFac, d.VarFac)
	set(&slot.NorFac, d.NorFac)
	set(&slot.DefVar, d.DefVar)

	if d.Object != "" {
		b.fixups = append(b.fixups, func() error {
			obj, err := b.object(d.Object)
			if err != nil {
				return fmt.Errorf("texture slot '%s': %w", d.Texture, err)
			}
			slot.Object = obj
			return nil
		})
	}
	return slot, nil
}

// Load the meshes of an object entry. Obj files with several meshes
// produce one object per mesh named "<name>.<mesh>".
func (b *sceneBuilder) addObjects(d *objectDesc) error {
	if d.Mesh == "" {
		return fmt.Errorf("no mesh specified")
	}
	templates, err := b.loadMesh(d.Mesh)
	if err != nil {
		return err
	}

	var overrides []*scene.Material
	for _, name := range d.Materials {
		mat, err := b.material(name)
		if err != nil {
			return err
		}
		overrides = append(overrides, mat)
	}

	var bakeImage *scene.Image
	if d.BakeImage != "" {
		if bakeImage, err = b.image(d.BakeImage); err != nil {
			return err
		}
	}

	for _, tpl := range templates {
		name := d.Name
		if len(templates) > 1 {
			name = d.Name + "." + tpl.Name
		}

		obj := *tpl
		obj.Name = name
		if len(overrides) != 0 {
			obj.Materials = overrides
		}
		set(&obj.Position, d.Position)
		set(&obj.Scale, d.Scale)
		if d.Rotation != nil {
			obj.Rotation = d.Rotation.Mul(math32.Pi / 180)
		}
		set(&obj.Lay, d.Lay)
		obj.PassIndex = d.PassIndex
		obj.Selected = d.Selected
		obj.Update()

		if bakeImage != nil {
			// Baking into a shared mesh would retarget every instance.
			mesh := *obj.Mesh
			mesh.Faces = append([]scene.Face(nil), mesh.Faces...)
			for fi := range mesh.Faces {
				mesh.Faces[fi].Image = bakeImage
			}
			obj.Mesh = &mesh
		}

		if err = b.sc.AddObject(&obj); err != nil {
			return err
		}
	}
	return nil
}

// Parse an obj file once and reuse its meshes for later references.
func (b *sceneBuilder) loadMesh(pathToMesh string) ([]*scene.Object, error) {
	res, err := asset.NewResource(pathToMesh, b.res)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	if objects, ok := b.meshes[res.Path()]; ok {
		return objects, nil
	}

	objects, err := newWavefrontReader(b.sc, b.images).Read(res)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("mesh '%s' contains no polygons", res.Path())
	}
	b.meshes[res.Path()] = objects
	return objects, nil
}

func (b *sceneBuilder) addParticles(d *particleDesc) error {
	psys := &scene.ParticleSystem{
		Name:       d.Name,
		Points:     d.Points,
		Velocities: d.Velocities,
		Lay:        1,
	}
	set(&psys.Lay, d.Lay)

	if len(psys.Velocities) != 0 && len(psys.Velocities) != len(psys.Points) {
		return fmt.Errorf("got %d velocities for %d points", len(psys.Velocities), len(psys.Points))
	}

	if d.Object != "" {
		obj, err := b.object(d.Object)
		if err != nil {
			return err
		}
		psys.Object = obj

		// Emit a particle from every vertex when no points are listed.
		if len(psys.Points) == 0 {
			psys.Points = worldVerts(obj)
		}
	}
	if d.Material != "" {
		mat, err := b.material(d.Material)
		if err != nil {
			return err
		}
		psys.Material = mat
	}
	return b.sc.AddParticleSystem(psys)
}

func (b *sceneBuilder) addLamp(d *lampDesc) error {
	lampType := scene.LampPoint
	var err error
	if d.Type != "" {
		if lampType, err = lookup("lamp type", d.Type, lampTypes); err != nil {
			return err
		}
	}

	lamp := scene.NewLamp(d.Name, lampType)
	set(&lamp.Position, d.Position)
	set(&lamp.Col, d.Color)
	set(&lamp.Energy, d.Energy)
	set(&lamp.Dist, d.Dist)
	set(&lamp.SpotBlend, d.SpotBlend)
	set(&lamp.Lay, d.Lay)
	if d.Direction != nil {
		lamp.Direction = d.Direction.Normalize()
	}
	if d.SpotSize != nil {
		lamp.SpotSize = *d.SpotSize * math32.Pi / 180
	}
	if d.Falloff != "" {
		if lamp.Falloff, err = lookup("lamp falloff", d.Falloff, lampFalloffs); err != nil {
			return err
		}
	}
	lamp.Shadow = d.Shadow
	lamp.NoDiffuse = d.NoDiffuse
	lamp.NoSpecular = d.NoSpecular
	lamp.LayerOnly = d.LayerOnly
	return b.sc.AddLamp(lamp)
}

func (b *sceneBuilder) addLayer(d *layerDesc) error {
	layer := scene.NewRenderLayer(d.Name, d.Lay)
	if len(d.Flags) != 0 {
		var err error
		if layer.Flags, err = flags("layer flag", d.Flags, layerFlags); err != nil {
			return err
		}
	}
	if len(d.Passes) != 0 {
		layer.Passes = scene.PassCombined
		for _, name := range d.Passes {
			pass, ok := scene.ParsePass(name)
			if !ok {
				return fmt.Errorf("unknown pass '%s'", name)
			}
			layer.Passes |= pass
		}
	}
	return b.sc.AddLayer(layer)
}

func (b *sceneBuilder) setWorld(d *worldDesc) error {
	wo := b.sc.World
	set(&wo.Horizon, d.Horizon)
	set(&wo.Zenith, d.Zenith)
	set(&wo.Ambient, d.Ambient)

	var err error
	if wo.Sky, err = flags("sky flag", d.Sky, skyFlags); err != nil {
		return err
	}
	if m := d.Mist; m != nil {
		wo.Mist = true
		if m.Type != "" {
			if wo.MistType, err = lookup("mist type", m.Type, mistTypes); err != nil {
				return err
			}
		}
		set(&wo.MistStart, m.Start)
		set(&wo.MistDepth, m.Depth)
		set(&wo.MistHeight, m.Height)
		set(&wo.MistIntensity, m.Intensity)
	}
	if ao := d.AO; ao != nil {
		wo.AO = true
		set(&wo.AOEnergy, ao.Energy)
		set(&wo.AODist, ao.Dist)
		set(&wo.AOSamples, ao.Samples)
	}
	return nil
}

// Build the camera; scenes without a camera entry get a 45 degree camera
// looking down -Z from the origin.
func (b *sceneBuilder) camera(d *cameraDesc) (*scene.Camera, error) {
	cam := scene.NewCamera(math32.Pi / 4)
	if d != nil {
		var err error
		if d.Type != "" {
			if cam.Type, err = lookup("camera type", d.Type, cameraTypes); err != nil {
				return nil, err
			}
		}
		set(&cam.Position, d.Position)
		set(&cam.LookAt, d.LookAt)
		set(&cam.Up, d.Up)
		set(&cam.OrthoScale, d.OrthoScale)
		set(&cam.ClipStart, d.ClipStart)
		set(&cam.ClipEnd, d.ClipEnd)
		if d.FOV != nil {
			cam.FOV = *d.FOV * math32.Pi / 180
		}
		cam.Panorama = d.Panorama
	}
	cam.Update()
	return cam, cam.Validate()
}

// Vertices of an object in world space.
func worldVerts(obj *scene.Object) []types.Vec3 {
	out := make([]types.Vec3, len(obj.Mesh.Verts))
	for i, v := range obj.Mesh.Verts {
		out[i] = obj.ObMat.Mul4x1(v.Vec4(1)).Vec3()
	}
	return out
}
