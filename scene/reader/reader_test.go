package reader

import (
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/bake"
	"github.com/achilleasa/scanline/envmap"
	"github.com/achilleasa/scanline/pointdensity"
	"github.com/achilleasa/scanline/renderer"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

const quadObj = `
o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

const tomlScene = `
lay = 3

[render]
width = 32
height = 16
osa = 5
alpha_mode = "premul"

[bake]
mode = "normals"
margin = 4

[camera]
position = [0.0, 0.0, 5.0]
look_at = [0.0, 0.0, 0.0]
fov = 60.0

[world]
horizon = [0.1, 0.2, 0.3]
sky = ["blend"]

[world.ao]
samples = 8

[[layers]]
name = "main"
lay = 1
passes = ["z", "normal"]

[[lamps]]
name = "key"
type = "spot"
position = [0.0, 5.0, 0.0]
direction = [0.0, -2.0, 0.0]
spot_size = 90.0
shadow = true

[[images]]
name = "target"
width = 8
height = 8
float = true

[[images]]
name = "wood"
path = "wood.png"

[[textures]]
name = "wood"
type = "image"
image = "wood"
extend = "clip"
flags = ["use_alpha"]

[[textures]]
name = "mirror"
type = "envmap"
object = "probe"
cube_res = 32

[[textures]]
name = "cloud"
type = "pointdensity"
point_source = "particles"
particle_system = "dust"
radius = 0.5
falloff = "smooth"

[[materials]]
name = "red"
color = [1.0, 0.0, 0.0]
modes = ["shadeless"]

[[materials.textures]]
texture = "wood"
texco = "uv"
map_to = ["col", "alpha"]

[[materials]]
name = "glow"

[materials.halo]
flags = ["star", "flare"]
size = 0.2

[[objects]]
name = "probe"
mesh = "quad.obj"
position = [1.0, 2.0, 3.0]
rotation = [0.0, 0.0, 90.0]
materials = ["red"]
selected = true
bake_image = "target"

[[particles]]
name = "dust"
object = "probe"
material = "glow"
`

const yamlScene = `
render:
  width: 10
  raytracing: false
objects:
  - name: first
    mesh: quad.obj
  - name: second
    mesh: quad.obj
    lay: 2
lamps:
  - name: sun
    type: sun
`

// Serve a set of files under /scenes/.
func sceneServer(files map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/scenes/")
		if name == "wood.png" {
			png.Encode(w, image.NewRGBA(image.Rect(0, 0, 4, 4)))
			return
		}
		payload, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(payload))
	}))
}

func TestReadTomlScene(t *testing.T) {
	server := sceneServer(map[string]string{"scene.toml": tomlScene, "quad.obj": quadObj})
	defer server.Close()

	file, err := ReadScene(server.URL + "/scenes/scene.toml")
	if err != nil {
		t.Fatal(err)
	}
	sc := file.Scene
	if sc.Lay != 3 {
		t.Fatalf("expected scene lay to be 3; got %d", sc.Lay)
	}

	opts := renderer.DefaultOptions()
	if err = file.Render.Apply(&opts); err != nil {
		t.Fatal(err)
	}
	if opts.FrameW != 32 || opts.FrameH != 16 || opts.OSA != 5 || opts.AlphaMode != renderer.AlphaPremul {
		t.Fatalf("expected render settings to be applied; got %dx%d osa %d alpha %s", opts.FrameW, opts.FrameH, opts.OSA, opts.AlphaMode)
	}
	if opts.PartW != renderer.DefaultOptions().PartW {
		t.Fatalf("expected unset settings to keep their defaults; got part width %d", opts.PartW)
	}

	bakeOpts := bake.DefaultOptions()
	if err = file.Bake.Apply(&bakeOpts); err != nil {
		t.Fatal(err)
	}
	if bakeOpts.Mode != bake.ModeNormals || bakeOpts.Margin != 4 {
		t.Fatalf("expected bake settings to be applied; got mode %s margin %d", bakeOpts.Mode, bakeOpts.Margin)
	}

	if fov := sc.Camera.FOV; math32.Abs(fov-math32.Pi/3) > 1e-5 {
		t.Fatalf("expected camera fov to be pi/3; got %f", fov)
	}
	if !reflect.DeepEqual(sc.Camera.Position, types.Vec3{0, 0, 5}) {
		t.Fatalf("expected camera position to be (0, 0, 5); got %v", sc.Camera.Position)
	}

	wo := sc.World
	if wo.Horizon != (types.Vec3{0.1, 0.2, 0.3}) || wo.Sky != scene.SkyBlend || !wo.AO || wo.AOSamples != 8 {
		t.Fatalf("expected world settings to be applied; got %+v", *wo)
	}

	if len(sc.Layers) != 1 || sc.Layers[0].Passes != scene.PassCombined|scene.PassZ|scene.PassNormal {
		t.Fatal("expected render layer 'main' with combined, z and normal passes")
	}

	lamp := sc.Lamps[0]
	if lamp.Type != scene.LampSpot || !lamp.Shadow || lamp.Direction != (types.Vec3{0, -1, 0}) {
		t.Fatalf("expected a shadow casting spot lamp pointing down; got %+v", *lamp)
	}
	if math32.Abs(lamp.SpotSize-math32.Pi/2) > 1e-5 {
		t.Fatalf("expected spot size to be converted to radians; got %f", lamp.SpotSize)
	}

	if len(sc.Images) != 2 {
		t.Fatalf("expected 2 images; got %d", len(sc.Images))
	}
	target := sc.Images[0]
	if target.Buf.Width != 8 || target.Buf.Height != 8 || target.Buf.Format() != imbuf.Rgba32F {
		t.Fatal("expected a blank 8x8 float image named 'target'")
	}

	probe := sc.Object("probe")
	if probe == nil {
		t.Fatal("expected object 'probe' to be loaded")
	}
	if probe.Position != (types.Vec3{1, 2, 3}) || math32.Abs(probe.Rotation[2]-math32.Pi/2) > 1e-5 {
		t.Fatalf("expected probe transform to be applied; got position %v rotation %v", probe.Position, probe.Rotation)
	}
	if !probe.Selected || probe.Mesh.Faces[0].Image != target {
		t.Fatal("expected probe to be selected and bake into 'target'")
	}

	red := sc.Material("red")
	if len(probe.Materials) != 1 || probe.Materials[0] != red {
		t.Fatal("expected probe materials to be overridden by 'red'")
	}
	if red.Mode != scene.ModeShadeless || len(red.Textures) != 1 {
		t.Fatalf("expected shadeless material with 1 texture slot; got mode %d and %d slots", red.Mode, len(red.Textures))
	}
	if slot := red.Textures[0]; slot.TexCo != scene.TexCoUV || slot.MapTo != scene.MapCol|scene.MapAlpha {
		t.Fatalf("expected slot to map uv coords to color and alpha; got texco %d mapTo %d", slot.TexCo, slot.MapTo)
	}

	glow := sc.Material("glow")
	if !glow.IsHalo() || glow.HaloMode != scene.HaloStar|scene.HaloFlare || glow.HaloSize != 0.2 {
		t.Fatal("expected 'glow' to be a star/flare halo material of size 0.2")
	}

	wood, ok := sc.Texture("wood").(*texture.Image)
	if !ok || wood.Extend != texture.ExtendClip || wood.Flags != texture.ImageUseAlpha || wood.Buf.Width != 4 {
		t.Fatal("expected 'wood' to be a clipped 4x4 image texture using alpha")
	}

	mirror, ok := sc.Texture("mirror").(*envmap.EnvMap)
	if !ok || mirror.Object != probe || mirror.CubeRes != 32 {
		t.Fatal("expected 'mirror' to be an env map probing object 'probe'")
	}

	dust := sc.ParticleSystem("dust")
	if dust == nil || dust.Object != probe || dust.Material != glow || len(dust.Points) != 4 {
		t.Fatal("expected particle system 'dust' to emit one halo per probe vertex")
	}
	cloud, ok := sc.Texture("cloud").(*pointdensity.PointDensity)
	if !ok || cloud.ParticleSystem != dust || cloud.Falloff != pointdensity.Smooth || cloud.Radius != 0.5 {
		t.Fatal("expected 'cloud' to be a point density texture over particle system 'dust'")
	}
}

func TestReadYamlScene(t *testing.T) {
	server := sceneServer(map[string]string{"scene.yaml": yamlScene, "quad.obj": quadObj})
	defer server.Close()

	file, err := ReadScene(server.URL + "/scenes/scene.yaml")
	if err != nil {
		t.Fatal(err)
	}
	sc := file.Scene

	if file.Render.Width == nil || *file.Render.Width != 10 {
		t.Fatal("expected render width to be 10")
	}
	if file.Render.RayTracing == nil || *file.Render.RayTracing {
		t.Fatal("expected raytracing to be disabled")
	}

	if len(sc.Objects) != 2 {
		t.Fatalf("expected 2 objects; got %d", len(sc.Objects))
	}
	if sc.Objects[0].Mesh != sc.Objects[1].Mesh {
		t.Fatal("expected objects referencing the same obj file to share its mesh")
	}
	if sc.Objects[1].Lay != 2 {
		t.Fatalf("expected object 'second' to be on layer 2; got %d", sc.Objects[1].Lay)
	}
	if len(sc.Materials) != 1 {
		t.Fatalf("expected the default obj material to be registered once; got %d materials", len(sc.Materials))
	}
	if sc.Camera == nil {
		t.Fatal("expected a default camera")
	}
	if len(sc.Lamps) != 1 || sc.Lamps[0].Type != scene.LampSun {
		t.Fatal("expected a sun lamp")
	}
}

func TestReadWavefrontScene(t *testing.T) {
	server := sceneServer(map[string]string{"quad.obj": quadObj + "camera_eye 0 0 4\n"})
	defer server.Close()

	file, err := ReadScene(server.URL + "/scenes/quad.obj")
	if err != nil {
		t.Fatal(err)
	}
	sc := file.Scene
	if len(sc.Objects) != 1 || sc.Objects[0].Name != "quad" {
		t.Fatal("expected obj scene to contain object 'quad'")
	}
	if sc.Camera.Position != (types.Vec3{0, 0, 4}) {
		t.Fatalf("expected camera eye to be (0, 0, 4); got %v", sc.Camera.Position)
	}
	if len(sc.Lamps) != 1 || sc.Lamps[0].Direction != (types.Vec3{0, 0, -1}) {
		t.Fatal("expected a default sun lamp shining along the view direction")
	}
}

func TestReadSceneErrors(t *testing.T) {
	type spec struct {
		file     string
		payload  string
		expError string
	}
	specs := []spec{
		{"scene.blend", "", "reader: unsupported scene format '.blend'"},
		{"scene.toml", "[render]\nwidht = 10\n", "strict mode"},
		{"scene.yaml", "render:\n  widht: 10\n", "field widht not found"},
		{"scene.yaml", "textures:\n  - name: foo\n    type: marble\n", "unknown texture type 'marble'"},
		{"scene.yaml", "objects:\n  - name: foo\n    mesh: quad.obj\n    materials: [nope]\n", "unknown material 'nope'"},
		{"scene.yaml", "textures:\n  - name: env\n    type: envmap\n    object: nope\n", "env map 'env': unknown object 'nope'"},
		{"scene.yaml", "layers:\n  - name: l\n    passes: [beauty]\n", "unknown pass 'beauty'"},
		{"scene.yaml", "materials:\n  - name: m\n    modes: [glossy]\n", "unknown material mode 'glossy'"},
		{"scene.yaml", "camera:\n  fov: 0\n", "invalid camera FOV"},
		{"scene.yaml", "objects:\n  - name: foo\n    mesh: missing.obj\n", "status 404"},
	}

	for idx, s := range specs {
		server := sceneServer(map[string]string{s.file: s.payload, "quad.obj": quadObj})
		_, err := ReadScene(server.URL + "/scenes/" + s.file)
		server.Close()
		if err == nil || !strings.Contains(err.Error(), s.expError) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", idx, s.expError, err)
		}
	}
}

func TestEmptyDescription(t *testing.T) {
	server := sceneServer(map[string]string{"empty.yaml": ""})
	defer server.Close()

	file, err := ReadScene(server.URL + "/scenes/empty.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Scene.Objects) != 0 || file.Scene.Camera == nil {
		t.Fatal("expected an empty scene with a default camera")
	}
}
