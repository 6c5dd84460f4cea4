package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/scanline/asset"
	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/scene"
	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var logger = log.New("reader")

// A parsed scene file.
type File struct {
	Scene *scene.Scene

	// Settings stored next to the scene; empty for obj files.
	Render RenderSettings
	Bake   BakeSettings
}

// Read a scene from a local path or an http(s) url. Scene descriptions
// (.toml, .yaml, .yml) reference their meshes, images and material libs
// relative to their own location; .obj files are loaded as a scene of
// their own lit by a default sun lamp.
func ReadScene(sceneFile string) (*File, error) {
	res, err := asset.NewResource(sceneFile, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return Read(res)
}

// Read a scene from an opened resource.
func Read(res *asset.Resource) (*File, error) {
	start := time.Now()

	var (
		file *File
		err  error
	)
	switch res.Ext() {
	case ".obj":
		file, err = readWavefront(res)
	case ".toml", ".yaml", ".yml":
		file, err = readDescription(res)
	default:
		return nil, fmt.Errorf("reader: unsupported scene format '%s'", res.Ext())
	}
	if err != nil {
		return nil, err
	}

	logger.Noticef(`loaded scene "%s" in %d ms`, res.Path(), time.Since(start).Milliseconds())
	return file, nil
}

func readWavefront(res *asset.Resource) (*File, error) {
	sc := scene.NewScene()
	r := newWavefrontReader(sc, newImageCache())
	objects, err := r.Read(res)
	if err != nil {
		return nil, err
	}
	for _, obj := range objects {
		if err = sc.AddObject(obj); err != nil {
			return nil, err
		}
	}

	cam := r.camera
	if cam == nil {
		cam = scene.NewCamera(math32.Pi / 4)
	}
	cam.Update()
	if err = cam.Validate(); err != nil {
		return nil, err
	}
	sc.SetCamera(cam)

	sun := scene.NewLamp("sun", scene.LampSun)
	sun.Direction = cam.LookAt.Sub(cam.Position).Normalize()
	if err = sc.AddLamp(sun); err != nil {
		return nil, err
	}
	return &File{Scene: sc}, nil
}

func readDescription(res *asset.Resource) (*File, error) {
	data, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	var desc description
	switch res.Ext() {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&desc)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&desc); errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("reader: [%s] %w", res.Path(), err)
	}

	sc, err := newSceneBuilder(res).build(&desc)
	if err != nil {
		return nil, err
	}
	return &File{
		Scene:  sc,
		Render: desc.Render,
		Bake:   desc.Bake,
	}, nil
}
