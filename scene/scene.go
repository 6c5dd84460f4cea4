package scene

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/scanline/texture"
	"github.com/olekukonko/tablewriter"
)

type Scene struct {
	Camera *Camera
	World  *World

	// Visible scene layers.
	Lay uint32

	Layers    []*RenderLayer
	Materials []*Material
	Textures  []texture.Texture
	Images    []*Image
	Objects   []*Object
	Lamps     []*Lamp
	Particles []*ParticleSystem
}

func NewScene() *Scene {
	return &Scene{
		World:     NewWorld(),
		Lay:       1,
		Layers:    make([]*RenderLayer, 0),
		Materials: make([]*Material, 0),
		Textures:  make([]texture.Texture, 0),
		Images:    make([]*Image, 0),
		Objects:   make([]*Object, 0),
		Lamps:     make([]*Lamp, 0),
		Particles: make([]*ParticleSystem, 0),
	}
}

// Attach a camera to the scene.
func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

// Add a render layer to the scene.
func (s *Scene) AddLayer(layer *RenderLayer) error {
	for _, l := range s.Layers {
		if l == layer {
			return fmt.Errorf("scene: render layer already added")
		}
		if l.Name == layer.Name {
			return fmt.Errorf("scene: duplicate render layer name '%s'", layer.Name)
		}
	}
	s.Layers = append(s.Layers, layer)
	return nil
}

// Add a material to the scene.
func (s *Scene) AddMaterial(material *Material) error {
	for _, mat := range s.Materials {
		if mat == material {
			return fmt.Errorf("scene: material already added")
		}
	}
	s.Materials = append(s.Materials, material)
	return nil
}

// Add a texture to the scene.
func (s *Scene) AddTexture(tex texture.Texture) error {
	for _, t := range s.Textures {
		if t == tex {
			return fmt.Errorf("scene: texture already added")
		}
	}
	s.Textures = append(s.Textures, tex)
	return nil
}

// Add an image to the scene.
func (s *Scene) AddImage(img *Image) error {
	for _, i := range s.Images {
		if i == img {
			return fmt.Errorf("scene: image already added")
		}
	}
	s.Images = append(s.Images, img)
	return nil
}

// Add an object to the scene.
func (s *Scene) AddObject(obj *Object) error {
	for _, o := range s.Objects {
		if o == obj {
			return fmt.Errorf("scene: object already added")
		}
	}
	if obj.Mesh == nil {
		return fmt.Errorf("scene: no mesh assigned to object '%s'", obj.Name)
	}
	if err := obj.Mesh.Validate(); err != nil {
		return err
	}
	for _, objMat := range obj.Materials {
		if !s.hasMaterial(objMat) {
			return fmt.Errorf("scene: object '%s' references unknown material; ensure that the material is added to the scene before adding the object", obj.Name)
		}
	}
	s.Objects = append(s.Objects, obj)
	return nil
}

// Add a lamp to the scene.
func (s *Scene) AddLamp(lamp *Lamp) error {
	for _, l := range s.Lamps {
		if l == lamp {
			return fmt.Errorf("scene: lamp already added")
		}
	}
	s.Lamps = append(s.Lamps, lamp)
	return nil
}

// Add a particle system to the scene.
func (s *Scene) AddParticleSystem(psys *ParticleSystem) error {
	for _, p := range s.Particles {
		if p == psys {
			return fmt.Errorf("scene: particle system already added")
		}
	}
	if psys.Material != nil && !s.hasMaterial(psys.Material) {
		return fmt.Errorf("scene: particle system '%s' references unknown material", psys.Name)
	}
	s.Particles = append(s.Particles, psys)
	return nil
}

func (s *Scene) hasMaterial(material *Material) bool {
	for _, mat := range s.Materials {
		if mat == material {
			return true
		}
	}
	return false
}

// Find an object by name.
func (s *Scene) Object(name string) *Object {
	for _, o := range s.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Find a particle system by name.
func (s *Scene) ParticleSystem(name string) *ParticleSystem {
	for _, p := range s.Particles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Find a material by name.
func (s *Scene) Material(name string) *Material {
	for _, m := range s.Materials {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Find a texture by name.
func (s *Scene) Texture(name string) texture.Texture {
	for _, t := range s.Textures {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// Build a tabular representation of scene statistics.
func (s *Scene) Stats() string {
	var verts, faces, quads, halos, points int
	for _, obj := range s.Objects {
		verts += len(obj.Mesh.Verts)
		for _, f := range obj.Mesh.Faces {
			faces++
			if f.IsQuad() {
				quads++
			}
		}
		for _, mat := range obj.Materials {
			if mat.IsHalo() {
				halos += len(obj.Mesh.Verts)
				break
			}
		}
	}
	for _, psys := range s.Particles {
		points += len(psys.Points)
		if psys.Material != nil {
			halos += len(psys.Points)
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count"})
	table.Append([]string{"Geometry", "---", fmt.Sprint(len(s.Objects))})
	table.Append([]string{"", "Vertices", fmt.Sprint(verts)})
	table.Append([]string{"", "Faces", fmt.Sprint(faces)})
	table.Append([]string{"", "Quads", fmt.Sprint(quads)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Halos/particles", "---", fmt.Sprint(len(s.Particles))})
	table.Append([]string{"", "Halos", fmt.Sprint(halos)})
	table.Append([]string{"", "Particles", fmt.Sprint(points)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Shading", "---", " "})
	table.Append([]string{"", "Materials", fmt.Sprint(len(s.Materials))})
	table.Append([]string{"", "Textures", fmt.Sprint(len(s.Textures))})
	table.Append([]string{"", "Images", fmt.Sprint(len(s.Images))})
	table.Append([]string{"", "Lamps", fmt.Sprint(len(s.Lamps))})
	table.Append([]string{"", "Render layers", fmt.Sprint(len(s.Layers))})
	table.Render()
	return buf.String()
}
