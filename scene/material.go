package scene

import (
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
)

// Material mode flags.
type MaterialMode uint32

const (
	// Output the material color without lighting.
	ModeShadeless MaterialMode = 1 << iota
	// Render faces through the transparent z-buffer.
	ModeTransp
	// Render mesh vertices as halos instead of faces.
	ModeHalo
	// Exclude the material from mist.
	ModeNoMist
	// Multiply lighting with the vertex colors.
	ModeVertexColLight
	// Replace the material color with the vertex colors.
	ModeVertexColPaint
	// Receive ray traced shadows.
	ModeShadow
	// Skip the view facing normal flip.
	ModeNoNormalFlip
)

// Halo flags.
type HaloMode uint32

const (
	HaloRings HaloMode = 1 << iota
	HaloLines
	HaloStar
	HaloXAlpha
	HaloFlare
	HaloSoft
	HaloOnlySky
	HaloShade
	HaloTex
	HaloVect
	HaloFlareCirc
)

type SpecShader uint8

const (
	SpecPhong SpecShader = iota
	SpecBlinn
	SpecCookTorr
)

// Texture coordinate sources.
type TexCo uint32

const (
	TexCoOrco TexCo = 1 << iota
	TexCoGlobal
	TexCoObject
	TexCoUV
	TexCoSticky
	TexCoStrand
	TexCoTangent
	TexCoStress
	TexCoRefl
	TexCoWindow
	TexCoNormal
	TexCoSpeed
	// Compute screen space derivatives for filtered lookups.
	TexCoOSA
)

// Material channels a texture slot can affect.
type MapTo uint32

const (
	MapCol MapTo = 1 << iota
	MapColSpec
	MapColMir
	MapAlpha
	MapEmit
	MapRef
	MapSpec
	MapNorm
	MapAmb
)

// Channels mapped through texture_value_blend style scalar blending.
const mapVars = MapAlpha | MapEmit | MapRef | MapSpec | MapAmb

type BlendType uint8

const (
	BlendMix BlendType = iota
	BlendMul
	BlendAdd
	BlendSub
	BlendScreen
)

// A material texture slot.
type TextureSlot struct {
	Tex texture.Texture

	TexCo TexCo

	// UV layer name; empty selects the first layer.
	UVName string

	// Object whose space is used by TexCoObject.
	Object *Object

	MapTo    MapTo
	MapToNeg MapTo
	Blend    BlendType

	Ofs  types.Vec3
	Size types.Vec3

	// Color used by intensity-only textures.
	Col types.Vec3

	ColFac float32
	VarFac float32
	NorFac float32
	DefVar float32
}

// Create a texture slot with neutral mapping settings.
func NewTextureSlot(tex texture.Texture, texco TexCo, mapTo MapTo) *TextureSlot {
	return &TextureSlot{
		Tex:    tex,
		TexCo:  texco,
		MapTo:  mapTo,
		Size:   types.Vec3{1, 1, 1},
		Col:    types.Vec3{1, 0, 1},
		ColFac: 1,
		VarFac: 1,
		NorFac: 0.5,
		DefVar: 1,
	}
}

// Returns true if the slot affects any of the scalar material channels.
func (s *TextureSlot) MapsVars() bool {
	return s.MapTo&mapVars != 0
}

// Defines a scene material.
type Material struct {
	Name string

	Col     types.Vec3
	SpecCol types.Vec3
	MirCol  types.Vec3

	Alpha float32
	Ref   float32
	Spec  float32
	Emit  float32
	Amb   float32
	// Blend factor for env map mirror reflections.
	RayMirror float32
	Hard      int

	SpecShader SpecShader
	Mode       MaterialMode

	// Object pass index written to the index pass.
	PassIndex int

	// Halo settings.
	HaloMode   HaloMode
	HaloSize   float32
	HaloAdd    float32
	HaloHard   int
	FlareSize  float32
	SubSize    float32
	FlareBoost float32
	FlareC     int
	StarC      int
	LineC      int
	RingC      int
	Seed1      int
	Seed2      int

	Textures []*TextureSlot
}

// Create a material with the classic default settings.
func NewMaterial(name string) *Material {
	return &Material{
		Name:       name,
		Col:        types.Vec3{0.8, 0.8, 0.8},
		SpecCol:    types.Vec3{1, 1, 1},
		MirCol:     types.Vec3{1, 1, 1},
		Alpha:      1,
		Ref:        0.8,
		Spec:       0.5,
		Amb:        1,
		Hard:       50,
		HaloSize:   0.5,
		HaloHard:   50,
		FlareSize:  1,
		SubSize:    1,
		FlareBoost: 1,
		FlareC:     6,
		StarC:      4,
		LineC:      12,
		RingC:      4,
	}
}

// Get the union of the texture coordinate sources used by the material
// texture slots.
func (m *Material) TexCo() TexCo {
	var texco TexCo
	for _, slot := range m.Textures {
		if slot == nil || slot.Tex == nil {
			continue
		}
		texco |= slot.TexCo
	}
	if m.Mode&(ModeVertexColLight|ModeVertexColPaint) != 0 {
		texco |= TexCoUV
	}
	return texco
}

// Append a texture slot.
func (m *Material) AddTexture(slot *TextureSlot) {
	m.Textures = append(m.Textures, slot)
}

// Returns true if the material renders through the transparent z-buffer.
func (m *Material) IsTransparent() bool {
	return m.Mode&ModeTransp != 0
}

// Returns true if the material renders as halos.
func (m *Material) IsHalo() bool {
	return m.Mode&ModeHalo != 0
}
