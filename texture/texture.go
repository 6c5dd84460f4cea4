package texture

import "github.com/achilleasa/scanline/types"

// ResultType flags which outputs of a Result were populated by a lookup.
type ResultType uint8

const (
	// Only the intensity (Tin) is valid.
	Int ResultType = 0
	// Tr, Tg, Tb and Ta are valid.
	RGB ResultType = 1 << iota
	// Nor is valid.
	Nor
)

// A texture lookup request.
type Lookup struct {
	// Texture coordinate. Image textures expect coordinates in [-1, 1].
	Co types.Vec3

	// Screen space derivatives of Co. Only used when OSA is set.
	DxT, DyT types.Vec3

	// Use filtered lookups.
	OSA bool

	// The inverse view matrix of the camera that issued the lookup; used
	// by textures that need world space directions.
	ViewInv types.Mat4
}

// The result of a texture lookup.
type Result struct {
	Tin float32
	Tr  float32
	Tg  float32
	Tb  float32
	Ta  float32

	Nor types.Vec3

	// Set when Ta was read from the texture instead of being synthesized.
	TAlpha bool
}

// Reset all result fields.
func (r *Result) Reset() {
	*r = Result{}
}

// The Texture interface is implemented by all texture types that can be
// assigned to a material texture slot.
type Texture interface {
	// Get the texture name.
	Name() string

	// Sample the texture. Textures that cannot be sampled (missing data)
	// set Tin to zero and return Int.
	Sample(in *Lookup, res *Result) ResultType
}

// Environment is implemented by textures that sample the surroundings of
// the shaded point. When mapped to the mirror color they feed the material
// reflection color instead of blending into the mirror color.
type Environment interface {
	Texture
	IsEnvironment() bool
}

// Common texture settings.
type Base struct {
	TexName string

	Bright   float32
	Contrast float32

	// Per channel color factors.
	RFac, GFac, BFac float32
}

// Create a Base with neutral brightness and contrast.
func NewBase(name string) Base {
	return Base{
		TexName:  name,
		Bright:   1,
		Contrast: 1,
		RFac:     1,
		GFac:     1,
		BFac:     1,
	}
}

// Get the texture name.
func (b *Base) Name() string {
	return b.TexName
}

// Apply brightness/contrast to the intensity and clamp it to [0, 1].
func (b *Base) BriCont(res *Result) {
	res.Tin = (res.Tin-0.5)*b.Contrast + b.Bright - 0.5
	if res.Tin < 0 {
		res.Tin = 0
	} else if res.Tin > 1 {
		res.Tin = 1
	}
}

// Apply brightness/contrast and the color factors to the RGB output.
// Negative channels are clamped to zero.
func (b *Base) BriContRGB(res *Result) {
	res.Tr = b.RFac * ((res.Tr-0.5)*b.Contrast + b.Bright - 0.5)
	if res.Tr < 0 {
		res.Tr = 0
	}
	res.Tg = b.GFac * ((res.Tg-0.5)*b.Contrast + b.Bright - 0.5)
	if res.Tg < 0 {
		res.Tg = 0
	}
	res.Tb = b.BFac * ((res.Tb-0.5)*b.Contrast + b.Bright - 0.5)
	if res.Tb < 0 {
		res.Tb = 0
	}
}
