package scene

import (
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

type LampType uint8

const (
	LampPoint LampType = iota
	LampSun
	LampSpot
	LampHemi
)

type Falloff uint8

const (
	FalloffInvLinear Falloff = iota
	FalloffInvSquare
	FalloffConstant
)

// A scene lamp. Position and Direction are in world space.
type Lamp struct {
	Name string
	Type LampType

	Position  types.Vec3
	Direction types.Vec3

	Col    types.Vec3
	Energy float32

	// Falloff distance.
	Dist    float32
	Falloff Falloff

	// Full spot cone angle in radians and its soft edge fraction.
	SpotSize  float32
	SpotBlend float32

	// Cast ray traced shadows.
	Shadow bool

	NoDiffuse  bool
	NoSpecular bool

	// Only light objects sharing a layer with the lamp when set.
	LayerOnly bool
	Lay       uint32
}

// Create a white point lamp.
func NewLamp(name string, lampType LampType) *Lamp {
	return &Lamp{
		Name:      name,
		Type:      lampType,
		Direction: types.Vec3{0, 0, -1},
		Col:       types.Vec3{1, 1, 1},
		Energy:    1,
		Dist:      20,
		SpotSize:  math32.Pi / 4,
		SpotBlend: 0.15,
		Lay:       1,
	}
}
