package scene

import "github.com/achilleasa/scanline/types"

// Sky flags.
type SkyFlag uint8

const (
	// Blend between the horizon and zenith colors.
	SkyBlend SkyFlag = 1 << iota
	// Use the world up vector for the blend factor.
	SkyReal
	// Blend over the screen instead of the view direction.
	SkyPaper
)

type MistType uint8

const (
	MistQuadratic MistType = iota
	MistLinear
	MistSqrt
)

// World settings shared by all shading samples.
type World struct {
	Horizon types.Vec3
	Zenith  types.Vec3
	Ambient types.Vec3

	Sky SkyFlag

	Mist          bool
	MistType      MistType
	MistStart     float32
	MistDepth     float32
	MistHeight    float32
	MistIntensity float32

	// Ambient occlusion.
	AO        bool
	AOEnergy  float32
	AODist    float32
	AOSamples int
}

// Create a world with a dark grey horizon.
func NewWorld() *World {
	return &World{
		Horizon:   types.Vec3{0.05, 0.05, 0.05},
		Zenith:    types.Vec3{0.01, 0.01, 0.01},
		MistDepth: 25,
		AOEnergy:  1,
		AODist:    10,
		AOSamples: 5,
	}
}
