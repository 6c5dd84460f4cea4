package renderer

import (
	"fmt"
	"runtime"

	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/shade"
	"github.com/achilleasa/scanline/types"
	"github.com/klauspost/cpuid/v2"
)

// AlphaMode controls how the background is stored in the combined pass.
type AlphaMode uint8

const (
	// Fill the background with the sky color; alpha is 1 everywhere.
	AlphaSky AlphaMode = iota
	// Leave the background empty; colors stay premultiplied.
	AlphaPremul
	// Leave the background empty and store colors without alpha.
	AlphaKey
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaPremul:
		return "premul"
	case AlphaKey:
		return "key"
	}
	return "sky"
}

// Parse an alpha mode name.
func ParseAlphaMode(name string) (AlphaMode, bool) {
	for _, m := range []AlphaMode{AlphaSky, AlphaPremul, AlphaKey} {
		if m.String() == name {
			return m, true
		}
	}
	return AlphaSky, false
}

type Options struct {
	// Frame dims.
	FrameW int
	FrameH int

	// Part dims. Parts are the unit of work handed to the render workers.
	PartW int
	PartH int

	// Oversample count; one of raster.OSALevels. 0 and 1 disable OSA.
	OSA int

	// Number of render workers.
	Threads int

	AlphaMode AlphaMode

	// Z-buffer outline settings. EdgeIntensity is in [0, 255].
	Edge          bool
	EdgeIntensity int
	EdgeColor     types.Vec3

	// Feature toggles applied on top of the render layer flags.
	// RayTracing enables ray shadows and ambient occlusion.
	RayTracing  bool
	EnvMaps     bool
	Halos       bool
	Transparent bool

	// Shading strategies overriding the built-in lamp loop per material.
	Shaders map[*scene.Material]shade.Strategy

	// Max pixel struct arena blocks per part; 0 means unlimited.
	MaxArenaBlocks int

	// Polled by the render loops; returning true interrupts the render.
	TestBreak func() bool

	// Receives human readable progress messages.
	Stats func(info string)
}

// Get the default render options.
func DefaultOptions() Options {
	return Options{
		FrameW:        512,
		FrameH:        512,
		PartW:         64,
		PartH:         64,
		OSA:           8,
		Threads:       DefaultThreads(),
		AlphaMode:     AlphaSky,
		EdgeIntensity: 50,
		RayTracing:    true,
		EnvMaps:       true,
		Halos:         true,
		Transparent:   true,
	}
}

// Get the number of logical cores.
func DefaultThreads() int {
	if cores := cpuid.CPU.LogicalCores; cores > 0 {
		return cores
	}
	return runtime.NumCPU()
}

// Check the options for consistency.
func (o *Options) Validate() error {
	if o.FrameW <= 0 || o.FrameH <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidOptions, o.FrameW, o.FrameH)
	}
	if o.PartW <= 0 || o.PartH <= 0 {
		return fmt.Errorf("%w: part size %dx%d", ErrInvalidOptions, o.PartW, o.PartH)
	}
	if o.OSA > 1 && !raster.ValidOSA(o.OSA) {
		return fmt.Errorf("%w: unsupported oversample count %d; supported values are %v", ErrInvalidOptions, o.OSA, raster.OSALevels)
	}
	if o.OSA < 0 {
		return fmt.Errorf("%w: negative oversample count", ErrInvalidOptions)
	}
	if o.EdgeIntensity < 0 || o.EdgeIntensity > 255 {
		return fmt.Errorf("%w: edge intensity %d not in [0, 255]", ErrInvalidOptions, o.EdgeIntensity)
	}
	if o.MaxArenaBlocks < 0 {
		return fmt.Errorf("%w: negative arena block cap", ErrInvalidOptions)
	}
	return nil
}

// Get the oversample count used by the z-buffer; 0 when OSA is off.
func (o *Options) osa() int {
	if o.OSA <= 1 {
		return 0
	}
	return o.OSA
}
