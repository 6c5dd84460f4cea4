package bake

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

var (
	ErrNothingToBake = errors.New("bake: no selected faces with an image and a uv layer")
	ErrInterrupted   = errors.New("bake: interrupted")
)

// Mode selects what gets written into the target images.
type Mode uint8

const (
	// The fully lit surface color.
	ModeAll Mode = iota
	// Shading normals encoded as 0.5*n + 0.5.
	ModeNormals
	// The textured material color without lighting.
	ModeTextures
	// Ambient occlusion.
	ModeAO
)

var modeNames = []string{"all", "normals", "textures", "ao"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Parse a bake mode name.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("bake: unknown mode %q; supported modes: %s", name, strings.Join(modeNames, ", "))
}

// NormalSpace selects the frame normals are expressed in.
type NormalSpace uint8

const (
	SpaceCamera NormalSpace = iota
	SpaceWorld
	SpaceObject
	SpaceTangent
)

var spaceNames = []string{"camera", "world", "object", "tangent"}

func (s NormalSpace) String() string {
	if int(s) < len(spaceNames) {
		return spaceNames[s]
	}
	return "unknown"
}

// Parse a normal space name.
func ParseNormalSpace(name string) (NormalSpace, error) {
	for i, n := range spaceNames {
		if strings.EqualFold(n, name) {
			return NormalSpace(i), nil
		}
	}
	return 0, fmt.Errorf("bake: unknown normal space %q; supported spaces: %s", name, strings.Join(spaceNames, ", "))
}

type Options struct {
	Mode        Mode
	NormalSpace NormalSpace

	// Number of FilterExtend passes applied to every target image.
	Margin int

	Threads int

	// Clear target images the first time a face writes to them.
	Clear bool

	// Optional cancellation poll.
	TestBreak func() bool
}

func DefaultOptions() Options {
	threads := cpuid.CPU.LogicalCores
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return Options{
		Mode:        ModeAll,
		NormalSpace: SpaceTangent,
		Margin:      2,
		Threads:     threads,
		Clear:       true,
	}
}

// Get the color target images are cleared to.
func (o *Options) clearColor() [4]float32 {
	if o.Mode == ModeNormals {
		return [4]float32{0.5, 0.5, 1, 0}
	}
	return [4]float32{}
}
