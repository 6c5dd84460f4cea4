package scene

import (
	"fmt"

	"github.com/achilleasa/scanline/types"
)

type CameraType uint8

const (
	PerspectiveCamera CameraType = iota
	OrthoCamera
)

// The camera type controls the scene camera.
type Camera struct {
	Type CameraType

	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	ViewMat types.Mat4

	// Horizontal camera FOV in radians (perspective cameras).
	FOV float32

	// Width of the visible region in view units (ortho cameras).
	OrthoScale float32

	ClipStart float32
	ClipEnd   float32

	// Render the frame as a cylindrical panorama. Each horizontal part
	// of the frame is rendered with its own rotated projection.
	Panorama bool
}

func NewCamera(fov float32) *Camera {
	return &Camera{
		ViewMat:    types.Ident4(),
		Position:   types.Vec3{0, 0, 0},
		LookAt:     types.Vec3{0, 0, -1},
		Up:         types.Vec3{0, 1, 0},
		FOV:        fov,
		OrthoScale: 7.3,
		ClipStart:  0.1,
		ClipEnd:    100,
	}
}

// Update camera view matrix.
func (c *Camera) Update() {
	c.ViewMat = types.LookAtV(c.Position, c.LookAt, c.Up)
}

// Get the inverse of the view matrix (view to world transform).
func (c *Camera) ViewInv() types.Mat4 {
	return c.ViewMat.Inv()
}

// Validate camera settings.
func (c *Camera) Validate() error {
	if c.ClipStart <= 0 || c.ClipEnd <= c.ClipStart {
		return fmt.Errorf("scene: invalid camera clip range [%f, %f]", c.ClipStart, c.ClipEnd)
	}
	switch c.Type {
	case PerspectiveCamera:
		if c.FOV <= 0 {
			return fmt.Errorf("scene: invalid camera FOV %f", c.FOV)
		}
	case OrthoCamera:
		if c.OrthoScale <= 0 {
			return fmt.Errorf("scene: invalid camera ortho scale %f", c.OrthoScale)
		}
		if c.Panorama {
			return fmt.Errorf("scene: panorama rendering requires a perspective camera")
		}
	default:
		return fmt.Errorf("scene: unknown camera type %d", c.Type)
	}
	return nil
}
