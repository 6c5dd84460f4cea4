package view

import (
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

// Depth values are stored as signed 31-bit integers scaled by this value.
const MaxZ = 0x7FFFFFFF

// A viewplane rectangle located at the near clip plane.
type Rect struct {
	XMin, XMax float32
	YMin, YMax float32
}

// Projection holds the camera window setup: the viewplane, the window
// matrix and the per pixel view vector deltas. A Projection is immutable
// once created; panorama parts get their own copy via PanoColumn.
type Projection struct {
	WinX, WinY int

	Ortho bool

	ViewPlane Rect
	WinMat    types.Mat4

	ClipStart float32
	ClipEnd   float32

	// Size of one pixel at the near plane.
	PixSize float32
	// View vector delta per pixel in x and y.
	ViewDx float32
	ViewDy float32
	// Pixel aspect ratio correction.
	Ycor float32

	// Panorama column state.
	Pano    bool
	PanoDxp float32
	PanoDxv float32
	PanoCo  float32
	PanoSi  float32
}

// Create the projection for a camera rendering a winx x winy frame.
func NewProjection(cam *scene.Camera, winx, winy int) *Projection {
	p := &Projection{
		WinX:      winx,
		WinY:      winy,
		Ortho:     cam.Type == scene.OrthoCamera,
		ClipStart: cam.ClipStart,
		ClipEnd:   cam.ClipEnd,
		Ycor:      1,
		PanoCo:    1,
	}

	if p.Ortho {
		p.PixSize = cam.OrthoScale / float32(max(winx, winy))
	} else {
		p.PixSize = 2 * cam.ClipStart * math32.Tan(0.5*cam.FOV) / float32(winx)
	}

	p.ViewPlane = Rect{
		XMin: -0.5 * float32(winx) * p.PixSize,
		XMax: 0.5 * float32(winx) * p.PixSize,
		YMin: -0.5 * p.Ycor * float32(winy) * p.PixSize,
		YMax: 0.5 * p.Ycor * float32(winy) * p.PixSize,
	}
	p.setWindow(p.ViewPlane)
	p.ViewDx = p.PixSize
	p.ViewDy = p.Ycor * p.PixSize
	return p
}

// Create a 90 degree square projection used for cube map captures.
func NewCubeProjection(size int, clipStart, clipEnd float32) *Projection {
	return NewProjection(&scene.Camera{
		Type:      scene.PerspectiveCamera,
		FOV:       math32.Pi / 2,
		ClipStart: clipStart,
		ClipEnd:   clipEnd,
	}, size, size)
}

func (p *Projection) setWindow(vp Rect) {
	if p.Ortho {
		p.WinMat = types.Ortho4(vp.XMin, vp.XMax, vp.YMin, vp.YMax, p.ClipStart, p.ClipEnd)
	} else {
		p.WinMat = types.Frustum4(vp.XMin, vp.XMax, vp.YMin, vp.YMax, p.ClipStart, p.ClipEnd)
	}
}

// Get the projection for the frame column [x0, x1) of a panorama split
// into numColumns columns. The column is rendered with a viewplane that is
// shifted so that its center lies on the optical axis and a rotation
// about the y axis that maps the column to its place in the panorama.
func (p *Projection) PanoColumn(x0, x1, numColumns int) *Projection {
	col := *p
	col.Pano = true

	width := p.ViewPlane.XMax - p.ViewPlane.XMin
	col.PanoDxp = float32(p.WinX-(x0+x1)) / 2
	col.PanoDxv = width * col.PanoDxp / float32(p.WinX)

	shifted := p.ViewPlane
	shifted.XMin += col.PanoDxv
	shifted.XMax += col.PanoDxv
	col.setWindow(shifted)

	angle := col.PanoDxp * p.PanoPixelAngle(numColumns)
	col.PanoSi = math32.Sin(angle)
	col.PanoCo = math32.Cos(angle)
	return &col
}

// Get the rotation angle covered by one pixel column of a panorama that is
// split in numColumns columns.
func (p *Projection) PanoPixelAngle(numColumns int) float32 {
	colWidth := (p.ViewPlane.XMax - p.ViewPlane.XMin) / float32(max(numColumns, 1))
	partWidth := float32(p.WinX) / float32(max(numColumns, 1))
	return 2 * math32.Atan(0.5*colWidth/p.ClipStart) / partWidth
}

// Transform a view space point into the (possibly rotated) panorama column
// space.
func (p *Projection) PanoRotate(co types.Vec3) types.Vec3 {
	if !p.Pano {
		return co
	}
	return types.Vec3{
		p.PanoCo*co[0] - p.PanoSi*co[2],
		co[1],
		p.PanoSi*co[0] + p.PanoCo*co[2],
	}
}

// Project a view space point to homogeneous clip coordinates.
func (p *Projection) Project(co types.Vec3) types.Vec4 {
	return p.WinMat.Mul4x1(p.PanoRotate(co).Vec4(1))
}

// Calculate the un-normalized view vector through frame position (x, y).
func (p *Projection) ViewVector(x, y float32) types.Vec3 {
	view := types.Vec3{0, 0, -math32.Abs(p.ClipStart)}
	if p.Ortho {
		return view
	}

	vp := &p.ViewPlane
	view[0] = vp.XMin + (x/float32(p.WinX))*(vp.XMax-vp.XMin)
	view[1] = vp.YMin + (y/float32(p.WinY))*(vp.YMax-vp.YMin)

	if p.Pano {
		u := view[0] + p.PanoDxv
		v := view[2]
		view[0] = p.PanoCo*u + p.PanoSi*v
		view[2] = -p.PanoSi*u + p.PanoCo*v
	}
	return view
}

// Reconstruct a view space point from a frame position and a stored depth
// for orthographic projections.
func (p *Projection) RenderCoOrtho(x, y float32, z int32) types.Vec3 {
	m := &p.WinMat
	fx := 2 / (float32(p.WinX) * m[0])
	fy := 2 / (float32(p.WinY) * m[5])

	zco := float32(z) / MaxZ
	return types.Vec3{
		(x-0.5*float32(p.WinX))*fx - m[12]/m[0],
		(y-0.5*float32(p.WinY))*fy - m[13]/m[5],
		// The orthographic window matrix is affine in z.
		(zco - m[14]) / m[10],
	}
}

// Reconstruct a view space point along the view vector from a stored
// perspective depth value.
func (p *Projection) RenderCoZbuf(view types.Vec3, z int32) types.Vec3 {
	m := &p.WinMat
	zco := float32(z) / MaxZ

	var co types.Vec3
	co[2] = m[14] / (m[11]*zco - m[10])
	fac := co[2] / view[2]
	co[0] = fac * view[0]
	co[1] = fac * view[1]
	return co
}

// Encode a projected point as a stored depth value.
func EncodeZ(hoco types.Vec4) int32 {
	z := float64(MaxZ) * float64(hoco[2]) / float64(hoco[3])
	if z >= MaxZ {
		return MaxZ
	} else if z <= -MaxZ {
		return -MaxZ
	}
	return int32(z)
}
