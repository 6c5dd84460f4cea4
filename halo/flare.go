package halo

import (
	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
)

// Frame describes a full frame RGBA buffer flares are drawn into.
type Frame struct {
	Width, Height int
	Col           []float32
	Test          raster.BreakFunc
}

// Draw the lens flares of all flare halos on the given layers. Flare size
// and brightness depend on the visible pixel count accumulated while the
// halos were drawn into the tiles, so this runs after all tiles finish.
func (r *Renderer) RenderFlares(f *Frame, lay uint32) {
	for _, har := range r.db.Halos {
		if har.FlareC == 0 || har.Lay&lay == 0 || har.Clipped || har.Mat == nil {
			continue
		}
		if f.Test != nil && f.Test() {
			return
		}
		r.renderFlare(f, har)
	}
}

func (r *Renderer) renderFlare(f *Frame, har *view.Halo) {
	p := r.db.Proj
	mat := har.Mat
	if har.Rad <= 0 {
		return
	}

	// Pixel sums of all radials scale with r^3.
	visifac := p.Ycor * float32(har.Pixels()) / (har.Rad * har.Rad * har.Rad)
	visifac *= visifac

	// The halo itself, resized by its visibility.
	main := *har
	main.Rad = har.Rad * mat.FlareSize * visifac
	main.RadSq = main.Rad * main.Rad
	main.Zs = 0
	main.Alfa = har.Alfa * visifac
	main.LineC, main.RingC, main.FlareC = 0, 0, 0
	r.renderPost(f, &main)

	fla := *har
	fla.LineC, fla.RingC, fla.FlareC = 0, 0, 0
	fla.Zs = 0
	fla.Vect = false

	halfW, halfH := 0.5*float32(p.WinX), 0.5*float32(p.WinY)
	rc := mat.Seed2
	for b := 1; b < har.FlareC; b, rc = b+1, rc+7 {
		fla.R = math32.Abs(hashAt(rc))
		fla.G = math32.Abs(hashAt(rc + 1))
		fla.B = math32.Abs(hashAt(rc + 2))
		fla.Alfa = mat.FlareBoost * math32.Abs(har.Alfa*visifac*hashAt(rc+3))
		fla.Hard = 20 + int(math32.Abs(70*hashAt(rc+7)))
		fla.Type = 0

		kind := int(math32.Abs(3.9 * hashAt(rc+6)))
		fla.Rad = mat.SubSize * math32.Sqrt(math32.Abs(2*main.Rad*hashAt(rc+4)))
		if kind == 3 {
			fla.Rad = 3*fla.Rad + float32(f.Width)/10
		}
		fla.RadSq = fla.Rad * fla.Rad

		vx := 1.4 * hashAt(rc+5) * (har.Xs - halfW)
		vy := 1.4 * hashAt(rc+5) * (har.Ys - halfH)
		vz := 32 * math32.Sqrt(vx*vx+vy*vy+1)
		fla.Xs = halfW + vx + (1.2+hashAt(rc+8))*float32(f.Width)*vx/vz
		fla.Ys = halfH + vy + (1.2+hashAt(rc+8))*float32(f.Width)*vy/vz

		if kind&1 != 0 {
			fla.Type = scene.HaloFlareCirc
		}
		r.renderPost(f, &fla)

		fla.Alfa *= 0.5
		fla.Type = 0
		if kind&2 != 0 {
			fla.Type = scene.HaloFlareCirc
		}
		r.renderPost(f, &fla)
	}
}

// Draw a halo over the whole frame ignoring depth.
func (r *Renderer) renderPost(f *Frame, har *view.Halo) {
	if har.Rad <= 0 {
		return
	}
	ycor := r.db.Proj.Ycor
	har.MinY = har.Ys - har.Rad/ycor
	har.MaxY = har.Ys + har.Rad/ycor

	miny := max(int(math32.Floor(har.MinY)), 0)
	maxy := min(int(math32.Ceil(har.MaxY)), f.Height)
	minx := max(int(math32.Floor(har.Xs-har.Rad)), 0)
	maxx := min(int(math32.Ceil(har.Xs+har.Rad)), f.Width)

	for y := miny; y < maxy; y++ {
		yn := (float32(y) + 0.5 - har.Ys) * ycor
		for x := minx; x < maxx; x++ {
			xn := float32(x) + 0.5 - har.Xs
			dist := xn*xn + yn*yn
			if dist >= har.RadSq {
				continue
			}
			if col, ok := Shade(r.db, har, view.HaloMaxZ, dist, xn, yn, false); ok {
				offset := 4 * (y*f.Width + x)
				addAlphaAddFac(f.Col[offset:offset+4], col, har.Add)
			}
		}
	}
}
