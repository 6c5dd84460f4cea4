package view

import (
	"math"
	"sync/atomic"

	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

// Halo depth values use a 23-bit scale.
const HaloMaxZ = 0x7FFFFF

// A projected halo.
type Halo struct {
	Co types.Vec3
	No types.Vec3

	HaSize float32

	// Frame position, radius and vertical extent.
	Xs, Ys     float32
	Rad, RadSq float32
	MinY, MaxY float32

	// Depth on the 23-bit halo scale and the full z-buffer scale.
	Zs       int32
	ZBufDist int32
	// Depth range covered by the halo (soft halos).
	Zd int32

	Alfa    float32
	R, G, B float32
	// Add factor in [0, 255].
	Add float32

	Hard       int
	Seed       int
	StarPoints int
	LineC      int
	RingC      int
	FlareC     int

	Type scene.HaloMode
	Vect bool
	// Orientation of vector halos.
	Sin, Cos float32

	Mat *scene.Material
	Lay uint32

	// Set if the halo center projects behind the camera or far outside the
	// frame.
	Clipped bool

	// Visible pixel counter used for flare visibility.
	pixels int64
}

// Atomically add to the visible pixel counter.
func (h *Halo) AddPixels(count int64) {
	atomic.AddInt64(&h.pixels, count)
}

// Get the visible pixel counter.
func (h *Halo) Pixels() int64 {
	return atomic.LoadInt64(&h.pixels)
}

// Project a view space halo and append it to the DB. vec1 optionally
// specifies the tail of a vector halo.
func (db *DB) addHalo(mat *scene.Material, co types.Vec3, vec1 *types.Vec3, hasize float32, seed int, lay uint32) {
	if hasize == 0 {
		return
	}
	p := db.Proj
	hoco := p.WinMat.Mul4x1(co.Vec4(1))
	if hoco[3] == 0 {
		return
	}

	har := &Halo{
		Co:     co,
		HaSize: hasize,
		Alfa:   mat.Alpha,
		R:      mat.Col[0],
		G:      mat.Col[1],
		B:      mat.Col[2],
		Add:    255 * mat.HaloAdd,
		Hard:   mat.HaloHard,
		Seed:   seed % 256,
		Type:   mat.HaloMode,
		Mat:    mat,
		Lay:    lay,
	}
	if seed < 0 {
		har.Seed = (seed%256 + 256) % 256
	}

	if vec1 != nil {
		hoco1 := p.WinMat.Mul4x1(vec1.Vec4(1))
		if hoco1[3] == 0 {
			return
		}
		har.Vect = true
		xn := 0.5 * float32(p.WinX) * (hoco[0]/hoco[3] - hoco1[0]/hoco1[3])
		yn := 0.5 * float32(p.WinY) * (hoco[1]/hoco[3] - hoco1[1]/hoco1[3])
		var angle float32
		if xn != 0 {
			angle = math32.Atan2(yn, xn)
		}
		har.Sin = math32.Sin(angle)
		har.Cos = math32.Cos(angle)
		har.No = co.Sub(*vec1).Normalize()
	}

	if mat.HaloMode&scene.HaloStar != 0 {
		har.StarPoints = mat.StarC
	}
	if mat.HaloMode&scene.HaloLines != 0 {
		har.LineC = mat.LineC
	}
	if mat.HaloMode&scene.HaloRings != 0 {
		har.RingC = mat.RingC
	}
	if mat.HaloMode&scene.HaloFlare != 0 {
		har.FlareC = mat.FlareC
	}

	har.project(p)
	db.Halos = append(db.Halos, har)
}

// Compute the frame position, radius and depth values of the halo.
func (har *Halo) project(p *Projection) {
	hoco := p.WinMat.Mul4x1(har.Co.Vec4(1))

	// Halos are clipped against a window twice the frame size.
	if haloClipped(hoco) || hoco[3] < 0 {
		har.Clipped = true
		har.MinY, har.MaxY = -10000, -10000
		return
	}

	zn := hoco[3]
	har.Xs = 0.5 * float32(p.WinX) * (1 + hoco[0]/zn)
	har.Ys = 0.5 * float32(p.WinY) * (1 + hoco[1]/zn)
	har.Zs = int32(HaloMaxZ * (hoco[2] / zn))
	har.ZBufDist = EncodeZ(hoco)

	vec := har.Co
	vec[0] += har.HaSize
	hoco = p.WinMat.Mul4x1(vec.Vec4(1))
	har.Rad = math32.Abs(har.Xs - 0.5*float32(p.WinX)*(1+hoco[0]/hoco[3]))

	// Keep stars small.
	if har.Type&scene.HaloOnlySky != 0 && har.Rad > 3 {
		har.Rad = 3
	}
	har.RadSq = har.Rad * har.Rad
	har.MinY = har.Ys - har.Rad/p.Ycor
	har.MaxY = har.Ys + har.Rad/p.Ycor

	vec = har.Co
	vec[2] -= har.HaSize
	hoco = p.WinMat.Mul4x1(vec.Vec4(1))
	zd := math32.Abs(float32(har.Zs) - HaloMaxZ*(hoco[2]/hoco[3]))
	if zd > math.MaxInt32 {
		zd = math.MaxInt32
	}
	har.Zd = int32(zd)
}

func haloClipped(hoco types.Vec4) bool {
	abs4 := math32.Abs(hoco[3]) + 1.1920929e-07
	if hoco[2] < -abs4 || hoco[2] > abs4 {
		return true
	}
	x, y := 0.5*hoco[0], 0.5*hoco[1]
	return x > abs4 || x < -abs4 || y > abs4 || y < -abs4
}
