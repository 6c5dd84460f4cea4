package halo

import (
	"math/rand/v2"

	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/shade"
	"github.com/achilleasa/scanline/texture"
	"github.com/achilleasa/scanline/types"
	"github.com/achilleasa/scanline/view"
	"github.com/chewxy/math32"
)

const hashSize = 768

// Pseudo-random values in [-1, 1] driving ring radii, line directions and
// flare placement. The table is fixed so renders are reproducible.
var hashVect [hashSize]float32

func init() {
	rng := rand.New(rand.NewPCG(0x5eed, 0x4a10))
	for i := range hashVect {
		hashVect[i] = 2*rng.Float32() - 1
	}
}

func hashAt(index int) float32 {
	index %= hashSize
	if index < 0 {
		index += hashSize
	}
	return hashVect[index]
}

// Convert a stored z-buffer value to the halo depth scale. Only-sky halos
// are hidden by any geometry.
func haloZ(har *view.Halo, z int32) int32 {
	if har.Type&scene.HaloOnlySky != 0 {
		if z < view.MaxZ-0xF {
			return -view.HaloMaxZ
		}
		return view.HaloMaxZ
	}
	return z >> 8
}

// Convert a halo scale depth back to a view space distance from the camera
// plane.
func viewDepth(p *view.Projection, zz int32) float32 {
	z := zz << 8
	if p.Ortho {
		return -p.RenderCoOrtho(0, 0, z)[2]
	}
	return -p.RenderCoZbuf(types.Vec3{0, 0, -1}, z)[2]
}

// Shade a halo at squared frame distance dist and offset (xn, yn) from its
// center; zz is the depth of the geometry behind the pixel on the halo
// depth scale. If flare is set the visible pixel counter of the halo is
// updated. Returns false if the halo does not contribute.
func Shade(db *view.DB, har *view.Halo, zz int32, dist, xn, yn float32, flare bool) (types.Vec4, bool) {
	var col types.Vec4

	alpha := har.Alfa
	if w := db.World; w.Mist && har.Type&scene.HaloOnlySky == 0 {
		alpha *= shade.MistFactor(w, -har.Co[2], db.ViewInv.MulPoint(har.Co)[1])
	}
	if alpha == 0 {
		return col, false
	}

	soft := har.Type&scene.HaloSoft != 0
	if soft {
		segment := har.HaSize * math32.Sqrt(max(0, 1-dist/har.RadSq))
		depth := 2 * segment
		if depth < 1.1920929e-07 {
			return col, false
		}
		visible := viewDepth(db.Proj, zz) + har.Co[2] + segment
		if visible <= 0 {
			return col, false
		}
		if visible < depth {
			alpha *= visible / depth
		}
	} else if har.Zd > 0 && har.Zs > zz-har.Zd {
		t := float32(zz-har.Zs) / float32(har.Zd)
		if t <= 0 {
			return col, false
		}
		alpha *= math32.Sqrt(math32.Sqrt(t))
	}

	radist := math32.Sqrt(dist)
	if flare {
		har.AddPixels(int64(har.Rad - radist))
	}

	var ringf, linef float32
	for a, ofs := 0, har.Seed; a < har.RingC; a, ofs = a+1, ofs+2 {
		fac := math32.Abs(hashAt(ofs+1) * (har.Rad*math32.Abs(hashAt(ofs)) - radist))
		if fac < 1 {
			ringf += 1 - fac
		}
	}

	if har.Vect {
		dist = min(math32.Abs(har.Cos*yn-har.Sin*xn)/har.Rad, 1)
		if har.Type&scene.HaloTex != 0 {
			zn := har.Sin*xn - har.Cos*yn
			yn = har.Cos*xn + har.Sin*yn
			xn = zn
		}
	} else {
		dist /= har.RadSq
	}

	if har.Type&scene.HaloFlareCirc != 0 {
		dist = 0.5 + math32.Abs(dist-0.5)
	}

	if har.Hard >= 30 {
		dist = math32.Sqrt(dist)
		if har.Hard >= 40 {
			dist = math32.Sin(dist * math32.Pi / 2)
			if har.Hard >= 50 {
				dist = math32.Sqrt(dist)
			}
		}
	} else if har.Hard < 20 {
		dist *= dist
	}

	if dist < 1 {
		dist = 1 - dist
	} else {
		dist = 0
	}

	if har.LineC > 0 {
		for a, ofs := 0, har.Seed; a < har.LineC; a, ofs = a+1, ofs+3 {
			fac := math32.Abs(xn*hashAt(ofs) + yn*hashAt(ofs+1))
			if fac < 1 {
				linef += 1 - fac
			}
		}
		linef *= dist
	}

	if har.StarPoints > 0 {
		angle := math32.Atan2(yn, xn) * (1 + 0.25*float32(har.StarPoints))
		co, si := math32.Cos(angle), math32.Sin(angle)
		ster := math32.Abs((co*xn + si*yn) * (co*yn - si*xn))
		if ster > 1 {
			if ster = har.Rad / ster; ster < 1 {
				dist *= math32.Sqrt(ster)
			}
		}
	}

	if dist <= 0.00001 {
		return col, false
	}

	dist *= alpha
	ringf *= dist
	linef *= alpha

	if har.Type&scene.HaloTex != 0 && har.Mat != nil && len(har.Mat.Textures) != 0 {
		col = types.Vec4{har.R, har.G, har.B, dist}
		haloTex(har, xn, yn, &col)
		col[0] *= col[3]
		col[1] *= col[3]
		col[2] *= col[3]
	} else {
		col = types.Vec4{dist * har.R, dist * har.G, dist * har.B, dist}
		if har.Type&scene.HaloXAlpha != 0 {
			col[3] = dist * dist
		}
	}

	if mat := har.Mat; mat != nil {
		if har.Type&scene.HaloShade != 0 {
			light := shade.LampLight(db, har.Co, har.Lay)
			col[0] *= light[0]
			col[1] *= light[1]
			col[2] *= light[2]
		}
		if linef != 0 {
			col = addTint(col, mat.SpecCol, linef, har.Type)
		}
		if ringf != 0 {
			col = addTint(col, mat.MirCol, ringf, har.Type)
		}
	}

	col[3] = min(col[3], 1)
	return col, true
}

func addTint(col types.Vec4, tint types.Vec3, fac float32, mode scene.HaloMode) types.Vec4 {
	col[0] += fac * tint[0]
	col[1] += fac * tint[1]
	col[2] += fac * tint[2]
	if mode&scene.HaloXAlpha != 0 {
		col[3] += fac * fac
	} else {
		col[3] += fac
	}
	return col
}

// Modulate the halo color with the first material texture, looked up in
// halo local coordinates.
func haloTex(har *view.Halo, xn, yn float32, col *types.Vec4) {
	slot := har.Mat.Textures[0]
	if slot == nil || slot.Tex == nil || har.Rad == 0 {
		return
	}

	var (
		lookup texture.Lookup
		res    texture.Result
	)
	lookup.Co = types.Vec3{
		slot.Size[0] * (xn/har.Rad + slot.Ofs[0]),
		slot.Size[1] * (yn/har.Rad + slot.Ofs[1]),
		slot.Size[2] * slot.Ofs[2],
	}

	if slot.Tex.Sample(&lookup, &res)&texture.RGB != 0 {
		fact := res.Ta * slot.ColFac
		col[0] = fact*res.Tr + (1-fact)*col[0]
		col[1] = fact*res.Tg + (1-fact)*col[1]
		col[2] = fact*res.Tb + (1-fact)*col[2]
		if res.TAlpha {
			col[3] *= res.Ta
		}
		return
	}
	col[3] *= res.Tin
}

// Add a halo color to an RGBA pixel. addFac in [0, 255] blends between
// alpha-over (0) and pure addition (255).
func addAlphaAddFac(dest []float32, src types.Vec4, addFac float32) {
	m := 1 - src[3]*((255-addFac)/255)
	dest[0] = m*dest[0] + src[0]
	dest[1] = m*dest[1] + src[1]
	dest[2] = m*dest[2] + src[2]
	dest[3] = min(m*dest[3]+src[3], 1)
}
