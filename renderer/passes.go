package renderer

import (
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/shade"
)

// Part sized pass buffers. Pixels are accumulated here while shading and
// copied into the frame result once the layer is done.
type partPasses struct {
	rectx, recty int

	passes   []*Pass
	combined []float32

	// Sample count of the face whose unfiltered values (speed, object
	// index) are stored per pixel.
	best []int
}

func newPartPasses(lr *LayerResult, rectx, recty int) *partPasses {
	pp := &partPasses{
		rectx: rectx,
		recty: recty,
		best:  make([]int, rectx*recty),
	}
	for _, p := range lr.Passes {
		pass := &Pass{
			Type:     p.Type,
			Channels: p.Channels,
			Data:     make([]float32, rectx*recty*p.Channels),
		}
		if p.Type == scene.PassCombined {
			pp.combined = pass.Data
		}
		if p.Type == scene.PassZ {
			for i := range pass.Data {
				pass.Data[i] = skyDepth
			}
		}
		pp.passes = append(pp.passes, pass)
	}
	return pp
}

// Add the shaded result of a face covering count samples of pixel i. fac
// is the share of the pixel covered by those samples.
func (pp *partPasses) add(i int, res *shade.Result, fac float32, count int) {
	best := count > pp.best[i]
	if best {
		pp.best[i] = count
	}

	for _, pass := range pp.passes {
		out := pass.Data[i*pass.Channels : (i+1)*pass.Channels]
		switch pass.Type {
		case scene.PassCombined:
			addScaled(out, res.Combined[:], fac)
		case scene.PassZ:
			out[0] = min(out[0], res.Z)
		case scene.PassVector:
			if best {
				copy(out, res.Speed[:])
			}
		case scene.PassIndexOb:
			if best {
				out[0] = res.IndexOb
			}
		case scene.PassNormal:
			addScaled(out, res.Nor[:], fac)
		case scene.PassUV:
			addScaled(out, res.UV[:], fac)
		case scene.PassRGBA:
			addScaled(out, res.Col[:], fac)
		case scene.PassDiffuse:
			addScaled(out, res.Diff[:], fac)
		case scene.PassSpecular:
			addScaled(out, res.Spec[:], fac)
		case scene.PassShadow:
			addScaled(out, res.Shad[:], fac)
		case scene.PassAO:
			addScaled(out, res.AO[:], fac)
		case scene.PassReflect:
			addScaled(out, res.Refl[:], fac)
		case scene.PassRefract:
			addScaled(out, res.Refr[:], fac)
		case scene.PassEmit:
			addScaled(out, res.Emit[:], fac)
		case scene.PassMist:
			out[0] += fac * res.Mist
		}
	}
}

// Copy the part buffers to their place in the frame result.
func (pp *partPasses) merge(lr *LayerResult, p Part) {
	for index, pass := range pp.passes {
		dst := lr.Passes[index]
		ch := pass.Channels
		for y := 0; y < pp.recty; y++ {
			srcRow := pass.Data[y*pp.rectx*ch : (y+1)*pp.rectx*ch]
			offset := ((p.Y0+y)*lr.width + p.X0) * ch
			copy(dst.Data[offset:offset+len(srcRow)], srcRow)
		}
	}
}

func addScaled(out, src []float32, fac float32) {
	for i := range out {
		out[i] += fac * src[i]
	}
}
