package renderer

import (
	"github.com/achilleasa/scanline/raster"
	"github.com/achilleasa/scanline/types"
)

// Composite a premultiplied color over an RGBA pixel.
func AddAlphaOver(dest []float32, src types.Vec4) {
	mul := 1 - src[3]
	dest[0] = mul*dest[0] + src[0]
	dest[1] = mul*dest[1] + src[1]
	dest[2] = mul*dest[2] + src[2]
	dest[3] = mul*dest[3] + src[3]
}

// Composite a premultiplied color under an RGBA pixel.
func AddAlphaUnder(dest []float32, src types.Vec4) {
	if dest[3] >= 1 || src[3] == 0 {
		return
	}
	mul := 1 - dest[3]
	dest[0] += mul * src[0]
	dest[1] += mul * src[1]
	dest[2] += mul * src[2]
	dest[3] += mul * src[3]
}

// Add a color to an RGBA pixel.
func AddAlphaAdd(dest []float32, src types.Vec4) {
	dest[0] += src[0]
	dest[1] += src[1]
	dest[2] += src[2]
	dest[3] += src[3]
}

// Composite a premultiplied color covering the samples in srcMask over a
// pixel covering destMask. Colors of disjoint sample sets are added; a
// source covering every destination sample is composited with alpha-over.
// Partial overlaps blend between the two by the share of samples that are
// not shared.
func AddAlphaOverMask(dest []float32, src types.Vec4, destMask, srcMask uint16) {
	shared := destMask & srcMask
	mul := 1 - src[3]

	if shared != 0 {
		if shared != destMask {
			sharedBits := float32(raster.CountMask(shared))
			totBits := float32(raster.CountMask(srcMask | destMask))
			add := (totBits - sharedBits) / totBits
			mul = add + (1-add)*mul
		}
	} else if destMask != 0 && srcMask != 0 {
		AddAlphaAdd(dest, src)
		return
	}

	dest[0] = mul*dest[0] + src[0]
	dest[1] = mul*dest[1] + src[1]
	dest[2] = mul*dest[2] + src[2]
	dest[3] = mul*dest[3] + src[3]
}

// Composite the transparent colors in front of the samples of a pixel.
// samp[k] holds the premultiplied color in front of sample k, transMask the
// samples with a transparent color and solidMask the samples covered by
// solid faces. Samples over solid faces attenuate the pixel by their share
// of the solid samples; samples over empty ones are added.
func AddAlphaOverSamples(dest []float32, samp []types.Vec4, transMask, solidMask uint16) {
	if len(samp) == 0 {
		return
	}
	n := float32(len(samp))
	if solidMask == 0 {
		// Without solid samples the pixel only holds halos, which cover
		// every sample.
		solidMask = raster.FullMask(len(samp))
	}

	var front, open types.Vec4
	var atten float32
	for k := range samp {
		bit := uint16(1) << uint(k)
		switch {
		case transMask&bit == 0:
		case solidMask&bit != 0:
			front = front.Add(samp[k])
			atten += samp[k][3]
		default:
			open = open.Add(samp[k])
		}
	}

	if transMask&solidMask != 0 {
		mul := 1 - atten/float32(raster.CountMask(solidMask))
		dest[0] = mul*dest[0] + front[0]/n
		dest[1] = mul*dest[1] + front[1]/n
		dest[2] = mul*dest[2] + front[2]/n
		dest[3] = mul*dest[3] + front[3]/n
	}
	if openMask := transMask &^ solidMask; openMask != 0 {
		AddAlphaOverMask(dest, open.Mul(1/n), solidMask, openMask)
	}
}
