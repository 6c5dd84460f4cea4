package texture

import (
	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/chewxy/math32"
)

// Extend controls how image lookups outside [0, 1] are resolved.
type Extend uint8

const (
	// Lookups outside the image return nothing.
	ExtendClip Extend = iota
	// Like ExtendClip but also clips on the z coordinate.
	ExtendClipCube
	// Clamp to the image edge.
	ExtendEdge
	// Tile the image.
	ExtendRepeat
	// Tile the image in a checker pattern.
	ExtendChecker
)

// Image flag bits.
type ImageFlag uint8

const (
	// Read alpha from the image.
	ImageUseAlpha ImageFlag = 1 << iota
	// Derive alpha from the color intensity.
	ImageCalcAlpha
	// Invert alpha.
	ImageNegAlpha
	// Swap the x and y lookup coordinates.
	ImageRotate
	// Use box filtered lookups even without OSA.
	ImageInterpolate
	// Interpret the RGB channels as a tangent space normal.
	ImageNormalMap
)

// An image texture.
type Image struct {
	Base

	Buf *imbuf.ImBuf

	Extend Extend
	Flags  ImageFlag

	// Scale applied to the filter footprint.
	FilterSize float32

	// Repeat counts applied to the lookup coordinates.
	XRepeat, YRepeat int

	// Checker pattern controls.
	CheckerOdd  bool
	CheckerEven bool
	CheckerDist float32
}

// Create a new image texture with repeat extend mode.
func NewImage(name string, buf *imbuf.ImBuf) *Image {
	return &Image{
		Base:        NewBase(name),
		Buf:         buf,
		Extend:      ExtendRepeat,
		FilterSize:  1,
		XRepeat:     1,
		YRepeat:     1,
		CheckerOdd:  true,
		CheckerEven: true,
	}
}

// Sample the image. The lookup coordinate is mapped from [-1, 1] to the
// [0, 1] image space.
func (t *Image) Sample(in *Lookup, res *Result) ResultType {
	res.Reset()
	if !t.Buf.Valid() {
		return Int
	}

	texvec := [3]float32{
		0.5 + 0.5*in.Co[0],
		0.5 + 0.5*in.Co[1],
		in.Co[2],
	}
	if t.Extend == ExtendRepeat {
		texvec[0] *= float32(max(t.XRepeat, 1))
		texvec[1] *= float32(max(t.YRepeat, 1))
	}

	if in.OSA || t.Flags&ImageInterpolate != 0 {
		dxt := [2]float32{0.5 * in.DxT[0], 0.5 * in.DxT[1]}
		dyt := [2]float32{0.5 * in.DyT[0], 0.5 * in.DyT[1]}
		if t.Extend == ExtendRepeat {
			dxt[0] *= float32(max(t.XRepeat, 1))
			dyt[0] *= float32(max(t.XRepeat, 1))
			dxt[1] *= float32(max(t.YRepeat, 1))
			dyt[1] *= float32(max(t.YRepeat, 1))
		}
		t.WrapFiltered(texvec, dxt, dyt, res)
	} else {
		t.Wrap(texvec, res)
	}

	if t.Flags&ImageNormalMap != 0 {
		res.Nor = [3]float32{2*res.Tr - 1, 2*res.Tg - 1, 2*res.Tb - 1}
		return RGB | Nor
	}
	return RGB
}

// Nearest pixel lookup at an image space coordinate in [0, 1].
func (t *Image) Wrap(texvec [3]float32, res *Result) {
	res.Reset()
	ib := t.Buf
	if !ib.Valid() {
		return
	}

	fx, fy := texvec[0], texvec[1]
	if t.Flags&ImageRotate != 0 {
		fx, fy = fy, fx
	}

	if t.Extend == ExtendChecker {
		var skip bool
		fx, fy, skip = t.checker(fx, fy)
		if skip {
			return
		}
	}

	x := int(math32.Floor(fx * float32(ib.Width)))
	y := int(math32.Floor(fy * float32(ib.Height)))

	switch t.Extend {
	case ExtendClipCube:
		if x < 0 || y < 0 || x >= ib.Width || y >= ib.Height || texvec[2] < -1 || texvec[2] > 1 {
			return
		}
	case ExtendClip, ExtendChecker:
		if x < 0 || y < 0 || x >= ib.Width || y >= ib.Height {
			return
		}
	case ExtendEdge:
		x = min(max(x, 0), ib.Width-1)
		y = min(max(y, 0), ib.Height-1)
	default:
		x %= ib.Width
		if x < 0 {
			x += ib.Width
		}
		y %= ib.Height
		if y < 0 {
			y += ib.Height
		}
	}

	px := ib.Pixel(x, y)
	res.Tr, res.Tg, res.Tb, res.Ta = px[0], px[1], px[2], px[3]
	t.finishAlpha(res, false)
	t.BriContRGB(res)
}

// Box filtered lookup. The filter footprint is derived from the image
// space derivatives dxt and dyt. Clipped footprints reduce the returned
// alpha proportionally to the area that fell outside the image.
func (t *Image) WrapFiltered(texvec [3]float32, dxt, dyt [2]float32, res *Result) {
	res.Reset()
	ib := t.Buf
	if !ib.Valid() {
		return
	}

	fx, fy := texvec[0], texvec[1]
	if t.Flags&ImageRotate != 0 {
		fx, fy = fy, fx
		dxt[0], dxt[1] = dxt[1], dxt[0]
		dyt[0], dyt[1] = dyt[1], dyt[0]
	}

	minx := math32.Min(dxt[0], math32.Min(dyt[0], dxt[0]+dyt[0]))
	maxx := math32.Max(dxt[0], math32.Max(dyt[0], dxt[0]+dyt[0]))
	miny := math32.Min(dxt[1], math32.Min(dyt[1], dxt[1]+dyt[1]))
	maxy := math32.Max(dxt[1], math32.Max(dyt[1], dxt[1]+dyt[1]))

	minx = (maxx - minx) / 2
	miny = (maxy - miny) / 2
	if minx < 0.5/float32(ib.Width) {
		minx = 0.5 / float32(ib.Width)
	}
	if miny < 0.5/float32(ib.Height) {
		miny = 0.5 / float32(ib.Height)
	}
	filterSize := t.FilterSize
	if filterSize <= 0 {
		filterSize = 1
	}
	minx *= filterSize
	miny *= filterSize
	minx = clampFootprint(minx)
	miny = clampFootprint(miny)

	if t.Extend == ExtendChecker {
		var skip bool
		fx, fy, skip = t.checker(fx, fy)
		if skip {
			return
		}
	}

	switch t.Extend {
	case ExtendClipCube:
		if fx+minx < 0 || fy+miny < 0 || fx-minx > 1 || fy-miny > 1 || texvec[2] < -1 || texvec[2] > 1 {
			return
		}
	case ExtendClip, ExtendChecker:
		if fx+minx < 0 || fy+miny < 0 || fx-minx > 1 || fy-miny > 1 {
			return
		}
	case ExtendEdge:
		fx = math32.Min(math32.Max(fx, 0), 1)
		fy = math32.Min(math32.Max(fy, 0), 1)
	default:
		fx -= math32.Floor(fx)
		fy -= math32.Floor(fy)
	}

	boxSample(ib, fx-minx, fy-miny, fx+minx, fy+miny, t.Extend, t.Flags&ImageUseAlpha != 0, res)
	t.finishAlpha(res, true)
	t.BriContRGB(res)
}

func clampFootprint(v float32) float32 {
	if v > 0.25 {
		return 0.25
	} else if v < 0.00001 {
		return 0.00001
	}
	return v
}

// Apply the checker pattern to a lookup coordinate. Returns true if the
// coordinate falls on a disabled checker cell.
func (t *Image) checker(fx, fy float32) (float32, float32, bool) {
	xs := math32.Floor(fx)
	ys := math32.Floor(fy)
	fx -= xs
	fy -= ys

	odd := (int(xs)+int(ys))&1 != 0
	if !t.CheckerOdd && odd {
		return fx, fy, true
	}
	if !t.CheckerEven && !odd {
		return fx, fy, true
	}

	if t.CheckerDist > 0 && t.CheckerDist < 1 {
		fx = (fx-0.5)/(1-t.CheckerDist) + 0.5
		fy = (fy-0.5)/(1-t.CheckerDist) + 0.5
	}
	return fx, fy, false
}

// Populate Tin/Ta according to the alpha flags.
func (t *Image) finishAlpha(res *Result, filtered bool) {
	if t.Flags&ImageUseAlpha != 0 && t.Flags&ImageCalcAlpha == 0 {
		res.TAlpha = true
	}

	switch {
	case res.TAlpha:
		res.Tin = res.Ta
	case t.Flags&ImageCalcAlpha != 0:
		fac := math32.Max(res.Tr, math32.Max(res.Tg, res.Tb))
		if filtered {
			fac *= res.Ta
		}
		res.Ta = fac
		res.Tin = fac
	case filtered:
		// Filtered lookups keep the clipped coverage in Ta.
		res.Tin = res.Ta
	default:
		res.Ta = 1
		res.Tin = 1
	}

	if t.Flags&ImageNegAlpha != 0 {
		res.Ta = 1 - res.Ta
	}
}

// Average the pixels overlapped by the rectangle [minx, maxx] x [miny, maxy]
// given in [0, 1] image space. Each pixel is weighted by its overlap area.
func boxSample(ib *imbuf.ImBuf, minx, miny, maxx, maxy float32, extend Extend, useAlpha bool, res *Result) {
	w, h := float32(ib.Width), float32(ib.Height)
	x0, x1 := minx*w, maxx*w
	y0, y1 := miny*h, maxy*h

	alphaClip := float32(1)
	switch extend {
	case ExtendEdge:
		x0 = math32.Min(math32.Max(x0, 0), w-1)
		x1 = math32.Min(math32.Max(x1, 0), w-1)
		y0 = math32.Min(math32.Max(y0, 0), h-1)
		y1 = math32.Min(math32.Max(y1, 0), h-1)
	case ExtendRepeat:
	default:
		alphaClip = clipSpan(&x0, &x1, w) * clipSpan(&y0, &y1, h)
		if alphaClip <= 0 {
			return
		}
	}

	var sum [4]float32
	var tot float32
	accum := func(ix, iy int, weight float32) {
		if weight <= 0 {
			return
		}
		px := ib.Pixel(wrapIndex(ix, ib.Width), wrapIndex(iy, ib.Height))
		sum[0] += weight * px[0]
		sum[1] += weight * px[1]
		sum[2] += weight * px[2]
		sum[3] += weight * px[3]
		tot += weight
	}

	iy0, iy1 := int(math32.Floor(y0)), int(math32.Floor(y1))
	ix0, ix1 := int(math32.Floor(x0)), int(math32.Floor(x1))
	for iy := iy0; iy <= iy1; iy++ {
		wy := overlap(float32(iy), y0, y1)
		if iy0 == iy1 {
			wy = 1
		}
		for ix := ix0; ix <= ix1; ix++ {
			wx := overlap(float32(ix), x0, x1)
			if ix0 == ix1 {
				wx = 1
			}
			accum(ix, iy, wx*wy)
		}
	}
	if tot == 0 {
		return
	}

	res.Tr = sum[0] / tot
	res.Tg = sum[1] / tot
	res.Tb = sum[2] / tot
	if useAlpha {
		res.Ta = sum[3] / tot
		res.TAlpha = true
	} else {
		res.Ta = 1
	}

	if alphaClip != 1 {
		res.Tr *= alphaClip
		res.Tg *= alphaClip
		res.Tb *= alphaClip
		res.Ta *= alphaClip
	}
}

// Clip the span [*lo, *hi] against [0, size] and return the fraction of
// the original span that survived.
func clipSpan(lo, hi *float32, size float32) float32 {
	span := *hi - *lo
	if *lo < 0 {
		*lo = 0
	}
	if *hi > size {
		*hi = size
	}
	if *hi <= *lo {
		return 0
	}
	if span <= 0 {
		return 1
	}
	frac := (*hi - *lo) / span
	// Keep the upper bound inside the last pixel.
	if *hi == size {
		*hi = size - 1e-4
	}
	return frac
}

// Length of the intersection between pixel cell [cell, cell+1] and [lo, hi].
func overlap(cell, lo, hi float32) float32 {
	return math32.Min(cell+1, hi) - math32.Max(cell, lo)
}

func wrapIndex(i, size int) int {
	i %= size
	if i < 0 {
		i += size
	}
	return i
}
