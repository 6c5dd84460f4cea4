package renderer

import "github.com/achilleasa/scanline/types"

// Accumulate the outline strength of one z-buffer sample into edge. The
// outline is the magnitude of a 3x3 Laplacian over the depth values scaled
// by intensity in [0, 255]. With OSA every sample adds its share.
func edgeEnhanceSample(rectz []int32, rectx, recty, intensity, osa int, edge []float32) {
	at := func(x, y int) int64 {
		x = min(max(x, 0), rectx-1)
		y = min(max(y, 0), recty-1)
		// Shifted to keep the weighted sums of sky depths in range.
		return int64(rectz[y*rectx+x] >> 4)
	}

	for y := 0; y < recty; y++ {
		for x := 0; x < rectx; x++ {
			zval1 := at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1)
			zval2 := 2*at(x-1, y) + 2*at(x+1, y)
			zval3 := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)

			col := 4*at(x, y) - (zval1+zval2+zval3)/3
			if col < 0 {
				col = -col
			}
			col >>= 5
			if col > 1<<16 {
				col = 1 << 16
			} else {
				col = (int64(intensity) * col) >> 8
			}
			if col <= 0 {
				continue
			}

			fcol := float32(1)
			if col <= 255 {
				fcol = float32(col) / 255
			}
			if osa > 1 {
				edge[y*rectx+x] += fcol / float32(osa)
			} else {
				edge[y*rectx+x] = fcol
			}
		}
	}
}

// Composite the accumulated outline over the RGBA pixels of a part.
func edgeEnhanceAdd(col []float32, edge []float32, color types.Vec3) {
	for i, fac := range edge {
		if fac == 0 {
			continue
		}
		AddAlphaOver(col[4*i:4*i+4], types.Vec4{fac * color[0], fac * color[1], fac * color[2], fac})
	}
}
