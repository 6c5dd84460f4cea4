package imbuf

// Grow the written area of the buffer by one pixel. Every pixel that is not
// set in mask receives the average of its marked 8-neighbours and becomes
// marked itself. The mask holds one byte per pixel; it is updated in place so
// repeated calls keep extending the border outwards.
//
// Calling this margin times after a bake feathers UV island borders so that
// filtered lookups do not bleed background texels into the island.
func (ib *ImBuf) FilterExtend(mask []byte) {
	if !ib.Valid() || len(mask) != ib.Width*ib.Height {
		return
	}

	src := ib.snapshot()
	srcMask := make([]byte, len(mask))
	copy(srcMask, mask)

	for y := 0; y < ib.Height; y++ {
		for x := 0; x < ib.Width; x++ {
			if srcMask[y*ib.Width+x] != 0 {
				continue
			}

			var acc [4]float32
			tot := 0
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= ib.Height {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if (dx == 0 && dy == 0) || nx < 0 || nx >= ib.Width {
						continue
					}
					if srcMask[ny*ib.Width+nx] == 0 {
						continue
					}
					p := src.Pixel(nx, ny)
					acc[0] += p[0]
					acc[1] += p[1]
					acc[2] += p[2]
					acc[3] += p[3]
					tot++
				}
			}

			if tot == 0 {
				continue
			}
			inv := 1 / float32(tot)
			ib.SetPixel(x, y, [4]float32{acc[0] * inv, acc[1] * inv, acc[2] * inv, acc[3] * inv})
			mask[y*ib.Width+x] = 1
		}
	}
}

func (ib *ImBuf) snapshot() *ImBuf {
	out := &ImBuf{Name: ib.Name, Width: ib.Width, Height: ib.Height}
	if ib.RectFloat != nil {
		out.RectFloat = append([]float32(nil), ib.RectFloat...)
	} else {
		out.Rect = append([]uint8(nil), ib.Rect...)
	}
	return out
}
