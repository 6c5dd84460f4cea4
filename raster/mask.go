package raster

// Supported oversample counts.
var OSALevels = []int{1, 5, 8, 11, 16}

// Rank-1 lattice generators for each oversample count.
var latticeGenerators = map[int]int{
	5:  2,
	8:  3,
	11: 4,
	16: 7,
}

// Bit counts for every byte value.
var cmask [256]uint8

func init() {
	for i := range cmask {
		var count uint8
		for v := i; v != 0; v >>= 1 {
			count += uint8(v & 1)
		}
		cmask[i] = count
	}
}

// Count the set bits of a sample mask.
func CountMask(mask uint16) int {
	return int(cmask[mask&0xFF]) + int(cmask[mask>>8])
}

// Get the mask with one bit set for every sample.
func FullMask(osa int) uint16 {
	if osa <= 1 {
		return 1
	}
	return uint16((uint32(1) << uint(osa)) - 1)
}

// Returns true if osa is a supported oversample count.
func ValidOSA(osa int) bool {
	for _, level := range OSALevels {
		if level == osa {
			return true
		}
	}
	return false
}

// Build the sample offset table for an oversample count. Offsets lie in
// [-0.5, 0.5) and are derived from a rank-1 lattice so that every row and
// column of the pixel receives exactly one sample.
func JitterTable(osa int) [][2]float32 {
	if osa <= 1 {
		return [][2]float32{{0, 0}}
	}

	gen, ok := latticeGenerators[osa]
	if !ok {
		gen = 1
	}
	table := make([][2]float32, osa)
	for i := 0; i < osa; i++ {
		table[i][0] = (float32(i)+0.5)/float32(osa) - 0.5
		table[i][1] = (float32((i*gen)%osa)+0.5)/float32(osa) - 0.5
	}
	return table
}

// Get the average sample offset of the samples selected by mask.
func Centroid(jit [][2]float32, mask uint16) (float32, float32) {
	var dx, dy float32
	count := 0
	for i := range jit {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		dx += jit[i][0]
		dy += jit[i][1]
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return dx / float32(count), dy / float32(count)
}
