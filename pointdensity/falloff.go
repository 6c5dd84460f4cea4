package pointdensity

import "github.com/chewxy/math32"

// Falloff selects the kernel that weights each point inside the lookup
// radius by its distance to the lookup position.
type Falloff uint8

const (
	// Linear in the squared distance.
	Standard Falloff = iota
	// Smoothstep of the standard kernel.
	Smooth
	// Standard kernel raised to the softness exponent.
	Soft
	// Squared standard kernel.
	Sharp
	// Every point contributes the squared radius.
	Constant
	// Square root of the standard kernel.
	Root
)

// Get the density contribution of a point at squared distance sqDist from
// the lookup position.
func (f Falloff) Density(sqDist, sqRadius, softness float32) float32 {
	dist := 0.5 * (sqRadius - sqDist) / sqRadius

	switch f {
	case Smooth:
		return 3*dist*dist - 2*dist*dist*dist
	case Soft:
		return math32.Pow(dist, softness)
	case Sharp:
		return dist * dist
	case Constant:
		return sqRadius
	case Root:
		return math32.Sqrt(dist)
	}
	return dist
}

func (f Falloff) String() string {
	switch f {
	case Smooth:
		return "smooth"
	case Soft:
		return "soft"
	case Sharp:
		return "sharp"
	case Constant:
		return "constant"
	case Root:
		return "root"
	}
	return "standard"
}
