package scene

// Render layer feature toggles.
type LayerFlag uint32

const (
	LayerSolid LayerFlag = 1 << iota
	LayerZTransp
	LayerHalo
	LayerSky
	LayerEdge

	LayerAll = LayerSolid | LayerZTransp | LayerHalo | LayerSky | LayerEdge
)

// Render passes.
type PassFlag uint32

const (
	PassCombined PassFlag = 1 << iota
	PassZ
	PassVector
	PassNormal
	PassUV
	PassRGBA
	PassDiffuse
	PassSpecular
	PassShadow
	PassAO
	PassReflect
	PassRefract
	PassIndexOb
	PassMist
	PassEmit
)

var passNames = []struct {
	pass PassFlag
	name string
}{
	{PassCombined, "combined"},
	{PassZ, "z"},
	{PassVector, "vector"},
	{PassNormal, "normal"},
	{PassUV, "uv"},
	{PassRGBA, "rgba"},
	{PassDiffuse, "diffuse"},
	{PassSpecular, "specular"},
	{PassShadow, "shadow"},
	{PassAO, "ao"},
	{PassReflect, "reflect"},
	{PassRefract, "refract"},
	{PassIndexOb, "indexob"},
	{PassMist, "mist"},
	{PassEmit, "emit"},
}

// Get the pass name.
func (p PassFlag) String() string {
	for _, pn := range passNames {
		if pn.pass == p {
			return pn.name
		}
	}
	return "unknown"
}

// Parse a pass name.
func ParsePass(name string) (PassFlag, bool) {
	for _, pn := range passNames {
		if pn.name == name {
			return pn.pass, true
		}
	}
	return 0, false
}

// Get the list of passes enabled in a pass mask.
func (p PassFlag) List() []PassFlag {
	var out []PassFlag
	for _, pn := range passNames {
		if p&pn.pass != 0 {
			out = append(out, pn.pass)
		}
	}
	return out
}

// Get the number of float channels stored by a pass.
func (p PassFlag) Channels() int {
	switch p {
	case PassZ, PassIndexOb, PassMist:
		return 1
	case PassUV:
		return 3
	case PassCombined, PassVector, PassRGBA:
		return 4
	default:
		return 3
	}
}

// A render layer selects the scene layers, features and passes that are
// composited into one output image.
type RenderLayer struct {
	Name   string
	Lay    uint32
	Flags  LayerFlag
	Passes PassFlag
}

// Create a render layer with all features enabled that only outputs the
// combined pass.
func NewRenderLayer(name string, lay uint32) *RenderLayer {
	return &RenderLayer{
		Name:   name,
		Lay:    lay,
		Flags:  LayerAll,
		Passes: PassCombined,
	}
}
