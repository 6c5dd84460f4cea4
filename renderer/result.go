package renderer

import (
	"fmt"

	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/scene"
)

// Z pass value stored for background pixels.
const skyDepth = 1e10

// A full frame float buffer for one render pass.
type Pass struct {
	Type     scene.PassFlag
	Channels int
	Data     []float32
}

// The passes rendered for one render layer.
type LayerResult struct {
	Layer  *scene.RenderLayer
	Passes []*Pass

	width, height int
}

// Get a pass by type or nil if the layer did not request it.
func (l *LayerResult) Pass(p scene.PassFlag) *Pass {
	for _, pass := range l.Passes {
		if pass.Type == p {
			return pass
		}
	}
	return nil
}

// Get the combined RGBA pass.
func (l *LayerResult) Combined() []float32 {
	return l.Pass(scene.PassCombined).Data
}

// Copy a pass into a float image buffer. Single channel passes are stored
// as gray, three channel passes get an opaque alpha.
func (l *LayerResult) Image(p scene.PassFlag) (*imbuf.ImBuf, error) {
	pass := l.Pass(p)
	if pass == nil {
		return nil, fmt.Errorf("renderer: layer %q has no %s pass", l.Layer.Name, p)
	}

	ib := imbuf.New(fmt.Sprintf("%s.%s", l.Layer.Name, p), l.width, l.height, imbuf.Rgba32F)
	for i := 0; i < l.width*l.height; i++ {
		src := pass.Data[i*pass.Channels : (i+1)*pass.Channels]
		var col [4]float32
		switch pass.Channels {
		case 1:
			col = [4]float32{src[0], src[0], src[0], 1}
		case 3:
			col = [4]float32{src[0], src[1], src[2], 1}
		default:
			copy(col[:], src)
		}
		copy(ib.RectFloat[4*i:4*i+4], col[:])
	}
	return ib, nil
}

// Result holds the rendered passes of every render layer.
type Result struct {
	Width, Height int
	Layers        []*LayerResult
}

func newResult(w, h int, layers []*scene.RenderLayer) *Result {
	res := &Result{Width: w, Height: h}
	for _, rl := range layers {
		lr := &LayerResult{Layer: rl, width: w, height: h}
		for _, p := range (rl.Passes | scene.PassCombined).List() {
			lr.Passes = append(lr.Passes, &Pass{
				Type:     p,
				Channels: p.Channels(),
				Data:     make([]float32, w*h*p.Channels()),
			})
		}
		res.Layers = append(res.Layers, lr)
	}
	return res
}

// Get a layer by name or nil if no such layer was rendered.
func (r *Result) Layer(name string) *LayerResult {
	for _, l := range r.Layers {
		if l.Layer.Name == name {
			return l
		}
	}
	return nil
}
