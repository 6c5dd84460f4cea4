package bake

import (
	"sync"

	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/view"
)

// A face picked for baking together with its uv layer and target.
type bakeFace struct {
	index  int
	uv     *scene.UVLayer
	target *target
}

// An image receiving baked texels. Faces of the same uv island may share
// edge texels so writes are serialized per image.
type target struct {
	img *scene.Image

	mu     sync.Mutex
	mask   []byte
	texels int
}

type texel struct {
	x, y int
	col  [4]float32
}

func (t *target) write(texels []texel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf := t.img.Buf
	for _, tx := range texels {
		buf.SetPixel(tx.x, tx.y, tx.col)
		t.mask[tx.y*buf.Width+tx.x] = 1
	}
	t.texels += len(texels)
}

// cursor hands out the faces of a view snapshot to the bake workers. It
// skips faces that cannot be baked and clears every target image the first
// time one of its faces is handed out.
type cursor struct {
	mu sync.Mutex

	db       *view.DB
	pos      int
	clear    bool
	clearCol [4]float32

	targets []*target
	byImage map[*scene.Image]*target
	faces   int
}

func newCursor(db *view.DB, opts *Options) *cursor {
	return &cursor{
		db:       db,
		clear:    opts.Clear,
		clearCol: opts.clearColor(),
		byImage:  make(map[*scene.Image]*target),
	}
}

// Get the next bakeable face. Returns false once all faces were handed out.
func (c *cursor) next() (bakeFace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.pos < len(c.db.Faces) {
		index := c.pos
		c.pos++

		vlr := c.db.Faces[index]
		if !vlr.Obr.Object.Selected || vlr.Image == nil || !vlr.Image.Buf.Valid() {
			continue
		}
		uv := vlr.Obr.Mesh.UVLayer("")
		if uv == nil || vlr.Index >= len(uv.UV) {
			continue
		}

		t, ok := c.byImage[vlr.Image]
		if !ok {
			buf := vlr.Image.Buf
			if c.clear {
				buf.Clear(c.clearCol)
			}
			t = &target{img: vlr.Image, mask: make([]byte, buf.Width*buf.Height)}
			c.byImage[vlr.Image] = t
			c.targets = append(c.targets, t)
			logger.Debugf("baking into image %q (%dx%d)", vlr.Image.Name, buf.Width, buf.Height)
		}
		c.faces++
		return bakeFace{index: index, uv: uv, target: t}, true
	}
	return bakeFace{}, false
}
