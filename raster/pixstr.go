package raster

import "errors"

// Number of PixStr nodes per arena block.
const PixStrBlockSize = 4096

var (
	ErrOutOfMemory = errors.New("raster: pixel structure arena exhausted")
)

// A handle to a PixStr node; the zero value is the nil handle.
type Handle int32

// A per-pixel record of one visible face.
type PixStr struct {
	Next   Handle
	FaceNr int32
	Z      int32
	Mask   uint16

	// Nearest depth of the merged samples.
	Near int32
}

// Arena allocates PixStr nodes in fixed size blocks. Nodes are addressed
// by (block, slot) handles and released all at once by Reset.
type Arena struct {
	blocks [][]PixStr
	used   int

	// Maximum number of blocks; zero means unlimited.
	maxBlocks int
}

// Create an arena that allocates at most maxBlocks blocks.
func NewArena(maxBlocks int) *Arena {
	a := &Arena{maxBlocks: maxBlocks}
	a.blocks = append(a.blocks, make([]PixStr, PixStrBlockSize))
	return a
}

// Get the node referenced by a handle.
func (a *Arena) Get(h Handle) *PixStr {
	index := int(h) - 1
	return &a.blocks[index/PixStrBlockSize][index%PixStrBlockSize]
}

// Add a sample for face facenr to the pixel chain starting at head. If the
// chain already holds a node for the face, the sample mask is merged into
// it and Near keeps the nearest sample depth; otherwise a new node is
// appended to the chain tail. Returns the (possibly new) chain head.
func (a *Arena) Add(head Handle, facenr, z int32, mask uint16) (Handle, error) {
	var last *PixStr
	for h := head; h != 0; {
		ps := a.Get(h)
		if ps.FaceNr == facenr {
			ps.Mask |= mask
			if z < ps.Near {
				ps.Near = z
			}
			return head, nil
		}
		last = ps
		h = ps.Next
	}

	if a.used == PixStrBlockSize {
		if err := a.grow(); err != nil {
			return head, err
		}
	}
	block := len(a.blocks) - 1
	h := Handle(block*PixStrBlockSize + a.used + 1)
	a.blocks[block][a.used] = PixStr{FaceNr: facenr, Z: z, Near: z, Mask: mask}
	a.used++

	if last == nil {
		return h, nil
	}
	last.Next = h
	return head, nil
}

func (a *Arena) grow() error {
	if a.maxBlocks > 0 && len(a.blocks) >= a.maxBlocks {
		return ErrOutOfMemory
	}
	a.blocks = append(a.blocks, make([]PixStr, PixStrBlockSize))
	a.used = 0
	return nil
}

// Release all nodes. The first block is kept for reuse.
func (a *Arena) Reset() {
	a.blocks = a.blocks[:1]
	a.used = 0
}

// Get the number of allocated blocks.
func (a *Arena) Blocks() int {
	return len(a.blocks)
}

// Collect the chain starting at head into out.
func (a *Arena) Chain(head Handle, out []*PixStr) []*PixStr {
	out = out[:0]
	for h := head; h != 0; {
		ps := a.Get(h)
		out = append(out, ps)
		h = ps.Next
	}
	return out
}
