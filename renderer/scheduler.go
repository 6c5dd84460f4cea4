package renderer

import (
	"sort"
	"sync"
)

// A rectangular frame region rendered as one unit of work.
type Part struct {
	// Frame space origin and size.
	X0, Y0       int
	RectX, RectY int

	// Column of the part; panorama parts use it to select their rotation.
	Column int
}

// The PartScheduler interface is implemented by all part ordering algorithms.
type PartScheduler interface {
	// Split frame into parts and return them in the order they should be
	// handed to the render workers, using feedback collected from the
	// previous frame when available.
	Schedule(frameW, frameH, partW, partH int, lastFrame []PartStat) []Part
}

// Split a frame into parts of at most partW x partH pixels. Parts on the
// right and top edge are cropped to the frame.
func splitFrame(frameW, frameH, partW, partH int) []Part {
	var parts []Part
	for y0 := 0; y0 < frameH; y0 += partH {
		for x0, col := 0, 0; x0 < frameW; x0, col = x0+partW, col+1 {
			parts = append(parts, Part{
				X0:     x0,
				Y0:     y0,
				RectX:  min(partW, frameW-x0),
				RectY:  min(partH, frameH-y0),
				Column: col,
			})
		}
	}
	return parts
}

// The center scheduler renders the parts closest to the frame center
// first.
type centerScheduler struct{}

// Create a new center scheduler instance
func NewCenterScheduler() PartScheduler {
	return centerScheduler{}
}

func (centerScheduler) Schedule(frameW, frameH, partW, partH int, _ []PartStat) []Part {
	return centerOrder(splitFrame(frameW, frameH, partW, partH), frameW, frameH)
}

func centerOrder(parts []Part, frameW, frameH int) []Part {
	// Distances are compared in doubled coordinates to stay integral.
	dist := func(p Part) int {
		dx := 2*p.X0 + p.RectX - frameW
		dy := 2*p.Y0 + p.RectY - frameH
		return dx*dx + dy*dy
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return dist(parts[i]) < dist(parts[j])
	})
	return parts
}

// The feedback scheduler assumes that the volume of work per part between
// two subsequent frames is approximately the same and hands out the
// slowest parts of the previous frame first so that no worker is left with
// a slow part at the end of the frame.
type feedbackScheduler struct{}

// Create a new feedback scheduler instance
func NewFeedbackScheduler() PartScheduler {
	return feedbackScheduler{}
}

func (feedbackScheduler) Schedule(frameW, frameH, partW, partH int, lastFrame []PartStat) []Part {
	parts := centerOrder(splitFrame(frameW, frameH, partW, partH), frameW, frameH)

	// If this is the first frame or the part layout has changed fall
	// back to the center ordering
	if len(lastFrame) != len(parts) {
		return parts
	}
	lastTime := make(map[Part]int64, len(lastFrame))
	for _, ps := range lastFrame {
		lastTime[ps.Part] = int64(ps.RenderTime)
	}
	for _, p := range parts {
		if _, ok := lastTime[p]; !ok {
			return parts
		}
	}

	sort.SliceStable(parts, func(i, j int) bool {
		return lastTime[parts[i]] > lastTime[parts[j]]
	})
	return parts
}

// A queue of parts shared by the render workers.
type partQueue struct {
	mu    sync.Mutex
	parts []Part
	next  int
}

// Get the next part to render. Returns false once all parts are taken.
func (q *partQueue) pop() (Part, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.parts) {
		return Part{}, false
	}
	p := q.parts[q.next]
	q.next++
	return p, true
}
