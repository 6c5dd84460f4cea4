package bvh

import (
	"github.com/achilleasa/scanline/types"
	"github.com/chewxy/math32"
)

// A Tree couples a node list with the items referenced by its leafs.
type Tree struct {
	Nodes []Node
	Items []BoundedVolume
}

// Build a tree over the given items. Leafs hold at most minLeafItems items
// unless no split improves on them.
func New(items []BoundedVolume, minLeafItems int) *Tree {
	tree := &Tree{
		Items: make([]BoundedVolume, 0, len(items)),
	}
	tree.Nodes = Build(items, minLeafItems, func(leaf *Node, itemList []BoundedVolume) {
		leaf.SetPrimitives(uint32(len(tree.Items)), uint32(len(itemList)))
		tree.Items = append(tree.Items, itemList...)
	}, SurfaceAreaHeuristic)
	return tree
}

// The builder appends a node before partitioning its children so the root
// always lives at index 0.
func (t *Tree) root() int {
	return 0
}

// Invoke cb for every item whose center lies strictly within radius of
// center. The callback receives the squared distance to the item center.
func (t *Tree) RangeQuery(center types.Vec3, radius float32, cb func(item BoundedVolume, sqDist float32)) int {
	if t == nil || len(t.Nodes) == 0 {
		return 0
	}

	sqRadius := radius * radius
	hits := 0
	stack := make([]int, 0, 64)
	stack = append(stack, t.root())
	for len(stack) > 0 {
		nodeIndex := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.Nodes[nodeIndex]
		if node.SqDist(center) >= sqRadius {
			continue
		}

		if !node.IsLeaf() {
			stack = append(stack, int(node.LData), int(node.RData))
			continue
		}

		first, count := node.GetPrimitives()
		for _, item := range t.Items[first : first+count] {
			sqDist := item.Center().Sub(center).LenSq()
			if sqDist < sqRadius {
				cb(item, sqDist)
				hits++
			}
		}
	}
	return hits
}

// A callback that tests a ray against an item. It returns the hit distance
// and true if the item was hit closer than tMax.
type RayTestFn func(item BoundedVolume, tMax float32) (float32, bool)

// Trace a ray through the tree. If anyHit is set the traversal stops at the
// first reported hit. Returns the closest accepted hit.
func (t *Tree) Intersect(origin, dir types.Vec3, tMax float32, anyHit bool, test RayTestFn) (BoundedVolume, float32, bool) {
	if t == nil || len(t.Nodes) == 0 {
		return nil, tMax, false
	}

	var invDir types.Vec3
	for axis := 0; axis < 3; axis++ {
		if dir[axis] != 0 {
			invDir[axis] = 1 / dir[axis]
		} else {
			invDir[axis] = math32.Inf(1)
		}
	}

	var closest BoundedVolume
	found := false
	stack := make([]int, 0, 64)
	stack = append(stack, t.root())
	for len(stack) > 0 {
		nodeIndex := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.Nodes[nodeIndex]
		if !rayBoxOverlap(origin, invDir, node.Min, node.Max, tMax) {
			continue
		}

		if !node.IsLeaf() {
			stack = append(stack, int(node.LData), int(node.RData))
			continue
		}

		first, count := node.GetPrimitives()
		for _, item := range t.Items[first : first+count] {
			if dist, hit := test(item, tMax); hit && dist < tMax {
				tMax = dist
				closest = item
				found = true
				if anyHit {
					return closest, tMax, true
				}
			}
		}
	}
	return closest, tMax, found
}

// Slab test against an AABB.
func rayBoxOverlap(origin, invDir, min, max types.Vec3, tMax float32) bool {
	tNear := float32(0)
	tFar := tMax
	for axis := 0; axis < 3; axis++ {
		t0 := (min[axis] - origin[axis]) * invDir[axis]
		t1 := (max[axis] - origin[axis]) * invDir[axis]
		// 0 * Inf yields NaN for rays lying on a slab plane
		if math32.IsNaN(t0) || math32.IsNaN(t1) {
			if origin[axis] < min[axis] || origin[axis] > max[axis] {
				return false
			}
			continue
		}
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return false
		}
	}
	return true
}
