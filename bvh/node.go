package bvh

import "github.com/achilleasa/scanline/types"

// Bvh node definition. Interior nodes store the indices of their two child
// nodes in LData/RData (LData > 0). Leaf nodes store the negated index of
// their first item in LData and the item count in RData.
type Node struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set bounding box.
func (n *Node) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Set left and right child node indices.
func (n *Node) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Set item index and count.
func (n *Node) SetPrimitives(firstPrimIndex, count uint32) {
	n.LData = -int32(firstPrimIndex)
	n.RData = int32(count)
}

// Get item index and count.
func (n *Node) GetPrimitives() (firstPrimIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LData <= 0
}

// Get the squared distance between p and the node bbox. Points inside the
// bbox have zero distance.
func (n *Node) SqDist(p types.Vec3) float32 {
	var d float32
	for axis := 0; axis < 3; axis++ {
		if p[axis] < n.Min[axis] {
			delta := n.Min[axis] - p[axis]
			d += delta * delta
		} else if p[axis] > n.Max[axis] {
			delta := p[axis] - n.Max[axis]
			d += delta * delta
		}
	}
	return d
}
