package bvh

import (
	"sort"
	"testing"

	"github.com/achilleasa/scanline/types"
)

type testVolume struct {
	bbox   [2]types.Vec3
	center types.Vec3
	id     int
}

func (v *testVolume) BBox() [2]types.Vec3 { return v.bbox }
func (v *testVolume) Center() types.Vec3  { return v.center }

func boxVolume(id int, min, max types.Vec3) *testVolume {
	return &testVolume{
		bbox:   [2]types.Vec3{min, max},
		center: min.Add(max).Mul(0.5),
		id:     id,
	}
}

func pointVolume(id int, p types.Vec3) *testVolume {
	return &testVolume{bbox: [2]types.Vec3{p, p}, center: p, id: id}
}

func TestLeafCallback(t *testing.T) {
	type primSpec struct {
		min types.Vec3
		max types.Vec3
	}

	primSpecs := []primSpec{
		{types.Vec3{-2, 0, -2}, types.Vec3{-1, 1, -1}},
		{types.Vec3{1, 0, -2}, types.Vec3{2, 1, -1}},
		{types.Vec3{-2, 0, 1}, types.Vec3{-1, 1, 2}},
		{types.Vec3{1, 0, 1}, types.Vec3{2, 1, 2}},
	}

	itemList := make([]BoundedVolume, len(primSpecs))
	for idx, ps := range primSpecs {
		itemList[idx] = boxVolume(idx, ps.min, ps.max)
	}

	var cbCount = 0
	var expItemListCount = 0
	cb := func(leaf *Node, itemList []BoundedVolume) {
		cbCount++
		if len(itemList) != expItemListCount {
			t.Fatalf("expected leaf callback to be called with %d items; got %d", expItemListCount, len(itemList))
		}
	}

	var expCount = 0

	// Partition each item in a single leaf
	cbCount = 0
	expItemListCount = 1
	treeNodes := Build(itemList, 1, cb, SurfaceAreaHeuristic)

	expCount = 4
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 7
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}

	// Partition two items in a single leaf
	cbCount = 0
	expItemListCount = 2
	treeNodes = Build(itemList, 2, cb, SurfaceAreaHeuristic)

	expCount = 2
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 3
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}
}

func TestEmptyBuild(t *testing.T) {
	tree := New(nil, 2)
	if len(tree.Nodes) != 0 {
		t.Fatalf("expected empty tree; got %d nodes", len(tree.Nodes))
	}
	if hits := tree.RangeQuery(types.Vec3{}, 10, func(BoundedVolume, float32) {}); hits != 0 {
		t.Fatalf("expected no hits on empty tree; got %d", hits)
	}
}

func TestRangeQueryMatchesBruteForce(t *testing.T) {
	var items []BoundedVolume
	id := 0
	for x := -4; x <= 4; x++ {
		for y := -4; y <= 4; y++ {
			for z := -2; z <= 2; z++ {
				items = append(items, pointVolume(id, types.Vec3{float32(x) * 0.5, float32(y) * 0.5, float32(z) * 0.5}))
				id++
			}
		}
	}
	tree := New(items, 2)

	type spec struct {
		center types.Vec3
		radius float32
	}
	specs := []spec{
		{types.Vec3{0, 0, 0}, 0.6},
		{types.Vec3{1, -1, 0.25}, 1.1},
		{types.Vec3{2, 2, 1}, 0.75},
		{types.Vec3{10, 10, 10}, 1},
	}

	for specIndex, s := range specs {
		var got []int
		tree.RangeQuery(s.center, s.radius, func(item BoundedVolume, sqDist float32) {
			got = append(got, item.(*testVolume).id)
			if sqDist >= s.radius*s.radius {
				t.Fatalf("[spec %d] expected squared distance < %f; got %f", specIndex, s.radius*s.radius, sqDist)
			}
		})

		var exp []int
		for _, item := range items {
			if item.Center().Sub(s.center).LenSq() < s.radius*s.radius {
				exp = append(exp, item.(*testVolume).id)
			}
		}

		sort.Ints(got)
		sort.Ints(exp)
		if len(got) != len(exp) {
			t.Fatalf("[spec %d] expected %d hits; got %d", specIndex, len(exp), len(got))
		}
		for i := range exp {
			if got[i] != exp[i] {
				t.Fatalf("[spec %d] expected hit %d to be item %d; got %d", specIndex, i, exp[i], got[i])
			}
		}
	}
}

func TestRayIntersect(t *testing.T) {
	items := []BoundedVolume{
		boxVolume(0, types.Vec3{-1, -1, -6}, types.Vec3{1, 1, -5}),
		boxVolume(1, types.Vec3{-1, -1, -3}, types.Vec3{1, 1, -2}),
		boxVolume(2, types.Vec3{4, 4, -3}, types.Vec3{5, 5, -2}),
	}
	tree := New(items, 1)

	// Report the near face of the box as hit distance.
	test := func(item BoundedVolume, tMax float32) (float32, bool) {
		bbox := item.BBox()
		if bbox[0][0] > 0 || bbox[1][0] < 0 {
			return 0, false
		}
		return -bbox[1][2], true
	}

	hit, dist, ok := tree.Intersect(types.Vec3{}, types.Vec3{0, 0, -1}, 100, false, test)
	if !ok || hit.(*testVolume).id != 1 || dist != 2 {
		t.Fatalf("expected closest hit to be item 1 at distance 2; got %v at %f (hit: %t)", hit, dist, ok)
	}

	if _, _, ok = tree.Intersect(types.Vec3{}, types.Vec3{0, 0, -1}, 1.5, true, test); ok {
		t.Fatal("expected no hit within max distance 1.5")
	}

	if _, _, ok = tree.Intersect(types.Vec3{}, types.Vec3{0, 0, 1}, 100, true, test); ok {
		t.Fatal("expected no hit for ray pointing away from the items")
	}
}
