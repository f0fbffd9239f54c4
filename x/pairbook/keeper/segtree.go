package keeper

import (
	"math"

	"github.com/latticefi/pairbook/x/pairbook/types"
)

// segmentTreeCapacity is the fixed leaf count of one SegmentedSegmentTree:
// the inner per-bucket trees use it directly, and the outer tree (one leaf
// per bucket) reuses it as its own capacity, which bounds a single pair's
// cancellation index to OffsetPerPricePoint*OffsetPerPricePoint addressable
// order slots per (price, side) — far beyond any order count a bounded
// 5-level matching window will ever need to address.
const segmentTreeCapacity = types.OffsetPerPricePoint

// SegmentedSegmentTree is a fixed-capacity, 32768-leaf segment tree of
// non-negative 64-bit integers supporting point update (overwrite), range
// sum, and O(1) total. Leaves default to zero and are never
// eagerly allocated: nodes is a sparse map from node index (1-based,
// children of i at 2i/2i+1) to running subtree sum, so an all-zero tree
// costs O(1) memory.
type SegmentedSegmentTree struct {
	capacity int
	nodes    map[int]uint64
}

// NewSegmentedSegmentTree returns an empty tree of the fixed capacity.
func NewSegmentedSegmentTree() *SegmentedSegmentTree {
	return &SegmentedSegmentTree{
		capacity: segmentTreeCapacity,
		nodes:    make(map[int]uint64),
	}
}

// Total returns the sum of all leaves in O(1): it is exactly the value
// held at the root node (index 1).
func (t *SegmentedSegmentTree) Total() uint64 {
	return t.nodes[1]
}

// Update overwrites leaf i with value v, in O(log capacity). It rejects an
// update that would push any ancestor subtree sum past math.MaxUint64.
func (t *SegmentedSegmentTree) Update(i int, v uint64) error {
	if i < 0 || i >= t.capacity {
		return types.ErrInvalidAmount.Wrapf("leaf index %d out of range [0,%d)", i, t.capacity)
	}

	// Precompute the full chain of ancestor node indices from leaf to root,
	// plus the previous leaf value, so the overflow check can be performed
	// before any node is mutated (overflow must leave the tree untouched).
	path := t.ancestorPath(i)
	oldLeaf := t.leafValue(i)

	if v >= oldLeaf {
		delta := v - oldLeaf
		for _, node := range path {
			if delta > 0 && t.nodes[node] > math.MaxUint64-delta {
				return types.ErrOverflow.Wrapf("update at leaf %d overflows node %d", i, node)
			}
		}
		for _, node := range path {
			t.nodes[node] += delta
		}
	} else {
		delta := oldLeaf - v
		for _, node := range path {
			t.nodes[node] -= delta
		}
	}

	if v == 0 {
		t.clearLeafPath(i)
	}
	return nil
}

// Query returns the sum of leaves in the half-open range [l, r).
func (t *SegmentedSegmentTree) Query(l, r int) uint64 {
	if l < 0 {
		l = 0
	}
	if r > t.capacity {
		r = t.capacity
	}
	if l >= r {
		return 0
	}
	return t.query(1, 0, t.capacity-1, l, r-1)
}

// leafValue returns the current value stored at leaf i (0 if never set).
func (t *SegmentedSegmentTree) leafValue(i int) uint64 {
	node := t.leafNode(i)
	return t.nodes[node]
}

// leafNode maps leaf index i to its 1-based node index in the implicit
// complete binary tree spanning [0, capacity).
func (t *SegmentedSegmentTree) leafNode(i int) int {
	node, lo, hi := 1, 0, t.capacity-1
	for lo != hi {
		mid := (lo + hi) / 2
		if i <= mid {
			node = node * 2
			hi = mid
		} else {
			node = node*2 + 1
			lo = mid + 1
		}
	}
	return node
}

// ancestorPath returns the node indices from leaf i up to and including
// the root, leaf first.
func (t *SegmentedSegmentTree) ancestorPath(i int) []int {
	node := t.leafNode(i)
	var path []int
	for node >= 1 {
		path = append(path, node)
		if node == 1 {
			break
		}
		node /= 2
	}
	return path
}

// clearLeafPath removes zero-valued nodes along i's ancestor path from the
// sparse map, keeping memory proportional to the number of non-zero leaves
// rather than to capacity.
func (t *SegmentedSegmentTree) clearLeafPath(i int) {
	for _, node := range t.ancestorPath(i) {
		if t.nodes[node] == 0 {
			delete(t.nodes, node)
		}
	}
}

func (t *SegmentedSegmentTree) query(node, lo, hi, l, r int) uint64 {
	if r < lo || hi < l {
		return 0
	}
	if l <= lo && hi <= r {
		return t.nodes[node]
	}
	mid := (lo + hi) / 2
	return t.query(node*2, lo, mid, l, r) + t.query(node*2+1, mid+1, hi, l, r)
}
