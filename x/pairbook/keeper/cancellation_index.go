package keeper

import (
	"cosmossdk.io/math"
	"github.com/latticefi/pairbook/x/pairbook/types"
)

// priceSide keys the cancellation index by (price, side), since each
// price point tracks cancellations independently per side.
type priceSide struct {
	price string
	side  types.Side
}

// cancellationBucket is the per-(price,side) two-level structure: an
// outer tree over bucket totals, and a sparse map of inner trees, one per
// bucket of OffsetPerPricePoint indices. The inner
// map (rather than a fixed-size slice) keeps an idle price point's
// cancellation accounting at O(1) memory, same as the sparse leaves within
// each SegmentedSegmentTree.
type cancellationBucket struct {
	outer *SegmentedSegmentTree
	inner map[int]*SegmentedSegmentTree
}

func newCancellationBucket() *cancellationBucket {
	return &cancellationBucket{
		outer: NewSegmentedSegmentTree(),
		inner: make(map[int]*SegmentedSegmentTree),
	}
}

// CancellationIndex answers, in O(log N), "how much liquidity was
// cancelled at indices strictly before order k?" for an unbounded order
// count per (price, side) — the device that makes claim/cancel of a
// resting order cheap without rewriting the priority of later orders.
type CancellationIndex struct {
	quantum math.Int
	buckets map[priceSide]*cancellationBucket
}

// NewCancellationIndex returns an empty index. quantum is the scaling
// policy's per-(token) quantum used to translate between canonical
// amounts and the 64-bit leaves stored here.
func NewCancellationIndex(quantum math.Int) *CancellationIndex {
	return &CancellationIndex{
		quantum: quantum,
		buckets: make(map[priceSide]*cancellationBucket),
	}
}

func (c *CancellationIndex) bucketFor(price math.Int, side types.Side) *cancellationBucket {
	key := priceSide{price: price.String(), side: side}
	b, ok := c.buckets[key]
	if !ok {
		b = newCancellationBucket()
		c.buckets[key] = b
	}
	return b
}

// Record decomposes idx = bucket*OffsetPerPricePoint + pos, overwrites
// inner[bucket][pos] with the scaled-down amount, and recomputes
// outer[bucket] as that inner tree's new total.
func (c *CancellationIndex) Record(price math.Int, side types.Side, idx uint64, amount math.Int) error {
	raw, err := types.ScaleDown(amount, c.quantum)
	if err != nil {
		return err
	}

	bucket, pos := int(idx/types.OffsetPerPricePoint), int(idx%types.OffsetPerPricePoint)
	b := c.bucketFor(price, side)

	inner, ok := b.inner[bucket]
	if !ok {
		inner = NewSegmentedSegmentTree()
		b.inner[bucket] = inner
	}
	if err := inner.Update(pos, raw); err != nil {
		return err
	}
	return b.outer.Update(bucket, inner.Total())
}

// CumulativeBefore returns the sum of all cancellations with index < idx,
// in canonical units: outer.query(0,bucket) + inner[bucket].query(0,pos).
// It is monotone non-decreasing in idx and is
// never affected by a cancellation recorded at idx' >= idx.
func (c *CancellationIndex) CumulativeBefore(price math.Int, side types.Side, idx uint64) math.Int {
	bucket, pos := int(idx/types.OffsetPerPricePoint), int(idx%types.OffsetPerPricePoint)
	b, ok := c.buckets[priceSide{price: price.String(), side: side}]
	if !ok {
		return math.ZeroInt()
	}

	raw := b.outer.Query(0, bucket)
	if inner, ok := b.inner[bucket]; ok {
		raw += inner.Query(0, pos)
	}
	return types.ScaleUp(raw, c.quantum)
}
