package keeper

import (
	"cosmossdk.io/math"

	"github.com/latticefi/pairbook/x/pairbook/types"
)

// ClaimOracle evaluates how much of a resting order has been filled,
// without storing a per-order fill amount: it reconstructs the order's
// slice of the price point's fill queue from its recorded queue position
// and the cancellations that preceded it.
type ClaimOracle struct {
	cancellations *CancellationIndex
}

// NewClaimOracle returns an oracle reading from idx.
func NewClaimOracle(idx *CancellationIndex) *ClaimOracle {
	return &ClaimOracle{cancellations: idx}
}

// ClaimResult is the outcome of evaluating one order against its price
// point's current fill watermark.
type ClaimResult struct {
	State types.ClaimState
	// Claimable is the token amount currently claimable: 0 when
	// NotClaimable, the order's full amount when FullyClaimable, and the
	// filled slice of the order's amount when PartiallyClaimable.
	Claimable math.Int
}

// Evaluate computes realStart/realEnd from order's recorded queue
// position and cancellations preceding it, then classifies the order
// against the price point's current used-liquidity watermark:
//
//	realStart = preOrderLiquidityPosition - cancelledBefore(idx)
//	realEnd   = realStart + order.Amount
//
//	used <= realStart               -> NotClaimable
//	used >= realEnd                 -> FullyClaimable, Claimable = Amount
//	realStart < used < realEnd      -> PartiallyClaimable, Claimable = used - realStart
func (c *ClaimOracle) Evaluate(order *types.Order, used math.Int) ClaimResult {
	cancelledBefore := c.cancellations.CumulativeBefore(order.Price, order.Side, order.OrderIndexInPricePoint)

	realStart := order.PreOrderLiquidityPosition.Sub(cancelledBefore)
	if realStart.IsNegative() {
		realStart = math.ZeroInt()
	}
	realEnd := realStart.Add(order.Amount)

	switch {
	case used.LTE(realStart):
		return ClaimResult{State: types.NotClaimable, Claimable: math.ZeroInt()}
	case used.GTE(realEnd):
		return ClaimResult{State: types.FullyClaimable, Claimable: order.Amount}
	default:
		return ClaimResult{State: types.PartiallyClaimable, Claimable: used.Sub(realStart)}
	}
}
