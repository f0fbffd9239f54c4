package types

import (
	"time"

	"cosmossdk.io/math"
)

// AccountID is an opaque caller identity: callers are never compared by
// address, only by capability (e.g. the configured governance treasury).
type AccountID string

// OrderID is the monotonic, globally unique identifier OrderStore assigns.
type OrderID uint64

// Order is a resting order record, keyed by OrderID.
type Order struct {
	ID        OrderID
	Owner     AccountID
	Side      Side
	Price     math.Int
	Amount    math.Int // tokenAmount, in base units
	Status    OrderStatus
	CreatedAt time.Time

	// OrderIndexInPricePoint is this order's zero-based index within its
	// (price, side) queue, equal to the side's order count at insertion.
	OrderIndexInPricePoint uint64

	// PreOrderLiquidityPosition anchors this order's time priority: the
	// side's usedSideLiquidity plus totalSideLiquidity, both measured
	// after this call's own taker withdrawals and before this order's own
	// deposit. The used term fixes this order above every unit already
	// claimed or claimable ahead of it; the total term fixes it above
	// every unit of depth still resting ahead of it at placement.
	PreOrderLiquidityPosition math.Int
}

// IsOpen reports whether the order can still be claimed or cancelled.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}
