package types

import "cosmossdk.io/math"

// PricePoint is the per-price liquidity state: totals, the fill
// watermark, and an all-time order count, on each side. The "fill
// watermark" (UsedBuyLiquidity/UsedSellLiquidity) only ever advances on a
// taker withdrawal and only ever retreats on a cancel withdrawal;
// BuyOrderCount/SellOrderCount are monotone and never decremented.
type PricePoint struct {
	Price math.Int

	TotalBuyLiquidity  math.Int
	TotalSellLiquidity math.Int
	UsedBuyLiquidity   math.Int
	UsedSellLiquidity  math.Int

	BuyOrderCount  uint64
	SellOrderCount uint64
}

// NewPricePoint returns a zeroed PricePoint for price.
func NewPricePoint(price math.Int) *PricePoint {
	return &PricePoint{
		Price:              price,
		TotalBuyLiquidity:  math.ZeroInt(),
		TotalSellLiquidity: math.ZeroInt(),
		UsedBuyLiquidity:   math.ZeroInt(),
		UsedSellLiquidity:  math.ZeroInt(),
	}
}

// TotalLiquidity returns the resting liquidity on side.
func (p *PricePoint) TotalLiquidity(side Side) math.Int {
	if side == SideBuy {
		return p.TotalBuyLiquidity
	}
	return p.TotalSellLiquidity
}

// UsedLiquidity returns the fill watermark on side.
func (p *PricePoint) UsedLiquidity(side Side) math.Int {
	if side == SideBuy {
		return p.UsedBuyLiquidity
	}
	return p.UsedSellLiquidity
}

// OrderCount returns the all-time order count on side.
func (p *PricePoint) OrderCount(side Side) uint64 {
	if side == SideBuy {
		return p.BuyOrderCount
	}
	return p.SellOrderCount
}

// IsEmpty reports whether the price point carries no resting liquidity on
// either side and can be pruned from the book.
func (p *PricePoint) IsEmpty() bool {
	return p.TotalBuyLiquidity.IsZero() && p.TotalSellLiquidity.IsZero()
}
