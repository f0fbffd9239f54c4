package keeper

import (
	"cosmossdk.io/math"

	"github.com/latticefi/pairbook/x/pairbook/types"
)

// MatchingEngine walks a PriceBook against an incoming order, consuming
// resting liquidity in price-time priority across at most
// MaxMatchedPricePoints price levels. Each price point it visits has its
// Withdraw transition applied as part of the scan itself, so Entries
// reflects exactly the liquidity-watermark mutation already committed to
// the book.
type MatchingEngine struct {
	book *PriceBook
}

// NewMatchingEngine returns an engine reading and partially mutating book.
func NewMatchingEngine(book *PriceBook) *MatchingEngine {
	return &MatchingEngine{book: book}
}

// MatchResult is the outcome of one match() call.
type MatchResult struct {
	Entries    []types.MatchEntry
	Consumed   math.Int // sum of Entries[*].Consumed
	Remaining  math.Int // amount left unmatched after the scan
	PriceCount int
}

// Match consumes up to amount of liquidity on the opposite side of side,
// starting from the best available price and visiting at most
// MaxMatchedPricePoints populated price points. A
// buy order only matches against sell prices <= worstPrice (if set); a
// sell order only matches against buy prices >= worstPrice. worstPrice is
// the zero math.Int (IsNil or unset by the caller) to mean unbounded,
// expressed by passing hasWorstPrice=false.
//
// The engine applies each consumed price point's Withdraw transition as it
// scans, so Entries reflects exactly the state mutation already committed
// to the book; a caller that needs to roll back an aborted operation must
// undo each entry's used-watermark advance itself; the all-or-nothing
// guarantee around an aborted operation is the PairController's
// responsibility, not this engine's.
func (m *MatchingEngine) Match(side types.Side, amount math.Int, worstPrice math.Int, hasWorstPrice bool) MatchResult {
	result := MatchResult{
		Entries:   nil,
		Consumed:  math.ZeroInt(),
		Remaining: amount,
	}

	m.book.WalkFrom(side, func(p *types.PricePoint) bool {
		if hasWorstPrice {
			if side == types.SideBuy && p.Price.GT(worstPrice) {
				return false
			}
			if side == types.SideSell && p.Price.LT(worstPrice) {
				return false
			}
		}

		opposite := side.Opposite()
		available := p.TotalLiquidity(opposite).Sub(p.UsedLiquidity(opposite))
		if available.IsNegative() {
			available = math.ZeroInt()
		}
		if !available.IsPositive() {
			return true // empty price point, e.g. fully used but not yet pruned; keep scanning
		}

		consumed := available
		if result.Remaining.LT(consumed) {
			consumed = result.Remaining
		}
		if !consumed.IsPositive() {
			return false
		}

		m.book.Apply(opposite, p.Price, Withdraw, false, consumed, math.ZeroInt())

		result.Entries = append(result.Entries, types.MatchEntry{Price: p.Price, Consumed: consumed})
		result.Consumed = result.Consumed.Add(consumed)
		result.Remaining = result.Remaining.Sub(consumed)
		result.PriceCount++

		return result.Remaining.IsPositive()
	})

	return result
}
