package keeper

import (
	"cosmossdk.io/math"
	"github.com/huandu/skiplist"

	"github.com/latticefi/pairbook/x/pairbook/types"
)

// ascComparable orders math.Int ascending, for the sell-side (ask)
// skiplist; descComparable is its mirror, for the buy-side (bid) skiplist.
// huandu/skiplist needs
// a skiplist.Comparable per ordering direction, one skiplist per side of
// the book.
type ascComparable struct{}

func (ascComparable) Compare(lhs, rhs interface{}) int {
	return lhs.(math.Int).BigInt().Cmp(rhs.(math.Int).BigInt())
}

// CalcScore always returns 0; huandu/skiplist only uses the score as a
// Compare shortcut, and there is no cheap way to map an arbitrary-precision
// math.Int into a float64 score without losing ordering information.
func (ascComparable) CalcScore(key interface{}) float64 {
	return 0
}

type descComparable struct{}

func (descComparable) Compare(lhs, rhs interface{}) int {
	return -ascComparable{}.Compare(lhs, rhs)
}

func (descComparable) CalcScore(key interface{}) float64 {
	return 0
}

// PriceBook is the ordered index of PricePoints for both sides' price
// levels: a skiplist per side, holding the prices with resting liquidity
// on that side, gives O(log N) insert,
// delete, and "next/previous populated price" for the matching scan, and
// an ordered walk for query endpoints.
type PriceBook struct {
	points map[string]*types.PricePoint

	buyPrices  *skiplist.SkipList // descending: best bid first
	sellPrices *skiplist.SkipList // ascending: best ask first

	// leadingPrice is advisory: leading prices only ever promote, never
	// retreat, and the matching scan does not consult them (WalkFrom reads
	// the skiplists directly).
	buyLeadingPrice  *math.Int
	sellLeadingPrice *math.Int
}

// NewPriceBook returns an empty book.
func NewPriceBook() *PriceBook {
	return &PriceBook{
		points:     make(map[string]*types.PricePoint),
		buyPrices:  skiplist.New(descComparable{}),
		sellPrices: skiplist.New(ascComparable{}),
	}
}

func (b *PriceBook) pointAt(price math.Int) *types.PricePoint {
	p, ok := b.points[price.String()]
	if !ok {
		p = types.NewPricePoint(price)
		b.points[price.String()] = p
	}
	return p
}

// PointAt returns the PricePoint at price if it is currently in the book,
// or nil; a point is pruned once both sides' total liquidity reach zero.
func (b *PriceBook) PointAt(price math.Int) (*types.PricePoint, bool) {
	p, ok := b.points[price.String()]
	return p, ok
}

func (b *PriceBook) prune(price math.Int) {
	p, ok := b.points[price.String()]
	if !ok {
		return
	}
	if p.TotalBuyLiquidity.IsZero() {
		b.buyPrices.Remove(price)
	}
	if p.TotalSellLiquidity.IsZero() {
		b.sellPrices.Remove(price)
	}
	if p.IsEmpty() {
		delete(b.points, price.String())
	}
}

// direction distinguishes a deposit (new resting liquidity) from a
// withdrawal (taker fill or cancel).
type direction int

const (
	Deposit direction = iota
	Withdraw
)

// Apply mutates the PricePoint at price per the transition table over
// (side, direction, isCancel):
//
//	Deposit                      -> TotalLiquidity += amount, OrderCount++
//	Withdraw, taker fill          -> UsedLiquidity += amount
//	Withdraw, cancel              -> TotalLiquidity -= amount; if the
//	                                 cancelled order had already been
//	                                 partially filled, UsedLiquidity -= the
//	                                 filled portion only
//
// amount is always expressed in the canonical units the caller already
// holds; cancelFilled is the portion of a cancelled order's amount that had
// already been matched, non-zero only when isCancel is true.
func (b *PriceBook) Apply(side types.Side, price math.Int, dir direction, isCancel bool, amount, cancelFilled math.Int) {
	p := b.pointAt(price)

	switch dir {
	case Deposit:
		if side == types.SideBuy {
			p.TotalBuyLiquidity = p.TotalBuyLiquidity.Add(amount)
			p.BuyOrderCount++
			b.buyPrices.Set(price, p)
		} else {
			p.TotalSellLiquidity = p.TotalSellLiquidity.Add(amount)
			p.SellOrderCount++
			b.sellPrices.Set(price, p)
		}
		b.promote(side, price)
	case Withdraw:
		if isCancel {
			if side == types.SideBuy {
				p.TotalBuyLiquidity = p.TotalBuyLiquidity.Sub(amount)
				p.UsedBuyLiquidity = p.UsedBuyLiquidity.Sub(cancelFilled)
			} else {
				p.TotalSellLiquidity = p.TotalSellLiquidity.Sub(amount)
				p.UsedSellLiquidity = p.UsedSellLiquidity.Sub(cancelFilled)
			}
			b.prune(price)
		} else {
			if side == types.SideBuy {
				p.UsedBuyLiquidity = p.UsedBuyLiquidity.Add(amount)
			} else {
				p.UsedSellLiquidity = p.UsedSellLiquidity.Add(amount)
			}
		}
	}
}

// Retire removes a fully- or partially-claimed resting order's amount from
// the side's total liquidity without touching the used watermark: the
// watermark was already advanced by the taker withdrawal that filled this
// amount, so re-applying it here would double-count the fill. This is the
// claim counterpart to Apply's cancel branch, which retires an unfilled
// amount and retreats the watermark instead.
func (b *PriceBook) Retire(side types.Side, price math.Int, amount math.Int) {
	p := b.pointAt(price)
	if side == types.SideBuy {
		p.TotalBuyLiquidity = p.TotalBuyLiquidity.Sub(amount)
	} else {
		p.TotalSellLiquidity = p.TotalSellLiquidity.Sub(amount)
	}
	b.prune(price)
}

// promote advances the leading price for side if price is better (higher
// for buy, lower for sell) than the current leading price, or if there is
// none yet. It never retreats.
func (b *PriceBook) promote(side types.Side, price math.Int) {
	if side == types.SideBuy {
		if b.buyLeadingPrice == nil || price.GT(*b.buyLeadingPrice) {
			p := price
			b.buyLeadingPrice = &p
		}
		return
	}
	if b.sellLeadingPrice == nil || price.LT(*b.sellLeadingPrice) {
		p := price
		b.sellLeadingPrice = &p
	}
}

// LeadingPrice returns side's leading price hint and whether one has ever
// been set.
func (b *PriceBook) LeadingPrice(side types.Side) (math.Int, bool) {
	if side == types.SideBuy {
		if b.buyLeadingPrice == nil {
			return math.Int{}, false
		}
		return *b.buyLeadingPrice, true
	}
	if b.sellLeadingPrice == nil {
		return math.Int{}, false
	}
	return *b.sellLeadingPrice, true
}

// BestPrice returns the best populated price on side (highest for buy,
// lowest for sell) and whether one exists, reading the head of that
// side's skiplist directly rather than the advisory leading-price hint.
func (b *PriceBook) BestPrice(side types.Side) (math.Int, bool) {
	var list *skiplist.SkipList
	if side == types.SideBuy {
		list = b.buyPrices
	} else {
		list = b.sellPrices
	}
	el := list.Front()
	if el == nil {
		return math.Int{}, false
	}
	return el.Value.(*types.PricePoint).Price, true
}

// WalkFrom visits populated price points on the opposite side of side,
// starting at the best price consistent with matching against side, in
// price-priority order, until visit returns false or MaxMatchedPricePoints
// points have been visited. A buy order matches against
// ascending sell prices; a sell order matches against descending buy
// prices.
func (b *PriceBook) WalkFrom(side types.Side, visit func(*types.PricePoint) bool) {
	var list *skiplist.SkipList
	if side == types.SideBuy {
		list = b.sellPrices
	} else {
		list = b.buyPrices
	}

	visited := 0
	for el := list.Front(); el != nil && visited < types.MaxMatchedPricePoints; el = el.Next() {
		p := el.Value.(*types.PricePoint)
		visited++
		if !visit(p) {
			return
		}
	}
}
