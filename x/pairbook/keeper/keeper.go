package keeper

import (
	"math/big"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/latticefi/pairbook/metrics"
	"github.com/latticefi/pairbook/x/pairbook/types"
)

// intToFloat64 converts a math.Int to a float64 for Prometheus export.
// Precision loss beyond float64's ~15 significant digits is acceptable for
// a metric; ledger and matching arithmetic never uses this helper.
func intToFloat64(v math.Int) float64 {
	f := new(big.Float).SetInt(v.BigInt())
	out, _ := f.Float64()
	return out
}

// Config is the construction-time configuration for one pair: base/quote
// asset handles, the price quantum, initial fee policy, and the
// governance capability that gates collectFees/updateMarketPolicy.
type Config struct {
	BaseAsset          types.AssetID
	QuoteAsset         types.AssetID
	PricePrecision     math.Int
	InitialMakerFee    math.Int // FeePrecision units
	InitialTakerFee    math.Int // FeePrecision units
	GovernanceTreasury types.AccountID
	ScalingQuantum     math.Int
}

// Keeper is the pair controller: it orchestrates PriceBook, OrderStore,
// MatchingEngine, CancellationIndex and ClaimOracle against a single
// pair, and owns the external AssetLedger/ObservationSink collaborators.
// All state is held in memory; persistence is out of scope.
type Keeper struct {
	logger log.Logger

	cfg Config

	ledger  types.AssetLedger
	scaling types.ScalingPolicy
	sink    types.ObservationSink

	book          *PriceBook
	orders        *OrderStore
	cancellations *CancellationIndex
	matching      *MatchingEngine
	claims        *ClaimOracle

	makerFee       math.Int
	takerFee       math.Int
	pricePrecision math.Int

	latestTradePrice math.Int
	hasTraded        bool

	quoteFeeBalance math.Int
	baseFeeBalance  math.Int

	metrics *metrics.Collector
}

// NewKeeper constructs a Keeper for one pair.
func NewKeeper(cfg Config, ledger types.AssetLedger, scaling types.ScalingPolicy, sink types.ObservationSink, logger log.Logger, mtr *metrics.Collector) *Keeper {
	if sink == nil {
		sink = types.NopSink{}
	}
	book := NewPriceBook()
	cancellations := NewCancellationIndex(cfg.ScalingQuantum)
	return &Keeper{
		logger:           logger.With("module", "x/pairbook"),
		cfg:              cfg,
		ledger:           ledger,
		scaling:          scaling,
		sink:             sink,
		book:             book,
		orders:           NewOrderStore(),
		cancellations:    cancellations,
		matching:         NewMatchingEngine(book),
		claims:           NewClaimOracle(cancellations),
		makerFee:         cfg.InitialMakerFee,
		takerFee:         cfg.InitialTakerFee,
		pricePrecision:   cfg.PricePrecision,
		latestTradePrice: math.ZeroInt(),
		quoteFeeBalance:  math.ZeroInt(),
		baseFeeBalance:   math.ZeroInt(),
		metrics:          mtr,
	}
}

// Logger returns the module-scoped logger.
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// quoteAmount converts a (price, baseAmount) pair to the quote-asset
// amount it costs: price is quote-per-base scaled by
// pricePrecision.
func (k *Keeper) quoteAmount(price, baseAmount math.Int) math.Int {
	return price.Mul(baseAmount).Quo(k.pricePrecision)
}

func applyFee(amount, feeRate math.Int) (net, fee math.Int) {
	fee = amount.Mul(feeRate).Quo(math.NewInt(types.FeePrecision))
	net = amount.Sub(fee)
	return net, fee
}

// recordDepth snapshots the resting liquidity at price into the orderbook
// depth gauge, per side. Called after any operation that touches price's
// PricePoint.
func (k *Keeper) recordDepth(price math.Int) {
	if k.metrics == nil {
		return
	}
	p, ok := k.book.PointAt(price)
	if !ok {
		return
	}
	k.metrics.OrderbookDepth.WithLabelValues(types.SideBuy.String()).Set(intToFloat64(p.TotalBuyLiquidity))
	k.metrics.OrderbookDepth.WithLabelValues(types.SideSell.String()).Set(intToFloat64(p.TotalSellLiquidity))
}

// observeMatchingLatency records the elapsed wall-clock time of a match()
// scan started at timer.
func (k *Keeper) observeMatchingLatency(timer *metrics.Timer) {
	if k.metrics == nil {
		return
	}
	k.metrics.MatchingLatency.Observe(timer.ElapsedMs())
}

// recordTradeVolume accumulates each match entry's consumed amount into the
// per-side trade-volume counter.
func (k *Keeper) recordTradeVolume(side types.Side, entries []types.MatchEntry) {
	if k.metrics == nil {
		return
	}
	for _, e := range entries {
		k.metrics.TradeVolume.WithLabelValues(side.String()).Add(intToFloat64(e.Consumed))
	}
}

// InsertLimitOrder debits the entry leg, matches against resting
// liquidity on the opposite side, and deposits any unmatched residual as
// a new resting order.
func (k *Keeper) InsertLimitOrder(caller types.AccountID, side types.Side, price, amount math.Int) (types.OrderID, error) {
	if !side.IsValid() {
		return 0, types.ErrInvalidSide.Wrapf("side %s", side)
	}
	if !amount.IsPositive() {
		return 0, types.ErrInvalidAmount.Wrap("amount must be positive")
	}
	if !price.IsPositive() {
		return 0, types.ErrInvalidPrice.Wrap("price must be positive")
	}
	price = types.QuantizeToPrecision(price, k.pricePrecision)

	// Step 1: pull the entry asset.
	entryAsset, entryAmount := k.entryLeg(side, price, amount)
	if err := k.ledger.Debit(caller, entryAsset, entryAmount); err != nil {
		return 0, types.ErrLedger.Wrap(err.Error())
	}

	// Step 2: match via C5 starting at price, bounded by price as the
	// caller's own worst-price limit.
	timer := metrics.NewTimer()
	result := k.matching.Match(side, amount, price, true)
	k.observeMatchingLatency(timer)

	var takerCredit, takerFee math.Int
	if len(result.Entries) > 0 {
		k.latestTradePrice = result.Entries[len(result.Entries)-1].Price
		k.hasTraded = true

		proceeds := k.takerProceeds(side, result.Entries)
		takerCredit, takerFee = applyFee(proceeds, k.takerFee)
		creditAsset := k.oppositeAsset(side)
		k.ledger.Credit(caller, creditAsset, takerCredit)
		k.accumulateFee(creditAsset, takerFee)
		k.recordTradeVolume(side, result.Entries)
	}

	var orderID types.OrderID
	if result.Remaining.IsPositive() {
		point := k.book.pointAt(price)
		orderIndex := point.OrderCount(side)
		// preOrderLiquidityPosition anchors this order above every unit of
		// depth already queued ahead of it: the side's used watermark
		// (after this call's own taker withdrawals) plus the resting total
		// already deposited at this price and side.
		preOrderPos := point.UsedLiquidity(side).Add(point.TotalLiquidity(side))

		k.book.Apply(side, price, Deposit, false, result.Remaining, math.ZeroInt())

		o := k.orders.Create(caller, side, price, result.Remaining, orderIndex, preOrderPos, time.Now())
		orderID = o.ID
		if k.metrics != nil {
			k.metrics.OrdersActive.Inc()
		}
	}

	if k.metrics != nil {
		k.metrics.OrdersTotal.WithLabelValues(side.String(), types.OrderTypeLimit.String()).Inc()
	}
	k.recordDepth(price)

	k.sink.Emit(types.LimitOrderInserted{
		OrderID:  orderID,
		Owner:    caller,
		Price:    price,
		Matched:  result.Entries,
		Residual: result.Remaining,
		Side:     side,
	})
	if k.metrics != nil {
		k.metrics.ObserveMatch(len(result.Entries))
	}
	return orderID, nil
}

// InsertMarketOrder sweeps resting liquidity on the opposite side up to
// worstPrice, atomically: any violation of worstPrice or leftover
// unfilled amount rolls the scan back and returns an error.
func (k *Keeper) InsertMarketOrder(caller types.AccountID, side types.Side, amount, worstPrice math.Int) (types.OrderID, error) {
	if !side.IsValid() {
		return 0, types.ErrInvalidSide.Wrapf("side %s", side)
	}
	if !amount.IsPositive() {
		return 0, types.ErrInvalidAmount.Wrap("amount must be positive")
	}
	if !k.hasTraded {
		return 0, types.ErrNotEnoughLiquidity.Wrap("no prior trade to anchor a market order scan")
	}

	timer := metrics.NewTimer()
	result := k.matching.Match(side, amount, math.Int{}, false)
	k.observeMatchingLatency(timer)
	if len(result.Entries) == 0 {
		return 0, types.ErrNotEnoughLiquidity.Wrap("no liquidity available")
	}

	for _, e := range result.Entries {
		if side == types.SideBuy && e.Price.GT(worstPrice) {
			k.rollbackMatch(side, result.Entries)
			return 0, types.ErrExceedWorstPrice.Wrapf("worst %s offered %s", worstPrice, e.Price)
		}
		if side == types.SideSell && e.Price.LT(worstPrice) {
			k.rollbackMatch(side, result.Entries)
			return 0, types.ErrExceedWorstPrice.Wrapf("worst %s offered %s", worstPrice, e.Price)
		}
	}

	if result.Remaining.IsPositive() {
		k.rollbackMatch(side, result.Entries)
		return 0, types.ErrNotEnoughLiquidity.Wrap("residual after scanning the matching window")
	}

	entryAsset, entryAmount := k.entryLegFromEntries(side, result.Entries)
	if err := k.ledger.Debit(caller, entryAsset, entryAmount); err != nil {
		k.rollbackMatch(side, result.Entries)
		return 0, types.ErrLedger.Wrap(err.Error())
	}

	k.latestTradePrice = result.Entries[len(result.Entries)-1].Price
	k.hasTraded = true

	proceeds := k.takerProceeds(side, result.Entries)
	creditAsset := k.oppositeAsset(side)
	net, fee := applyFee(proceeds, k.takerFee)
	k.ledger.Credit(caller, creditAsset, net)
	k.accumulateFee(creditAsset, fee)
	k.recordTradeVolume(side, result.Entries)

	if k.metrics != nil {
		k.metrics.OrdersTotal.WithLabelValues(side.String(), types.OrderTypeMarket.String()).Inc()
	}
	for _, e := range result.Entries {
		k.recordDepth(e.Price)
	}

	k.sink.Emit(types.MarketOrderInserted{
		OrderID:    0,
		Owner:      caller,
		Amount:     amount,
		Matched:    result.Entries,
		WorstPrice: worstPrice,
		Side:       side,
	})
	if k.metrics != nil {
		k.metrics.ObserveMatch(len(result.Entries))
	}
	return 0, nil
}

// ClaimOrder credits a fully-filled resting order's proceeds to its
// owner and marks it claimed.
func (k *Keeper) ClaimOrder(caller types.AccountID, id types.OrderID) error {
	o, ok := k.orders.Get(id)
	if !ok {
		return types.ErrOrderNotFound.Wrapf("order %d", id)
	}
	if caller != o.Owner {
		return types.ErrInvalidCaller.Wrapf("caller %s is not order %d's owner", caller, id)
	}
	if !o.IsOpen() {
		return types.ErrInvalidOrderStatus.Wrapf("order %d is %s", id, o.Status)
	}

	used := k.book.pointAt(o.Price).UsedLiquidity(o.Side)
	res := k.claims.Evaluate(o, used)
	if res.State != types.FullyClaimable {
		return types.ErrIsNotFullyClaimable.Wrapf("order %d", id)
	}

	// The watermark already advanced when the taker(s) that filled this
	// order matched against it; retiring the order only needs to remove
	// its liquidity from the total, not touch used again.
	k.book.Retire(o.Side, o.Price, o.Amount)
	if err := k.orders.MarkClaimed(id); err != nil {
		return err
	}

	claimAsset := k.oppositeAsset(o.Side)
	net, fee := applyFee(k.claimAmountFor(o.Side, o.Price, o.Amount), k.makerFee)
	k.ledger.Credit(o.Owner, claimAsset, net)
	k.accumulateFee(claimAsset, fee)
	if k.metrics != nil {
		k.metrics.OrdersActive.Dec()
	}
	k.recordDepth(o.Price)

	k.sink.Emit(types.LimitMakerOrderClaimed{
		OrderID: id,
		Owner:   o.Owner,
		Price:   o.Price,
		Claimed: net,
		Fee:     fee,
		Side:    o.Side,
	})
	return nil
}

// CancelOrder withdraws a resting order from the book, crediting any
// already-filled slice at the maker rate and refunding the unfilled
// slice in the order's entry asset.
func (k *Keeper) CancelOrder(caller types.AccountID, id types.OrderID) error {
	o, ok := k.orders.Get(id)
	if !ok {
		return types.ErrOrderNotFound.Wrapf("order %d", id)
	}
	if caller != o.Owner {
		return types.ErrInvalidCaller.Wrapf("caller %s is not order %d's owner", caller, id)
	}
	if !o.IsOpen() {
		return types.ErrInvalidOrderStatus.Wrapf("order %d is %s", id, o.Status)
	}

	used := k.book.pointAt(o.Price).UsedLiquidity(o.Side)
	res := k.claims.Evaluate(o, used)

	claimAsset := k.oppositeAsset(o.Side)
	entryAsset := k.entryAsset(o.Side)

	var claimedNet, claimFee, refund math.Int
	claimedNet, claimFee, refund = math.ZeroInt(), math.ZeroInt(), math.ZeroInt()

	switch res.State {
	case types.FullyClaimable:
		k.book.Retire(o.Side, o.Price, o.Amount)
		claimedNet, claimFee = applyFee(k.claimAmountFor(o.Side, o.Price, o.Amount), k.makerFee)
		k.ledger.Credit(o.Owner, claimAsset, claimedNet)
		k.accumulateFee(claimAsset, claimFee)
	case types.PartiallyClaimable:
		c := res.Claimable
		k.book.Retire(o.Side, o.Price, c)
		claimedNet, claimFee = applyFee(k.claimAmountFor(o.Side, o.Price, c), k.makerFee)
		k.ledger.Credit(o.Owner, claimAsset, claimedNet)
		k.accumulateFee(claimAsset, claimFee)

		// The residual was never matched against: its cancellation must
		// not retreat the watermark (cancelFilled=0), only retire it from
		// the side's total.
		residual := o.Amount.Sub(c)
		k.book.Apply(o.Side, o.Price, Withdraw, true, residual, math.ZeroInt())
		if err := k.cancellations.Record(o.Price, o.Side, o.OrderIndexInPricePoint, residual); err != nil {
			return err
		}
		refund = k.entryAmountFor(o.Side, o.Price, residual)
		k.ledger.Credit(o.Owner, entryAsset, refund)
	case types.NotClaimable:
		k.book.Apply(o.Side, o.Price, Withdraw, true, o.Amount, math.ZeroInt())
		if err := k.cancellations.Record(o.Price, o.Side, o.OrderIndexInPricePoint, o.Amount); err != nil {
			return err
		}
		refund = k.entryAmountFor(o.Side, o.Price, o.Amount)
		k.ledger.Credit(o.Owner, entryAsset, refund)
	}

	if err := k.orders.MarkCanceled(id); err != nil {
		return err
	}
	if k.metrics != nil {
		k.metrics.OrdersActive.Dec()
	}
	k.recordDepth(o.Price)

	k.sink.Emit(types.LimitMakerOrderCanceled{
		OrderID: id,
		Owner:   o.Owner,
		Price:   o.Price,
		Refund:  refund,
		Claimed: claimedNet,
		Fee:     claimFee,
		Side:    o.Side,
	})
	return nil
}

// CollectFees sweeps the accumulated quote/base fee balances to the
// governance treasury. caller must equal the configured governance
// treasury capability.
func (k *Keeper) CollectFees(caller types.AccountID) error {
	if caller != k.cfg.GovernanceTreasury {
		return types.ErrInvalidCaller.Wrapf("caller %s", caller)
	}
	if k.quoteFeeBalance.IsPositive() {
		k.ledger.Credit(k.cfg.GovernanceTreasury, k.cfg.QuoteAsset, k.quoteFeeBalance)
	}
	if k.baseFeeBalance.IsPositive() {
		k.ledger.Credit(k.cfg.GovernanceTreasury, k.cfg.BaseAsset, k.baseFeeBalance)
	}
	if k.metrics != nil {
		k.metrics.FeesCollected.WithLabelValues(string(k.cfg.QuoteAsset)).Add(intToFloat64(k.quoteFeeBalance))
		k.metrics.FeesCollected.WithLabelValues(string(k.cfg.BaseAsset)).Add(intToFloat64(k.baseFeeBalance))
	}
	k.sink.Emit(types.FeesCollected{
		Treasury:  k.cfg.GovernanceTreasury,
		QuoteFees: k.quoteFeeBalance,
		BaseFees:  k.baseFeeBalance,
	})
	k.quoteFeeBalance = math.ZeroInt()
	k.baseFeeBalance = math.ZeroInt()
	return nil
}

// UpdateMarketPolicy updates the maker/taker fee rates and price
// precision. caller must equal the configured governance treasury
// capability.
func (k *Keeper) UpdateMarketPolicy(caller types.AccountID, makerFee, takerFee, pricePrecision math.Int) error {
	if caller != k.cfg.GovernanceTreasury {
		return types.ErrInvalidCaller.Wrapf("caller %s", caller)
	}
	if !pricePrecision.IsPositive() {
		return types.ErrInvalidPrecision.Wrap("price precision must be positive")
	}
	if makerFee.IsNegative() || takerFee.IsNegative() {
		return types.ErrInvalidFeeRate.Wrap("fee rate must be non-negative")
	}
	k.makerFee = makerFee
	k.takerFee = takerFee
	k.pricePrecision = pricePrecision
	k.sink.Emit(types.FeePolicyUpdated{
		MakerFee:       makerFee,
		TakerFee:       takerFee,
		PricePrecision: pricePrecision,
	})
	return nil
}

// entryLeg returns the asset and amount a resting order's deposit side
// pulls from the caller: buy pulls quote, amount price*tokenAmount; sell
// pulls base, amount tokenAmount.
func (k *Keeper) entryLeg(side types.Side, price, amount math.Int) (types.AssetID, math.Int) {
	if side == types.SideBuy {
		return k.cfg.QuoteAsset, k.quoteAmount(price, amount)
	}
	return k.cfg.BaseAsset, amount
}

func (k *Keeper) entryAsset(side types.Side) types.AssetID {
	if side == types.SideBuy {
		return k.cfg.QuoteAsset
	}
	return k.cfg.BaseAsset
}

func (k *Keeper) entryAmountFor(side types.Side, price, amount math.Int) math.Int {
	if side == types.SideBuy {
		return k.quoteAmount(price, amount)
	}
	return amount
}

// claimAmountFor converts a claimed slice of a resting order's base-unit
// tokenAmount into the asset the maker is paid in: a buy order is paid in
// base (no conversion, it already deposited quote up front), a sell order
// is paid in quote (price*amount, it deposited base up front).
func (k *Keeper) claimAmountFor(side types.Side, price, amount math.Int) math.Int {
	if side == types.SideBuy {
		return amount
	}
	return k.quoteAmount(price, amount)
}

// entryLegFromEntries sums the exact amount a market order consumes
// across its match entries.
func (k *Keeper) entryLegFromEntries(side types.Side, entries []types.MatchEntry) (types.AssetID, math.Int) {
	total := math.ZeroInt()
	for _, e := range entries {
		if side == types.SideBuy {
			total = total.Add(k.quoteAmount(e.Price, e.Consumed))
		} else {
			total = total.Add(e.Consumed)
		}
	}
	return k.entryAsset(side), total
}

// oppositeAsset is the asset a taker is credited in: buy credits base,
// sell credits quote.
func (k *Keeper) oppositeAsset(side types.Side) types.AssetID {
	if side == types.SideBuy {
		return k.cfg.BaseAsset
	}
	return k.cfg.QuoteAsset
}

// takerProceeds sums the taker's gross credit across match entries: for a
// buy, base received = Σ consumed; for a sell, quote received = Σ
// price·consumed.
func (k *Keeper) takerProceeds(side types.Side, entries []types.MatchEntry) math.Int {
	total := math.ZeroInt()
	for _, e := range entries {
		if side == types.SideBuy {
			total = total.Add(e.Consumed)
		} else {
			total = total.Add(k.quoteAmount(e.Price, e.Consumed))
		}
	}
	return total
}

func (k *Keeper) accumulateFee(asset types.AssetID, fee math.Int) {
	if asset == k.cfg.QuoteAsset {
		k.quoteFeeBalance = k.quoteFeeBalance.Add(fee)
	} else {
		k.baseFeeBalance = k.baseFeeBalance.Add(fee)
	}
}

// rollbackMatch reverses the taker Withdraw transitions Match already
// applied (usedOppositeLiquidity -= consumed; the matching scan never
// touches totalOppositeLiquidity — only a cancel or a claim retirement
// does), restoring the book to its pre-scan state on a failing aborted
// market order and preserving the all-or-nothing guarantee around it;
// ledger calls are staged last so a validation failure here costs no
// external effects.
func (k *Keeper) rollbackMatch(side types.Side, entries []types.MatchEntry) {
	opposite := side.Opposite()
	for _, e := range entries {
		p := k.book.pointAt(e.Price)
		if opposite == types.SideBuy {
			p.UsedBuyLiquidity = p.UsedBuyLiquidity.Sub(e.Consumed)
		} else {
			p.UsedSellLiquidity = p.UsedSellLiquidity.Sub(e.Consumed)
		}
	}
}

// GetOrder returns order id, if any.
func (k *Keeper) GetOrder(id types.OrderID) (*types.Order, bool) {
	return k.orders.Get(id)
}

// OrdersByOwner returns every order with ID >= from owned by owner, up to
// limit results, in ascending ID order. Use from=0 for a first page.
func (k *Keeper) OrdersByOwner(owner types.AccountID, from types.OrderID, limit int) []*types.Order {
	var out []*types.Order
	k.orders.OrdersFrom(from, func(o *types.Order) bool {
		if o.Owner == owner {
			out = append(out, o)
		}
		return len(out) < limit
	})
	return out
}

// PricePoint returns the current liquidity state at price, if the price
// point is currently in the book (it is pruned once empty).
func (k *Keeper) PricePoint(price math.Int) (*types.PricePoint, bool) {
	return k.book.PointAt(price)
}

// OrdersBetween returns every order with from <= ID <= to, in ascending ID
// order.
func (k *Keeper) OrdersBetween(from, to types.OrderID) []*types.Order {
	var out []*types.Order
	k.orders.OrdersBetween(from, to, func(o *types.Order) bool {
		out = append(out, o)
		return true
	})
	return out
}

// BestBid returns the highest price with resting buy liquidity, if any.
func (k *Keeper) BestBid() (math.Int, bool) {
	return k.book.BestPrice(types.SideBuy)
}

// BestAsk returns the lowest price with resting sell liquidity, if any.
func (k *Keeper) BestAsk() (math.Int, bool) {
	return k.book.BestPrice(types.SideSell)
}

// Spread returns BestAsk - BestBid, and false if either side is empty.
func (k *Keeper) Spread() (math.Int, bool) {
	bid, ok := k.BestBid()
	if !ok {
		return math.Int{}, false
	}
	ask, ok := k.BestAsk()
	if !ok {
		return math.Int{}, false
	}
	return ask.Sub(bid), true
}

// FeeBalances returns the current un-swept quote/base fee accumulators.
func (k *Keeper) FeeBalances() (quote, base math.Int) {
	return k.quoteFeeBalance, k.baseFeeBalance
}

// LatestTradePrice returns the last matched price and whether any match
// has ever occurred.
func (k *Keeper) LatestTradePrice() (math.Int, bool) {
	return k.latestTradePrice, k.hasTraded
}
