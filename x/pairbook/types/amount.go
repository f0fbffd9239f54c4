package types

import (
	"cosmossdk.io/math"
)

// DefaultPricePrecision is the initial price quantum: all prices must
// be an exact multiple of this value. 10^18 mirrors the
// canonical 18-decimal internal representation the external ScalingPolicy
// normalizes foreign-token amounts into.
var DefaultPricePrecision = math.NewIntWithDecimal(1, 18)

// FeePrecision is the fee-rate denominator: a fee rate of
// 10 means 10/FeePrecision = 0.0001% * 10 = 0.001% (0.1 bps); a rate `r`
// charges r/FeePrecision of the traded notional.
const FeePrecision = 1_000_000

// MaxMatchedPricePoints bounds how many price levels a single match() call
// may visit.
const MaxMatchedPricePoints = 5

// OffsetPerPricePoint is the inner-tree bucket capacity of the cancellation
// index: index `idx` decomposes into bucket `idx/N` and
// position `idx%N` for N = OffsetPerPricePoint.
const OffsetPerPricePoint = 32_768

// DefaultScalingQuantum is the smallest base-unit increment the
// cancellation index's 64-bit leaves can represent when no quantum is
// supplied at construction. 10^12 leaves six decimal digits of resolution
// under an 18-decimal base asset while keeping a fully-saturated bucket
// (OffsetPerPricePoint leaves at 2^64-1 raw units each) well clear of
// 256-bit overflow once scaled back up.
var DefaultScalingQuantum = math.NewIntWithDecimal(1, 12)

// QuantizeToPrecision rounds price down to the nearest multiple of precision.
func QuantizeToPrecision(price, precision math.Int) math.Int {
	if precision.IsZero() {
		return price
	}
	rem := price.Mod(precision)
	return price.Sub(rem)
}

// ScaleDown quantizes a canonical (256-bit-capable) amount down to a 64-bit
// tree-leaf value at the given quantum. The result is
// floor(amount / quantum); it never exceeds math.MaxUint64 for amounts that
// a real market can accumulate at a single price point (the caller is
// expected to choose a quantum consistent with that).
func ScaleDown(amount, quantum math.Int) (uint64, error) {
	if quantum.IsNil() || !quantum.IsPositive() {
		return 0, ErrInvalidPrecision.Wrap("scaling quantum must be positive")
	}
	if amount.IsNegative() {
		return 0, ErrInvalidAmount.Wrap("amount must be non-negative")
	}
	raw := amount.Quo(quantum)
	if !raw.IsUint64() {
		return 0, ErrOverflow.Wrap("scaled amount exceeds 64 bits")
	}
	return raw.Uint64(), nil
}

// ScaleUp is the inverse of ScaleDown: it restores canonical units from a
// 64-bit tree-leaf value. Because ScaleDown floors, ScaleUp(ScaleDown(x)) <=
// x, with residual strictly bounded by one quantum.
func ScaleUp(raw uint64, quantum math.Int) math.Int {
	return math.NewIntFromUint64(raw).Mul(quantum)
}
