package types

import "cosmossdk.io/math"

// AssetID identifies one of the two tokens the pair trades.
type AssetID string

// AssetLedger is the external custody/transfer capability: token
// custody and transfers are out of scope for this module and are
// modeled as an interface the Keeper calls into, rather than owning
// balances itself.
type AssetLedger interface {
	// Debit removes amount of asset from account. It may fail (insufficient
	// balance, frozen account, ...); any failure aborts the calling
	// operation atomically.
	Debit(account AccountID, asset AssetID, amount math.Int) error

	// Credit adds amount of asset to account. Credit never fails.
	Credit(account AccountID, asset AssetID, amount math.Int)
}

// ScalingPolicy is the external decimal-scaling capability: converting
// a foreign token's native decimals to and from this module's
// canonical 18-decimal internal representation. Out of scope for the
// matching core; modeled as an interface only.
type ScalingPolicy interface {
	ToCanonical(asset AssetID, nativeAmount math.Int) math.Int
	FromCanonical(asset AssetID, canonicalAmount math.Int) math.Int
}

// IdentityScalingPolicy is a no-op ScalingPolicy for assets that are
// already expressed in the canonical 18-decimal representation; used by
// tests and by callers that have already scaled amounts themselves.
type IdentityScalingPolicy struct{}

func (IdentityScalingPolicy) ToCanonical(_ AssetID, nativeAmount math.Int) math.Int {
	return nativeAmount
}

func (IdentityScalingPolicy) FromCanonical(_ AssetID, canonicalAmount math.Int) math.Int {
	return canonicalAmount
}
