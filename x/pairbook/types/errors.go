package types

import (
	"cosmossdk.io/errors"
)

// Module error codes, grouped by the concern they belong to.
var (
	// Order validation
	ErrInvalidPrice    = errors.Register("pairbook", 1, "invalid price")
	ErrInvalidAmount   = errors.Register("pairbook", 2, "invalid amount")
	ErrInvalidSide     = errors.Register("pairbook", 3, "invalid order side")
	ErrOrderNotFound   = errors.Register("pairbook", 4, "order not found")
	ErrInvalidOwner    = errors.Register("pairbook", 5, "invalid owner account")
	ErrInvalidMarketID = errors.Register("pairbook", 6, "invalid market configuration")

	// Order state
	ErrInvalidOrderStatus  = errors.Register("pairbook", 10, "order is not in the required status for this operation")
	ErrIsNotFullyClaimable = errors.Register("pairbook", 11, "order is only partially claimable; cancel it instead")

	// Matching
	ErrExceedWorstPrice   = errors.Register("pairbook", 20, "matched price exceeds the caller's worst-price bound")
	ErrNotEnoughLiquidity = errors.Register("pairbook", 21, "insufficient liquidity within the matching window")

	// Governance
	ErrInvalidCaller = errors.Register("pairbook", 30, "caller is not authorized for this operation")

	// Segment-tree / cancellation-index arithmetic
	ErrOverflow  = errors.Register("pairbook", 40, "operation would overflow the 64-bit leaf representation")
	ErrUnderflow = errors.Register("pairbook", 41, "operation would underflow liquidity accounting")

	// External collaborators
	ErrLedger = errors.Register("pairbook", 50, "asset ledger operation failed")

	// Construction / configuration
	ErrInvalidPrecision = errors.Register("pairbook", 60, "invalid price precision")
	ErrInvalidFeeRate   = errors.Register("pairbook", 61, "invalid fee rate")
)
