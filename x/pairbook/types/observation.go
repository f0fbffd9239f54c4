package types

import (
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
)

// MatchEntry is one (price, consumedAmount) entry in a match record,
// encounter-ordered as the matching scan visits price levels.
type MatchEntry struct {
	Price    math.Int
	Consumed math.Int
}

// Observation is the closed set of events the public API emits. An
// abstract observation sink, whose emission order must match the order of
// committed state changes, gives external consumers a concrete shape
// without committing to any transport (event transport is out of scope).
type Observation interface {
	isObservation()
	// ObservationID is a stable idempotency key for an external
	// event-transport layer to dedupe on.
	ObservationID() string
}

type base struct {
	id string
	at time.Time
}

func newBase() base {
	return base{id: uuid.NewString(), at: time.Now()}
}

func (b base) isObservation()        {}
func (b base) ObservationID() string { return b.id }

type LimitOrderInserted struct {
	base
	OrderID  OrderID
	Owner    AccountID
	Price    math.Int
	Matched  []MatchEntry
	Residual math.Int
	Side     Side
}

type MarketOrderInserted struct {
	base
	OrderID    OrderID
	Owner      AccountID
	Amount     math.Int
	Matched    []MatchEntry
	WorstPrice math.Int
	Side       Side
}

type LimitMakerOrderClaimed struct {
	base
	OrderID OrderID
	Owner   AccountID
	Price   math.Int
	Claimed math.Int
	Fee     math.Int
	Side    Side
}

type LimitMakerOrderCanceled struct {
	base
	OrderID OrderID
	Owner   AccountID
	Price   math.Int
	Refund  math.Int
	Claimed math.Int
	Fee     math.Int
	Side    Side
}

type FeePolicyUpdated struct {
	base
	MakerFee       math.Int
	TakerFee       math.Int
	PricePrecision math.Int
}

type FeesCollected struct {
	base
	Treasury  AccountID
	QuoteFees math.Int
	BaseFees  math.Int
}

// ObservationSink receives observations in commit order.
type ObservationSink interface {
	Emit(Observation)
}

// NopSink discards every observation. It is the default sink when a
// caller doesn't need one.
type NopSink struct{}

func (NopSink) Emit(Observation) {}

// RecordingSink is an in-memory ObservationSink, principally useful as a
// test double for asserting emission order against committed state
// changes.
type RecordingSink struct {
	Observations []Observation
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) Emit(o Observation) {
	s.Observations = append(s.Observations, o)
}
