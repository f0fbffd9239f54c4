package keeper

import (
	"time"

	"cosmossdk.io/math"
	"github.com/google/btree"

	"github.com/latticefi/pairbook/x/pairbook/types"
)

// orderIDItem is a btree.Item wrapping one order, ordered by OrderID,
// giving range queries ("all orders with ID >= k", of any status) for book
// inspection and cursor-style iteration without walking the primary map.
type orderIDItem struct {
	order *types.Order
}

func (it orderIDItem) Less(than btree.Item) bool {
	return it.order.ID < than.(orderIDItem).order.ID
}

// OrderStore owns order identity and lifecycle: monotonic
// ID assignment, the canonical Order record, and Open -> {Claimed,
// Canceled} transitions. The primary map answers point lookups; the
// btree answers ordered range scans.
type OrderStore struct {
	nextID types.OrderID
	byID   map[types.OrderID]*types.Order
	index  *btree.BTree
}

// NewOrderStore returns an empty store, with a btree degree of 32.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		nextID: 1,
		byID:   make(map[types.OrderID]*types.Order),
		index:  btree.New(32),
	}
}

// Create assigns the next order ID and stores a new Open order.
func (s *OrderStore) Create(owner types.AccountID, side types.Side, price, amount math.Int, orderIndex uint64, preOrderPos math.Int, createdAt time.Time) *types.Order {
	o := &types.Order{
		ID:                        s.nextID,
		Owner:                     owner,
		Side:                      side,
		Price:                     price,
		Amount:                    amount,
		Status:                    types.OrderStatusOpen,
		CreatedAt:                 createdAt,
		OrderIndexInPricePoint:    orderIndex,
		PreOrderLiquidityPosition: preOrderPos,
	}
	s.nextID++
	s.byID[o.ID] = o
	s.index.ReplaceOrInsert(orderIDItem{order: o})
	return o
}

// Get returns the order with id, if any.
func (s *OrderStore) Get(id types.OrderID) (*types.Order, bool) {
	o, ok := s.byID[id]
	return o, ok
}

// MarkClaimed transitions order id from Open to Claimed.
func (s *OrderStore) MarkClaimed(id types.OrderID) error {
	o, ok := s.byID[id]
	if !ok {
		return types.ErrOrderNotFound.Wrapf("order %d", id)
	}
	if o.Status != types.OrderStatusOpen {
		return types.ErrInvalidOrderStatus.Wrapf("order %d is %s", id, o.Status)
	}
	o.Status = types.OrderStatusClaimed
	return nil
}

// MarkCanceled transitions order id from Open to Canceled.
func (s *OrderStore) MarkCanceled(id types.OrderID) error {
	o, ok := s.byID[id]
	if !ok {
		return types.ErrOrderNotFound.Wrapf("order %d", id)
	}
	if o.Status != types.OrderStatusOpen {
		return types.ErrInvalidOrderStatus.Wrapf("order %d is %s", id, o.Status)
	}
	o.Status = types.OrderStatusCanceled
	return nil
}

// OrdersFrom visits orders with ID >= from in ascending ID order, until
// visit returns false.
func (s *OrderStore) OrdersFrom(from types.OrderID, visit func(*types.Order) bool) {
	pivot := orderIDItem{order: &types.Order{ID: from}}
	s.index.AscendGreaterOrEqual(pivot, func(item btree.Item) bool {
		return visit(item.(orderIDItem).order)
	})
}

// OrdersBetween visits orders with from <= ID <= to in ascending ID order,
// until visit returns false.
func (s *OrderStore) OrdersBetween(from, to types.OrderID, visit func(*types.Order) bool) {
	pivot := orderIDItem{order: &types.Order{ID: from}}
	s.index.AscendGreaterOrEqual(pivot, func(item btree.Item) bool {
		o := item.(orderIDItem).order
		if o.ID > to {
			return false
		}
		return visit(o)
	})
}
