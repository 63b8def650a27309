// Package book holds the resting orders for one side of a single instrument and
// matches incoming orders against them in price-time priority.
//
// A Buy book rests bids and treats its highest price as best. A Sell book rests
// asks and treats its lowest price as best. Within a price level orders are
// matched in arrival order.
//
// A Book is not safe for concurrent use. Callers that share one must serialize
// access themselves (see the engine package).
package book

import (
	"matchbook/internal/common"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

type priceLevel struct {
	key    common.Ticks
	price  decimal.Decimal
	orders []*common.Order // FIFO; never empty while the level is in the tree
}

type priceLevels = btree.BTreeG[*priceLevel]

type Book struct {
	side common.Side

	// Price levels sorted best first, each holding its orders in arrival order.
	levels *priceLevels

	// Number of resting orders across all levels.
	size int
}

// New creates an empty book resting orders of the given side.
func New(side common.Side) *Book {
	less := asksLess
	if side == common.Buy {
		less = bidsLess
	}
	return &Book{
		side:   side,
		levels: btree.NewBTreeGOptions(less, btree.Options{NoLocks: true}),
	}
}

func (book *Book) Side() common.Side { return book.side }

// Insert appends a copy of order to the back of its price level, creating the
// level if needed. The caller must not insert orders that fail Validate.
func (book *Book) Insert(order common.Order) {
	// Levels comparator only accounts for the key, so a dummy level is enough for
	// the search.
	level, ok := book.levels.GetMut(&priceLevel{key: order.PriceLevelKey()})
	if ok {
		level.orders = append(level.orders, &order)
	} else {
		book.levels.Set(&priceLevel{
			key:    order.PriceLevelKey(),
			price:  order.Price,
			orders: []*common.Order{&order},
		})
	}
	book.size++
}

// Top returns the order that would trade next without removing it. The returned
// pointer aliases the book, so changes to its Quantity are seen by the book.
func (book *Book) Top() (*common.Order, bool) {
	level, ok := book.levels.MinMut()
	if !ok {
		return nil, false
	}
	return level.orders[0], true
}

// DequeueTop removes and returns the order Top would have returned. A level left
// empty is removed along with it.
func (book *Book) DequeueTop() (common.Order, bool) {
	level, ok := book.levels.MinMut()
	if !ok {
		return common.Order{}, false
	}

	order := level.orders[0]
	level.orders[0] = nil
	level.orders = level.orders[1:]
	if len(level.orders) == 0 {
		book.levels.Delete(level)
	}
	book.size--
	return *order, true
}

func (book *Book) IsEmpty() bool { return book.size == 0 }

// Size is the number of resting orders.
func (book *Book) Size() int { return book.size }

// Depth is the number of non-empty price levels.
func (book *Book) Depth() int { return book.levels.Len() }

// Level is a point-in-time copy of one price level.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal // Sum of the resting quantities
	Orders   []common.Order  // In arrival order
}

// Levels copies out every price level, best first.
func (book *Book) Levels() []Level {
	levels := make([]Level, 0, book.levels.Len())
	book.levels.Scan(func(level *priceLevel) bool {
		levels = append(levels, level.flatten())
		return true
	})
	return levels
}

func (level *priceLevel) flatten() Level {
	flat := Level{
		Price:    level.price,
		Quantity: decimal.Zero,
		Orders:   make([]common.Order, len(level.orders)),
	}
	for i, order := range level.orders {
		flat.Orders[i] = *order
		flat.Quantity = flat.Quantity.Add(order.Quantity)
	}
	return flat
}
