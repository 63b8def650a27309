package book

import (
	"matchbook/internal/common"

	"github.com/shopspring/decimal"
)

// Cross matches incoming against the resting orders of this book and returns the
// trades in the order they happened, or nil if nothing matched.
//
// Matching walks the book best first while incoming has quantity left and the
// best resting price is acceptable: at or below the limit for a buy, at or above
// it for a sell. Each step trades min(incoming, resting) at the resting price.
// Fully filled resting orders are dequeued; a partially filled one stays at the
// front of its level.
//
// incoming.Quantity is reduced in place. Whatever remains unfilled is left to
// the caller; Cross never rests it. The book is expected to hold orders of the
// side opposite to incoming.
func (book *Book) Cross(incoming *common.Order) []common.Trade {
	var trades []common.Trade

	for incoming.Quantity.IsPositive() {
		resting, ok := book.Top()
		if !ok {
			break
		}

		// Levels are walked in price order, so nothing behind an unacceptable
		// best level can be acceptable either.
		if !crosses(incoming, resting) {
			break
		}

		// Zero-quantity orders should never rest; drop one without trading.
		if !resting.Quantity.IsPositive() {
			book.DequeueTop()
			continue
		}

		matchQty := decimal.Min(incoming.Quantity, resting.Quantity)
		trades = append(trades, newTrade(incoming, resting, matchQty))

		incoming.Quantity = incoming.Quantity.Sub(matchQty)
		resting.Quantity = resting.Quantity.Sub(matchQty)

		if resting.IsFilled() {
			book.DequeueTop()
		}
	}

	return trades
}

// crosses reports whether incoming may trade at the resting order's price.
func crosses(incoming, resting *common.Order) bool {
	spread := incoming.Price.Sub(resting.Price)
	switch incoming.Side {
	case common.Buy:
		return !spread.IsNegative()
	case common.Sell:
		return !spread.IsPositive()
	}
	return false
}

// newTrade books a match at the resting (maker) price.
func newTrade(incoming, resting *common.Order, quantity decimal.Decimal) common.Trade {
	trade := common.Trade{
		Quantity: quantity,
		Price:    resting.Price,
	}
	if incoming.Side == common.Buy {
		trade.Buyer, trade.Seller = incoming.Owner, resting.Owner
	} else {
		trade.Buyer, trade.Seller = resting.Owner, incoming.Owner
	}
	return trade
}
