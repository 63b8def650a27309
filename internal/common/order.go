package common

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits a price may carry. Prices are
// bucketed into levels by their value in units of 10^-PriceScale.
const PriceScale = 8

var (
	ErrNegativePrice    = errors.New("negative price")
	ErrNegativeQuantity = errors.New("negative quantity")
	ErrPriceTooPrecise  = fmt.Errorf("price has more than %d fractional digits", PriceScale)
	ErrPriceOutOfRange  = errors.New("price out of range")
	ErrUnknownSide      = errors.New("unknown side")
	ErrEmptyIdentity    = errors.New("empty identity")
)

var maxTicks = decimal.NewFromInt(math.MaxInt64)

// Ticks is a price expressed as an integer number of 10^-PriceScale units. Equal
// prices always produce equal ticks, regardless of how the decimal was written
// ("10", "10.0", "10.00000000").
type Ticks int64

type Order struct {
	Price    decimal.Decimal // Limit price
	Quantity decimal.Decimal // Remaining quantity, reduced in place on fills
	Side     Side            // Order side
	Owner    Identity        // Who owns this order
}

// NewOrder builds a validated order. The book itself never validates, so this is
// where callers are expected to construct orders.
func NewOrder(side Side, price, quantity decimal.Decimal, owner Identity) (Order, error) {
	order := Order{
		Price:    price,
		Quantity: quantity,
		Side:     side,
		Owner:    owner,
	}
	if err := order.Validate(); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Validate reports whether the order satisfies the book's preconditions.
func (order Order) Validate() error {
	if !order.Side.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownSide, int(order.Side))
	}
	if order.Owner.IsZero() {
		return ErrEmptyIdentity
	}
	if order.Price.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativePrice, order.Price)
	}
	if order.Quantity.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeQuantity, order.Quantity)
	}
	scaled := order.Price.Shift(PriceScale)
	if !scaled.IsInteger() {
		return fmt.Errorf("%w: %s", ErrPriceTooPrecise, order.Price)
	}
	if scaled.GreaterThan(maxTicks) {
		return fmt.Errorf("%w: %s", ErrPriceOutOfRange, order.Price)
	}
	return nil
}

// PriceLevelKey returns the key used to bucket the order into a price level.
// Only meaningful for orders that pass Validate.
func (order Order) PriceLevelKey() Ticks {
	return Ticks(order.Price.Shift(PriceScale).IntPart())
}

// IsFilled reports whether nothing remains to be traded.
func (order Order) IsFilled() bool {
	return !order.Quantity.IsPositive()
}

func (order Order) String() string {
	return fmt.Sprintf(
		`Side:     %v
Price:    %s
Quantity: %s
Owner:    %s`,
		order.Side,
		order.Price,
		order.Quantity,
		order.Owner,
	)
}
