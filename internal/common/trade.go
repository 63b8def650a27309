package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade accounts for the two parties who matched, at the resting order's price.
type Trade struct {
	Buyer    Identity
	Seller   Identity
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Notional is the traded value, quantity times price.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`Buyer:    %s
Seller:   %s
Quantity: %s
Price:    %s`,
		t.Buyer,
		t.Seller,
		t.Quantity,
		t.Price,
	)
}
