package calculator

import (
	"errors"

	"FinUp/internal/model"
)

// ErrZeroPurchasePrice is returned when a price-relative figure needs a purchase price that is zero or missing.
var ErrZeroPurchasePrice = errors.New("purchase price must be positive")

// ScaledValue values a value-denominated position: principal bought at purchase, now worth current per unit.
// With no usable purchase price it returns the principal unchanged together with ErrZeroPurchasePrice.
func ScaledValue(principal, purchase, current float64) (float64, error) {
	if purchase <= 0 {
		return principal, ErrZeroPurchasePrice
	}
	return principal / purchase * current, nil
}

// UnitsValue values a quantity-denominated position.
func UnitsValue(quantity, current float64) float64 {
	return quantity * current
}

// ReturnPct is the percentage change from purchase to current. It is 0 with ErrZeroPurchasePrice
// when the purchase price is not usable.
func ReturnPct(purchase, current float64) (float64, error) {
	if purchase <= 0 {
		return 0, ErrZeroPurchasePrice
	}
	return (current/purchase - 1) * 100, nil
}

// MarketValue values a crypto or equity holding at current, choosing the units or scaled form
// by how the holding is denominated. Without a usable purchase price the holding is worth its
// principal and ErrZeroPurchasePrice is returned.
func MarketValue(h model.Holding, current float64) (float64, error) {
	if h.PurchasePrice <= 0 {
		return h.Principal, ErrZeroPurchasePrice
	}
	if h.QuantityDenominated() {
		return UnitsValue(h.Quantity, current), nil
	}
	return ScaledValue(h.Principal, h.PurchasePrice, current)
}
