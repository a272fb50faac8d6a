package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidHolding is returned when a holding row is missing required fields.
var ErrInvalidHolding = errors.New("invalid holding")

// Kind is the asset class of a holding.
type Kind string

const (
	KindFund   Kind = "FUND"
	KindCrypto Kind = "CRYPTO"
	KindEquity Kind = "EQUITY"
)

// Holding is one row of invested capital.
type Holding struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Name      string     `json:"name"`
	Principal float64    `json:"principal"`
	Tier      RiskTier   `json:"tier"`
	AppliedAt time.Time  `json:"applied_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	// Fund only.
	YieldRate float64 `json:"yield_rate,omitempty"`

	// Crypto and equity.
	PurchasePrice float64 `json:"purchase_price,omitempty"`
	Quantity      float64 `json:"quantity,omitempty"`
}

// Active reports whether the holding is still open at the given time.
func (h *Holding) Active(at time.Time) bool {
	return h.ClosedAt == nil || h.ClosedAt.After(at)
}

// QuantityDenominated reports whether the value is units times price rather than principal scaled by price.
func (h *Holding) QuantityDenominated() bool {
	return h.Kind == KindEquity || (h.Kind == KindCrypto && h.Quantity > 0)
}

// Validate checks the fields every valuation path depends on.
// A zero purchase price is accepted here; valuation falls back to the principal for it.
func (h *Holding) Validate() error {
	if h.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidHolding)
	}
	switch h.Kind {
	case KindFund, KindCrypto, KindEquity:
	default:
		return fmt.Errorf("%w %s: unknown kind %q", ErrInvalidHolding, h.ID, h.Kind)
	}
	if !h.Tier.Valid() {
		return fmt.Errorf("%w %s: unknown risk tier", ErrInvalidHolding, h.ID)
	}
	if h.AppliedAt.IsZero() {
		return fmt.Errorf("%w %s: missing applied_at", ErrInvalidHolding, h.ID)
	}
	if h.Principal < 0 || h.PurchasePrice < 0 || h.Quantity < 0 {
		return fmt.Errorf("%w %s: negative amount", ErrInvalidHolding, h.ID)
	}
	if h.Kind == KindEquity && h.Quantity == 0 {
		return fmt.Errorf("%w %s: equity without quantity", ErrInvalidHolding, h.ID)
	}
	if h.Kind != KindFund && h.Name == "" {
		return fmt.Errorf("%w %s: missing name", ErrInvalidHolding, h.ID)
	}
	return nil
}
