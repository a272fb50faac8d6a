package model

import "time"

// Quote is the current market price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"` // default price used
}

// Valuation is the present value of one active holding.
type Valuation struct {
	Holding   Holding `json:"holding"`
	Invested  float64 `json:"invested"`
	Value     float64 `json:"value"`
	ReturnPct float64 `json:"return_pct"`
	Quote     *Quote  `json:"quote,omitempty"`
	Stale     bool    `json:"stale"`
	Invalid   bool    `json:"invalid"` // zero purchase price, valued at principal
}
