package model

import "time"

// EconomicIndicator is the latest published value of a Central Bank time series.
type EconomicIndicator struct {
	Name  string    `json:"name"`
	Code  int       `json:"code"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
