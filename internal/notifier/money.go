package notifier

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount in reais, e.g. R$1.234,56.
func FormatBRL(v float64) string {
	cents := decimal.NewFromFloat(v).Round(2).Shift(2).IntPart()
	return money.New(cents, money.BRL).Display()
}

// FormatPct renders a percentage with one decimal and a comma separator.
func FormatPct(v float64) string {
	return strings.Replace(decimal.NewFromFloat(v).StringFixed(1), ".", ",", 1) + "%"
}

// FormatSignedPct is FormatPct with an explicit sign for positive values.
func FormatSignedPct(v float64) string {
	s := FormatPct(v)
	if decimal.NewFromFloat(v).Round(1).IsPositive() {
		return "+" + s
	}
	return s
}
