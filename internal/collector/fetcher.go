package collector

import (
	"context"

	"FinUp/internal/model"
)

// Fetcher defines the interface for fetching market quotes.
type Fetcher interface {
	FetchQuote(ctx context.Context, symbol string) (model.Quote, error)
	Name() string
}
