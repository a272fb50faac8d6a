package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinUp/internal/model"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// HomeCurrency is the currency every valuation is expressed in.
	HomeCurrency = "BRL"
	// DefaultFXRate is used for USD->BRL when the exchange rate cannot be fetched.
	DefaultFXRate = 5.0
)

// MockFetcher returns controllable fixed quotes for development and testing.
type MockFetcher struct {
	Prices   map[string]float64
	Currency map[string]string // defaults to BRL
	Delay    time.Duration

	mu    sync.Mutex
	calls map[string]int
}

// DemoPrices back the mock source when no prices are configured. They cover the demo fixtures.
var DemoPrices = map[string]float64{
	"PETR4.SA": 36.5,
	"VALE3.SA": 58.2,
	"ITUB4.SA": 34.9,
	"BBDC4.SA": 15.1,
	"BTC-USD":  62000,
	"ETH-USD":  3100,
	"SOL-USD":  145,
	"USDBRL=X": 5.4,
}

// NewMockFetcher serves prices, or DemoPrices when prices is empty. Symbols quoted against the
// dollar (BTC-USD style) are reported in USD so the collector converts them.
func NewMockFetcher(prices map[string]float64) *MockFetcher {
	if len(prices) == 0 {
		prices = DemoPrices
	}
	m := &MockFetcher{Prices: make(map[string]float64, len(prices)), Currency: map[string]string{}}
	for sym, p := range prices {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		m.Prices[sym] = p
		if strings.HasSuffix(sym, "-USD") {
			m.Currency[sym] = "USD"
		}
	}
	return m
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return model.Quote{}, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	price, ok := m.Prices[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("mock: no price for %s", symbol)
	}
	cur := HomeCurrency
	if c, ok := m.Currency[symbol]; ok {
		cur = c
	}
	return model.Quote{Symbol: symbol, Price: price, Currency: cur, FetchedAt: time.Now()}, nil
}

// Calls returns how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// Options tune a Collector.
type Options struct {
	Timeout       time.Duration // per quote
	CacheTTL      time.Duration // 0 disables caching
	DefaultFXRate float64
}

// Collector resolves holding quotes in home currency and never fails: when the fetcher does,
// it returns a stale default quote instead.
type Collector struct {
	Fetcher Fetcher
	opts    Options
	cache   *cache.Cache
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.DefaultFXRate <= 0 {
		opts.DefaultFXRate = DefaultFXRate
	}
	c := &Collector{Fetcher: fetcher, opts: opts}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c
}

var errNoSymbol = errors.New("holding has no quote symbol")

// Quote returns the current price of h in home currency. On any failure the holding's own
// purchase price is used and the quote is marked stale.
func (c *Collector) Quote(ctx context.Context, h model.Holding) model.Quote {
	symbol := SymbolFor(h)
	q, err := c.quoteInHome(ctx, symbol)
	if err != nil {
		zap.L().Warn("quote unavailable, using purchase price",
			zap.String("holding", h.ID), zap.String("symbol", symbol), zap.Error(err))
		return model.Quote{
			Symbol:    symbol,
			Price:     h.PurchasePrice,
			Currency:  HomeCurrency,
			FetchedAt: time.Now(),
			Stale:     true,
		}
	}
	return q
}

func (c *Collector) quoteInHome(ctx context.Context, symbol string) (model.Quote, error) {
	if symbol == "" {
		return model.Quote{}, errNoSymbol
	}
	q, err := c.fetch(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}
	if q.Currency == "" || q.Currency == HomeCurrency {
		q.Currency = HomeCurrency
		return q, nil
	}

	rate, stale := c.FXRate(ctx, q.Currency)
	q.Price *= rate
	q.Currency = HomeCurrency
	q.Stale = q.Stale || stale
	return q, nil
}

// FXRate returns the rate converting currency into home currency. The second result is true when
// the default rate was used.
func (c *Collector) FXRate(ctx context.Context, currency string) (float64, bool) {
	currency = strings.ToUpper(currency)
	if currency == HomeCurrency {
		return 1, false
	}
	fx, err := c.fetch(ctx, FXSymbol(currency, HomeCurrency))
	if err != nil {
		zap.L().Warn("exchange rate unavailable, using default",
			zap.String("currency", currency), zap.Float64("default", c.opts.DefaultFXRate), zap.Error(err))
		return c.opts.DefaultFXRate, true
	}
	return fx.Price, false
}

func (c *Collector) fetch(ctx context.Context, symbol string) (model.Quote, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(symbol); ok {
			return v.(model.Quote), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	q, err := c.Fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		return model.Quote{}, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	if q.Price <= 0 {
		return model.Quote{}, fmt.Errorf("fetch %s from %s: empty price", symbol, c.Fetcher.Name())
	}
	if c.cache != nil {
		c.cache.SetDefault(symbol, q)
	}
	return q, nil
}
