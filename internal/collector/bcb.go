package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FinUp/internal/model"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const bcbBaseURL = "https://api.bcb.gov.br"

// Series is a Central Bank SGS time series.
type Series struct {
	Name string
	Code int
}

// DefaultSeries are the indicators shown next to a portfolio report.
var DefaultSeries = []Series{
	{"SELIC", 432},
	{"IPCA", 433},
	{"IGP-M", 189},
	{"INPC", 188},
	{"CDI", 12},
	{"PIB mensal", 4380},
}

// BCBFetcher reads economic indicators from the Banco Central SGS API.
type BCBFetcher struct {
	BaseURL string
	Client  *http.Client
	cache   *cache.Cache
}

// NewBCBFetcher creates a fetcher whose results are kept for ttl.
func NewBCBFetcher(proxyURL string, ttl time.Duration) *BCBFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &BCBFetcher{
		BaseURL: bcbBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		cache: cache.New(ttl, 2*ttl),
	}
}

func (f *BCBFetcher) Name() string { return "bcb" }

// sgsPoint is one observation as returned by SGS.
type sgsPoint struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// Latest returns the most recent observation of s.
func (f *BCBFetcher) Latest(ctx context.Context, s Series) (model.EconomicIndicator, error) {
	key := strconv.Itoa(s.Code)
	if v, ok := f.cache.Get(key); ok {
		return v.(model.EconomicIndicator), nil
	}

	endpoint := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados/ultimos/1?formato=json", f.BaseURL, s.Code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.EconomicIndicator{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.EconomicIndicator{}, fmt.Errorf("fetch series %d: %w", s.Code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.EconomicIndicator{}, fmt.Errorf("fetch series %d: status %d, body: %s", s.Code, resp.StatusCode, string(body))
	}

	var points []sgsPoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return model.EconomicIndicator{}, fmt.Errorf("decode series %d: %w", s.Code, err)
	}
	if len(points) == 0 {
		return model.EconomicIndicator{}, fmt.Errorf("series %d: no data", s.Code)
	}

	last := points[len(points)-1]
	date, err := time.Parse("02/01/2006", last.Data)
	if err != nil {
		return model.EconomicIndicator{}, fmt.Errorf("series %d: parse date %q: %w", s.Code, last.Data, err)
	}
	value, err := strconv.ParseFloat(strings.Replace(last.Valor, ",", ".", 1), 64)
	if err != nil {
		return model.EconomicIndicator{}, fmt.Errorf("series %d: parse value %q: %w", s.Code, last.Valor, err)
	}

	ind := model.EconomicIndicator{Name: s.Name, Code: s.Code, Date: date, Value: value}
	f.cache.SetDefault(key, ind)
	return ind, nil
}

// Indicators fetches every series, skipping the ones that fail. It errors only when all of them fail.
func (f *BCBFetcher) Indicators(ctx context.Context, series []Series) ([]model.EconomicIndicator, error) {
	out := make([]model.EconomicIndicator, 0, len(series))
	var lastErr error
	for _, s := range series {
		ind, err := f.Latest(ctx, s)
		if err != nil {
			zap.L().Warn("indicator unavailable", zap.String("series", s.Name), zap.Error(err))
			lastErr = err
			continue
		}
		out = append(out, ind)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all indicators failed: %w", lastErr)
	}
	return out, nil
}
