package collector

import (
	"strings"

	"FinUp/internal/model"
)

// CryptoSymbols maps the coin names stored by the bank to Yahoo tickers.
var CryptoSymbols = map[string]string{
	"bitcoin":      "BTC-USD",
	"ethereum":     "ETH-USD",
	"tether":       "USDT-USD",
	"binance coin": "BNB-USD",
	"solana":       "SOL-USD",
	"ripple":       "XRP-USD",
	"cardano":      "ADA-USD",
	"avalanche":    "AVAX-USD",
	"dogecoin":     "DOGE-USD",
	"polkadot":     "DOT-USD",
}

// B3Suffix marks Brazilian equities on Yahoo.
const B3Suffix = ".SA"

// SymbolFor returns the quote symbol of a holding, or "" for funds.
func SymbolFor(h model.Holding) string {
	name := strings.TrimSpace(h.Name)
	switch h.Kind {
	case model.KindCrypto:
		if sym, ok := CryptoSymbols[strings.ToLower(name)]; ok {
			return sym
		}
		if strings.Contains(name, "-") {
			return strings.ToUpper(name)
		}
		return strings.ToUpper(name) + "-USD"
	case model.KindEquity:
		ticker := strings.ToUpper(name)
		if strings.HasSuffix(ticker, B3Suffix) {
			return ticker
		}
		return ticker + B3Suffix
	default:
		return ""
	}
}

// FXSymbol is the Yahoo ticker of the from->to exchange rate, e.g. USDBRL=X.
func FXSymbol(from, to string) string {
	return strings.ToUpper(from) + strings.ToUpper(to) + "=X"
}
