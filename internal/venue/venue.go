package venue

import (
	"context"
	"strings"

	"RiskSentinel/internal/model"
)

// Venue is the capability set the resolver and pipelines need from an exchange.
// Pairs are always written BASE/QUOTE in upper case. Failures wrap
// model.ErrDataUnavailable.
type Venue interface {
	Name() string
	ListPairs(ctx context.Context) ([]string, error)
	FetchTicker(ctx context.Context, pair string) (model.Ticker, error)
	FetchCandles(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error)
}

// Snapshotter is implemented by venues that can return every ticker in one call.
type Snapshotter interface {
	FetchTickers(ctx context.Context) ([]model.Ticker, error)
}

// ReferenceQuote is the currency every price is normalised into.
const ReferenceQuote = "USDT"

// knownQuotes is checked longest first when splitting concatenated symbols.
var knownQuotes = []string{"TUSD", "USDT", "USDC", "FDUSD", "BUSD", "USD", "BTC", "ETH"}

// Pair joins base and quote.
func Pair(base, quote string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}

// SplitPair splits BASE/QUOTE or BASE-QUOTE.
func SplitPair(pair string) (base, quote string, ok bool) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	for _, sep := range []string{"/", "-"} {
		if b, q, found := strings.Cut(pair, sep); found && b != "" && q != "" {
			return b, q, true
		}
	}
	return "", "", false
}

// BaseAsset extracts the base asset from BTC, BTC/USDT, BTC-USDT or BTCUSDT.
func BaseAsset(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if b, _, ok := SplitPair(s); ok {
		return b
	}
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}

// NormalizePair turns any accepted spelling into BASE/QUOTE, defaulting the
// quote to USDT.
func NormalizePair(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if b, q, ok := SplitPair(s); ok {
		return Pair(b, q)
	}
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return Pair(strings.TrimSuffix(s, q), q)
		}
	}
	return Pair(s, ReferenceQuote)
}
