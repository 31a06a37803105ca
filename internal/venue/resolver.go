package venue

import (
	"context"
	"fmt"
	"strings"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/model"

	"go.uber.org/zap"
)

// DefaultQuotes is the quote currency priority for resolution.
var DefaultQuotes = []string{"USDT", "USD", "USDC", "TUSD"}

// Attempt records why one venue could not serve a base asset.
type Attempt struct {
	Venue  string `json:"venue"`
	Reason string `json:"reason"`
}

// NoDataError is returned when every venue failed. Reason is the last
// attempted venue's failure.
type NoDataError struct {
	Base     string
	Venue    string
	Reason   string
	Attempts []Attempt
}

func (e *NoDataError) Error() string {
	if e.Venue == "" {
		return fmt.Sprintf("no data for %s: %s", e.Base, e.Reason)
	}
	return fmt.Sprintf("no data for %s: %s: %s", e.Base, e.Venue, e.Reason)
}

func (e *NoDataError) Unwrap() error { return model.ErrDataUnavailable }

// Resolution is a usable listing of a base asset. Price is USDT-equivalent and
// equals RawPrice*Factor. MA50, MA200 (daily, USDT-equivalent) and ATRPct (1h)
// are best effort; zero or nil means unavailable.
type Resolution struct {
	Base     string
	Venue    string
	Pair     string
	Quote    string
	RawPrice float64
	Factor   float64
	Price    float64
	Ticker   model.Ticker
	MA50     float64
	MA200    float64
	ATRPct   *float64
	Attempts []Attempt
}

// Resolver searches venues in order for a pair quoted in one of Quotes.
type Resolver struct {
	Quotes      []string
	DailyLimit  int
	HourlyLimit int
	ATRPeriod   int
	logger      *zap.Logger
}

// NewResolver creates a resolver. An empty quotes list uses DefaultQuotes.
func NewResolver(quotes []string, logger *zap.Logger) *Resolver {
	if len(quotes) == 0 {
		quotes = DefaultQuotes
	}
	upper := make([]string, len(quotes))
	for i, q := range quotes {
		upper[i] = strings.ToUpper(q)
	}
	return &Resolver{
		Quotes:      upper,
		DailyLimit:  220,
		HourlyLimit: 74,
		ATRPeriod:   14,
		logger:      logger.With(zap.String("component", "resolver")),
	}
}

// Resolve returns the first venue that yields a USDT-equivalent price for base.
// When all venues fail the error is a *NoDataError.
func (r *Resolver) Resolve(ctx context.Context, base string, venues []Venue) (Resolution, error) {
	base = BaseAsset(base)
	var attempts []Attempt
	for _, v := range venues {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		res, reason := r.tryVenue(ctx, base, v)
		if reason == "" {
			res.Attempts = attempts
			r.logger.Debug("resolved",
				zap.String("base", base), zap.String("venue", res.Venue),
				zap.String("pair", res.Pair), zap.Float64("price", res.Price))
			return res, nil
		}
		r.logger.Debug("venue failed", zap.String("base", base), zap.String("venue", v.Name()), zap.String("reason", reason))
		attempts = append(attempts, Attempt{Venue: v.Name(), Reason: reason})
	}

	nd := &NoDataError{Base: base, Attempts: attempts, Reason: "no venues configured"}
	if n := len(attempts); n > 0 {
		nd.Venue = attempts[n-1].Venue
		nd.Reason = attempts[n-1].Reason
	}
	return Resolution{}, nd
}

// tryVenue returns a non-empty reason on failure.
func (r *Resolver) tryVenue(ctx context.Context, base string, v Venue) (Resolution, string) {
	pairs, err := v.ListPairs(ctx)
	if err != nil {
		return Resolution{}, fmt.Sprintf("list pairs: %v", err)
	}
	listed := listedSet(pairs)

	var pair, quote string
	for _, q := range r.Quotes {
		if p := Pair(base, q); listed[p] {
			pair, quote = p, q
			break
		}
	}
	if pair == "" {
		return Resolution{}, fmt.Sprintf("no %s pair quoted in %s", base, strings.Join(r.Quotes, "/"))
	}

	ticker, err := v.FetchTicker(ctx, pair)
	if err != nil {
		return Resolution{}, fmt.Sprintf("ticker %s: %v", pair, err)
	}
	if ticker.Last <= 0 {
		return Resolution{}, fmt.Sprintf("ticker %s: non-positive price %v", pair, ticker.Last)
	}

	factor, reason := crossRate(ctx, v, listed, quote)
	if reason != "" {
		return Resolution{}, reason
	}

	res := Resolution{
		Base:     base,
		Venue:    v.Name(),
		Pair:     pair,
		Quote:    quote,
		RawPrice: ticker.Last,
		Factor:   factor,
		Price:    ticker.Last * factor,
		Ticker:   ticker,
	}
	r.enrich(ctx, v, &res)
	return res, ""
}

// QuoteFactor converts one unit of quote into USDT using v's own book. It is
// the same conversion Resolve applies, so prices read directly from a
// non-USDT pair stay comparable with resolved ones.
func QuoteFactor(ctx context.Context, v Venue, quote string) (float64, error) {
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == ReferenceQuote {
		return 1, nil
	}
	pairs, err := v.ListPairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: list pairs: %w", v.Name(), err)
	}
	factor, reason := crossRate(ctx, v, listedSet(pairs), quote)
	if reason != "" {
		return 0, fmt.Errorf("%s: %s: %w", v.Name(), reason, model.ErrDataUnavailable)
	}
	return factor, nil
}

func listedSet(pairs []string) map[string]bool {
	listed := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		listed[NormalizePair(p)] = true
	}
	return listed
}

// crossRate converts one unit of quote into USDT using the venue's own book.
func crossRate(ctx context.Context, v Venue, listed map[string]bool, quote string) (float64, string) {
	if quote == ReferenceQuote {
		return 1, ""
	}
	if direct := Pair(quote, ReferenceQuote); listed[direct] {
		t, err := v.FetchTicker(ctx, direct)
		if err == nil && t.Last > 0 {
			return t.Last, ""
		}
	}
	if inverse := Pair(ReferenceQuote, quote); listed[inverse] {
		t, err := v.FetchTicker(ctx, inverse)
		if err == nil && t.Last > 0 {
			return 1 / t.Last, ""
		}
	}
	return 0, fmt.Sprintf("no %s/%s cross rate", quote, ReferenceQuote)
}

func (r *Resolver) enrich(ctx context.Context, v Venue, res *Resolution) {
	if daily, err := v.FetchCandles(ctx, res.Pair, model.Timeframe1d, r.DailyLimit); err == nil {
		if ma, ok := calculator.OptionalCloseMA(daily, 50); ok {
			res.MA50 = ma * res.Factor
		}
		if ma, ok := calculator.OptionalCloseMA(daily, 200); ok {
			res.MA200 = ma * res.Factor
		}
	}
	if hourly, err := v.FetchCandles(ctx, res.Pair, model.Timeframe1h, r.HourlyLimit); err == nil {
		if pct, err := calculator.ATRPercent(hourly, r.ATRPeriod); err == nil {
			res.ATRPct = &pct
		}
	}
}

// ScaleCandles multiplies every price by factor, leaving volume untouched.
func ScaleCandles(candles []model.Candle, factor float64) []model.Candle {
	if factor == 1 {
		return candles
	}
	out := make([]model.Candle, len(candles))
	for i, c := range candles {
		out[i] = model.Candle{
			Time:   c.Time,
			Open:   c.Open * factor,
			High:   c.High * factor,
			Low:    c.Low * factor,
			Close:  c.Close * factor,
			Volume: c.Volume,
		}
	}
	return out
}
