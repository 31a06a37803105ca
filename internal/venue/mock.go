package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RiskSentinel/internal/model"
)

// Mock is an in-memory venue for development and tests.
type Mock struct {
	VenueName string
	Tickers   map[string]model.Ticker
	Candles   map[string][]model.Candle // keyed by CandleKey
	// Fail makes every call for the named pair (or "*" for ListPairs) fail.
	Fail map[string]error

	mu    sync.Mutex
	calls map[string]int
}

// NewMock creates an empty mock venue.
func NewMock(name string) *Mock {
	return &Mock{
		VenueName: name,
		Tickers:   make(map[string]model.Ticker),
		Candles:   make(map[string][]model.Candle),
		Fail:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

// CandleKey indexes Mock.Candles.
func CandleKey(pair string, tf model.Timeframe) string {
	return NormalizePair(pair) + "|" + string(tf)
}

// AddPair lists pair at price with a 0.02% spread and generated candles for every timeframe.
func (m *Mock) AddPair(pair string, price float64, history int) {
	pair = NormalizePair(pair)
	m.Tickers[pair] = model.Ticker{Symbol: pair, Last: price, Bid: price * 0.9999, Ask: price * 1.0001, QuoteVolume: price * 1000}
	for _, tf := range []model.Timeframe{model.Timeframe15m, model.Timeframe1h, model.Timeframe4h, model.Timeframe1d} {
		m.Candles[CandleKey(pair, tf)] = GenerateCandles(price, history, tf)
	}
}

func (m *Mock) Name() string { return m.VenueName }

// Calls reports how often a method was invoked.
func (m *Mock) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
	m.mu.Unlock()
}

func (m *Mock) ListPairs(context.Context) ([]string, error) {
	m.record("ListPairs")
	if err := m.Fail["*"]; err != nil {
		return nil, err
	}
	pairs := make([]string, 0, len(m.Tickers))
	for p := range m.Tickers {
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (m *Mock) FetchTicker(_ context.Context, pair string) (model.Ticker, error) {
	m.record("FetchTicker")
	pair = NormalizePair(pair)
	if err := m.Fail[pair]; err != nil {
		return model.Ticker{}, err
	}
	t, ok := m.Tickers[pair]
	if !ok {
		return model.Ticker{}, fmt.Errorf("%s: no ticker for %s: %w", m.VenueName, pair, model.ErrDataUnavailable)
	}
	return t, nil
}

func (m *Mock) FetchTickers(context.Context) ([]model.Ticker, error) {
	m.record("FetchTickers")
	if err := m.Fail["*"]; err != nil {
		return nil, err
	}
	out := make([]model.Ticker, 0, len(m.Tickers))
	for _, t := range m.Tickers {
		out = append(out, t)
	}
	return out, nil
}

func (m *Mock) FetchCandles(_ context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	m.record("FetchCandles")
	pair = NormalizePair(pair)
	if err := m.Fail[pair]; err != nil {
		return nil, err
	}
	c, ok := m.Candles[CandleKey(pair, tf)]
	if !ok || len(c) == 0 {
		return nil, fmt.Errorf("%s: no %s candles for %s: %w", m.VenueName, tf, pair, model.ErrDataUnavailable)
	}
	if limit > 0 && len(c) > limit {
		c = c[len(c)-limit:]
	}
	return c, nil
}

// GenerateCandles builds a gently rising series that ends at lastPrice.
func GenerateCandles(lastPrice float64, count int, tf model.Timeframe) []model.Candle {
	width := timeframeWidth(tf)
	end := time.Now().Truncate(width)
	bars := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := lastPrice * (1 + float64(i-count+1)*0.001)
		bars[i] = model.Candle{
			Time:   end.Add(-time.Duration(count-1-i) * width),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

func timeframeWidth(tf model.Timeframe) time.Duration {
	switch tf {
	case model.Timeframe15m:
		return 15 * time.Minute
	case model.Timeframe4h:
		return 4 * time.Hour
	case model.Timeframe1d:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}
