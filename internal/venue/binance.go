package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"RiskSentinel/internal/model"

	"go.uber.org/zap"
)

const binanceBaseURL = "https://api.binance.com"

// Binance reads the public spot REST API.
type Binance struct {
	rest *restClient

	mu      sync.RWMutex
	symbols map[string]string // BTCUSDT -> BTC/USDT
}

// NewBinance creates the adapter. baseURL may be empty for the public endpoint.
func NewBinance(baseURL, proxyURL string, logger *zap.Logger) *Binance {
	if baseURL == "" {
		baseURL = binanceBaseURL
	}
	return &Binance{rest: newRESTClient(baseURL, proxyURL, logger.With(zap.String("venue", "binance")))}
}

func (b *Binance) Name() string { return "binance" }

type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

func (b *Binance) ListPairs(ctx context.Context) ([]string, error) {
	var info binanceExchangeInfo
	if err := b.rest.getJSON(ctx, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("binance list pairs: %w", err)
	}
	symbols := make(map[string]string, len(info.Symbols))
	pairs := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		p := Pair(s.BaseAsset, s.QuoteAsset)
		symbols[s.Symbol] = p
		pairs = append(pairs, p)
	}
	b.mu.Lock()
	b.symbols = symbols
	b.mu.Unlock()
	return pairs, nil
}

type binanceTicker struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	BidPrice    string `json:"bidPrice"`
	AskPrice    string `json:"askPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

func (t binanceTicker) toModel(pair string) model.Ticker {
	return model.Ticker{
		Symbol:      pair,
		Last:        parseFloat(t.LastPrice),
		Bid:         parseFloat(t.BidPrice),
		Ask:         parseFloat(t.AskPrice),
		QuoteVolume: parseFloat(t.QuoteVolume),
		FetchedAt:   time.Now(),
	}
}

func (b *Binance) FetchTicker(ctx context.Context, pair string) (model.Ticker, error) {
	var t binanceTicker
	q := url.Values{"symbol": {binanceSymbol(pair)}}
	if err := b.rest.getJSON(ctx, "/api/v3/ticker/24hr", q, &t); err != nil {
		return model.Ticker{}, fmt.Errorf("binance ticker %s: %w", pair, err)
	}
	return t.toModel(NormalizePair(pair)), nil
}

// FetchTickers returns every 24h ticker whose symbol is a known trading pair.
func (b *Binance) FetchTickers(ctx context.Context) ([]model.Ticker, error) {
	b.mu.RLock()
	known := len(b.symbols) > 0
	b.mu.RUnlock()
	if !known {
		if _, err := b.ListPairs(ctx); err != nil {
			return nil, err
		}
	}

	var raw []binanceTicker
	if err := b.rest.getJSON(ctx, "/api/v3/ticker/24hr", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance tickers: %w", err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Ticker, 0, len(raw))
	for _, t := range raw {
		if p, ok := b.symbols[t.Symbol]; ok {
			out = append(out, t.toModel(p))
		}
	}
	return out, nil
}

func (b *Binance) FetchCandles(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	q := url.Values{
		"symbol":   {binanceSymbol(pair)},
		"interval": {string(tf)},
		"limit":    {strconv.Itoa(limit)},
	}
	var rows [][]json.RawMessage
	if err := b.rest.getJSON(ctx, "/api/v3/klines", q, &rows); err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", pair, tf, err)
	}
	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		var openTime int64
		if err := json.Unmarshal(r[0], &openTime); err != nil {
			continue
		}
		candles = append(candles, model.Candle{
			Time:   time.UnixMilli(openTime).UTC(),
			Open:   rawFloat(r[1]),
			High:   rawFloat(r[2]),
			Low:    rawFloat(r[3]),
			Close:  rawFloat(r[4]),
			Volume: rawFloat(r[5]),
		})
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("binance klines %s %s: empty: %w", pair, tf, model.ErrDataUnavailable)
	}
	return candles, nil
}

func binanceSymbol(pair string) string {
	return strings.ReplaceAll(NormalizePair(pair), "/", "")
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// rawFloat accepts both quoted and bare JSON numbers.
func rawFloat(m json.RawMessage) float64 {
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return parseFloat(s)
	}
	var f float64
	if err := json.Unmarshal(m, &f); err == nil {
		return f
	}
	return 0
}
