package venue

import (
	"context"
	"fmt"
	"time"

	"RiskSentinel/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"
)

// Alpaca serves crypto pairs (BTC/USD, ETH/USDT, ...) through the Alpaca SDK.
type Alpaca struct {
	trading *alpaca.Client
	data    *marketdata.Client
	logger  *zap.Logger
}

// NewAlpaca creates the adapter. baseURL is the trading endpoint, paper by default.
func NewAlpaca(apiKey, apiSecret, baseURL string, logger *zap.Logger) *Alpaca {
	if baseURL == "" {
		baseURL = "https://paper-api.alpaca.markets"
	}
	return &Alpaca{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		logger: logger.With(zap.String("venue", "alpaca")),
	}
}

func (a *Alpaca) Name() string { return "alpaca" }

func (a *Alpaca) ListPairs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assets, err := a.trading.GetAssets(alpaca.GetAssetsRequest{
		Status:     "active",
		AssetClass: "crypto",
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca assets: %v: %w", err, model.ErrDataUnavailable)
	}
	pairs := make([]string, 0, len(assets))
	for _, asset := range assets {
		if asset.Tradable {
			pairs = append(pairs, NormalizePair(asset.Symbol))
		}
	}
	return pairs, nil
}

func (a *Alpaca) FetchTicker(ctx context.Context, pair string) (model.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return model.Ticker{}, err
	}
	pair = NormalizePair(pair)
	trade, err := a.data.GetLatestCryptoTrade(pair, marketdata.GetLatestCryptoTradeRequest{})
	if err != nil {
		return model.Ticker{}, fmt.Errorf("alpaca trade %s: %v: %w", pair, err, model.ErrDataUnavailable)
	}
	if trade == nil {
		return model.Ticker{}, fmt.Errorf("alpaca trade %s: empty: %w", pair, model.ErrDataUnavailable)
	}
	t := model.Ticker{Symbol: pair, Last: trade.Price, FetchedAt: time.Now()}

	// A missing quote only disables the spread check.
	quote, err := a.data.GetLatestCryptoQuote(pair, marketdata.GetLatestCryptoQuoteRequest{})
	if err != nil {
		a.logger.Debug("latest quote unavailable", zap.String("pair", pair), zap.Error(err))
	} else if quote != nil {
		t.Bid = quote.BidPrice
		t.Ask = quote.AskPrice
	}
	return t, nil
}

func (a *Alpaca) FetchCandles(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame, width, err := alpacaTimeFrame(tf)
	if err != nil {
		return nil, err
	}
	pair = NormalizePair(pair)
	bars, err := a.data.GetCryptoBars(pair, marketdata.GetCryptoBarsRequest{
		TimeFrame:  frame,
		Start:      time.Now().Add(-width * time.Duration(limit+2)),
		TotalLimit: limit + 2,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s %s: %v: %w", pair, tf, err, model.ErrDataUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca bars %s %s: empty: %w", pair, tf, model.ErrDataUnavailable)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	candles := make([]model.Candle, len(bars))
	for i, b := range bars {
		candles[i] = model.Candle{
			Time:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return candles, nil
}

func alpacaTimeFrame(tf model.Timeframe) (marketdata.TimeFrame, time.Duration, error) {
	switch tf {
	case model.Timeframe15m:
		return marketdata.NewTimeFrame(15, marketdata.Min), 15 * time.Minute, nil
	case model.Timeframe1h:
		return marketdata.OneHour, time.Hour, nil
	case model.Timeframe4h:
		return marketdata.NewTimeFrame(4, marketdata.Hour), 4 * time.Hour, nil
	case model.Timeframe1d:
		return marketdata.OneDay, 24 * time.Hour, nil
	}
	return marketdata.TimeFrame{}, 0, fmt.Errorf("alpaca timeframe %q: %w", tf, model.ErrDataUnavailable)
}
