package venue

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"RiskSentinel/internal/model"

	"go.uber.org/zap"
)

const (
	okxBaseURL     = "https://www.okx.com"
	okxCandleLimit = 300
)

// OKX reads the public v5 spot REST API.
type OKX struct {
	rest *restClient
}

// NewOKX creates the adapter. baseURL may be empty for the public endpoint.
func NewOKX(baseURL, proxyURL string, logger *zap.Logger) *OKX {
	if baseURL == "" {
		baseURL = okxBaseURL
	}
	return &OKX{rest: newRESTClient(baseURL, proxyURL, logger.With(zap.String("venue", "okx")))}
}

func (o *OKX) Name() string { return "okx" }

type okxResponse[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

func (r okxResponse[T]) err() error {
	if r.Code != "0" {
		return fmt.Errorf("okx code %s: %s: %w", r.Code, r.Msg, model.ErrDataUnavailable)
	}
	return nil
}

type okxInstrument struct {
	InstID   string `json:"instId"`
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
	State    string `json:"state"`
}

func (o *OKX) ListPairs(ctx context.Context) ([]string, error) {
	var resp okxResponse[okxInstrument]
	if err := o.rest.getJSON(ctx, "/api/v5/public/instruments", url.Values{"instType": {"SPOT"}}, &resp); err != nil {
		return nil, fmt.Errorf("okx list pairs: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("okx list pairs: %w", err)
	}
	pairs := make([]string, 0, len(resp.Data))
	for _, in := range resp.Data {
		if in.State == "live" {
			pairs = append(pairs, Pair(in.BaseCcy, in.QuoteCcy))
		}
	}
	return pairs, nil
}

type okxTicker struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	VolCcy24h string `json:"volCcy24h"`
}

func (t okxTicker) toModel() model.Ticker {
	return model.Ticker{
		Symbol:      NormalizePair(t.InstID),
		Last:        parseFloat(t.Last),
		Bid:         parseFloat(t.BidPx),
		Ask:         parseFloat(t.AskPx),
		QuoteVolume: parseFloat(t.VolCcy24h),
		FetchedAt:   time.Now(),
	}
}

func (o *OKX) FetchTicker(ctx context.Context, pair string) (model.Ticker, error) {
	var resp okxResponse[okxTicker]
	if err := o.rest.getJSON(ctx, "/api/v5/market/ticker", url.Values{"instId": {okxInstID(pair)}}, &resp); err != nil {
		return model.Ticker{}, fmt.Errorf("okx ticker %s: %w", pair, err)
	}
	if err := resp.err(); err != nil {
		return model.Ticker{}, fmt.Errorf("okx ticker %s: %w", pair, err)
	}
	if len(resp.Data) == 0 {
		return model.Ticker{}, fmt.Errorf("okx ticker %s: empty: %w", pair, model.ErrDataUnavailable)
	}
	return resp.Data[0].toModel(), nil
}

func (o *OKX) FetchTickers(ctx context.Context) ([]model.Ticker, error) {
	var resp okxResponse[okxTicker]
	if err := o.rest.getJSON(ctx, "/api/v5/market/tickers", url.Values{"instType": {"SPOT"}}, &resp); err != nil {
		return nil, fmt.Errorf("okx tickers: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("okx tickers: %w", err)
	}
	out := make([]model.Ticker, len(resp.Data))
	for i, t := range resp.Data {
		out[i] = t.toModel()
	}
	return out, nil
}

// FetchCandles returns at most 300 candles, oldest first.
func (o *OKX) FetchCandles(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	if limit > okxCandleLimit {
		limit = okxCandleLimit
	}
	q := url.Values{
		"instId": {okxInstID(pair)},
		"bar":    {okxBar(tf)},
		"limit":  {strconv.Itoa(limit)},
	}
	var resp okxResponse[[]string]
	if err := o.rest.getJSON(ctx, "/api/v5/market/candles", q, &resp); err != nil {
		return nil, fmt.Errorf("okx candles %s %s: %w", pair, tf, err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("okx candles %s %s: %w", pair, tf, err)
	}

	candles := make([]model.Candle, 0, len(resp.Data))
	// OKX returns newest first.
	for i := len(resp.Data) - 1; i >= 0; i-- {
		row := resp.Data[i]
		if len(row) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		candles = append(candles, model.Candle{
			Time:   time.UnixMilli(ts).UTC(),
			Open:   parseFloat(row[1]),
			High:   parseFloat(row[2]),
			Low:    parseFloat(row[3]),
			Close:  parseFloat(row[4]),
			Volume: parseFloat(row[5]),
		})
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("okx candles %s %s: empty: %w", pair, tf, model.ErrDataUnavailable)
	}
	return candles, nil
}

func okxInstID(pair string) string {
	return strings.ReplaceAll(NormalizePair(pair), "/", "-")
}

func okxBar(tf model.Timeframe) string {
	switch tf {
	case model.Timeframe1h:
		return "1H"
	case model.Timeframe4h:
		return "4H"
	case model.Timeframe1d:
		return "1Dutc"
	default:
		return string(tf)
	}
}
