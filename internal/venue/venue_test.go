package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"RiskSentinel/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizePair(t *testing.T) {
	cases := map[string]string{
		"btc":       "BTC/USDT",
		"BTC/USDT":  "BTC/USDT",
		"eth-usdc":  "ETH/USDC",
		"SOLUSDT":   "SOL/USDT",
		"ARBTUSD":   "ARB/TUSD",
		" doge/usd": "DOGE/USD",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePair(in), in)
	}
}

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "BTC", BaseAsset("btc"))
	assert.Equal(t, "BTC", BaseAsset("BTC/USDT"))
	assert.Equal(t, "ETH", BaseAsset("ETHUSDC"))
	assert.Equal(t, "USDT", BaseAsset("USDT"))
}

func fastRetry(c *restClient) {
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
}

func TestBinance_FetchCandlesParsesKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		w.Write([]byte(`[
			[1700000000000,"100.0","110.0","95.0","105.0","12.5",1700003599999,"0",1,"0","0","0"],
			[1700003600000,"105.0","108.0","101.0","107.5","8.0",1700007199999,"0",1,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, "", zap.NewNop())
	candles, err := b.FetchCandles(context.Background(), "btc", model.Timeframe1h, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 110.0, candles[0].High)
	assert.Equal(t, 107.5, candles[1].Close)
	assert.Equal(t, int64(1700003600000), candles[1].Time.UnixMilli())
}

func TestBinance_ListPairsSkipsHalted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
			{"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT"}
		]}`))
	}))
	defer srv.Close()

	pairs, err := NewBinance(srv.URL, "", zap.NewNop()).ListPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT"}, pairs)
}

func TestRESTClient_RetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"symbol":"ETHUSDT","lastPrice":"2000.5","bidPrice":"2000","askPrice":"2001","quoteVolume":"1e6"}`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, "", zap.NewNop())
	fastRetry(b.rest)
	tk, err := b.FetchTicker(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 2000.5, tk.Last)
	assert.Equal(t, "ETH/USDT", tk.Symbol)
}

func TestRESTClient_ClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, "", zap.NewNop())
	fastRetry(b.rest)
	_, err := b.FetchTicker(context.Background(), "NOPE/USDT")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestOKX_FetchCandlesOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		assert.Equal(t, "1H", r.URL.Query().Get("bar"))
		w.Write([]byte(`{"code":"0","msg":"","data":[
			["1700003600000","105","108","101","107.5","8","0","0","1"],
			["1700000000000","100","110","95","105","12.5","0","0","1"]
		]}`))
	}))
	defer srv.Close()

	candles, err := NewOKX(srv.URL, "", zap.NewNop()).FetchCandles(context.Background(), "BTC/USDT", model.Timeframe1h, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 107.5, candles[1].Close)
}

func TestOKX_ErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	}))
	defer srv.Close()

	_, err := NewOKX(srv.URL, "", zap.NewNop()).FetchTicker(context.Background(), "ZZZ/USDT")
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestMock_FetchCandlesTrimsToLimit(t *testing.T) {
	m := NewMock("m")
	m.AddPair("BTC/USDT", 50000, 100)
	c, err := m.FetchCandles(context.Background(), "BTC", model.Timeframe1d, 30)
	require.NoError(t, err)
	assert.Len(t, c, 30)
	assert.Equal(t, 50000.0, c[len(c)-1].Close)
	assert.Equal(t, 1, m.Calls("FetchCandles"))
}
