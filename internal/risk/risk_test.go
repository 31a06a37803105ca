package risk

import (
	"math/rand"
	"testing"
	"time"

	"RiskSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, close, halfRange float64) []model.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{
			Time: base.Add(time.Duration(i) * time.Hour),
			Open: close, High: close + halfRange, Low: close - halfRange, Close: close, Volume: 1,
		}
	}
	return out
}

func pct(v float64) *float64 { return &v }

func TestComputeStaticRisk(t *testing.T) {
	got := ComputeStaticRisk(100, 8, 12)
	assert.Equal(t, 92.0, got.StopLoss)
	assert.Equal(t, 112.0, got.TakeProfit)
	assert.False(t, got.StopDefaulted)
	assert.False(t, got.TakeDefaulted)
}

func TestStaticForHolding(t *testing.T) {
	h := model.Holding{Symbol: "BTC/USDT", EntryPrice: 100, Qty: 1}
	got := StaticForHolding(h)
	assert.Equal(t, 92.0, got.StopLoss)
	assert.Equal(t, 112.0, got.TakeProfit)

	h.StopLossPct = pct(5)
	h.TakeProfitPct = pct(20)
	got = StaticForHolding(h)
	assert.Equal(t, 95.0, got.StopLoss)
	assert.Equal(t, 120.0, got.TakeProfit)
}

func TestComputeDynamicRisk_PicksTightestStopAndNearestTake(t *testing.T) {
	// True range is 2 on every bar, so ATR is 2.
	candles := flatCandles(30, 100, 1)
	got, err := ComputeDynamicRisk(candles, 95, 100, DefaultDynamicConfig())
	require.NoError(t, err)

	assert.Equal(t, VolatilityATR, got.VolatilitySource)
	assert.InDelta(t, 2.0, got.Volatility, 1e-9)
	// Stop candidates {99, 96.4}: the max below 100 wins.
	assert.InDelta(t, 99.0, got.Levels.StopLoss, 1e-9)
	// Take candidates {102.01, 103.6}: the min above 100 wins.
	assert.InDelta(t, 102.01, got.Levels.TakeProfit, 1e-9)
	assert.False(t, got.Levels.StopDefaulted)
	assert.False(t, got.Levels.TakeDefaulted)
	assert.Equal(t, model.ActionWatch, got.Action.Label)
}

func TestComputeDynamicRisk_MAsJoinStopCandidates(t *testing.T) {
	candles := flatCandles(220, 100, 5)
	got, err := ComputeDynamicRisk(candles, 90, 100, DefaultDynamicConfig())
	require.NoError(t, err)

	assert.InDelta(t, 100.0, got.MA50, 1e-9)
	assert.InDelta(t, 100.0, got.MA200, 1e-9)
	// Candidates {95 swing, 82 ATR, 97 MA50, 94 MA200}.
	assert.InDelta(t, 97.0, got.Levels.StopLoss, 1e-9)
}

func TestComputeDynamicRisk_FallsBackToEntryRatios(t *testing.T) {
	cfg := DefaultDynamicConfig()

	// Too short for any volatility measure and priced below the whole range.
	candles := flatCandles(10, 100, 1)
	got, err := ComputeDynamicRisk(candles, 100, 90, cfg)
	require.NoError(t, err)
	assert.Equal(t, VolatilityUnavailable, got.VolatilitySource)
	assert.True(t, got.Levels.StopDefaulted)
	assert.InDelta(t, 92.0, got.Levels.StopLoss, 1e-9)
	assert.False(t, got.Levels.TakeDefaulted)
	assert.Equal(t, model.ActionSell, got.Action.Label)

	// Priced above the whole range.
	got, err = ComputeDynamicRisk(candles, 100, 110, cfg)
	require.NoError(t, err)
	assert.True(t, got.Levels.TakeDefaulted)
	assert.InDelta(t, 106.0, got.Levels.TakeProfit, 1e-9)
	assert.Equal(t, model.ActionTakeProfitPartial, got.Action.Label)

	cfg.FallbackStopRatio = 0.5
	got, err = ComputeDynamicRisk(candles, 100, 90, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got.Levels.StopLoss, 1e-9)
}

func TestComputeDynamicRisk_PctStdDevProxy(t *testing.T) {
	candles := flatCandles(16, 100, 1)
	for i := range candles {
		if i%2 == 1 {
			candles[i].Close = 102
		}
	}
	got, err := ComputeDynamicRisk(candles, 100, 100, DefaultDynamicConfig())
	require.NoError(t, err)
	assert.Equal(t, VolatilityPctStdDev, got.VolatilitySource)
	assert.Greater(t, got.Volatility, 0.0)
}

func TestComputeDynamicRisk_Empty(t *testing.T) {
	_, err := ComputeDynamicRisk(nil, 100, 100, DefaultDynamicConfig())
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}

func TestComputeDynamicRisk_DerivedLevelsBracketPrice(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := DefaultDynamicConfig()
	for round := 0; round < 50; round++ {
		n := 5 + rng.Intn(250)
		candles := make([]model.Candle, n)
		price := 100.0
		for i := range candles {
			price *= 1 + (rng.Float64()-0.5)*0.08
			spread := price * rng.Float64() * 0.03
			candles[i] = model.Candle{Open: price, High: price + spread, Low: price - spread, Close: price, Volume: 1}
		}
		last := price * (0.9 + rng.Float64()*0.2)
		got, err := ComputeDynamicRisk(candles, price, last, cfg)
		require.NoError(t, err)
		if !got.Levels.StopDefaulted {
			assert.Less(t, got.Levels.StopLoss, last)
		}
		if !got.Levels.TakeDefaulted {
			assert.Greater(t, got.Levels.TakeProfit, last)
		}
	}
}

func TestDynamicConfigValidate(t *testing.T) {
	require.NoError(t, DefaultDynamicConfig().Validate())
	bad := DefaultDynamicConfig()
	bad.ATRPeriod = 0
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfiguration)
	bad = DefaultDynamicConfig()
	bad.FallbackTakeRatio = 0.9
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfiguration)
}
