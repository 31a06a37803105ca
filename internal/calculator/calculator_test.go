package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"RiskSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCandles(closes ...float64) []model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name    string
		series  []float64
		window  int
		want    float64
		wantErr error
	}{
		{"exact window", []float64{1, 2, 3, 4}, 4, 2.5, nil},
		{"trailing only", []float64{100, 1, 2, 3}, 3, 2, nil},
		{"window of one", []float64{5, 7}, 1, 7, nil},
		{"too short", []float64{1, 2}, 3, 0, model.ErrInsufficientHistory},
		{"zero window", []float64{1, 2}, 0, 0, model.ErrInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MovingAverage(tt.series, tt.window)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRSI(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	got, err := RSI(rising, 14)
	require.NoError(t, err)
	assert.Greater(t, got, 99.99)

	falling := make([]float64, len(rising))
	for i := range rising {
		falling[i] = rising[len(rising)-1-i]
	}
	got, err = RSI(falling, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-6)

	// Equal gains and losses land on 50.
	zigzag := []float64{10, 11, 10, 11, 10}
	got, err = RSI(zigzag, 4)
	require.NoError(t, err)
	assert.InDelta(t, 50, got, 1e-6)

	_, err = RSI(rising[:14], 14)
	assert.True(t, errors.Is(err, model.ErrInsufficientHistory))
}

func TestRSI_Deterministic(t *testing.T) {
	closes := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1, 45.9, 46.2, 45.6, 46.3, 46.3, 46.0}
	a, err := RSI(closes, 14)
	require.NoError(t, err)
	b, err := RSI(closes, 14)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAverageTrueRange(t *testing.T) {
	candles := []model.Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11},  // tr = max(3, 3, 0) = 3
		{High: 11, Low: 10, Close: 10}, // tr = max(1, 0, 1) = 1
		{High: 15, Low: 11, Close: 14}, // tr = max(4, 5, 1) = 5
	}
	assert.Equal(t, []float64{3, 1, 5}, TrueRange(candles))

	atr, err := AverageTrueRange(candles, 3)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, atr, 1e-9)

	atr, err = AverageTrueRange(candles, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, atr, 1e-9)

	_, err = AverageTrueRange(candles, 4)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)

	pct, err := ATRPercent(candles, 3)
	require.NoError(t, err)
	assert.InDelta(t, 3.0/14*100, pct, 1e-9)
}

func TestSwingLevels(t *testing.T) {
	candles := makeCandles(10, 12, 8, 15, 11)

	low, err := SwingLow(candles, 3)
	require.NoError(t, err)
	assert.Equal(t, 7.0, low)

	high, err := SwingHigh(candles, 3)
	require.NoError(t, err)
	assert.Equal(t, 16.0, high)

	// Window longer than the series uses everything available.
	low, err = SwingLow(candles, 20)
	require.NoError(t, err)
	assert.Equal(t, 7.0, low)

	_, err = SwingHigh(nil, 20)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}

func TestPriorHighExcludesLastCandle(t *testing.T) {
	candles := makeCandles(10, 11, 12, 50)
	got, err := PriorHigh(candles, 3)
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)

	_, err = PriorHigh(candles, 4)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}

func TestRollingPeak(t *testing.T) {
	got, err := RollingPeak([]float64{50, 10, 20, 15}, 3)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got)

	got, err = RollingPeak([]float64{50, 10}, 60)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)
}

func TestPctChange(t *testing.T) {
	got, err := PctChange([]float64{100, 105, 110}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, got, 1e-12)

	_, err = PctChange([]float64{100, 105}, 2)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}

func TestPctChangeStdDev(t *testing.T) {
	// Alternating +10% / -10% style moves give a known sample deviation.
	closes := []float64{100, 110, 99, 108.9}
	got, err := PctChangeStdDev(closes, 3)
	require.NoError(t, err)

	changes := []float64{0.1, -0.1, 0.1}
	mean := (0.1 - 0.1 + 0.1) / 3
	var ss float64
	for _, c := range changes {
		ss += (c - mean) * (c - mean)
	}
	want := math.Sqrt(ss / 2)
	assert.InDelta(t, want, got, 1e-9)

	_, err = PctChangeStdDev(closes, 4)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}
