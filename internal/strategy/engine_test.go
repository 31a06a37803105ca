package strategy

import (
	"testing"
	"time"

	"RiskSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// series builds candles from closes with a constant volume.
func series(closes []float64, volume float64) []model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Time: base.Add(time.Duration(i) * time.Hour),
			Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: volume,
		}
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestComputeScore_NoBenchmarkIsNeutral(t *testing.T) {
	s := ComputeScore("ETH/USDT", series(ramp(120, 100, 1), 10), nil)
	assert.Equal(t, 60.0, s.RelativeStrength)
	assert.Equal(t, 60.0, s.Catalyst)
	assert.Equal(t, 60.0, s.Onchain)
}

func TestComputeScore_TotalIsWeightedSum(t *testing.T) {
	fixtures := map[string][]model.Candle{
		"rising":  series(ramp(250, 10, 1), 100),
		"falling": series(ramp(250, 300, -1), 100),
		"short":   series(ramp(12, 50, 0.5), 100),
	}
	bench := series(ramp(250, 100, 0.1), 100)
	for name, candles := range fixtures {
		t.Run(name, func(t *testing.T) {
			s := ComputeScore("X/USDT", candles, bench)
			want := s.Trend*0.30 + s.Volume*0.20 + s.RelativeStrength*0.20 + s.Catalyst*0.15 + s.Onchain*0.15
			assert.InDelta(t, want, s.Total, 1e-9)
			assert.InDelta(t, want, s.TotalRounded(), 0.005)
			for _, f := range s.Factors {
				assert.GreaterOrEqual(t, f.RawScore, 0.0, f.Name)
				assert.LessOrEqual(t, f.RawScore, 100.0, f.Name)
			}
		})
	}
}

func TestScorer_CustomWeights(t *testing.T) {
	sc, err := NewScorer(Weights{Trend: 1})
	require.NoError(t, err)
	candles := series(ramp(250, 10, 1), 100)
	s := sc.Score("X/USDT", candles, nil)
	assert.InDelta(t, s.Trend, s.Total, 1e-9)
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights.Validate())

	bad := DefaultWeights
	bad.Trend = 0.5
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfiguration)

	neg := Weights{Trend: 1.2, Volume: -0.2}
	assert.ErrorIs(t, neg.Validate(), model.ErrInvalidConfiguration)

	_, err := NewScorer(bad)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestTrendScore(t *testing.T) {
	up := TrendScore(series(ramp(250, 10, 1), 1))
	assert.InDelta(t, 85*0.7+30, up.RawScore, 1e-9)

	down := TrendScore(series(ramp(250, 300, -1), 1))
	assert.InDelta(t, 40*0.7, down.RawScore, 1e-9)

	// Under 200 candles only MA50 can hold.
	short := TrendScore(series(ramp(80, 10, 1), 1))
	assert.InDelta(t, 65*0.7+30, short.RawScore, 1e-9)

	assert.NotPanics(t, func() { TrendScore(nil) })
}

func TestVolumeScore(t *testing.T) {
	candles := series(ramp(90, 100, 0), 100)
	for i := 83; i < 90; i++ {
		candles[i].Volume = 200
	}
	assert.Equal(t, 90.0, VolumeScore(candles).RawScore)

	flat := series(ramp(90, 100, 0), 100)
	assert.Equal(t, 65.0, VolumeScore(flat).RawScore)

	assert.Equal(t, 50.0, VolumeScore(flat[:89]).RawScore)
}

func TestRelativeStrengthScore(t *testing.T) {
	flat := series(ramp(20, 100, 0), 1)
	tests := []struct {
		name  string
		final float64
		want  float64
	}{
		{"strong", 120, 90},
		{"moderate", 106, 75},
		{"inline", 100, 65},
		{"slightly weak", 98, 50},
		{"weak", 90, 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closes := ramp(20, 100, 0)
			closes[len(closes)-1] = tt.final
			got := RelativeStrengthScore(series(closes, 1), flat)
			assert.Equal(t, tt.want, got.RawScore)
		})
	}
}
