package risk

import (
	"fmt"
	"math"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/strategy"
)

// DynamicConfig holds the ATR and swing heuristics of the dynamic calculator.
type DynamicConfig struct {
	ATRPeriod int `yaml:"atr_period"`
	// MinATRHistory is the candle count below which the pct-change proxy replaces ATR.
	MinATRHistory   int     `yaml:"min_atr_history"`
	SwingWindow     int     `yaml:"swing_window"`
	ATRMultiplier   float64 `yaml:"atr_multiplier"`
	MA50Buffer      float64 `yaml:"ma50_buffer"`
	MA200Buffer     float64 `yaml:"ma200_buffer"`
	SwingHighBuffer float64 `yaml:"swing_high_buffer"`
	// FallbackStopRatio and FallbackTakeRatio multiply entry when no candidate qualifies.
	FallbackStopRatio float64 `yaml:"fallback_stop_ratio"`
	FallbackTakeRatio float64 `yaml:"fallback_take_ratio"`
}

// DefaultDynamicConfig returns the standard heuristics.
func DefaultDynamicConfig() DynamicConfig {
	return DynamicConfig{
		ATRPeriod:         14,
		MinATRHistory:     20,
		SwingWindow:       20,
		ATRMultiplier:     1.8,
		MA50Buffer:        0.97,
		MA200Buffer:       0.94,
		SwingHighBuffer:   1.01,
		FallbackStopRatio: 0.92,
		FallbackTakeRatio: 1.06,
	}
}

// Validate rejects non-positive periods and multipliers.
func (c DynamicConfig) Validate() error {
	switch {
	case c.ATRPeriod < 2:
		return fmt.Errorf("dynamic risk: atr_period must be at least 2: %w", model.ErrInvalidConfiguration)
	case c.MinATRHistory < 0 || c.SwingWindow <= 0:
		return fmt.Errorf("dynamic risk: windows must be positive: %w", model.ErrInvalidConfiguration)
	case c.ATRMultiplier <= 0 || c.MA50Buffer <= 0 || c.MA200Buffer <= 0 || c.SwingHighBuffer <= 0:
		return fmt.Errorf("dynamic risk: multipliers must be positive: %w", model.ErrInvalidConfiguration)
	case c.FallbackStopRatio <= 0 || c.FallbackStopRatio >= 1:
		return fmt.Errorf("dynamic risk: fallback_stop_ratio must be in (0,1): %w", model.ErrInvalidConfiguration)
	case c.FallbackTakeRatio <= 1:
		return fmt.Errorf("dynamic risk: fallback_take_ratio must exceed 1: %w", model.ErrInvalidConfiguration)
	}
	return nil
}

// Volatility sources reported in DynamicRisk.
const (
	VolatilityATR         = "atr"
	VolatilityPctStdDev   = "pct_stddev"
	VolatilityUnavailable = ""
)

// DynamicRisk is the outcome of ComputeDynamicRisk. Zero MAs are unavailable.
type DynamicRisk struct {
	Levels           model.RiskLevels
	MA50             float64
	MA200            float64
	Volatility       float64
	VolatilitySource string
	SwingLow         float64
	SwingHigh        float64
	Action           model.Action
}

// ComputeDynamicRisk derives stop and take from ATR, swing extremes and moving
// averages. The stop is the highest candidate below last and the take is the
// lowest candidate above last; empty candidate sets fall back to entry ratios.
func ComputeDynamicRisk(candles []model.Candle, entry, last float64, cfg DynamicConfig) (DynamicRisk, error) {
	if len(candles) == 0 {
		return DynamicRisk{}, fmt.Errorf("dynamic risk: %w", model.ErrInsufficientHistory)
	}

	var out DynamicRisk
	closes := model.Closes(candles)
	out.MA50, _ = calculator.MovingAverage(closes, 50)
	out.MA200, _ = calculator.MovingAverage(closes, 200)
	out.Volatility, out.VolatilitySource = volatility(candles, closes, last, cfg)
	out.SwingLow, _ = calculator.SwingLow(candles, cfg.SwingWindow)
	out.SwingHigh, _ = calculator.SwingHigh(candles, cfg.SwingWindow)

	stops := []float64{out.SwingLow}
	takes := []float64{out.SwingHigh * cfg.SwingHighBuffer}
	if out.Volatility > 0 {
		stops = append(stops, last-cfg.ATRMultiplier*out.Volatility)
		takes = append(takes, last+cfg.ATRMultiplier*out.Volatility)
	}
	if out.MA50 > 0 {
		stops = append(stops, cfg.MA50Buffer*out.MA50)
	}
	if out.MA200 > 0 {
		stops = append(stops, cfg.MA200Buffer*out.MA200)
	}

	if stop, ok := highestBelow(stops, last); ok {
		out.Levels.StopLoss = stop
	} else {
		out.Levels.StopLoss = entry * cfg.FallbackStopRatio
		out.Levels.StopDefaulted = true
	}
	if take, ok := lowestAbove(takes, last); ok {
		out.Levels.TakeProfit = take
	} else {
		out.Levels.TakeProfit = entry * cfg.FallbackTakeRatio
		out.Levels.TakeDefaulted = true
	}

	out.Action = strategy.ClassifyPosition(strategy.PriceContext{
		Close:  last,
		Levels: out.Levels,
		MA50:   out.MA50,
		MA200:  out.MA200,
	})
	return out, nil
}

// volatility prefers ATR once MinATRHistory candles exist and otherwise scales
// the pct-change deviation by last.
func volatility(candles []model.Candle, closes []float64, last float64, cfg DynamicConfig) (float64, string) {
	if len(candles) >= cfg.MinATRHistory {
		if atr, err := calculator.AverageTrueRange(candles, cfg.ATRPeriod); err == nil {
			return atr, VolatilityATR
		}
	}
	if sd, err := calculator.PctChangeStdDev(closes, cfg.ATRPeriod); err == nil && !math.IsNaN(sd) {
		return sd * last, VolatilityPctStdDev
	}
	return 0, VolatilityUnavailable
}

func highestBelow(candidates []float64, limit float64) (float64, bool) {
	best, found := 0.0, false
	for _, c := range candidates {
		if c < limit && (!found || c > best) {
			best, found = c, true
		}
	}
	return best, found
}

func lowestAbove(candidates []float64, limit float64) (float64, bool) {
	best, found := 0.0, false
	for _, c := range candidates {
		if c > limit && (!found || c < best) {
			best, found = c, true
		}
	}
	return best, found
}
