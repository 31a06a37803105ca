package calculator

import (
	"fmt"

	"RiskSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) for every
// candle after the first. The result has len(candles)-1 entries.
func TrueRange(candles []model.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	return talib.TRange(highs, lows, closes)[1:]
}

// AverageTrueRange is the rolling mean of the last period true ranges.
// Undefined until period+1 candles exist.
func AverageTrueRange(candles []model.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("atr period %d: %w", period, model.ErrInvalidConfiguration)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("atr(%d) over %d candles: %w", period, len(candles), model.ErrInsufficientHistory)
	}
	return MovingAverage(TrueRange(candles), period)
}

// ATRPercent expresses ATR as a percentage of the last close.
func ATRPercent(candles []model.Candle, period int) (float64, error) {
	atr, err := AverageTrueRange(candles, period)
	if err != nil {
		return 0, err
	}
	last := model.LastClose(candles)
	if last <= 0 {
		return 0, fmt.Errorf("atr percent: last close %v: %w", last, model.ErrInsufficientHistory)
	}
	return atr / last * 100, nil
}
