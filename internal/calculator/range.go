package calculator

import (
	"errors"
	"fmt"

	"RiskSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

var errNoCandles = errors.New("no candles provided")

// SwingLow returns the lowest low over the trailing window candles, or over all
// candles when fewer exist.
func SwingLow(candles []model.Candle, window int) (float64, error) {
	if len(candles) == 0 {
		return 0, fmt.Errorf("swing low: %w: %w", errNoCandles, model.ErrInsufficientHistory)
	}
	lows := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
	}
	return trailingExtreme(lows, window, talib.Min, func(a, b float64) bool { return a < b }), nil
}

// SwingHigh returns the highest high over the trailing window candles, or over
// all candles when fewer exist.
func SwingHigh(candles []model.Candle, window int) (float64, error) {
	if len(candles) == 0 {
		return 0, fmt.Errorf("swing high: %w: %w", errNoCandles, model.ErrInsufficientHistory)
	}
	return trailingExtreme(highs(candles), window, talib.Max, func(a, b float64) bool { return a > b }), nil
}

// RollingPeak returns the highest close over the trailing window, degrading to
// the whole series when it is shorter than window.
func RollingPeak(closes []float64, window int) (float64, error) {
	if len(closes) == 0 {
		return 0, fmt.Errorf("rolling peak: %w", model.ErrInsufficientHistory)
	}
	return trailingExtreme(closes, window, talib.Max, func(a, b float64) bool { return a > b }), nil
}

// PriorHigh returns the highest high of the window candles that precede the
// last candle. The last candle itself is excluded.
func PriorHigh(candles []model.Candle, window int) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("prior high window %d: %w", window, model.ErrInvalidConfiguration)
	}
	if len(candles) < window+1 {
		return 0, fmt.Errorf("prior high(%d) over %d candles: %w", window, len(candles), model.ErrInsufficientHistory)
	}
	prior := candles[len(candles)-1-window : len(candles)-1]
	return trailingExtreme(highs(prior), window, talib.Max, func(a, b float64) bool { return a > b }), nil
}

func highs(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// trailingExtreme applies a talib rolling extreme to the tail of series.
// talib needs a period of at least 2, so shorter windows are scanned directly.
func trailingExtreme(series []float64, window int, rolling func([]float64, int) []float64, better func(a, b float64) bool) float64 {
	if window <= 0 || window > len(series) {
		window = len(series)
	}
	tail := series[len(series)-window:]
	if window < 2 {
		best := tail[0]
		for _, v := range tail[1:] {
			if better(v, best) {
				best = v
			}
		}
		return best
	}
	out := rolling(tail, window)
	return out[len(out)-1]
}
