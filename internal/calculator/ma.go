package calculator

import (
	"fmt"

	"RiskSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

// MovingAverage computes the simple mean of the trailing window values.
// Returns ErrInsufficientHistory until window observations exist.
func MovingAverage(series []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("moving average window %d: %w", window, model.ErrInvalidConfiguration)
	}
	if len(series) < window {
		return 0, fmt.Errorf("moving average(%d) over %d values: %w", window, len(series), model.ErrInsufficientHistory)
	}
	sma := talib.Sma(series[len(series)-window:], window)
	return sma[len(sma)-1], nil
}

// CloseMA returns the moving average of candle closes.
func CloseMA(candles []model.Candle, window int) (float64, error) {
	return MovingAverage(model.Closes(candles), window)
}

// OptionalCloseMA is CloseMA with the error folded into ok.
func OptionalCloseMA(candles []model.Candle, window int) (ma float64, ok bool) {
	v, err := CloseMA(candles, window)
	if err != nil {
		return 0, false
	}
	return v, true
}

// AverageVolume returns the mean volume of the trailing window candles.
func AverageVolume(candles []model.Candle, window int) (float64, error) {
	vols := make([]float64, len(candles))
	for i, c := range candles {
		vols[i] = c.Volume
	}
	return MovingAverage(vols, window)
}
