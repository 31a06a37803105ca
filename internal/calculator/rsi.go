package calculator

import (
	"fmt"

	"RiskSentinel/internal/model"
)

const rsiEpsilon = 1e-9

// RSI computes the relative strength index from the rolling mean of positive
// and negative deltas over the last period changes.
// Requires at least period+1 closes.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("rsi period %d: %w", period, model.ErrInvalidConfiguration)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("rsi(%d) over %d closes: %w", period, len(closes), model.ErrInsufficientHistory)
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	rs := avgGain / (avgLoss + rsiEpsilon)
	return 100.0 - 100.0/(1.0+rs), nil
}
