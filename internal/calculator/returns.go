package calculator

import (
	"fmt"
	"math"

	"RiskSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

// PctChange returns the fractional change between the last close and the close
// periods bars earlier.
func PctChange(closes []float64, periods int) (float64, error) {
	if periods <= 0 {
		return 0, fmt.Errorf("pct change periods %d: %w", periods, model.ErrInvalidConfiguration)
	}
	if len(closes) < periods+1 {
		return 0, fmt.Errorf("pct change(%d) over %d closes: %w", periods, len(closes), model.ErrInsufficientHistory)
	}
	base := closes[len(closes)-1-periods]
	if base == 0 {
		return 0, fmt.Errorf("pct change from zero close: %w", model.ErrInsufficientHistory)
	}
	return closes[len(closes)-1]/base - 1, nil
}

// PctChangeStdDev is the sample standard deviation (n-1 denominator) of the
// last period one-bar fractional changes. Requires period+1 closes.
func PctChangeStdDev(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, fmt.Errorf("pct change stddev period %d: %w", period, model.ErrInvalidConfiguration)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("pct change stddev(%d) over %d closes: %w", period, len(closes), model.ErrInsufficientHistory)
	}
	tail := closes[len(closes)-period-1:]
	changes := make([]float64, period)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] != 0 {
			changes[i-1] = tail[i]/tail[i-1] - 1
		}
	}
	// talib reports the population deviation.
	pop := talib.StdDev(changes, period, 1)
	return pop[len(pop)-1] * math.Sqrt(float64(period)/float64(period-1)), nil
}
