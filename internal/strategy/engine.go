package strategy

import (
	"fmt"
	"math"

	"RiskSentinel/internal/model"
)

// Weights are the factor weights of the composite score. They must sum to 1.
type Weights struct {
	Trend            float64 `yaml:"trend"`
	Volume           float64 `yaml:"volume"`
	RelativeStrength float64 `yaml:"relative_strength"`
	Catalyst         float64 `yaml:"catalyst"`
	Onchain          float64 `yaml:"onchain"`
}

// DefaultWeights is the standard factor mix.
var DefaultWeights = Weights{
	Trend:            0.30,
	Volume:           0.20,
	RelativeStrength: 0.20,
	Catalyst:         0.15,
	Onchain:          0.15,
}

const weightTolerance = 1e-6

// Validate checks that no weight is negative and that they sum to 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"trend": w.Trend, "volume": w.Volume, "relative_strength": w.RelativeStrength,
		"catalyst": w.Catalyst, "onchain": w.Onchain,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s=%v: %w", name, v, model.ErrInvalidConfiguration)
		}
	}
	sum := w.Trend + w.Volume + w.RelativeStrength + w.Catalyst + w.Onchain
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights sum to %.6f, want 1.0: %w", sum, model.ErrInvalidConfiguration)
	}
	return nil
}

// Scorer computes ScoreBreakdowns with a fixed, validated weight vector.
type Scorer struct {
	weights Weights
}

// NewScorer validates the weights once so that scoring itself never fails.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the scorer's weight vector.
func (s *Scorer) Weights() Weights { return s.weights }

// Score evaluates every factor over candles. bench may be nil.
// Short histories degrade to whatever windows are computable.
func (s *Scorer) Score(symbol string, candles, bench []model.Candle) model.ScoreBreakdown {
	trend := weigh(TrendScore(candles), s.weights.Trend)
	volume := weigh(VolumeScore(candles), s.weights.Volume)
	rel := weigh(RelativeStrengthScore(candles, bench), s.weights.RelativeStrength)
	catalyst := weigh(CatalystScore(symbol), s.weights.Catalyst)
	onchain := weigh(OnchainScore(symbol), s.weights.Onchain)

	return model.ScoreBreakdown{
		Symbol:           symbol,
		Trend:            trend.RawScore,
		Volume:           volume.RawScore,
		RelativeStrength: rel.RawScore,
		Catalyst:         catalyst.RawScore,
		Onchain:          onchain.RawScore,
		Total:            trend.Weighted + volume.Weighted + rel.Weighted + catalyst.Weighted + onchain.Weighted,
		Factors:          []model.FactorScore{trend, volume, rel, catalyst, onchain},
	}
}

var defaultScorer = &Scorer{weights: DefaultWeights}

// ComputeScore scores with DefaultWeights.
func ComputeScore(symbol string, candles, bench []model.Candle) model.ScoreBreakdown {
	return defaultScorer.Score(symbol, candles, bench)
}

func weigh(f model.FactorScore, weight float64) model.FactorScore {
	f.Weight = weight
	f.Weighted = f.RawScore * weight
	return f
}
