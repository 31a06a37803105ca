package risk

import (
	"fmt"
	"math"

	"RiskSentinel/internal/model"
)

// TrailConfig controls the volatility-scaled trailing candidates.
type TrailConfig struct {
	Enabled bool `yaml:"enabled"`
	// KStop and MinStopPct give trailStopPct = max(ATR%·KStop, MinStopPct).
	KStop      float64 `yaml:"k_sl"`
	MinStopPct float64 `yaml:"min_sl_pct"`
	// KTake and MinTakePct give trailTakePct = max(ATR%·KTake, MinTakePct).
	KTake      float64 `yaml:"k_tp"`
	MinTakePct float64 `yaml:"min_tp_pct"`
	// ActivationPct is the unrealized gain at which take-profit trailing starts.
	ActivationPct float64 `yaml:"activation_pct"`
	// ChangeEpsilonPct suppresses change notes smaller than this relative move.
	ChangeEpsilonPct float64 `yaml:"change_epsilon_pct"`
}

// DefaultTrailConfig returns trailing enabled with the standard multipliers.
func DefaultTrailConfig() TrailConfig {
	return TrailConfig{
		Enabled:          true,
		KStop:            2.0,
		MinStopPct:       3.0,
		KTake:            1.5,
		MinTakePct:       2.0,
		ActivationPct:    12.0,
		ChangeEpsilonPct: 0.3,
	}
}

// Validate rejects negative multipliers and percentages at or above 100.
func (c TrailConfig) Validate() error {
	switch {
	case c.KStop < 0 || c.KTake < 0:
		return fmt.Errorf("trailing: multipliers must not be negative: %w", model.ErrInvalidConfiguration)
	case c.MinStopPct < 0 || c.MinStopPct >= 100 || c.MinTakePct < 0 || c.MinTakePct >= 100:
		return fmt.Errorf("trailing: minimum percentages must be in [0,100): %w", model.ErrInvalidConfiguration)
	case c.ActivationPct < 0 || c.ChangeEpsilonPct < 0:
		return fmt.Errorf("trailing: thresholds must not be negative: %w", model.ErrInvalidConfiguration)
	}
	return nil
}

// AdvanceTrailState folds one cycle's candidate levels and close into the prior
// state. Stop, take and highest close never decrease, and the function is pure,
// so a retried cycle with the same inputs yields the same state. prior and
// atrPct may be nil.
func AdvanceTrailState(prior *model.TrailState, candidate model.RiskLevels, close, entry float64, atrPct *float64, cfg TrailConfig) model.TrailState {
	next := model.TrailState{
		StopLoss:     candidate.StopLoss,
		TakeProfit:   candidate.TakeProfit,
		HighestClose: close,
	}
	if prior != nil {
		next.StopLoss = math.Max(next.StopLoss, prior.StopLoss)
		next.TakeProfit = math.Max(next.TakeProfit, prior.TakeProfit)
		next.HighestClose = math.Max(next.HighestClose, prior.HighestClose)
	}

	if !cfg.Enabled || atrPct == nil || *atrPct <= 0 || math.IsNaN(*atrPct) {
		return next
	}

	trailStopPct := math.Max(*atrPct*cfg.KStop, cfg.MinStopPct)
	next.StopLoss = math.Max(next.StopLoss, close*(1-trailStopPct/100))

	if entry > 0 && (close/entry-1)*100 >= cfg.ActivationPct {
		trailTakePct := math.Max(*atrPct*cfg.KTake, cfg.MinTakePct)
		next.TakeProfit = math.Max(next.TakeProfit, next.HighestClose*(1-trailTakePct/100))
	}
	return next
}

// Level names used in LevelChange.
const (
	LevelStopLoss   = "stop_loss"
	LevelTakeProfit = "take_profit"
)

// LevelChange is a ratchet move large enough to report.
type LevelChange struct {
	Level string
	Old   float64
	New   float64
}

func (c LevelChange) String() string {
	name := "止损价"
	if c.Level == LevelTakeProfit {
		name = "止盈价"
	}
	return fmt.Sprintf("%s调整：%.4f → %.4f", name, c.Old, c.New)
}

// DetectChanges lists levels whose relative move from prior exceeds epsilonPct.
// A first observation (nil prior) reports nothing.
func DetectChanges(prior *model.TrailState, next model.TrailState, epsilonPct float64) []LevelChange {
	if prior == nil {
		return nil
	}
	var changes []LevelChange
	if movedBeyond(prior.StopLoss, next.StopLoss, epsilonPct) {
		changes = append(changes, LevelChange{Level: LevelStopLoss, Old: prior.StopLoss, New: next.StopLoss})
	}
	if movedBeyond(prior.TakeProfit, next.TakeProfit, epsilonPct) {
		changes = append(changes, LevelChange{Level: LevelTakeProfit, Old: prior.TakeProfit, New: next.TakeProfit})
	}
	return changes
}

func movedBeyond(from, to, epsilonPct float64) bool {
	if from == 0 {
		return false
	}
	return math.Abs(to-from)/math.Abs(from)*100 > epsilonPct
}
