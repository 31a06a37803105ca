package strategy

import (
	"fmt"
	"sort"

	"RiskSentinel/internal/model"
)

// Style parameterises the scan classifier.
type Style struct {
	Name string `yaml:"name"`
	// BuyScore is the minimum score for Buy.
	BuyScore float64 `yaml:"buy_score"`
	// BreakoutScore is the minimum score for BreakoutBuy.
	BreakoutScore float64 `yaml:"breakout_score"`
	// BreakoutWindow is N in "price exceeds the prior N-period high".
	BreakoutWindow int `yaml:"breakout_window"`
	// BreakoutTolerancePct is how far above the prior high price must be, in percent.
	BreakoutTolerancePct float64 `yaml:"breakout_tolerance_pct"`
	// WatchScore is the minimum score for Watch instead of Avoid.
	WatchScore float64 `yaml:"watch_score"`
	// MaxSpreadPct vetoes instruments whose (ask-bid)/ask exceeds it, in percent.
	MaxSpreadPct float64 `yaml:"max_spread_pct"`
	// MaxChaseReturn blocks Buy when the trailing return exceeds it, as a fraction.
	MaxChaseReturn float64 `yaml:"max_chase_return"`
	ReturnPeriods  int     `yaml:"return_periods"`
	// RequireAboveMA200 makes Buy depend on price clearing MA200 when it is known.
	RequireAboveMA200 bool `yaml:"require_above_ma200"`
	MinHistory        int  `yaml:"min_history"`
}

const (
	StyleConservative = "conservative"
	StyleBalanced     = "balanced"
	StyleAggressive   = "aggressive"
)

// Styles holds the built-in style table.
var Styles = map[string]Style{
	StyleConservative: {
		Name: StyleConservative, BuyScore: 75, BreakoutScore: 80, BreakoutWindow: 20,
		BreakoutTolerancePct: 0.1, WatchScore: 60, MaxSpreadPct: 0.15, MaxChaseReturn: 0.15,
		ReturnPeriods: 7, RequireAboveMA200: true, MinHistory: 60,
	},
	StyleBalanced: {
		Name: StyleBalanced, BuyScore: 70, BreakoutScore: 75, BreakoutWindow: 20,
		BreakoutTolerancePct: 0.1, WatchScore: 60, MaxSpreadPct: 0.25, MaxChaseReturn: 0.25,
		ReturnPeriods: 7, RequireAboveMA200: true, MinHistory: 60,
	},
	StyleAggressive: {
		Name: StyleAggressive, BuyScore: 65, BreakoutScore: 70, BreakoutWindow: 10,
		BreakoutTolerancePct: 0.1, WatchScore: 60, MaxSpreadPct: 0.40, MaxChaseReturn: 0.40,
		ReturnPeriods: 7, RequireAboveMA200: false, MinHistory: 60,
	},
}

// StyleByName looks up a built-in style.
func StyleByName(name string) (Style, error) {
	s, ok := Styles[name]
	if !ok {
		names := make([]string, 0, len(Styles))
		for n := range Styles {
			names = append(names, n)
		}
		sort.Strings(names)
		return Style{}, fmt.Errorf("unknown style %q (want one of %v): %w", name, names, model.ErrInvalidConfiguration)
	}
	return s, nil
}

// Validate rejects non-positive windows and negative thresholds.
func (s Style) Validate() error {
	switch {
	case s.BreakoutWindow <= 0:
		return fmt.Errorf("style %s: breakout_window must be positive: %w", s.Name, model.ErrInvalidConfiguration)
	case s.ReturnPeriods <= 0:
		return fmt.Errorf("style %s: return_periods must be positive: %w", s.Name, model.ErrInvalidConfiguration)
	case s.MinHistory < 0:
		return fmt.Errorf("style %s: min_history must not be negative: %w", s.Name, model.ErrInvalidConfiguration)
	case s.MaxSpreadPct < 0 || s.MaxChaseReturn < 0 || s.BreakoutTolerancePct < 0:
		return fmt.Errorf("style %s: thresholds must not be negative: %w", s.Name, model.ErrInvalidConfiguration)
	}
	return nil
}
