package model

import "github.com/shopspring/decimal"

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string  `json:"name"`
	RawScore   float64 `json:"raw_score"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary,omitempty"`
}

// ScoreBreakdown is the composite attractiveness score of one instrument.
// Every factor lies in [0,100]; Total keeps full precision.
type ScoreBreakdown struct {
	Symbol           string        `json:"symbol"`
	Trend            float64       `json:"trend"`
	Volume           float64       `json:"volume"`
	RelativeStrength float64       `json:"relative_strength"`
	Catalyst         float64       `json:"catalyst"`
	Onchain          float64       `json:"onchain"`
	Total            float64       `json:"total"`
	Factors          []FactorScore `json:"factors,omitempty"`
}

// TotalRounded returns Total rounded half away from zero to 2 decimals.
func (s ScoreBreakdown) TotalRounded() float64 {
	return Round(s.Total, 2)
}

// Round rounds v to places decimals using decimal arithmetic.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
