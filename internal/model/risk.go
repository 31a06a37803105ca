package model

import "time"

// RiskLevels holds a stop-loss and take-profit price for a long position.
// The Defaulted flags mark levels that fell back to the entry-relative default
// because no candidate qualified.
type RiskLevels struct {
	StopLoss      float64 `json:"stop_loss_price"`
	TakeProfit    float64 `json:"take_profit_price"`
	StopDefaulted bool    `json:"stop_defaulted,omitempty"`
	TakeDefaulted bool    `json:"take_defaulted,omitempty"`
}

// TrailState is the persisted ratchet state of one held instrument.
type TrailState struct {
	StopLoss     float64   `json:"stop_loss_price"`
	TakeProfit   float64   `json:"take_profit_price"`
	HighestClose float64   `json:"highest_close"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Levels returns the ratcheted levels as RiskLevels.
func (s TrailState) Levels() RiskLevels {
	return RiskLevels{StopLoss: s.StopLoss, TakeProfit: s.TakeProfit}
}

// Holding is an open long position owned by the operator.
type Holding struct {
	Symbol        string   `json:"symbol"`
	Venue         string   `json:"venue,omitempty"`
	EntryPrice    float64  `json:"entry_price"`
	Qty           float64  `json:"qty"`
	StopLossPct   *float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct *float64 `json:"take_profit_pct,omitempty"`
}

// UsesDynamicRisk reports whether the holding carries no explicit percentages.
func (h Holding) UsesDynamicRisk() bool {
	return h.StopLossPct == nil && h.TakeProfitPct == nil
}
