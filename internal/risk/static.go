package risk

import "RiskSentinel/internal/model"

const (
	DefaultStopLossPct   = 8.0
	DefaultTakeProfitPct = 12.0
)

// ComputeStaticRisk derives levels as fixed percentages of entry.
// The percentages are applied as (100±pct)/100 so whole-number inputs stay exact.
func ComputeStaticRisk(entry, stopPct, takePct float64) model.RiskLevels {
	return model.RiskLevels{
		StopLoss:   entry * (100 - stopPct) / 100,
		TakeProfit: entry * (100 + takePct) / 100,
	}
}

// StaticForHolding applies the holding's percentages, filling in the defaults.
func StaticForHolding(h model.Holding) model.RiskLevels {
	stopPct, takePct := DefaultStopLossPct, DefaultTakeProfitPct
	if h.StopLossPct != nil {
		stopPct = *h.StopLossPct
	}
	if h.TakeProfitPct != nil {
		takePct = *h.TakeProfitPct
	}
	return ComputeStaticRisk(h.EntryPrice, stopPct, takePct)
}
