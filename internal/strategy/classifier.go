package strategy

import (
	"fmt"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/model"
)

// PriceContext is what the position classifier sees. A zero MA is unavailable.
type PriceContext struct {
	Close  float64
	Levels model.RiskLevels
	MA50   float64
	MA200  float64
}

type positionRule struct {
	match func(p PriceContext) bool
	build func(p PriceContext) model.Action
}

// positionRules are evaluated top-down; the first match wins.
var positionRules = []positionRule{
	{
		match: func(p PriceContext) bool { return p.Levels.StopLoss > 0 && p.Close <= p.Levels.StopLoss },
		build: fixed(model.ActionSell, "触发止损，优先保护本金"),
	},
	{
		match: func(p PriceContext) bool { return p.Levels.TakeProfit > 0 && p.Close >= p.Levels.TakeProfit },
		build: fixed(model.ActionTakeProfitPartial, "达到止盈目标，建议分批落袋"),
	},
	{
		match: func(p PriceContext) bool { return p.MA50 > 0 && p.Close < p.MA50 },
		build: func(p PriceContext) model.Action {
			reasons := []string{fmt.Sprintf("跌破MA50≈%.4f", p.MA50)}
			if p.MA200 > 0 && p.Close < p.MA200 {
				reasons = append(reasons, fmt.Sprintf("低于MA200≈%.4f", p.MA200))
			}
			return model.Action{Label: model.ActionReduce, Reasons: reasons}
		},
	},
}

// ClassifyPosition turns a held position's price context into an action.
// Stop is checked before take, so a fixture crossing both yields Sell.
func ClassifyPosition(p PriceContext) model.Action {
	for _, r := range positionRules {
		if r.match(p) {
			return r.build(p)
		}
	}
	return model.Action{Label: model.ActionWatch, Reasons: []string{"趋势未变，继续跟踪"}}
}

// ScanContext is what the scan classifier sees. Zero MAs and a zero PriorHigh
// are unavailable; a nil SpreadPct skips the spread veto.
type ScanContext struct {
	Symbol    string
	Close     float64
	Score     float64
	SpreadPct *float64
	MA50      float64
	MA200     float64
	PriorHigh float64
	// TrailingReturn is the fractional change over Style.ReturnPeriods bars.
	TrailingReturn    float64
	HasTrailingReturn bool
	History           int
}

// NewScanContext derives the price-dependent parts of a ScanContext from candles.
func NewScanContext(symbol string, candles []model.Candle, score float64, spreadPct *float64, style Style) ScanContext {
	closes := model.Closes(candles)
	ctx := ScanContext{
		Symbol:    symbol,
		Close:     model.LastClose(candles),
		Score:     score,
		SpreadPct: spreadPct,
		History:   len(candles),
	}
	ctx.MA50, _ = calculator.MovingAverage(closes, trendShortMA)
	ctx.MA200, _ = calculator.MovingAverage(closes, trendLongMA)
	ctx.PriorHigh, _ = calculator.PriorHigh(candles, style.BreakoutWindow)
	if r, err := calculator.PctChange(closes, style.ReturnPeriods); err == nil {
		ctx.TrailingReturn = r
		ctx.HasTrailingReturn = true
	}
	return ctx
}

type scanRule struct {
	match func(c ScanContext, s Style) bool
	build func(c ScanContext, s Style) model.Action
}

func aboveMA50(c ScanContext) bool { return c.MA50 > 0 && c.Close >= c.MA50 }

func buyEligible(c ScanContext, s Style) bool {
	return c.Score >= s.BuyScore && aboveMA50(c) &&
		(c.MA200 == 0 || !s.RequireAboveMA200 || c.Close >= c.MA200)
}

func chasing(c ScanContext, s Style) bool {
	return c.HasTrailingReturn && c.TrailingReturn > s.MaxChaseReturn
}

// scanRules are evaluated top-down; the first match wins.
var scanRules = []scanRule{
	{
		match: func(c ScanContext, s Style) bool { return c.History < s.MinHistory },
		build: func(c ScanContext, s Style) model.Action {
			return watch(fmt.Sprintf("历史K线不足(%d<%d)，继续观察", c.History, s.MinHistory))
		},
	},
	{
		match: func(c ScanContext, s Style) bool { return c.SpreadPct != nil && *c.SpreadPct > s.MaxSpreadPct },
		build: func(c ScanContext, s Style) model.Action {
			return model.Action{Label: model.ActionAvoid, Reasons: []string{
				fmt.Sprintf("点差%.3f%%超过上限%.2f%%", *c.SpreadPct, s.MaxSpreadPct),
			}}
		},
	},
	{
		match: func(c ScanContext, s Style) bool {
			return c.Score >= s.BreakoutScore && c.PriorHigh > 0 &&
				c.Close > c.PriorHigh*(1+s.BreakoutTolerancePct/100) && aboveMA50(c)
		},
		build: func(c ScanContext, s Style) model.Action {
			return model.Action{Label: model.ActionBreakoutBuy, Reasons: []string{
				fmt.Sprintf("突破前%d根高点%.4f", s.BreakoutWindow, c.PriorHigh),
				fmt.Sprintf("评分%.2f", c.Score),
			}}
		},
	},
	{
		match: func(c ScanContext, s Style) bool { return buyEligible(c, s) && chasing(c, s) },
		build: func(c ScanContext, s Style) model.Action {
			return watch(fmt.Sprintf("近%d根涨幅%.1f%%过大，等待回踩确认", s.ReturnPeriods, c.TrailingReturn*100))
		},
	},
	{
		match: buyEligible,
		build: func(c ScanContext, s Style) model.Action {
			return model.Action{Label: model.ActionBuy, Reasons: []string{
				fmt.Sprintf("评分%.2f", c.Score),
				fmt.Sprintf("站上MA50≈%.4f", c.MA50),
			}}
		},
	},
	{
		match: func(c ScanContext, s Style) bool { return c.Score >= s.WatchScore },
		build: func(c ScanContext, s Style) model.Action {
			return watch(fmt.Sprintf("评分%.2f，继续观察", c.Score))
		},
	},
}

// ClassifyScan turns a scored candidate into an action under the given style.
func ClassifyScan(c ScanContext, s Style) model.Action {
	for _, r := range scanRules {
		if r.match(c, s) {
			return r.build(c, s)
		}
	}
	return model.Action{Label: model.ActionAvoid, Reasons: []string{fmt.Sprintf("评分%.2f偏低", c.Score)}}
}

func fixed(label model.ActionLabel, reason string) func(PriceContext) model.Action {
	return func(PriceContext) model.Action {
		return model.Action{Label: label, Reasons: []string{reason}}
	}
}

func watch(reason string) model.Action {
	return model.Action{Label: model.ActionWatch, Reasons: []string{reason}}
}
