package model

import "strings"

// ActionLabel is a discrete recommendation.
type ActionLabel string

const (
	ActionSell              ActionLabel = "SELL"
	ActionTakeProfitPartial ActionLabel = "TAKE_PROFIT_PARTIAL"
	ActionReduce            ActionLabel = "REDUCE"
	ActionWatch             ActionLabel = "WATCH"
	ActionAvoid             ActionLabel = "AVOID"
	ActionBreakoutBuy       ActionLabel = "BREAKOUT_BUY"
	ActionBuy               ActionLabel = "BUY"
)

var actionDisplay = map[ActionLabel]string{
	ActionSell:              "卖出",
	ActionTakeProfitPartial: "分批止盈",
	ActionReduce:            "减仓",
	ActionWatch:             "观察",
	ActionAvoid:             "回避",
	ActionBreakoutBuy:       "突破买入",
	ActionBuy:               "买入",
}

// Display returns the operator-facing name of the label.
func (a ActionLabel) Display() string {
	if s, ok := actionDisplay[a]; ok {
		return s
	}
	return string(a)
}

// Action pairs a label with the reasons that produced it.
type Action struct {
	Label   ActionLabel `json:"label"`
	Reasons []string    `json:"reasons"`
}

// Reason joins all reasons into one line.
func (a Action) Reason() string {
	return strings.Join(a.Reasons, "；")
}
