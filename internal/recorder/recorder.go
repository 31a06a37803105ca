package recorder

import (
	"context"
	"time"
)

// ScanRecord is one scored candidate from a scan run.
type ScanRecord struct {
	RunID            string
	Time             time.Time
	Symbol           string
	Venue            string
	Style            string
	Price            float64
	SpreadPct        *float64
	Trend            float64
	Volume           float64
	RelativeStrength float64
	Catalyst         float64
	Onchain          float64
	Total            float64
	Action           string
	Reason           string
}

// RiskRecord is one holding's outcome from a monitoring cycle.
type RiskRecord struct {
	RunID        string
	Time         time.Time
	Symbol       string
	Venue        string
	Pair         string
	Price        float64
	EntryPrice   float64
	PnLPct       float64
	StopLoss     float64
	TakeProfit   float64
	HighestClose float64
	Mode         string // "static" or "dynamic"
	Action       string
	Reason       string
	Error        string
}

// Recorder persists scan and risk history for later analysis.
type Recorder interface {
	RecordScan(ctx context.Context, recs []ScanRecord) error
	RecordRisk(ctx context.Context, recs []RiskRecord) error
	Close() error
}
