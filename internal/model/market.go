package model

import "time"

// Candle represents a single OHLCV bar. Sequences are ordered by strictly increasing Time.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Timeframe is the bar width requested from a venue.
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Ticker is a venue's latest quote for one pair.
type Ticker struct {
	Symbol      string    `json:"symbol"`
	Last        float64   `json:"last"`
	Bid         float64   `json:"bid"`
	Ask         float64   `json:"ask"`
	QuoteVolume float64   `json:"quote_volume"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SpreadPct returns (ask-bid)/ask in percent. ok is false when the book is empty.
func (t Ticker) SpreadPct() (pct float64, ok bool) {
	if t.Ask <= 0 || t.Bid <= 0 {
		return 0, false
	}
	return (t.Ask - t.Bid) / t.Ask * 100, true
}

// Closes extracts the close prices of a candle sequence.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// LastClose returns the most recent close, or 0 for an empty sequence.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
