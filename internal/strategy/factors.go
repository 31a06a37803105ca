package strategy

import (
	"fmt"
	"math"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/model"
)

const (
	trendShortMA      = 50
	trendLongMA       = 200
	drawdownWindow    = 60
	drawdownCap       = 0.30
	volumeShortWindow = 7
	volumeLongWindow  = 90
	relStrengthPeriod = 7

	// NeutralScore is returned by factors that have no data source yet.
	NeutralScore = 60.0
)

// trendBase maps how many of {close > MA50, close > MA200} hold to a base score.
var trendBase = [3]float64{40, 65, 85}

// TrendScore blends MA alignment (70%) with a drawdown penalty from the
// 60-period rolling peak (30%). Windows that cannot be computed count as not held.
func TrendScore(candles []model.Candle) model.FactorScore {
	closes := model.Closes(candles)
	if len(closes) == 0 {
		return model.FactorScore{Name: "趋势", RawScore: trendBase[0] * 0.7, Commentary: "无K线数据"}
	}
	last := closes[len(closes)-1]

	held := 0
	if ma, err := calculator.MovingAverage(closes, trendShortMA); err == nil && last > ma {
		held++
	}
	if ma, err := calculator.MovingAverage(closes, trendLongMA); err == nil && last > ma {
		held++
	}

	peak, _ := calculator.RollingPeak(closes, drawdownWindow)
	drawdown := (peak - last) / math.Max(peak, 1e-9)
	drawdownScore := math.Max(0, 1-math.Min(drawdown, drawdownCap)/drawdownCap)

	score := clampScore(trendBase[held]*0.7 + drawdownScore*30)
	return model.FactorScore{
		Name:       "趋势",
		RawScore:   score,
		Commentary: fmt.Sprintf("均线站上%d/2 回撤%.1f%%", held, drawdown*100),
	}
}

// VolumeScore maps the 7/90 average volume ratio through fixed breakpoints.
func VolumeScore(candles []model.Candle) model.FactorScore {
	short, errShort := calculator.AverageVolume(candles, volumeShortWindow)
	long, errLong := calculator.AverageVolume(candles, volumeLongWindow)
	if errShort != nil || errLong != nil || short == 0 || long == 0 {
		return model.FactorScore{Name: "成交量", RawScore: 50, Commentary: "均量不可用"}
	}
	ratio := short / long

	var score float64
	switch {
	case ratio >= 1.5:
		score = 90
	case ratio >= 1.2:
		score = 75
	case ratio >= 1.0:
		score = 65
	case ratio >= 0.8:
		score = 50
	default:
		score = 35
	}
	return model.FactorScore{Name: "成交量", RawScore: score, Commentary: fmt.Sprintf("量比=%.2f", ratio)}
}

// RelativeStrengthScore compares the 7-period return of the instrument with the
// benchmark's. An absent benchmark yields the neutral 60. A return that cannot
// be computed counts as zero.
func RelativeStrengthScore(candles, bench []model.Candle) model.FactorScore {
	if len(bench) == 0 {
		return model.FactorScore{Name: "相对强弱", RawScore: NeutralScore, Commentary: "无基准"}
	}
	own, err := calculator.PctChange(model.Closes(candles), relStrengthPeriod)
	if err != nil {
		own = 0
	}
	ref, err := calculator.PctChange(model.Closes(bench), relStrengthPeriod)
	if err != nil {
		ref = 0
	}
	diff := own - ref

	var score float64
	switch {
	case diff >= 0.10:
		score = 90
	case diff >= 0.05:
		score = 75
	case diff >= 0.00:
		score = 65
	case diff >= -0.03:
		score = 50
	default:
		score = 35
	}
	return model.FactorScore{Name: "相对强弱", RawScore: score, Commentary: fmt.Sprintf("超额%+.1f%%", diff*100)}
}

// CatalystScore is an extension point; it is neutral until a news source exists.
func CatalystScore(string) model.FactorScore {
	return model.FactorScore{Name: "催化剂", RawScore: NeutralScore, Commentary: "中性"}
}

// OnchainScore is an extension point; it is neutral until on-chain data exists.
func OnchainScore(string) model.FactorScore {
	return model.FactorScore{Name: "链上", RawScore: NeutralScore, Commentary: "中性"}
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
