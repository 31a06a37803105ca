package risk

import (
	"testing"

	"RiskSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceTrailState_FirstObservation(t *testing.T) {
	cfg := DefaultTrailConfig()
	candidate := model.RiskLevels{StopLoss: 90, TakeProfit: 120}

	got := AdvanceTrailState(nil, candidate, 100, 100, pct(2), cfg)
	// trailStopPct = max(2*2, 3) = 4.
	assert.InDelta(t, 96.0, got.StopLoss, 1e-9)
	assert.Equal(t, 120.0, got.TakeProfit)
	assert.Equal(t, 100.0, got.HighestClose)

	got = AdvanceTrailState(nil, candidate, 100, 100, pct(1), cfg)
	// The minimum percentage wins for quiet markets.
	assert.InDelta(t, 97.0, got.StopLoss, 1e-9)
}

func TestAdvanceTrailState_WithoutTrailing(t *testing.T) {
	candidate := model.RiskLevels{StopLoss: 90, TakeProfit: 120}

	disabled := DefaultTrailConfig()
	disabled.Enabled = false
	got := AdvanceTrailState(nil, candidate, 100, 100, pct(2), disabled)
	assert.Equal(t, 90.0, got.StopLoss)

	got = AdvanceTrailState(nil, candidate, 100, 100, nil, DefaultTrailConfig())
	assert.Equal(t, 90.0, got.StopLoss)

	prior := &model.TrailState{StopLoss: 95, TakeProfit: 125, HighestClose: 110}
	got = AdvanceTrailState(prior, candidate, 100, 100, nil, disabled)
	assert.Equal(t, model.TrailState{StopLoss: 95, TakeProfit: 125, HighestClose: 110}, got)
}

func TestAdvanceTrailState_TakeActivation(t *testing.T) {
	cfg := DefaultTrailConfig()
	prior := &model.TrailState{StopLoss: 100, TakeProfit: 0, HighestClose: 120}
	candidate := model.RiskLevels{StopLoss: 95, TakeProfit: 110}

	// 15% gain activates trailing take: 120 * (1 - max(3, 2)/100).
	got := AdvanceTrailState(prior, candidate, 115, 100, pct(2), cfg)
	assert.InDelta(t, 116.4, got.TakeProfit, 1e-9)

	// 5% gain does not.
	got = AdvanceTrailState(prior, candidate, 105, 100, pct(2), cfg)
	assert.Equal(t, 110.0, got.TakeProfit)
}

func TestAdvanceTrailState_MonotonicUnderDecline(t *testing.T) {
	cfg := DefaultTrailConfig()
	var prior *model.TrailState
	entry := 100.0
	for close := 130.0; close >= 60; close -= 2.5 {
		candidate := ComputeStaticRisk(close, 8, 12)
		next := AdvanceTrailState(prior, candidate, close, entry, pct(1.5), cfg)
		if prior != nil {
			require.GreaterOrEqual(t, next.StopLoss, prior.StopLoss)
			require.GreaterOrEqual(t, next.TakeProfit, prior.TakeProfit)
			require.GreaterOrEqual(t, next.HighestClose, prior.HighestClose)
		}
		prior = &next
	}
	assert.Equal(t, 130.0, prior.HighestClose)
}

func TestAdvanceTrailState_Idempotent(t *testing.T) {
	cfg := DefaultTrailConfig()
	prior := &model.TrailState{StopLoss: 95, TakeProfit: 118, HighestClose: 117}
	candidate := model.RiskLevels{StopLoss: 97, TakeProfit: 119}

	first := AdvanceTrailState(prior, candidate, 116, 100, pct(2.2), cfg)
	second := AdvanceTrailState(prior, candidate, 116, 100, pct(2.2), cfg)
	assert.Equal(t, first, second)

	// Replaying the cycle on top of its own result changes nothing either.
	replay := AdvanceTrailState(&first, candidate, 116, 100, pct(2.2), cfg)
	assert.Equal(t, first, replay)
}

func TestDetectChanges(t *testing.T) {
	next := model.TrailState{StopLoss: 100.2, TakeProfit: 121}
	assert.Nil(t, DetectChanges(nil, next, 0.3))

	prior := &model.TrailState{StopLoss: 100, TakeProfit: 120}
	changes := DetectChanges(prior, next, 0.3)
	require.Len(t, changes, 1)
	assert.Equal(t, LevelTakeProfit, changes[0].Level)
	assert.Contains(t, changes[0].String(), "止盈价调整")

	next.StopLoss = 100.5
	assert.Len(t, DetectChanges(prior, next, 0.3), 2)
}

func TestTrailConfigValidate(t *testing.T) {
	require.NoError(t, DefaultTrailConfig().Validate())
	bad := DefaultTrailConfig()
	bad.MinStopPct = 150
	assert.ErrorIs(t, bad.Validate(), model.ErrInvalidConfiguration)
}
