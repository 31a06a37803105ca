package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"RiskSentinel/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestRecorder(t *testing.T) *SQLRecorder {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	r, err := NewSQLRecorder(db, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestSQLRecorder_RecordScan(t *testing.T) {
	r := openTestRecorder(t)
	ctx := context.Background()
	spread := 0.05
	err := r.RecordScan(ctx, []ScanRecord{
		{RunID: "run-1", Time: time.Now(), Symbol: "BTC/USDT", Venue: "okx", SpreadPct: &spread, Total: 72.5, Action: "BUY"},
		{RunID: "run-1", Time: time.Now(), Symbol: "ETH/USDT", Venue: "okx", Total: 61, Action: "WATCH"},
	})
	require.NoError(t, err)

	n, err := r.CountScans(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, r.RecordScan(ctx, nil))
}

func TestSQLRecorder_RecordRisk(t *testing.T) {
	r := openTestRecorder(t)
	ctx := context.Background()
	require.NoError(t, r.RecordRisk(ctx, []RiskRecord{
		{RunID: "a", Time: time.Now(), Symbol: "SOL/USDT", Price: 150, StopLoss: 140, TakeProfit: 170, Action: "WATCH"},
	}))
	require.NoError(t, r.RecordRisk(ctx, []RiskRecord{
		{RunID: "b", Time: time.Now(), Symbol: "SOL/USDT", Price: 152, StopLoss: 141, TakeProfit: 170, Action: "WATCH"},
	}))

	got, err := r.LatestRisk(ctx, "SOL/USDT")
	require.NoError(t, err)
	assert.Equal(t, "b", got.RunID)
	assert.Equal(t, 141.0, got.StopLoss)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordScan(context.Background(), []ScanRecord{{Symbol: "X"}}))
	assert.NoError(t, r.Close())
}
