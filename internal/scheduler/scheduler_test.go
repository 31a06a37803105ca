package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"RiskSentinel/internal/holdings"
	"RiskSentinel/internal/lock"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScanner struct {
	last pipeline.ScanRequest
	err  error
}

func (f *fakeScanner) Run(_ context.Context, req pipeline.ScanRequest) (pipeline.ScanReport, error) {
	f.last = req
	if f.err != nil {
		return pipeline.ScanReport{}, f.err
	}
	return pipeline.ScanReport{Style: "balanced", Venue: "okx", Time: time.Now(), Scanned: 1,
		Top: []pipeline.ScanItem{{Symbol: "ETH/USDT", Price: 3000, Action: model.Action{Label: model.ActionBuy}}}}, nil
}

type fakeMonitor struct {
	store  holdings.Store
	err    error
	cycles int
}

func (f *fakeMonitor) RunCycle(context.Context) (pipeline.RiskReport, error) {
	f.cycles++
	if f.err != nil {
		return pipeline.RiskReport{}, f.err
	}
	return pipeline.RiskReport{Time: time.Now()}, nil
}

func (f *fakeMonitor) Holdings() holdings.Store { return f.store }

type sent struct{ title, text string }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recordingNotifier) Send(_ context.Context, title, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{title, text})
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeScanner, *fakeMonitor, *recordingNotifier) {
	t.Helper()
	sc := &fakeScanner{}
	mon := &fakeMonitor{store: holdings.NewFileStore(filepath.Join(t.TempDir(), "holdings.json"))}
	n := &recordingNotifier{}
	return NewScheduler(context.Background(), sc, mon, n, zap.NewNop()), sc, mon, n
}

func TestRegisterAll(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	require.NoError(t, s.RegisterAll("0 0 9 * * *", "0 */15 * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	s2, _, _, _ := newTestScheduler(t)
	require.NoError(t, s2.RegisterAll("", "0 */15 * * * *"))
	assert.Len(t, s2.Cron.Entries(), 1)

	assert.Error(t, s2.RegisterAll("not a cron", ""))
}

func TestRiskTask_SkipsWhenLocked(t *testing.T) {
	s, _, mon, n := newTestScheduler(t)
	mon.err = fmt.Errorf("monitor cycle: %w", lock.ErrLocked)
	s.RunRiskNow()
	assert.Empty(t, n.msgs)

	mon.err = errors.New("disk full")
	s.RunRiskNow()
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0].text, "disk full")
}

func TestScanTask_Notifies(t *testing.T) {
	s, _, _, n := newTestScheduler(t)
	s.RunScanNow()
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0].text, "ETH/USDT")
}

func TestHandleCommand_Scan(t *testing.T) {
	s, sc, _, _ := newTestScheduler(t)
	reply := s.HandleCommand(context.Background(), "/scan 5 aggressive")
	assert.Contains(t, reply, "ETH/USDT")
	assert.Equal(t, 5, sc.last.TopN)
	assert.Equal(t, "aggressive", sc.last.Style)
}

func TestHandleCommand_Holdings(t *testing.T) {
	s, _, mon, _ := newTestScheduler(t)
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/holdings set\nBTC/USDT 60000 0.12 8 12\nSOL/USDT 165.3 20")
	assert.Contains(t, reply, "共 2 条")
	assert.Equal(t, 1, mon.cycles)

	reply = s.HandleCommand(ctx, "/holdings list")
	assert.Contains(t, reply, "BTC/USDT")
	assert.Contains(t, reply, "SOL/USDT")

	reply = s.HandleCommand(ctx, "/holdings clear")
	assert.Contains(t, reply, "confirm")
	items, err := mon.store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	reply = s.HandleCommand(ctx, "/holdings clear confirm")
	assert.Contains(t, reply, "已清空")
	items, err = mon.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	reply = s.HandleCommand(ctx, "/holdings set\nBTC")
	assert.Contains(t, reply, "未解析到任何持仓")
}

func TestHandleCommand_RiskLocked(t *testing.T) {
	s, _, mon, _ := newTestScheduler(t)
	mon.err = lock.ErrLocked
	assert.Contains(t, s.HandleCommand(context.Background(), "/risk"), "已有风控任务在运行")
}

func TestHandleCommand_Unknown(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	assert.Contains(t, s.HandleCommand(context.Background(), "/moon"), "/help")
	assert.Contains(t, s.HandleCommand(context.Background(), "/help"), "/holdings set")
	assert.Equal(t, "", s.HandleCommand(context.Background(), "   "))
}
