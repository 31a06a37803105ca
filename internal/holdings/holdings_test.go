package holdings

import (
	"context"
	"path/filepath"
	"testing"

	"RiskSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLines(t *testing.T) {
	items, err := ParseLines("/holdings set\nBTC/USDT 60000 0.12 8 12\n\nsol,165.3,20\neth-usdt 3000 1 5")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "BTC/USDT", items[0].Symbol)
	assert.Equal(t, 60000.0, items[0].EntryPrice)
	require.NotNil(t, items[0].StopLossPct)
	assert.Equal(t, 8.0, *items[0].StopLossPct)
	assert.Equal(t, 12.0, *items[0].TakeProfitPct)

	assert.Equal(t, "SOL/USDT", items[1].Symbol)
	assert.True(t, items[1].UsesDynamicRisk())

	assert.Equal(t, "ETH/USDT", items[2].Symbol)
	assert.Equal(t, 5.0, *items[2].StopLossPct)
	assert.Nil(t, items[2].TakeProfitPct)
}

func TestParseLines_Errors(t *testing.T) {
	cases := map[string]string{
		"too few fields": "BTC 60000",
		"bad number":     "BTC abc 1",
		"zero entry":     "BTC 0 1",
		"duplicate":      "BTC 1 1\nBTC/USDT 2 2",
		"stop at 100":    "BTC 1 1 100",
	}
	for name, in := range cases {
		_, err := ParseLines(in)
		assert.Error(t, err, name)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "data", "holdings.json"))

	items, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	sl := 8.0
	require.NoError(t, s.Save(ctx, []model.Holding{
		{Symbol: "BTC/USDT", EntryPrice: 60000, Qty: 0.1, StopLossPct: &sl},
		{Symbol: "ETH/USDT", EntryPrice: 3000, Qty: 1},
	}))
	items, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 8.0, *items[0].StopLossPct)
	assert.True(t, items[1].UsesDynamicRisk())

	require.NoError(t, s.Save(ctx, nil))
	items, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFileStore_RejectsInvalid(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "holdings.json"))
	err := s.Save(context.Background(), []model.Holding{{Symbol: "BTC", EntryPrice: -1}})
	assert.Error(t, err)
}
