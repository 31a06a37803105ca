package trailstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the shared contract against any Store.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.False(t, ok)

	st := model.TrailState{StopLoss: 92, TakeProfit: 112, HighestClose: 105}
	require.NoError(t, s.Save(ctx, "btc/usdt", st))
	require.NoError(t, s.Save(ctx, "ETH/USDT", model.TrailState{StopLoss: 1800, TakeProfit: 2300, HighestClose: 2000}))

	got, ok, err := s.Load(ctx, "BTC/USDT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 92.0, got.StopLoss)
	assert.Equal(t, 112.0, got.TakeProfit)
	assert.Equal(t, 105.0, got.HighestClose)
	assert.False(t, got.UpdatedAt.IsZero())

	// Saving the same state twice is harmless.
	require.NoError(t, s.Save(ctx, "BTC/USDT", st))

	syms, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, syms)

	removed, err := Prune(ctx, s, []string{"eth/usdt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT"}, removed)

	_, ok, err = s.Load(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "ETH/USDT"))
	require.NoError(t, s.Delete(ctx, "ETH/USDT"))
	syms, err = s.Symbols(ctx)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "state", "trail.json")))
}

func TestFileStore_SharedAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.json")
	ctx := context.Background()
	require.NoError(t, NewFileStore(path).Save(ctx, "SOL/USDT", model.TrailState{StopLoss: 140}))

	got, ok, err := NewFileStore(path).Load(ctx, "SOL/USDT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 140.0, got.StopLoss)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, _, err := NewFileStore(path).Load(context.Background(), "BTC")
	assert.Error(t, err)
}

func TestSQLStore_SQLite(t *testing.T) {
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "trail.db"))
	require.NoError(t, err)
	defer db.Close()
	s, err := NewSQLStore(db)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	hash := "risk:trail:test"
	client.Del(context.Background(), hash)
	defer client.Del(context.Background(), hash)
	exerciseStore(t, NewRedisStore(client, hash))
}
