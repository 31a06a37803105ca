package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"RiskSentinel/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultCandleTTL = 30 * time.Second
	DefaultPairsTTL  = 10 * time.Minute
)

// Cached decorates a Venue with a redis read-through cache for candles and the
// pair list. Tickers are never cached. Redis failures degrade to the inner venue.
type Cached struct {
	Venue
	client    *redis.Client
	logger    *zap.Logger
	CandleTTL time.Duration
	PairsTTL  time.Duration
}

// NewCached wraps v. A nil client returns v unchanged. The result implements
// Snapshotter only when v does.
func NewCached(v Venue, client *redis.Client, logger *zap.Logger) Venue {
	if client == nil {
		return v
	}
	c := &Cached{
		Venue:     v,
		client:    client,
		logger:    logger.With(zap.String("component", "venue_cache"), zap.String("venue", v.Name())),
		CandleTTL: DefaultCandleTTL,
		PairsTTL:  DefaultPairsTTL,
	}
	if snap, ok := v.(Snapshotter); ok {
		return &cachedSnapshotter{Cached: c, snap: snap}
	}
	return c
}

// cachedSnapshotter forwards uncached ticker snapshots.
type cachedSnapshotter struct {
	*Cached
	snap Snapshotter
}

func (c *cachedSnapshotter) FetchTickers(ctx context.Context) ([]model.Ticker, error) {
	return c.snap.FetchTickers(ctx)
}

func candleCacheKey(venue, pair string, tf model.Timeframe, limit int) string {
	return fmt.Sprintf("k:%s:%s:%s:%d", venue, NormalizePair(pair), tf, limit)
}

func (c *Cached) FetchCandles(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	key := candleCacheKey(c.Name(), pair, tf, limit)
	var candles []model.Candle
	if c.load(ctx, key, &candles) {
		return candles, nil
	}
	candles, err := c.Venue.FetchCandles(ctx, pair, tf, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, candles, c.CandleTTL)
	return candles, nil
}

func (c *Cached) ListPairs(ctx context.Context) ([]string, error) {
	key := "pairs:" + c.Name()
	var pairs []string
	if c.load(ctx, key, &pairs) {
		return pairs, nil
	}
	pairs, err := c.Venue.ListPairs(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, pairs, c.PairsTTL)
	return pairs, nil
}

func (c *Cached) load(ctx context.Context, key string, out interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cached) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
