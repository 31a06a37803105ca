package trailstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"RiskSentinel/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps all states in one hash, one field per symbol.
type RedisStore struct {
	client *redis.Client
	hash   string
}

// NewRedisStore uses hash as the redis key; empty means "risk:trail".
func NewRedisStore(client *redis.Client, hash string) *RedisStore {
	if hash == "" {
		hash = "risk:trail"
	}
	return &RedisStore{client: client, hash: hash}
}

func (r *RedisStore) Load(ctx context.Context, symbol string) (model.TrailState, bool, error) {
	data, err := r.client.HGet(ctx, r.hash, key(symbol)).Bytes()
	if err == redis.Nil {
		return model.TrailState{}, false, nil
	}
	if err != nil {
		return model.TrailState{}, false, err
	}
	var st model.TrailState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.TrailState{}, false, fmt.Errorf("decode trail state %s: %w", symbol, err)
	}
	return st, true, nil
}

func (r *RedisStore) Save(ctx context.Context, symbol string, state model.TrailState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.hash, key(symbol), data).Err()
}

func (r *RedisStore) Delete(ctx context.Context, symbol string) error {
	return r.client.HDel(ctx, r.hash, key(symbol)).Err()
}

func (r *RedisStore) Symbols(ctx context.Context) ([]string, error) {
	out, err := r.client.HKeys(ctx, r.hash).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
