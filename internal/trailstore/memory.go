package trailstore

import (
	"context"
	"sync"
	"time"

	"RiskSentinel/internal/model"
)

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]model.TrailState
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]model.TrailState), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, symbol string) (model.TrailState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[key(symbol)]
	return s, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, symbol string, state model.TrailState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.UpdatedAt = m.now()
	m.states[key(symbol)] = state
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key(symbol))
	return nil
}

func (m *MemoryStore) Symbols(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.states), nil
}
