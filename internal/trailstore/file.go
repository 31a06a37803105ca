package trailstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"RiskSentinel/internal/model"
)

// FileStore keeps every symbol's state in one JSON document. Each call reads
// the file so that independent processes see each other's writes.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) read() (map[string]model.TrailState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]model.TrailState), nil
		}
		return nil, err
	}
	states := make(map[string]model.TrailState)
	if len(data) == 0 {
		return states, nil
	}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return states, nil
}

// write replaces the file atomically via rename.
func (f *FileStore) write(states map[string]model.TrailState) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Load(_ context.Context, symbol string) (model.TrailState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	states, err := f.read()
	if err != nil {
		return model.TrailState{}, false, err
	}
	s, ok := states[key(symbol)]
	return s, ok, nil
}

func (f *FileStore) Save(_ context.Context, symbol string, state model.TrailState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	states, err := f.read()
	if err != nil {
		return err
	}
	state.UpdatedAt = time.Now()
	states[key(symbol)] = state
	return f.write(states)
}

func (f *FileStore) Delete(_ context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	states, err := f.read()
	if err != nil {
		return err
	}
	k := key(symbol)
	if _, ok := states[k]; !ok {
		return nil
	}
	delete(states, k)
	return f.write(states)
}

func (f *FileStore) Symbols(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	states, err := f.read()
	if err != nil {
		return nil, err
	}
	return sortedKeys(states), nil
}
