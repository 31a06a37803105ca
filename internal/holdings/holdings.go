// Package holdings stores the operator's open positions.
package holdings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/venue"
)

// Store reads and replaces the full holdings list.
type Store interface {
	Load(ctx context.Context) ([]model.Holding, error)
	Save(ctx context.Context, items []model.Holding) error
}

// FileStore keeps holdings as a JSON array. A missing file is an empty list.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(context.Context) ([]model.Holding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var items []model.Holding
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode holdings %s: %w", f.path, err)
	}
	return items, nil
}

func (f *FileStore) Save(_ context.Context, items []model.Holding) error {
	if err := Validate(items); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if items == nil {
		items = []model.Holding{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Validate rejects non-positive entries and quantities, out-of-range
// percentages and duplicate symbols.
func Validate(items []model.Holding) error {
	seen := make(map[string]bool, len(items))
	for _, h := range items {
		sym := venue.NormalizePair(h.Symbol)
		switch {
		case strings.TrimSpace(h.Symbol) == "":
			return fmt.Errorf("holding without symbol")
		case h.EntryPrice <= 0:
			return fmt.Errorf("%s: entry price must be positive", sym)
		case h.Qty < 0:
			return fmt.Errorf("%s: quantity must not be negative", sym)
		case h.StopLossPct != nil && (*h.StopLossPct <= 0 || *h.StopLossPct >= 100):
			return fmt.Errorf("%s: stop loss pct must be in (0,100)", sym)
		case h.TakeProfitPct != nil && *h.TakeProfitPct <= 0:
			return fmt.Errorf("%s: take profit pct must be positive", sym)
		case seen[sym]:
			return fmt.Errorf("%s: duplicate holding", sym)
		}
		seen[sym] = true
	}
	return nil
}

var fieldSep = regexp.MustCompile(`[,\s]+`)

// ParseLines parses one holding per line in the form
// "SYMBOL ENTRY QTY [SL% [TP%]]", separated by spaces or commas. Blank lines
// and lines starting with "/" are skipped. Omitted percentages stay nil so the
// holding uses dynamic risk levels.
func ParseLines(text string) ([]model.Holding, error) {
	var items []model.Holding
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "/") {
			continue
		}
		parts := fieldSep.Split(line, -1)
		if len(parts) < 3 || len(parts) > 5 {
			return nil, fmt.Errorf("line %d: want SYMBOL ENTRY QTY [SL%% TP%%], got %q", i+1, line)
		}
		nums := make([]float64, len(parts)-1)
		for j, p := range parts[1:] {
			v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number %q", i+1, p)
			}
			nums[j] = v
		}
		h := model.Holding{
			Symbol:     venue.NormalizePair(parts[0]),
			EntryPrice: nums[0],
			Qty:        nums[1],
		}
		if len(nums) >= 3 {
			h.StopLossPct = &nums[2]
		}
		if len(nums) >= 4 {
			h.TakeProfitPct = &nums[3]
		}
		items = append(items, h)
	}
	if err := Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}
