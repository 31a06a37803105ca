// Package trailstore persists the per-symbol trailing ratchet state between
// monitoring cycles.
package trailstore

import (
	"context"
	"sort"
	"strings"

	"RiskSentinel/internal/model"
)

// Store is a key-value store of TrailState keyed by symbol. Save stamps
// UpdatedAt. Load reports false when no state exists.
type Store interface {
	Load(ctx context.Context, symbol string) (model.TrailState, bool, error)
	Save(ctx context.Context, symbol string, state model.TrailState) error
	Delete(ctx context.Context, symbol string) error
	Symbols(ctx context.Context) ([]string, error)
}

// Prune deletes every stored symbol not present in keep and returns the
// symbols removed.
func Prune(ctx context.Context, s Store, keep []string) ([]string, error) {
	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		wanted[key(k)] = true
	}
	stored, err := s.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, sym := range stored {
		if wanted[sym] {
			continue
		}
		if err := s.Delete(ctx, sym); err != nil {
			return removed, err
		}
		removed = append(removed, sym)
	}
	return removed, nil
}

func key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func sortedKeys(m map[string]model.TrailState) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
