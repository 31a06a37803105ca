package trailstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/storage"
)

// SQLStore keeps one row per symbol in trail_states.
type SQLStore struct {
	db *storage.DB
}

// NewSQLStore migrates the trail_states table on db.
func NewSQLStore(db *storage.DB) (*SQLStore, error) {
	err := db.Migrate([]string{
		`CREATE TABLE IF NOT EXISTS trail_states (
			symbol        TEXT PRIMARY KEY,
			stop_loss     DOUBLE PRECISION NOT NULL,
			take_profit   DOUBLE PRECISION NOT NULL,
			highest_close DOUBLE PRECISION NOT NULL,
			updated_at    BIGINT NOT NULL
		)`,
	})
	if err != nil {
		return nil, fmt.Errorf("migrate trail_states: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load(ctx context.Context, symbol string) (model.TrailState, bool, error) {
	var st model.TrailState
	var updated int64
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT stop_loss, take_profit, highest_close, updated_at FROM trail_states WHERE symbol = ?`),
		key(symbol),
	).Scan(&st.StopLoss, &st.TakeProfit, &st.HighestClose, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TrailState{}, false, nil
	}
	if err != nil {
		return model.TrailState{}, false, err
	}
	st.UpdatedAt = time.Unix(updated, 0)
	return st, true, nil
}

func (s *SQLStore) Save(ctx context.Context, symbol string, state model.TrailState) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO trail_states
		(symbol, stop_loss, take_profit, highest_close, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (symbol) DO UPDATE SET
			stop_loss = excluded.stop_loss,
			take_profit = excluded.take_profit,
			highest_close = excluded.highest_close,
			updated_at = excluded.updated_at`),
		key(symbol), state.StopLoss, state.TakeProfit, state.HighestClose, time.Now().Unix(),
	)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM trail_states WHERE symbol = ?`), key(symbol))
	return err
}

func (s *SQLStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM trail_states ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
