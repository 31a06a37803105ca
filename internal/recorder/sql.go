package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RiskSentinel/internal/storage"

	"go.uber.org/zap"
)

// SQLRecorder writes history to sqlite or postgres.
type SQLRecorder struct {
	db     *storage.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLRecorder runs migrations on db. The recorder does not own db.
func NewSQLRecorder(db *storage.DB, logger *zap.Logger) (*SQLRecorder, error) {
	r := &SQLRecorder{db: db, logger: logger.With(zap.String("component", "recorder"))}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.logger.Info("sql recorder ready", zap.String("driver", db.Driver))
	return r, nil
}

func (r *SQLRecorder) migrate() error {
	pk := r.db.AutoIncrement()
	return r.db.Migrate([]string{
		`CREATE TABLE IF NOT EXISTS scan_results (
			id                ` + pk + `,
			run_id            TEXT NOT NULL,
			timestamp         BIGINT NOT NULL,
			symbol            TEXT NOT NULL,
			venue             TEXT,
			style             TEXT,
			price             DOUBLE PRECISION,
			spread_pct        DOUBLE PRECISION,
			trend_score       DOUBLE PRECISION,
			volume_score      DOUBLE PRECISION,
			rs_score          DOUBLE PRECISION,
			catalyst_score    DOUBLE PRECISION,
			onchain_score     DOUBLE PRECISION,
			total_score       DOUBLE PRECISION,
			action            TEXT,
			reason            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ts ON scan_results(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_run ON scan_results(run_id)`,

		`CREATE TABLE IF NOT EXISTS risk_snapshots (
			id            ` + pk + `,
			run_id        TEXT NOT NULL,
			timestamp     BIGINT NOT NULL,
			symbol        TEXT NOT NULL,
			venue         TEXT,
			pair          TEXT,
			price         DOUBLE PRECISION,
			entry_price   DOUBLE PRECISION,
			pnl_pct       DOUBLE PRECISION,
			stop_loss     DOUBLE PRECISION,
			take_profit   DOUBLE PRECISION,
			highest_close DOUBLE PRECISION,
			mode          TEXT,
			action        TEXT,
			reason        TEXT,
			error         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_ts ON risk_snapshots(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_symbol ON risk_snapshots(symbol)`,
	})
}

func (r *SQLRecorder) RecordScan(ctx context.Context, recs []ScanRecord) error {
	if len(recs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(`INSERT INTO scan_results
		(run_id, timestamp, symbol, venue, style, price, spread_pct,
		 trend_score, volume_score, rs_score, catalyst_score, onchain_score,
		 total_score, action, reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, s := range recs {
		_, err := stmt.ExecContext(ctx,
			s.RunID, s.Time.Unix(), s.Symbol, s.Venue, s.Style, s.Price, s.SpreadPct,
			s.Trend, s.Volume, s.RelativeStrength, s.Catalyst, s.Onchain,
			s.Total, s.Action, s.Reason,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert scan %s: %w", s.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLRecorder) RecordRisk(ctx context.Context, recs []RiskRecord) error {
	if len(recs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(`INSERT INTO risk_snapshots
		(run_id, timestamp, symbol, venue, pair, price, entry_price, pnl_pct,
		 stop_loss, take_profit, highest_close, mode, action, reason, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, s := range recs {
		_, err := stmt.ExecContext(ctx,
			s.RunID, s.Time.Unix(), s.Symbol, s.Venue, s.Pair, s.Price, s.EntryPrice, s.PnLPct,
			s.StopLoss, s.TakeProfit, s.HighestClose, s.Mode, s.Action, s.Reason, s.Error,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert risk %s: %w", s.Symbol, err)
		}
	}
	return tx.Commit()
}

// Close is a no-op; the database is closed by its owner.
func (r *SQLRecorder) Close() error { return nil }

// CountScans returns the number of rows written for runID.
func (r *SQLRecorder) CountScans(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM scan_results WHERE run_id = ?`), runID).Scan(&n)
	return n, err
}

// LatestRisk returns the most recent snapshot of symbol.
func (r *SQLRecorder) LatestRisk(ctx context.Context, symbol string) (RiskRecord, error) {
	var rec RiskRecord
	var ts int64
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT run_id, timestamp, symbol, price, stop_loss, take_profit, action
		FROM risk_snapshots WHERE symbol = ? ORDER BY id DESC LIMIT 1`), symbol).
		Scan(&rec.RunID, &ts, &rec.Symbol, &rec.Price, &rec.StopLoss, &rec.TakeProfit, &rec.Action)
	if err != nil {
		return RiskRecord{}, err
	}
	rec.Time = time.Unix(ts, 0)
	return rec, nil
}
