// Package pipeline runs the scanning and position-monitoring cycles on top of
// the decision packages.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/recorder"
	"RiskSentinel/internal/strategy"
	"RiskSentinel/internal/venue"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ScanConfig controls candidate discovery and ranking.
type ScanConfig struct {
	// Symbols, when set, replaces discovery by quote volume.
	Symbols       []string        `yaml:"symbols"`
	MaxCandidates int             `yaml:"max_candidates"`
	TopN          int             `yaml:"top_n"`
	Timeframe     model.Timeframe `yaml:"timeframe"`
	Limit         int             `yaml:"limit"`
	Benchmark     string          `yaml:"benchmark"`
	Concurrency   int             `yaml:"concurrency"`
	Style         string          `yaml:"style"`
}

// DefaultScanConfig mirrors the daily screen: top 120 USDT pairs by quote
// volume, 1h candles, BTC/USDT benchmark.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MaxCandidates: 120,
		TopN:          10,
		Timeframe:     model.Timeframe1h,
		Limit:         500,
		Benchmark:     "BTC/USDT",
		Concurrency:   8,
		Style:         strategy.StyleBalanced,
	}
}

// Validate checks windows and the concurrency bound.
func (c ScanConfig) Validate() error {
	switch {
	case c.MaxCandidates <= 0 || c.TopN <= 0:
		return fmt.Errorf("scan: max_candidates and top_n must be positive: %w", model.ErrInvalidConfiguration)
	case c.Limit <= 0:
		return fmt.Errorf("scan: limit must be positive: %w", model.ErrInvalidConfiguration)
	case c.Concurrency <= 0:
		return fmt.Errorf("scan: concurrency must be positive: %w", model.ErrInvalidConfiguration)
	}
	return nil
}

// ScanRequest overrides parts of ScanConfig for one run. Zero values keep the
// configured defaults.
type ScanRequest struct {
	TopN  int
	Style string
}

// ScanItem is one candidate. Err is set when the candidate could not be scored.
type ScanItem struct {
	Symbol    string               `json:"symbol"`
	Venue     string               `json:"venue"`
	Price     float64              `json:"price,omitempty"`
	SpreadPct *float64             `json:"avg_spread_pct,omitempty"`
	Score     model.ScoreBreakdown `json:"score"`
	Action    model.Action         `json:"action"`
	Err       string               `json:"error,omitempty"`
}

// ScanReport is the outcome of one scan run.
type ScanReport struct {
	RunID     string     `json:"run_id"`
	Time      time.Time  `json:"time"`
	Venue     string     `json:"venue"`
	Style     string     `json:"style"`
	Benchmark string     `json:"bench"`
	Scanned   int        `json:"scanned"`
	Top       []ScanItem `json:"topn"`
	Failures  []ScanItem `json:"failures,omitempty"`
}

// Scanner scores and classifies candidates from one venue.
type Scanner struct {
	venue  venue.Venue
	scorer *strategy.Scorer
	styles map[string]strategy.Style
	cfg    ScanConfig
	rec    recorder.Recorder
	logger *zap.Logger
}

// NewScanner validates cfg and the configured style. A nil styles map uses the
// built-in table; a nil recorder records nothing.
func NewScanner(v venue.Venue, scorer *strategy.Scorer, styles map[string]strategy.Style, cfg ScanConfig, rec recorder.Recorder, logger *zap.Logger) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if styles == nil {
		styles = strategy.Styles
	}
	if _, ok := styles[cfg.Style]; !ok {
		return nil, fmt.Errorf("scan: unknown style %q: %w", cfg.Style, model.ErrInvalidConfiguration)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scanner{
		venue:  v,
		scorer: scorer,
		styles: styles,
		cfg:    cfg,
		rec:    rec,
		logger: logger.With(zap.String("component", "scanner")),
	}, nil
}

// Run scans every candidate. Per-symbol failures are reported in Failures;
// only discovery failures and cancellation abort the run.
func (s *Scanner) Run(ctx context.Context, req ScanRequest) (ScanReport, error) {
	styleName := s.cfg.Style
	if req.Style != "" {
		styleName = req.Style
	}
	style, ok := s.styles[styleName]
	if !ok {
		return ScanReport{}, fmt.Errorf("unknown style %q: %w", styleName, model.ErrInvalidConfiguration)
	}
	topN := s.cfg.TopN
	if req.TopN > 0 {
		topN = req.TopN
	}

	report := ScanReport{
		RunID:     uuid.NewString(),
		Time:      time.Now(),
		Venue:     s.venue.Name(),
		Style:     style.Name,
		Benchmark: venue.NormalizePair(s.cfg.Benchmark),
	}
	logger := s.logger.With(zap.String("run_id", report.RunID))

	tickers := s.snapshot(ctx, logger)
	candidates, err := s.candidates(ctx, tickers)
	if err != nil {
		return report, err
	}
	report.Scanned = len(candidates)

	bench, err := s.venue.FetchCandles(ctx, report.Benchmark, s.cfg.Timeframe, s.cfg.Limit)
	if err != nil {
		logger.Warn("benchmark unavailable, relative strength is neutral", zap.Error(err))
		bench = nil
	}

	items := make([]ScanItem, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, sym := range candidates {
		i, sym := i, sym
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = s.scan(gctx, sym, tickers, bench, style)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	var scored []ScanItem
	for _, it := range items {
		if it.Err != "" {
			report.Failures = append(report.Failures, it)
			continue
		}
		scored = append(scored, it)
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score.Total > scored[b].Score.Total })

	if err := s.rec.RecordScan(ctx, toScanRecords(report, scored)); err != nil {
		logger.Error("record scan failed", zap.Error(err))
	}

	if len(scored) > topN {
		scored = scored[:topN]
	}
	report.Top = scored
	logger.Info("scan complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("failed", len(report.Failures)),
		zap.String("style", style.Name))
	return report, nil
}

func (s *Scanner) scan(ctx context.Context, sym string, tickers map[string]model.Ticker, bench []model.Candle, style strategy.Style) ScanItem {
	item := ScanItem{Symbol: sym, Venue: s.venue.Name()}
	candles, err := s.venue.FetchCandles(ctx, sym, s.cfg.Timeframe, s.cfg.Limit)
	if err != nil {
		item.Err = err.Error()
		return item
	}

	t, ok := tickers[sym]
	if !ok {
		if t, err = s.venue.FetchTicker(ctx, sym); err == nil {
			ok = true
		}
	}
	if ok {
		if pct, has := t.SpreadPct(); has {
			pct = model.Round(pct, 4)
			item.SpreadPct = &pct
		}
	}

	item.Score = s.scorer.Score(sym, candles, bench)
	item.Price = model.LastClose(candles)
	sc := strategy.NewScanContext(sym, candles, item.Score.TotalRounded(), item.SpreadPct, style)
	item.Action = strategy.ClassifyScan(sc, style)
	return item
}

// snapshot returns all tickers keyed by pair, or nil when the venue cannot
// provide a snapshot.
func (s *Scanner) snapshot(ctx context.Context, logger *zap.Logger) map[string]model.Ticker {
	snap, ok := s.venue.(venue.Snapshotter)
	if !ok {
		return nil
	}
	list, err := snap.FetchTickers(ctx)
	if err != nil {
		logger.Warn("ticker snapshot failed", zap.Error(err))
		return nil
	}
	out := make(map[string]model.Ticker, len(list))
	for _, t := range list {
		out[venue.NormalizePair(t.Symbol)] = t
	}
	return out
}

// candidates returns configured symbols, or USDT pairs ranked by quote volume.
func (s *Scanner) candidates(ctx context.Context, tickers map[string]model.Ticker) ([]string, error) {
	if len(s.cfg.Symbols) > 0 {
		out := make([]string, 0, len(s.cfg.Symbols))
		seen := make(map[string]bool)
		for _, sym := range s.cfg.Symbols {
			p := venue.NormalizePair(sym)
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		return out, nil
	}

	suffix := "/" + venue.ReferenceQuote
	if len(tickers) > 0 {
		ranked := make([]model.Ticker, 0, len(tickers))
		for p, t := range tickers {
			if strings.HasSuffix(p, suffix) {
				t.Symbol = p
				ranked = append(ranked, t)
			}
		}
		sort.Slice(ranked, func(a, b int) bool {
			if ranked[a].QuoteVolume != ranked[b].QuoteVolume {
				return ranked[a].QuoteVolume > ranked[b].QuoteVolume
			}
			return ranked[a].Symbol < ranked[b].Symbol
		})
		if len(ranked) > s.cfg.MaxCandidates {
			ranked = ranked[:s.cfg.MaxCandidates]
		}
		out := make([]string, len(ranked))
		for i, t := range ranked {
			out[i] = t.Symbol
		}
		return out, nil
	}

	pairs, err := s.venue.ListPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover candidates: %w", err)
	}
	var out []string
	for _, p := range pairs {
		p = venue.NormalizePair(p)
		if strings.HasSuffix(p, suffix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	if len(out) > s.cfg.MaxCandidates {
		out = out[:s.cfg.MaxCandidates]
	}
	return out, nil
}

func toScanRecords(r ScanReport, items []ScanItem) []recorder.ScanRecord {
	out := make([]recorder.ScanRecord, len(items))
	for i, it := range items {
		out[i] = recorder.ScanRecord{
			RunID:            r.RunID,
			Time:             r.Time,
			Symbol:           it.Symbol,
			Venue:            it.Venue,
			Style:            r.Style,
			Price:            it.Price,
			SpreadPct:        it.SpreadPct,
			Trend:            it.Score.Trend,
			Volume:           it.Score.Volume,
			RelativeStrength: it.Score.RelativeStrength,
			Catalyst:         it.Score.Catalyst,
			Onchain:          it.Score.Onchain,
			Total:            it.Score.Total,
			Action:           string(it.Action.Label),
			Reason:           it.Action.Reason(),
		}
	}
	return out
}
