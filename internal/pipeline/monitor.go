package pipeline

import (
	"context"
	"fmt"
	"time"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/holdings"
	"RiskSentinel/internal/lock"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/recorder"
	"RiskSentinel/internal/risk"
	"RiskSentinel/internal/strategy"
	"RiskSentinel/internal/trailstore"
	"RiskSentinel/internal/venue"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Risk modes reported per item.
const (
	ModeStatic  = "static"
	ModeDynamic = "dynamic"
)

// MonitorConfig controls one monitoring cycle.
type MonitorConfig struct {
	// DefaultVenue serves holdings that do not name a venue.
	DefaultVenue string             `yaml:"default_venue"`
	Timeframe    model.Timeframe    `yaml:"timeframe"`
	Limit        int                `yaml:"limit"`
	ATRPeriod    int                `yaml:"atr_period"`
	Concurrency  int                `yaml:"concurrency"`
	Dynamic      risk.DynamicConfig `yaml:"dynamic"`
	Trailing     risk.TrailConfig   `yaml:"trailing"`
}

// DefaultMonitorConfig reads 220 hourly candles from okx.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		DefaultVenue: "okx",
		Timeframe:    model.Timeframe1h,
		Limit:        220,
		ATRPeriod:    14,
		Concurrency:  4,
		Dynamic:      risk.DefaultDynamicConfig(),
		Trailing:     risk.DefaultTrailConfig(),
	}
}

func (c MonitorConfig) Validate() error {
	switch {
	case c.Limit <= 0 || c.ATRPeriod <= 0:
		return fmt.Errorf("monitor: limit and atr_period must be positive: %w", model.ErrInvalidConfiguration)
	case c.Concurrency <= 0:
		return fmt.Errorf("monitor: concurrency must be positive: %w", model.ErrInvalidConfiguration)
	}
	if err := c.Dynamic.Validate(); err != nil {
		return err
	}
	return c.Trailing.Validate()
}

// RiskItem is the advice for one holding. When Err is set only the holding
// fields are meaningful.
type RiskItem struct {
	Symbol       string           `json:"symbol"`
	Venue        string           `json:"venue,omitempty"`
	Pair         string           `json:"pair,omitempty"`
	Quote        string           `json:"quote,omitempty"`
	Factor       float64          `json:"factor,omitempty"`
	EntryPrice   float64          `json:"entry_price"`
	Qty          float64          `json:"qty"`
	Last         float64          `json:"last,omitempty"`
	PnLPct       float64          `json:"pnl_pct,omitempty"`
	Mode         string           `json:"mode,omitempty"`
	Candidate    model.RiskLevels `json:"candidate"`
	Levels       model.RiskLevels `json:"levels"`
	HighestClose float64          `json:"highest_close,omitempty"`
	MA50         float64          `json:"ma50,omitempty"`
	MA200        float64          `json:"ma200,omitempty"`
	ATRPct       *float64         `json:"atr_pct,omitempty"`
	Action       model.Action     `json:"action"`
	Changes      []string         `json:"changes,omitempty"`
	Err          string           `json:"error,omitempty"`
}

// RiskReport is the outcome of one monitoring cycle.
type RiskReport struct {
	RunID  string     `json:"run_id"`
	Time   time.Time  `json:"time"`
	Items  []RiskItem `json:"items"`
	Pruned []string   `json:"pruned,omitempty"`
}

// Monitor runs the position-monitoring cycle.
type Monitor struct {
	venues   []venue.Venue
	byName   map[string]venue.Venue
	resolver *venue.Resolver
	holdings holdings.Store
	trail    trailstore.Store
	locker   lock.Locker
	rec      recorder.Recorder
	cfg      MonitorConfig
	logger   *zap.Logger
}

// NewMonitor wires a monitor. venues is the resolver fallback order; the
// default venue must be among them.
func NewMonitor(venues []venue.Venue, resolver *venue.Resolver, hs holdings.Store, ts trailstore.Store, locker lock.Locker, rec recorder.Recorder, cfg MonitorConfig, logger *zap.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	byName := make(map[string]venue.Venue, len(venues))
	for _, v := range venues {
		byName[v.Name()] = v
	}
	if _, ok := byName[cfg.DefaultVenue]; !ok {
		return nil, fmt.Errorf("monitor: default venue %q not configured: %w", cfg.DefaultVenue, model.ErrInvalidConfiguration)
	}
	if locker == nil {
		locker = lock.Nop{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Monitor{
		venues:   venues,
		byName:   byName,
		resolver: resolver,
		holdings: hs,
		trail:    ts,
		locker:   locker,
		rec:      rec,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "monitor")),
	}, nil
}

// Holdings exposes the holdings store to command handlers.
func (m *Monitor) Holdings() holdings.Store { return m.holdings }

// RunCycle evaluates every holding under the advisory lock. A held lock
// returns an error wrapping lock.ErrLocked. Per-holding failures are reported
// in the items, not returned.
func (m *Monitor) RunCycle(ctx context.Context) (RiskReport, error) {
	release, err := m.locker.Acquire(ctx)
	if err != nil {
		return RiskReport{}, fmt.Errorf("monitor cycle: %w", err)
	}
	defer release()

	report := RiskReport{RunID: uuid.NewString(), Time: time.Now()}
	logger := m.logger.With(zap.String("run_id", report.RunID))

	items, err := m.holdings.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load holdings: %w", err)
	}

	// One trail state per pair: later duplicates are reported, not evaluated.
	report.Items = make([]RiskItem, len(items))
	keep := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, h := range items {
		key := venue.NormalizePair(h.Symbol)
		if seen[key] {
			report.Items[i] = RiskItem{
				Symbol:     key,
				EntryPrice: h.EntryPrice,
				Qty:        h.Qty,
				Err:        fmt.Sprintf("duplicate holding for %s, only the first entry is evaluated", key),
			}
			continue
		}
		seen[key] = true
		keep = append(keep, key)
		i, h := i, h
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Items[i] = m.evaluate(gctx, h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	pruned, err := trailstore.Prune(ctx, m.trail, keep)
	if err != nil {
		logger.Warn("prune trail states failed", zap.Error(err))
	}
	report.Pruned = pruned

	if err := m.rec.RecordRisk(ctx, toRiskRecords(report)); err != nil {
		logger.Error("record risk failed", zap.Error(err))
	}

	failed := 0
	for _, it := range report.Items {
		if it.Err != "" {
			failed++
		}
	}
	logger.Info("monitor cycle complete",
		zap.Int("holdings", len(items)),
		zap.Int("failed", failed),
		zap.Strings("pruned", pruned))
	return report, nil
}

// market is the price data a holding is evaluated against.
type market struct {
	venue   string
	pair    string
	quote   string
	factor  float64
	last    float64
	candles []model.Candle
}

func (m *Monitor) evaluate(ctx context.Context, h model.Holding) RiskItem {
	key := venue.NormalizePair(h.Symbol)
	item := RiskItem{Symbol: key, EntryPrice: h.EntryPrice, Qty: h.Qty}

	mk, err := m.market(ctx, h)
	if err != nil {
		item.Err = err.Error()
		return item
	}
	item.Venue, item.Pair, item.Quote, item.Factor, item.Last = mk.venue, mk.pair, mk.quote, mk.factor, mk.last
	if h.EntryPrice > 0 {
		item.PnLPct = model.Round((mk.last-h.EntryPrice)/h.EntryPrice*100, 2)
	}
	if pct, err := calculator.ATRPercent(mk.candles, m.cfg.ATRPeriod); err == nil {
		item.ATRPct = &pct
	}

	if h.UsesDynamicRisk() {
		dyn, err := risk.ComputeDynamicRisk(mk.candles, h.EntryPrice, mk.last, m.cfg.Dynamic)
		if err != nil {
			item.Err = err.Error()
			return item
		}
		item.Mode = ModeDynamic
		item.Candidate = dyn.Levels
		item.MA50, item.MA200 = dyn.MA50, dyn.MA200
	} else {
		item.Mode = ModeStatic
		item.Candidate = risk.StaticForHolding(h)
		item.MA50, _ = calculator.OptionalCloseMA(mk.candles, 50)
		item.MA200, _ = calculator.OptionalCloseMA(mk.candles, 200)
	}

	stored, found, err := m.trail.Load(ctx, key)
	if err != nil {
		item.Err = fmt.Sprintf("load trail state: %v", err)
		return item
	}
	var prior *model.TrailState
	if found {
		prior = &stored
	}

	next := risk.AdvanceTrailState(prior, item.Candidate, mk.last, h.EntryPrice, item.ATRPct, m.cfg.Trailing)
	item.Levels = next.Levels()
	item.Levels.StopDefaulted = item.Candidate.StopDefaulted && next.StopLoss == item.Candidate.StopLoss
	item.Levels.TakeDefaulted = item.Candidate.TakeDefaulted && next.TakeProfit == item.Candidate.TakeProfit
	item.HighestClose = next.HighestClose
	item.Action = strategy.ClassifyPosition(strategy.PriceContext{
		Close:  mk.last,
		Levels: item.Levels,
		MA50:   item.MA50,
		MA200:  item.MA200,
	})
	for _, c := range risk.DetectChanges(prior, next, m.cfg.Trailing.ChangeEpsilonPct) {
		item.Changes = append(item.Changes, c.String())
	}

	if err := m.trail.Save(ctx, key, next); err != nil {
		item.Err = fmt.Sprintf("save trail state: %v", err)
	}
	return item
}

// market reads the holding's pair from its venue, falling back to the
// resolver across all venues when the pair is missing there. Prices are
// USDT-equivalent on both paths.
func (m *Monitor) market(ctx context.Context, h model.Holding) (market, error) {
	primary := m.byName[m.cfg.DefaultVenue]
	if h.Venue != "" {
		v, ok := m.byName[h.Venue]
		if !ok {
			return market{}, fmt.Errorf("unknown venue %q: %w", h.Venue, model.ErrDataUnavailable)
		}
		primary = v
	}

	pair := venue.NormalizePair(h.Symbol)
	ticker, terr := primary.FetchTicker(ctx, pair)
	if terr == nil && ticker.Last <= 0 {
		terr = fmt.Errorf("%s: non-positive price for %s: %w", primary.Name(), pair, model.ErrDataUnavailable)
	}
	if terr == nil {
		candles, cerr := primary.FetchCandles(ctx, pair, m.cfg.Timeframe, m.cfg.Limit)
		if cerr == nil {
			// Levels are kept in USDT so a later resolver fallback shares the
			// same trail state.
			_, quote, _ := venue.SplitPair(pair)
			factor, ferr := venue.QuoteFactor(ctx, primary, quote)
			if ferr == nil {
				return market{
					venue:   primary.Name(),
					pair:    pair,
					quote:   quote,
					factor:  factor,
					last:    ticker.Last * factor,
					candles: venue.ScaleCandles(candles, factor),
				}, nil
			}
			cerr = ferr
		}
		terr = cerr
	}
	m.logger.Debug("primary venue failed, resolving",
		zap.String("symbol", pair), zap.String("venue", primary.Name()), zap.Error(terr))

	if m.resolver == nil {
		return market{}, terr
	}
	order := append([]venue.Venue{primary}, without(m.venues, primary)...)
	res, err := m.resolver.Resolve(ctx, venue.BaseAsset(pair), order)
	if err != nil {
		return market{}, err
	}
	v := m.byName[res.Venue]
	candles, err := v.FetchCandles(ctx, res.Pair, m.cfg.Timeframe, m.cfg.Limit)
	if err != nil {
		return market{}, err
	}
	return market{
		venue:   res.Venue,
		pair:    res.Pair,
		quote:   res.Quote,
		factor:  res.Factor,
		last:    res.Price,
		candles: venue.ScaleCandles(candles, res.Factor),
	}, nil
}

func without(vs []venue.Venue, skip venue.Venue) []venue.Venue {
	out := make([]venue.Venue, 0, len(vs))
	for _, v := range vs {
		if v.Name() != skip.Name() {
			out = append(out, v)
		}
	}
	return out
}

func toRiskRecords(r RiskReport) []recorder.RiskRecord {
	out := make([]recorder.RiskRecord, len(r.Items))
	for i, it := range r.Items {
		out[i] = recorder.RiskRecord{
			RunID:        r.RunID,
			Time:         r.Time,
			Symbol:       it.Symbol,
			Venue:        it.Venue,
			Pair:         it.Pair,
			Price:        it.Last,
			EntryPrice:   it.EntryPrice,
			PnLPct:       it.PnLPct,
			StopLoss:     it.Levels.StopLoss,
			TakeProfit:   it.Levels.TakeProfit,
			HighestClose: it.HighestClose,
			Mode:         it.Mode,
			Action:       string(it.Action.Label),
			Reason:       it.Action.Reason(),
			Error:        it.Err,
		}
	}
	return out
}
