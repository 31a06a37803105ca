package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RiskSentinel/internal/api"
	"RiskSentinel/internal/config"
	"RiskSentinel/internal/holdings"
	"RiskSentinel/internal/lock"
	"RiskSentinel/internal/logger"
	"RiskSentinel/internal/notifier"
	"RiskSentinel/internal/pipeline"
	"RiskSentinel/internal/recorder"
	"RiskSentinel/internal/scheduler"
	"RiskSentinel/internal/storage"
	"RiskSentinel/internal/strategy"
	"RiskSentinel/internal/trailstore"
	"RiskSentinel/internal/venue"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("config validation", zap.Error(err))
	}
	log.Info("RiskSentinel starting", zap.String("config", cfgPath))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs the candle cache and, when selected, trail state and the lock.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, continuing without cache", zap.Error(err))
			if cfg.Storage.Trail.Backend == config.BackendRedis || cfg.Storage.Lock.Backend == config.BackendRedis {
				log.Fatal("redis is required by the configured storage backends", zap.Error(err))
			}
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// SQL database for the recorder and the optional sql trail store
	var db *storage.DB
	if cfg.Storage.Driver != "" && cfg.Storage.DSN != "" {
		db, err = storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			if cfg.Storage.Trail.Backend == config.BackendSQL {
				log.Fatal("open database", zap.Error(err))
			}
			log.Warn("open database failed, results will not be recorded", zap.Error(err))
		} else {
			defer db.Close()
		}
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if db != nil {
		sr, err := recorder.NewSQLRecorder(db, log)
		if err != nil {
			log.Warn("init sql recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	venues, err := buildVenues(cfg, rdb, log)
	if err != nil {
		log.Fatal("init venues", zap.Error(err))
	}
	resolver := venue.NewResolver(cfg.Venues.Quotes, log)

	trail, err := buildTrailStore(cfg, db, rdb)
	if err != nil {
		log.Fatal("init trail store", zap.Error(err))
	}

	var locker lock.Locker = lock.Nop{}
	switch cfg.Storage.Lock.Backend {
	case config.BackendFile:
		locker = lock.NewFileLock(cfg.Storage.Lock.Path, cfg.Storage.Lock.TTL)
	case config.BackendRedis:
		locker = lock.NewRedisLock(rdb, cfg.Storage.Lock.RedisKey, cfg.Storage.Lock.TTL)
	}

	scorer, err := strategy.NewScorer(cfg.Weights)
	if err != nil {
		log.Fatal("init scorer", zap.Error(err))
	}
	scanner, err := pipeline.NewScanner(venues[0], scorer, cfg.StyleTable(), cfg.Scan, rec, log)
	if err != nil {
		log.Fatal("init scanner", zap.Error(err))
	}
	monitor, err := pipeline.NewMonitor(venues, resolver, holdings.NewFileStore(cfg.Storage.HoldingsPath),
		trail, locker, rec, cfg.Monitor, log)
	if err != nil {
		log.Fatal("init monitor", zap.Error(err))
	}

	// Notifiers
	var notifiers notifier.Multi
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		notifiers = append(notifiers, tn)
	}
	if cfg.Feishu.Webhook != "" {
		notifiers = append(notifiers, notifier.NewFeishuNotifier(cfg.Feishu.Webhook, log))
	}
	if len(notifiers) == 0 {
		log.Warn("no notifier configured, reports are only logged and recorded")
	}

	// Scheduler
	sched := scheduler.NewScheduler(ctx, scanner, monitor, notifiers, log)
	if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.RiskCron); err != nil {
		log.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	// Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	// HTTP surface
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.New(scanner, monitor, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.HTTP.Addr != "" {
		go func() {
			log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server failed", zap.Error(err))
			}
		}()
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, executing risk and scan tasks now")
		go func() {
			sched.RunRiskNow()
			sched.RunScanNow()
		}()
	}

	log.Info("RiskSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("RiskSentinel stopped")
}

// buildVenues returns the venues in resolver order, each wrapped by the redis
// candle cache when a client is available.
func buildVenues(cfg *config.Config, rdb *redis.Client, log *zap.Logger) ([]venue.Venue, error) {
	out := make([]venue.Venue, 0, len(cfg.Venues.Order))
	for _, name := range cfg.Venues.Order {
		var v venue.Venue
		switch name {
		case config.VenueOKX:
			v = venue.NewOKX(cfg.Venues.OKX.BaseURL, cfg.Proxy, log)
		case config.VenueBinance:
			v = venue.NewBinance(cfg.Venues.Binance.BaseURL, cfg.Proxy, log)
		case config.VenueAlpaca:
			v = venue.NewAlpaca(cfg.Venues.Alpaca.APIKey, cfg.Venues.Alpaca.APISecret, cfg.Venues.Alpaca.BaseURL, log)
		default:
			return nil, fmt.Errorf("unknown venue %q", name)
		}
		out = append(out, venue.NewCached(v, rdb, log))
	}
	return out, nil
}

func buildTrailStore(cfg *config.Config, db *storage.DB, rdb *redis.Client) (trailstore.Store, error) {
	switch cfg.Storage.Trail.Backend {
	case config.BackendMemory:
		return trailstore.NewMemoryStore(), nil
	case config.BackendSQL:
		if db == nil {
			return nil, errors.New("sql trail store needs a database")
		}
		return trailstore.NewSQLStore(db)
	case config.BackendRedis:
		return trailstore.NewRedisStore(rdb, cfg.Storage.Trail.RedisHash), nil
	default:
		return trailstore.NewFileStore(cfg.Storage.Trail.Path), nil
	}
}
