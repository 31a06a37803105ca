package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"RiskSentinel/internal/lock"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/pipeline"
	"RiskSentinel/internal/storage"
	"RiskSentinel/internal/strategy"

	"gopkg.in/yaml.v3"
)

// Storage backends for trail state.
const (
	BackendFile   = "file"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Venue names accepted in venues.order.
const (
	VenueBinance = "binance"
	VenueOKX     = "okx"
	VenueAlpaca  = "alpaca"
)

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Weights strategy.Weights `yaml:"weights"`
	// Styles adds or replaces entries of the built-in style table.
	Styles  map[string]strategy.Style `yaml:"styles"`
	Scan    pipeline.ScanConfig       `yaml:"scan"`
	Monitor pipeline.MonitorConfig    `yaml:"monitor"`
	Venues  struct {
		// Order is the resolver priority; the first entry is the primary venue.
		Order   []string `yaml:"order"`
		Quotes  []string `yaml:"quotes"`
		Binance struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"binance"`
		OKX struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"okx"`
		Alpaca struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			BaseURL   string `yaml:"base_url"`
		} `yaml:"alpaca"`
	} `yaml:"venues"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
		RiskCron string `yaml:"risk_cron"`
	} `yaml:"schedule"`
	Storage struct {
		Driver       string `yaml:"driver"`
		DSN          string `yaml:"dsn"`
		HoldingsPath string `yaml:"holdings_path"`
		Trail        struct {
			Backend   string `yaml:"backend"`
			Path      string `yaml:"path"`
			RedisHash string `yaml:"redis_hash"`
		} `yaml:"trail"`
		Lock struct {
			Backend  string        `yaml:"backend"`
			Path     string        `yaml:"path"`
			RedisKey string        `yaml:"redis_key"`
			TTL      time.Duration `yaml:"ttl"`
		} `yaml:"lock"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Feishu struct {
		Webhook string `yaml:"webhook"`
	} `yaml:"feishu"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Weights = strategy.DefaultWeights
	cfg.Scan = pipeline.DefaultScanConfig()
	cfg.Monitor = pipeline.DefaultMonitorConfig()
	cfg.Venues.Order = []string{VenueOKX, VenueBinance}
	cfg.Venues.OKX.BaseURL = "https://www.okx.com"
	cfg.Venues.Binance.BaseURL = "https://api.binance.com"
	cfg.Schedule.ScanCron = "0 0 9 * * *"
	cfg.Schedule.RiskCron = "0 */30 * * * *"
	cfg.Storage.Driver = storage.DriverSQLite
	cfg.Storage.DSN = "data/risk_sentinel.db"
	cfg.Storage.HoldingsPath = "data/holdings.json"
	cfg.Storage.Trail.Backend = BackendFile
	cfg.Storage.Trail.Path = "data/trail_state.json"
	cfg.Storage.Trail.RedisHash = "risk:trail"
	cfg.Storage.Lock.Backend = BackendFile
	cfg.Storage.Lock.Path = "data/risk_cycle.lock"
	cfg.Storage.Lock.RedisKey = "risk:cycle:lock"
	cfg.Storage.Lock.TTL = lock.DefaultTTL
	cfg.HTTP.Addr = ":8080"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.Feishu.Webhook, "FEISHU_WEBHOOK")
	setString(&cfg.Proxy, "HTTPS_PROXY")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Storage.Driver, "DATABASE_DRIVER")
	setString(&cfg.Storage.DSN, "DATABASE_URL")
	setString(&cfg.Storage.HoldingsPath, "HOLDINGS_PATH")
	setString(&cfg.Storage.Trail.Backend, "TRAIL_BACKEND")
	setString(&cfg.Storage.Lock.Backend, "LOCK_BACKEND")
	setString(&cfg.Venues.Alpaca.APIKey, "ALPACA_API_KEY")
	setString(&cfg.Venues.Alpaca.APISecret, "ALPACA_API_SECRET")
	setString(&cfg.Schedule.ScanCron, "CRON_SCAN")
	setString(&cfg.Schedule.RiskCron, "CRON_RISK")
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Scan.Style, "SCAN_STYLE")
	if v := os.Getenv("SCAN_TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SCAN_TOP_N=%q: %w", v, model.ErrInvalidConfiguration)
		}
		cfg.Scan.TopN = n
	}
	if v := os.Getenv("LOCK_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("LOCK_TTL=%q: %w", v, model.ErrInvalidConfiguration)
		}
		cfg.Storage.Lock.TTL = d
	}

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// StyleTable merges the configured styles over the built-in table.
func (c *Config) StyleTable() map[string]strategy.Style {
	out := make(map[string]strategy.Style, len(strategy.Styles)+len(c.Styles))
	for name, s := range strategy.Styles {
		out[name] = s
	}
	for name, s := range c.Styles {
		s.Name = name
		out[name] = s
	}
	return out
}

// PrimaryVenue is the first venue in the resolver order.
func (c *Config) PrimaryVenue() string {
	if len(c.Venues.Order) == 0 {
		return ""
	}
	return c.Venues.Order[0]
}

// Validate checks the whole tree. Every failure wraps ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	styles := c.StyleTable()
	for name, s := range styles {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("style %s: %w", name, err)
		}
	}
	if _, ok := styles[c.Scan.Style]; !ok {
		return fmt.Errorf("scan.style %q is not a known style: %w", c.Scan.Style, model.ErrInvalidConfiguration)
	}
	if err := c.Scan.Validate(); err != nil {
		return err
	}
	if err := c.Monitor.Validate(); err != nil {
		return err
	}

	if len(c.Venues.Order) == 0 {
		return fmt.Errorf("venues.order must name at least one venue: %w", model.ErrInvalidConfiguration)
	}
	seen := make(map[string]bool, len(c.Venues.Order))
	for _, name := range c.Venues.Order {
		switch name {
		case VenueBinance, VenueOKX:
		case VenueAlpaca:
			if c.Venues.Alpaca.APIKey == "" || c.Venues.Alpaca.APISecret == "" {
				return fmt.Errorf("venues.alpaca requires api_key and api_secret: %w", model.ErrInvalidConfiguration)
			}
		default:
			return fmt.Errorf("unknown venue %q: %w", name, model.ErrInvalidConfiguration)
		}
		if seen[name] {
			return fmt.Errorf("venue %q listed twice: %w", name, model.ErrInvalidConfiguration)
		}
		seen[name] = true
	}
	if !seen[c.Monitor.DefaultVenue] {
		return fmt.Errorf("monitor.default_venue %q is not in venues.order: %w", c.Monitor.DefaultVenue, model.ErrInvalidConfiguration)
	}

	switch c.Storage.Driver {
	case storage.DriverSQLite, storage.DriverPostgres, "":
	default:
		return fmt.Errorf("storage.driver %q: %w", c.Storage.Driver, model.ErrInvalidConfiguration)
	}
	if c.Storage.HoldingsPath == "" {
		return fmt.Errorf("storage.holdings_path is required: %w", model.ErrInvalidConfiguration)
	}
	switch c.Storage.Trail.Backend {
	case BackendFile, BackendMemory:
	case BackendSQL:
		if c.Storage.Driver == "" || c.Storage.DSN == "" {
			return fmt.Errorf("trail backend sql needs storage.driver and storage.dsn: %w", model.ErrInvalidConfiguration)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("trail backend redis needs redis.addr: %w", model.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("storage.trail.backend %q: %w", c.Storage.Trail.Backend, model.ErrInvalidConfiguration)
	}
	switch c.Storage.Lock.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("lock backend redis needs redis.addr: %w", model.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("storage.lock.backend %q: %w", c.Storage.Lock.Backend, model.ErrInvalidConfiguration)
	}
	if c.Storage.Lock.TTL <= 0 {
		return fmt.Errorf("storage.lock.ttl must be positive: %w", model.ErrInvalidConfiguration)
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required with a bot token: %w", model.ErrInvalidConfiguration)
	}
	return nil
}
