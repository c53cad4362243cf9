package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"stockchart/internal/entitlement"
	"stockchart/internal/interval"
	"stockchart/internal/logging"
)

const envPrefix = "STOCKCHART"

// Cache drivers.
const (
	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	API         APIConfig         `mapstructure:"api"`
	Stream      StreamConfig      `mapstructure:"stream"`
	Poller      PollerConfig      `mapstructure:"poller"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Chart       ChartConfig       `mapstructure:"chart"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
	Warm        WarmConfig        `mapstructure:"warm"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// APIConfig covers the market data backend.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// StreamConfig covers the pushed quote stream. An empty URL is derived from
// api.base_url.
type StreamConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
}

// PollerConfig governs live price polling.
type PollerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// CacheConfig selects the history cache backend.
type CacheConfig struct {
	Driver         string `mapstructure:"driver"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	MinDailyPoints int    `mapstructure:"min_daily_points"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ChartConfig sets rendering defaults.
type ChartConfig struct {
	Interval  string `mapstructure:"interval"`
	Variant   string `mapstructure:"variant"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	Format    string `mapstructure:"format"`
	UpColor   string `mapstructure:"up_color"`
	DownColor string `mapstructure:"down_color"`
}

// EntitlementConfig sets the caller tier and the tier candlesticks require.
type EntitlementConfig struct {
	Tier         string `mapstructure:"tier"`
	RequiredTier string `mapstructure:"required_tier"`
}

// WarmConfig drives the cache warmer.
type WarmConfig struct {
	Schedule        string   `mapstructure:"schedule"`
	Symbols         []string `mapstructure:"symbols"`
	AdvisoryLockKey int64    `mapstructure:"advisory_lock_key"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv exports variables from a dotenv file without overriding the
// process environment. A missing file is ignored.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stockchart")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.request_timeout", "10s")
	v.SetDefault("api.user_agent", "")
	v.SetDefault("api.retry_attempts", 3)
	v.SetDefault("api.retry_base_delay", "500ms")
	v.SetDefault("api.retry_max_delay", "5s")

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.url", "")
	v.SetDefault("stream.handshake_timeout", "10s")
	v.SetDefault("stream.read_timeout", "90s")

	v.SetDefault("poller.interval", "30s")
	v.SetDefault("poller.startup_delay", "0s")

	v.SetDefault("cache.driver", CacheMemory)
	v.SetDefault("cache.sqlite_path", "data/stockchart.db")
	v.SetDefault("cache.min_daily_points", 30)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("chart.interval", "1M")
	v.SetDefault("chart.variant", "mountain")
	v.SetDefault("chart.width", 1200)
	v.SetDefault("chart.height", 500)
	v.SetDefault("chart.format", "png")
	v.SetDefault("chart.up_color", "#00d19a")
	v.SetDefault("chart.down_color", "#ff5252")

	v.SetDefault("entitlement.tier", string(entitlement.Free))
	v.SetDefault("entitlement.required_tier", string(entitlement.Pro))

	v.SetDefault("warm.schedule", "0 30 6 * * 1-5")
	v.SetDefault("warm.symbols", []string{})
	v.SetDefault("warm.advisory_lock_key", int64(0x73746b63))
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url is invalid: %w", err)
	}
	if c.API.RetryAttempts <= 0 {
		return fmt.Errorf("api.retry_attempts must be greater than zero")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be greater than zero")
	}

	switch c.Cache.Driver {
	case CacheMemory:
	case CacheSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite driver")
		}
	case CachePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("cache.driver %q is not one of memory, sqlite, postgres", c.Cache.Driver)
	}
	if c.Cache.MinDailyPoints <= 0 {
		return fmt.Errorf("cache.min_daily_points must be greater than zero")
	}

	if !interval.Known(c.Chart.Interval) {
		return fmt.Errorf("chart.interval %q is not a known interval", c.Chart.Interval)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart.width and chart.height must be greater than zero")
	}
	if f := strings.ToLower(c.Chart.Format); f != "png" && f != "svg" {
		return fmt.Errorf("chart.format %q must be png or svg", c.Chart.Format)
	}

	if !entitlement.ParseTier(c.Entitlement.RequiredTier).Known() {
		return fmt.Errorf("entitlement.required_tier %q is not a known tier", c.Entitlement.RequiredTier)
	}
	return nil
}

// StreamURL returns the quote stream endpoint, deriving ws(s)://host/ws/quotes
// from api.base_url when stream.url is unset.
func (c *Config) StreamURL() string {
	if c.Stream.URL != "" {
		return c.Stream.URL
	}
	base, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return ""
	}
	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: base.Host, Path: "/ws/quotes"}).String()
}
