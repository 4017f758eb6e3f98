package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Shop      ShopConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Cache     CacheConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. An empty host disables redis
// and the correlation cache falls back to its in-memory implementation.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// ShopConfig holds the default storefront credentials. Either field may be
// overridden per sync request.
type ShopConfig struct {
	Domain         string
	AccessToken    string
	APIVersion     string
	TimeoutSeconds int
}

// SyncConfig holds order and inventory sync tuning
type SyncConfig struct {
	// PageSize is the upstream page size (max 250).
	PageSize int
	// OverlapBuffer is subtracted from the last persisted order timestamp
	// when computing the incremental fetch window.
	OverlapBuffer time.Duration
	// FullResyncLookback is the historical floor used for forced full
	// resyncs.
	FullResyncLookback time.Duration
	// InterPageDelay is the pause between consecutive page fetches.
	InterPageDelay time.Duration
	// RateLimitBaseDelay is the base for exponential backoff on 429s.
	RateLimitBaseDelay time.Duration
	// RateLimitMaxAttempts is the per-page retry ceiling for 429s.
	RateLimitMaxAttempts int
	// InventoryBatchSize is the variant ids per combined catalog query.
	InventoryBatchSize int
}

// SchedulerConfig holds the periodic sync trigger configuration
type SchedulerConfig struct {
	Enabled           bool
	OrderInterval     time.Duration
	InventoryInterval time.Duration
}

// CacheConfig holds correlation read cache settings
type CacheConfig struct {
	TTL time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHELFWISE_ prefix (e.g., SHELFWISE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SHELFWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Shop: ShopConfig{
			Domain:         v.GetString("shop.domain"),
			AccessToken:    v.GetString("shop.access_token"),
			APIVersion:     v.GetString("shop.api_version"),
			TimeoutSeconds: v.GetInt("shop.timeout_seconds"),
		},
		Sync: SyncConfig{
			PageSize:             v.GetInt("sync.page_size"),
			OverlapBuffer:        v.GetDuration("sync.overlap_buffer"),
			FullResyncLookback:   v.GetDuration("sync.full_resync_lookback"),
			InterPageDelay:       v.GetDuration("sync.inter_page_delay"),
			RateLimitBaseDelay:   v.GetDuration("sync.rate_limit_base_delay"),
			RateLimitMaxAttempts: v.GetInt("sync.rate_limit_max_attempts"),
			InventoryBatchSize:   v.GetInt("sync.inventory_batch_size"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			OrderInterval:     v.GetDuration("scheduler.order_interval"),
			InventoryInterval: v.GetDuration("scheduler.inventory_interval"),
		},
		Cache: CacheConfig{
			TTL: v.GetDuration("cache.ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shelfwise-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shelfwise"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Shop.APIVersion == "" {
		cfg.Shop.APIVersion = "2024-01"
	}
	if cfg.Shop.TimeoutSeconds == 0 {
		cfg.Shop.TimeoutSeconds = 30
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 250
	}
	if cfg.Sync.OverlapBuffer == 0 {
		cfg.Sync.OverlapBuffer = 5 * time.Minute
	}
	if cfg.Sync.FullResyncLookback == 0 {
		cfg.Sync.FullResyncLookback = 2 * 365 * 24 * time.Hour
	}
	if cfg.Sync.InterPageDelay == 0 {
		cfg.Sync.InterPageDelay = 500 * time.Millisecond
	}
	if cfg.Sync.RateLimitBaseDelay == 0 {
		cfg.Sync.RateLimitBaseDelay = 2 * time.Second
	}
	if cfg.Sync.RateLimitMaxAttempts == 0 {
		cfg.Sync.RateLimitMaxAttempts = 3
	}
	if cfg.Sync.InventoryBatchSize == 0 {
		cfg.Sync.InventoryBatchSize = 50
	}
	if cfg.Scheduler.OrderInterval == 0 {
		cfg.Scheduler.OrderInterval = 15 * time.Minute
	}
	if cfg.Scheduler.InventoryInterval == 0 {
		cfg.Scheduler.InventoryInterval = 6 * time.Hour
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > 250 {
		return fmt.Errorf("sync.page_size must be between 1 and 250, got %d", c.Sync.PageSize)
	}
	if c.Sync.InventoryBatchSize < 1 || c.Sync.InventoryBatchSize > 50 {
		return fmt.Errorf("sync.inventory_batch_size must be between 1 and 50, got %d", c.Sync.InventoryBatchSize)
	}
	if c.Sync.RateLimitMaxAttempts < 1 {
		return fmt.Errorf("sync.rate_limit_max_attempts must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Shop.AccessToken == "" {
			return fmt.Errorf("shop.access_token is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address, or empty when redis is not
// configured.
func (r *RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
