package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "shelfwise-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 250, cfg.Sync.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Sync.OverlapBuffer)
	assert.Equal(t, 2*365*24*time.Hour, cfg.Sync.FullResyncLookback)
	assert.Equal(t, 2*time.Second, cfg.Sync.RateLimitBaseDelay)
	assert.Equal(t, 3, cfg.Sync.RateLimitMaxAttempts)
	assert.Equal(t, 50, cfg.Sync.InventoryBatchSize)
	assert.Equal(t, 30, cfg.Shop.TimeoutSeconds)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "idle conns exceed open conns",
			mutate:  func(c *Config) { c.Database.MaxIdleConns = 100 },
			wantErr: "max_idle_conns",
		},
		{
			name:    "page size over upstream cap",
			mutate:  func(c *Config) { c.Sync.PageSize = 500 },
			wantErr: "sync.page_size",
		},
		{
			name:    "inventory batch over upstream cap",
			mutate:  func(c *Config) { c.Sync.InventoryBatchSize = 200 },
			wantErr: "sync.inventory_batch_size",
		},
		{
			name: "production requires db password",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Database.SSLMode = "require"
				c.Shop.AccessToken = "shpat_test"
			},
			wantErr: "database.password",
		},
		{
			name: "production requires shop token",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Database.Password = "secret"
				c.Database.SSLMode = "require"
			},
			wantErr: "shop.access_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "shelfwise",
		Password: "p@ss/word",
		DBName:   "shelfwise",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{}
	assert.Empty(t, r.Addr())

	r.Host = "cache.internal"
	r.Port = 6380
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
