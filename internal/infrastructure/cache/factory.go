package cache

import (
	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/infrastructure/config"
)

// NewCorrelationCache selects the cache implementation from configuration.
// An empty Redis host means single-instance mode and yields the in-memory
// cache; a configured but unreachable Redis also falls back, with a warning,
// so the read endpoint keeps working.
func NewCorrelationCache(cfg config.RedisConfig, logger *zap.Logger) CorrelationCache {
	if cfg.Host == "" {
		logger.Info("Redis not configured, using in-memory correlation cache")
		return NewInMemoryCorrelationCache()
	}

	redisCache, err := NewRedisCorrelationCache(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory correlation cache",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryCorrelationCache()
	}

	logger.Info("Using Redis correlation cache", zap.String("addr", cfg.Addr()))
	return redisCache
}
