package cache

import (
	"crm-contacts/config"

	"go.uber.org/zap"
)

// NewStore returns a Redis store when enabled and reachable, otherwise an
// in-memory store.
func NewStore(cfg *config.Config, logger *zap.Logger) Store {
	if cfg.Redis.Enabled {
		store, err := NewRedisStore(cfg.Redis, cfg.Cache.RedisPrefix)
		if err == nil {
			logger.Info("Using Redis cache store", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
			return store
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
	}
	return NewMemoryStore(cfg.Cache.LocalMaxKeys)
}
