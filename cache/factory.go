package cache

import (
	"fmt"

	"github.com/anoixa/tidypics/config"
	"github.com/rs/zerolog/log"
)

// NewProvider 按 cache_type 创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "memory", "":
		log.Info().Msg("[Cache] Using in-memory cache")
		return NewMemory(DefaultMemoryConfig())
	case "redis":
		log.Info().Str("addr", cfg.CacheRedisAddr).Msg("[Cache] Using redis cache")
		return NewRedis(RedisConfig{
			Address:      cfg.CacheRedisAddr,
			Password:     cfg.CacheRedisPassword,
			DB:           cfg.CacheRedisDB,
			PoolSize:     10,
			MinIdleConns: 2,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
