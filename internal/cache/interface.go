package cache

import (
	"context"
	"errors"
	"time"
)

// Config содержит конфигурацию Redis-кеша чанков.
type Config struct {
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// TTL записи чанка в кеше. 0 - по умолчанию (30s).
	DefaultTTL time.Duration `yaml:"default_ttl"`

	MaxConnections int           `yaml:"max_connections"`
	PoolTimeout    time.Duration `yaml:"pool_timeout"`
}

func (c *Config) withDefaults() {
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 30 * time.Second
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 10
	}
	if c.PoolTimeout == 0 {
		c.PoolTimeout = 30 * time.Second
	}
}

// ErrCacheMiss - ключа нет в кеше
var ErrCacheMiss = errors.New("cache miss")

// kv - минимальный набор операций горячего хранилища.
// В продакшене это Redis (redisKV), в тестах - map.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrCacheMiss при промахе
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// Stats содержит метрики производительности кеша.
type Stats struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
	Errors        int64   `json:"errors"`
}
