package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
)

// RedisChunkCache держит сериализованные чанки в Redis перед холодным
// хранилищем (storage.ChunkStore). Чтение - read-through, запись -
// write-through: сначала холодное хранилище, затем кеш.
// Сам реализует storage.ChunkStore и подставляется в storage.Saver.
type RedisChunkCache struct {
	hot  kv
	cold storage.ChunkStore
	ttl  time.Duration

	requests atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
	errors   atomic.Int64

	metrics *Metrics
}

// Metrics - prometheus-счётчики кеша
type Metrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
	Errors prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil - без регистрации).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse", Subsystem: "cache",
			Name: "hits_total", Help: "Попадания в кеш чанков",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse", Subsystem: "cache",
			Name: "misses_total", Help: "Промахи кеша чанков",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse", Subsystem: "cache",
			Name: "errors_total", Help: "Ошибки Redis",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Errors)
	}
	return m
}

// NewRedisChunkCache подключается к Redis и оборачивает cold.
//
// Параметры:
//
//	config - адрес Redis и TTL
//	cold - постоянное хранилище чанков (обязательно)
//	metrics - может быть nil
func NewRedisChunkCache(config Config, cold storage.ChunkStore, metrics *Metrics) (*RedisChunkCache, error) {
	config.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("Redis-кеш чанков подключён: %s (TTL %v)", config.RedisURL, config.DefaultTTL)
	return newChunkCache(redisKV{rdb}, cold, config.DefaultTTL, metrics), nil
}

func newChunkCache(hot kv, cold storage.ChunkStore, ttl time.Duration, metrics *Metrics) *RedisChunkCache {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &RedisChunkCache{hot: hot, cold: cold, ttl: ttl, metrics: metrics}
}

// Load читает чанк из Redis, при промахе - из холодного хранилища,
// и кладёт найденное в Redis для следующих запросов.
// Ошибка Redis не мешает чтению: запрос уходит в холодное хранилище.
func (r *RedisChunkCache) Load(ctx context.Context, pos vec.Vec3) ([]byte, bool, error) {
	r.requests.Add(1)
	key := storage.ChunkKey(pos)

	val, err := r.hot.Get(ctx, key)
	if err == nil {
		r.hits.Add(1)
		r.metrics.Hits.Inc()
		return val, true, nil
	}

	r.misses.Add(1)
	r.metrics.Misses.Inc()
	if !errors.Is(err, ErrCacheMiss) {
		r.recordError()
		logging.GetStorageLogger().Warn("Redis Get error for key %s: %v", key, err)
	}

	data, ok, err := r.cold.Load(ctx, pos)
	if err != nil || !ok {
		return data, ok, err
	}

	if err := r.hot.Set(ctx, key, data, r.ttl); err != nil {
		r.recordError()
		logging.GetStorageLogger().Warn("Redis Set error for key %s: %v", key, err)
	}
	return data, true, nil
}

// Save пишет чанк в холодное хранилище и обновляет Redis.
// Если Redis недоступен, ключ удаляется, чтобы не отдавать устаревшие байты.
func (r *RedisChunkCache) Save(ctx context.Context, pos vec.Vec3, data []byte) error {
	if err := r.cold.Save(ctx, pos, data); err != nil {
		return err
	}

	key := storage.ChunkKey(pos)
	if err := r.hot.Set(ctx, key, data, r.ttl); err != nil {
		r.recordError()
		logging.GetStorageLogger().Warn("Redis Set error for key %s: %v", key, err)
		_ = r.hot.Del(ctx, key)
	}
	return nil
}

// Delete удаляет чанк из обоих уровней
func (r *RedisChunkCache) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := r.hot.Del(ctx, storage.ChunkKey(pos)); err != nil {
		r.recordError()
		return fmt.Errorf("redis delete error: %w", err)
	}
	return r.cold.Delete(ctx, pos)
}

// Close закрывает соединение с Redis и холодное хранилище
func (r *RedisChunkCache) Close() error {
	return errors.Join(r.hot.Close(), r.cold.Close())
}

// Stats возвращает текущие метрики кеша.
func (r *RedisChunkCache) Stats() Stats {
	s := Stats{
		TotalRequests: r.requests.Load(),
		CacheHits:     r.hits.Load(),
		CacheMisses:   r.misses.Load(),
		Errors:        r.errors.Load(),
	}
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.HitRatio = float64(s.CacheHits) / float64(total)
	}
	return s
}

func (r *RedisChunkCache) recordError() {
	r.errors.Add(1)
	r.metrics.Errors.Inc()
}

// redisKV адаптирует go-redis к kv
type redisKV struct {
	client *redis.Client
}

func (k redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := k.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (k redisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.client.Set(ctx, key, value, ttl).Err()
}

func (k redisKV) Del(ctx context.Context, key string) error {
	return k.client.Del(ctx, key).Err()
}

func (k redisKV) Close() error {
	return k.client.Close()
}
