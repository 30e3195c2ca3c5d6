package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// Metrics - счётчики сохранения чанков
type Metrics struct {
	Saved      prometheus.Counter
	Loaded     prometheus.Counter
	LoadMisses prometheus.Counter
	Errors     prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil - без регистрации).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse", Subsystem: "storage",
			Name: "chunks_saved_total", Help: "Сохранённые чанки",
		}),
		Loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse", Subsystem: "storage",
			Name: "chunks_loaded_total", Help: "Чанки, загруженные из хранилища",
		}),
		LoadMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse", Subsystem: "storage",
			Name: "chunk_load_misses_total", Help: "Запросы чанков, которых нет в хранилище",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse", Subsystem: "storage",
			Name: "errors_total", Help: "Ошибки хранилища",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Saved, m.Loaded, m.LoadMisses, m.Errors)
	}
	return m
}

// Saver связывает мир и ChunkStore: отдаёт миру сохранённые чанки
// и сбрасывает изменённые чанки на диск.
type Saver struct {
	store       ChunkStore
	loadTimeout time.Duration
	metrics     *Metrics
}

// NewSaver создаёт Saver. metrics может быть nil.
func NewSaver(store ChunkStore, metrics *Metrics) *Saver {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Saver{store: store, loadTimeout: 2 * time.Second, metrics: metrics}
}

// Store возвращает хранилище
func (s *Saver) Store() ChunkStore {
	return s.store
}

// LoadChunkData реализует world.ChunkSource
func (s *Saver) LoadChunkData(pos vec.Vec3) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
	defer cancel()

	data, ok, err := s.store.Load(ctx, pos)
	if err != nil {
		s.metrics.Errors.Inc()
		logging.GetStorageLogger().Warn("Не удалось загрузить чанк %v: %v", pos, err)
		return nil, false
	}
	if !ok {
		s.metrics.LoadMisses.Inc()
		return nil, false
	}
	s.metrics.Loaded.Inc()
	return data, true
}

// SaveChunk сохраняет чанк, если он изменён с последнего сохранения
func (s *Saver) SaveChunk(ctx context.Context, c *world.Chunk) (bool, error) {
	if !c.IsPersistDirty() {
		return false, nil
	}
	// Флаг снимается до сериализации, чтобы не потерять правку,
	// пришедшую во время записи.
	c.ClearPersistDirty()
	if err := s.store.Save(ctx, c.Pos, c.Serialize()); err != nil {
		c.MarkPersistDirty()
		s.metrics.Errors.Inc()
		return false, fmt.Errorf("сохранение чанка %v: %w", c.Pos, err)
	}
	s.metrics.Saved.Inc()
	return true, nil
}

// SaveDirty сохраняет все изменённые загруженные чанки мира
func (s *Saver) SaveDirty(ctx context.Context, w *world.World) (int, error) {
	var (
		saved int
		errs  []error
	)
	w.ForEachChunk(func(c *world.Chunk) bool {
		if ctx.Err() != nil {
			return false
		}
		ok, err := s.SaveChunk(ctx, c)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			saved++
		}
		return true
	})
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	if saved > 0 {
		logging.GetStorageLogger().Debug("Сохранено чанков: %d", saved)
	}
	return saved, errors.Join(errs...)
}

// Unload сохраняет чанк (если нужно) и выгружает его из мира
func (s *Saver) Unload(ctx context.Context, w *world.World, pos vec.Vec3) error {
	if c, ok := w.GetChunkIfLoaded(pos); ok {
		if _, err := s.SaveChunk(ctx, c); err != nil {
			return err
		}
	}
	w.Unload(pos)
	return nil
}
