package mesh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrInFlight - для чанка уже идёт перестройка
var ErrInFlight = errors.New("mesh: перестройка чанка уже выполняется")

// liveObject - объект блока, закреплённый за ячейкой
type liveObject struct {
	kind string
	data block.BlockData
	obj  BlockObject // nil на стороне без полномочий
}

// ChunkObject - живое представление чанка: рендереры по материалам,
// коллайдер и объекты блоков. Данные блоков в нём не хранятся.
type ChunkObject struct {
	Pos       vec.Vec3
	materials map[string]struct{}
	collider  bool
	objects   map[vec.Vec3]*liveObject
	Builds    int
}

func newChunkObject(pos vec.Vec3) *ChunkObject {
	return &ChunkObject{
		Pos:       pos,
		materials: make(map[string]struct{}),
		objects:   make(map[vec.Vec3]*liveObject),
	}
}

// Options - параметры менеджера представлений
type Options struct {
	Registry  *block.Registry // nil - реестр мира
	Sink      RenderSink      // nil - NopSink
	Factory   ObjectFactory   // nil - объекты блоков не создаются
	Authority bool            // только хост создаёт объекты блоков
	Metrics   *Metrics        // nil - метрики без регистрации
}

// Manager - стадия фиксации: владеет живыми представлениями чанков.
// Apply, Materialize и Evict вызываются только из горутины тика.
type Manager struct {
	world     *world.World
	registry  *block.Registry
	sink      RenderSink
	factory   ObjectFactory
	authority bool
	metrics   *Metrics
	logger    *logging.Logger

	mu       sync.RWMutex
	chunks   map[vec.Vec3]*ChunkObject
	inflight map[vec.Vec3]struct{}
}

// NewManager создаёт менеджер представлений для мира w
func NewManager(w *world.World, opts Options) *Manager {
	if opts.Registry == nil {
		opts.Registry = w.Registry()
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Manager{
		world:     w,
		registry:  opts.Registry,
		sink:      opts.Sink,
		factory:   opts.Factory,
		authority: opts.Authority,
		metrics:   opts.Metrics,
		logger:    logging.GetMeshLogger(),
		chunks:    make(map[vec.Vec3]*ChunkObject),
		inflight:  make(map[vec.Vec3]struct{}),
	}
}

// IsRendered сообщает, есть ли у чанка живое представление
func (m *Manager) IsRendered(pos vec.Vec3) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.chunks[pos]
	return ok
}

// RenderedChunks возвращает координаты чанков с живым представлением
func (m *Manager) RenderedChunks() []vec.Vec3 {
	m.mu.RLock()
	out := make([]vec.Vec3, 0, len(m.chunks))
	for pos := range m.chunks {
		out = append(out, pos)
	}
	m.mu.RUnlock()

	world.SortPositions(out)
	return out
}

// InFlight сообщает, перестраивается ли чанк сейчас
func (m *Manager) InFlight(pos vec.Vec3) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.inflight[pos]
	return ok
}

func (m *Manager) acquire(pos vec.Vec3) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[pos]; busy {
		return false
	}
	m.inflight[pos] = struct{}{}
	m.metrics.InFlight.Inc()
	return true
}

func (m *Manager) release(pos vec.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[pos]; busy {
		delete(m.inflight, pos)
		m.metrics.InFlight.Dec()
	}
}

// build - вычислительная стадия с метриками
func (m *Manager) build(pos vec.Vec3) *Geometry {
	start := time.Now()
	g := Build(m.world, m.registry, pos)
	m.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	m.metrics.Builds.Inc()
	return g
}

// Materialize синхронно строит и фиксирует представление чанка
func (m *Manager) Materialize(ctx context.Context, pos vec.Vec3) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := m.world.GetChunkIfLoaded(pos)
	if !ok {
		return fmt.Errorf("mesh: чанк %v не загружен", pos)
	}
	if !m.acquire(pos) {
		return ErrInFlight
	}
	defer m.release(pos)

	m.mu.Lock()
	if _, exists := m.chunks[pos]; !exists {
		m.chunks[pos] = newChunkObject(pos)
		m.metrics.Rendered.Inc()
	}
	m.mu.Unlock()

	// Флаг снимаем до снимка: запись после него снова пометит чанк
	c.ClearRenderDirty()
	m.Apply(m.build(pos))
	return nil
}

// Evict уничтожает представление чанка. Данные блоков остаются в мире.
func (m *Manager) Evict(pos vec.Vec3) bool {
	m.mu.Lock()
	co, ok := m.chunks[pos]
	if ok {
		delete(m.chunks, pos)
		m.metrics.Rendered.Dec()
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	for material := range co.materials {
		m.sink.DestroyBucket(pos, material)
	}
	if co.collider {
		m.sink.DestroyCollider(pos)
	}
	for _, live := range co.objects {
		if live.obj != nil {
			live.obj.Destroy()
		}
	}

	// Следующая материализация должна перестроить геометрию
	if c, loaded := m.world.GetChunkIfLoaded(pos); loaded {
		c.MarkDirty()
	}
	m.logger.Trace("Представление чанка %v уничтожено", pos)
	return true
}

// Apply - стадия фиксации: переносит геометрию в рендереры, коллайдер и
// объекты блоков. Результат для уже выгруженного чанка отбрасывается.
func (m *Manager) Apply(g *Geometry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	co, ok := m.chunks[g.Pos]
	if !ok {
		m.metrics.Discarded.Inc()
		return false
	}

	// Пустая корзина уничтожается вместе с рендерером
	for material := range co.materials {
		if g.Buckets[material].Empty() {
			m.sink.DestroyBucket(g.Pos, material)
			delete(co.materials, material)
		}
	}
	for material, b := range g.Buckets {
		if b.Empty() {
			continue
		}
		m.sink.UpdateBucket(g.Pos, b)
		co.materials[material] = struct{}{}
	}

	if g.Shape.Empty() {
		if co.collider {
			m.sink.DestroyCollider(g.Pos)
			co.collider = false
		}
	} else {
		m.sink.UpdateCollider(g.Pos, g.Shape)
		co.collider = true
	}

	m.applyObjects(co, g.Objects)
	co.Builds++
	return true
}

func (m *Manager) applyObjects(co *ChunkObject, cells []ObjectCell) {
	next := make(map[vec.Vec3]ObjectCell, len(cells))
	for _, cell := range cells {
		next[cell.Local] = cell
	}

	for local, live := range co.objects {
		if cell, ok := next[local]; ok && cell.Kind == live.kind && cell.Data == live.data {
			continue
		}
		if live.obj != nil {
			live.obj.Destroy()
		}
		delete(co.objects, local)
	}

	for local, cell := range next {
		if _, ok := co.objects[local]; ok {
			continue
		}
		live := &liveObject{kind: cell.Kind, data: cell.Data}
		if m.authority && m.factory != nil {
			if obj := m.factory.NewBlockObject(cell.Kind, cell.World); obj != nil {
				if r, ok := obj.(DataReceiver); ok {
					r.ReceiveData(cell.Data)
				}
				live.obj = obj
				m.metrics.ObjectsCreated.Inc()
			}
		}
		co.objects[local] = live
	}
}

// BlockObjectAt возвращает живой объект блока по мировым координатам
func (m *Manager) BlockObjectAt(pos vec.Vec3) (BlockObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	co, ok := m.chunks[pos.ToChunkCoords()]
	if !ok {
		return nil, false
	}
	live, ok := co.objects[pos.LocalInChunk()]
	if !ok || live.obj == nil {
		return nil, false
	}
	return live.obj, true
}

// Stats - сводка для API
type Stats struct {
	Rendered int `json:"rendered"`
	InFlight int `json:"inflight"`
}

// Stats возвращает текущую сводку
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Rendered: len(m.chunks), InFlight: len(m.inflight)}
}
