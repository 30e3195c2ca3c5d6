package world

import (
	"sort"
	"sync"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Generator заполняет только что созданный чанк. Вызывается ровно один раз
// на чанк, до того как чанк станет видим через World. Генератор не должен
// обращаться к самому миру.
type Generator interface {
	GenerateChunk(pos vec.Vec3, c *Chunk)
}

// GeneratorFunc - адаптер функции к Generator
type GeneratorFunc func(pos vec.Vec3, c *Chunk)

// GenerateChunk вызывает f
func (f GeneratorFunc) GenerateChunk(pos vec.Vec3, c *Chunk) {
	f(pos, c)
}

// EmptyGenerator оставляет чанки пустыми
type EmptyGenerator struct{}

// GenerateChunk ничего не делает: новый чанк уже заполнен воздухом
func (EmptyGenerator) GenerateChunk(vec.Vec3, *Chunk) {}

// ChunkSource отдаёт ранее сохранённые байты чанка (см. Chunk.Serialize).
// Если источник вернул данные, генератор для этого чанка не вызывается.
type ChunkSource interface {
	LoadChunkData(pos vec.Vec3) ([]byte, bool)
}

// Options - параметры мира
type Options struct {
	Registry  *block.Registry
	Generator Generator   // nil - EmptyGenerator
	Source    ChunkSource // nil - только генерация; реплике не нужен
}

// World (BlockSpace) - разрежённое отображение координат чанков в чанки.
// Набор чанков меняет только тик-владелец; читать можно из любых горутин.
type World struct {
	mu     sync.RWMutex
	chunks map[vec.Vec3]*Chunk

	// genMu сериализует создание чанков, чтобы генератор вызывался ровно один раз
	genMu sync.Mutex

	registry  *block.Registry
	generator Generator
	source    ChunkSource

	logger *logging.Logger
}

// New создаёт пустой мир
func New(opts Options) *World {
	if opts.Registry == nil {
		opts.Registry = block.NewRegistry()
	}
	if opts.Generator == nil {
		opts.Generator = EmptyGenerator{}
	}
	return &World{
		chunks:    make(map[vec.Vec3]*Chunk),
		registry:  opts.Registry,
		generator: opts.Generator,
		source:    opts.Source,
		logger:    logging.GetWorldLogger(),
	}
}

// Registry возвращает реестр блоков мира
func (w *World) Registry() *block.Registry {
	return w.registry
}

// GetChunkIfLoaded возвращает чанк, только если он уже загружен
func (w *World) GetChunkIfLoaded(pos vec.Vec3) (*Chunk, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.chunks[pos]
	return c, ok
}

// GetChunk возвращает чанк, загружая или генерируя его при отсутствии
func (w *World) GetChunk(pos vec.Vec3) *Chunk {
	if c, ok := w.GetChunkIfLoaded(pos); ok {
		return c
	}

	w.genMu.Lock()
	defer w.genMu.Unlock()

	// Пока ждали, чанк мог создать другой вызов
	if c, ok := w.GetChunkIfLoaded(pos); ok {
		return c
	}

	c := NewChunk(pos)
	if !w.loadFromSource(c) {
		w.generator.GenerateChunk(pos, c)
		// Сгенерированное восстанавливается по сиду, сохранять его незачем
		c.ClearPersistDirty()
	}
	return w.insert(c)
}

// EnsureChunk возвращает чанк, создавая пустой без генератора и источника.
// Так реплика заводит чанк под присланные хостом байты.
func (w *World) EnsureChunk(pos vec.Vec3) *Chunk {
	if c, ok := w.GetChunkIfLoaded(pos); ok {
		return c
	}

	w.genMu.Lock()
	defer w.genMu.Unlock()

	if c, ok := w.GetChunkIfLoaded(pos); ok {
		return c
	}
	return w.insert(NewChunk(pos))
}

func (w *World) insert(c *Chunk) *Chunk {
	c.attach(w)

	w.mu.Lock()
	w.chunks[c.Pos] = c
	w.mu.Unlock()

	// У соседей могли открыться или закрыться граничные грани
	markNeighbors(w, c.Pos)

	w.logger.Trace("Чанк %v загружен (пустой: %v)", c.Pos, c.IsEmpty())
	return c
}

func (w *World) loadFromSource(c *Chunk) bool {
	if w.source == nil {
		return false
	}
	data, ok := w.source.LoadChunkData(c.Pos)
	if !ok {
		return false
	}
	if !c.Deserialize(data) {
		w.logger.Warn("Сохранённый чанк %v повреждён, генерируем заново", c.Pos)
		return false
	}
	c.ClearPersistDirty()
	// Deserialize не трогает сетевой флаг, а реплики этих байтов ещё не видели
	c.MarkNetworkDirty()
	return true
}

// GetBlock возвращает блок по мировым координатам (загружая чанк)
func (w *World) GetBlock(pos vec.Vec3) block.BlockData {
	local := pos.LocalInChunk()
	return w.GetChunk(pos.ToChunkCoords()).Get(local.X, local.Y, local.Z)
}

// GetBlockIfLoaded возвращает блок, не вызывая загрузку чанка
func (w *World) GetBlockIfLoaded(pos vec.Vec3) (block.BlockData, bool) {
	c, ok := w.GetChunkIfLoaded(pos.ToChunkCoords())
	if !ok {
		return block.Air, false
	}
	local := pos.LocalInChunk()
	return c.Get(local.X, local.Y, local.Z), true
}

// SetBlock записывает блок по мировым координатам (загружая чанк)
func (w *World) SetBlock(pos vec.Vec3, data block.BlockData) {
	local := pos.LocalInChunk()
	w.GetChunk(pos.ToChunkCoords()).Set(local.X, local.Y, local.Z, data)
}

// IsSolid сообщает, сплошной ли блок. Незагруженные чанки считаются воздухом.
func (w *World) IsSolid(pos vec.Vec3) bool {
	b, ok := w.GetBlockIfLoaded(pos)
	if !ok || b.IsAir() {
		return false
	}
	desc, ok := w.registry.Get(b.ID)
	return ok && desc.Solid
}

// Unload убирает чанк из мира. Сохранение - забота вызывающего.
func (w *World) Unload(pos vec.Vec3) bool {
	w.mu.Lock()
	c, ok := w.chunks[pos]
	if ok {
		delete(w.chunks, pos)
	}
	w.mu.Unlock()

	if !ok {
		return false
	}
	c.attach(nil)
	markNeighbors(w, pos)
	return true
}

// Len возвращает число загруженных чанков
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

// LoadedChunks возвращает координаты загруженных чанков в детерминированном порядке
func (w *World) LoadedChunks() []vec.Vec3 {
	w.mu.RLock()
	out := make([]vec.Vec3, 0, len(w.chunks))
	for pos := range w.chunks {
		out = append(out, pos)
	}
	w.mu.RUnlock()

	SortPositions(out)
	return out
}

// ForEachChunk обходит снимок набора загруженных чанков. Колбэк может
// безопасно обращаться к миру; false прекращает обход.
func (w *World) ForEachChunk(fn func(c *Chunk) bool) {
	w.mu.RLock()
	list := make([]*Chunk, 0, len(w.chunks))
	for _, c := range w.chunks {
		list = append(list, c)
	}
	w.mu.RUnlock()

	for _, c := range list {
		if !fn(c) {
			return
		}
	}
}

// DirtyForNetwork возвращает загруженные чанки с флагом сетевой рассылки
func (w *World) DirtyForNetwork() []*Chunk {
	var out []*Chunk
	w.ForEachChunk(func(c *Chunk) bool {
		if c.IsNetworkDirty() {
			out = append(out, c)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return lessPos(out[i].Pos, out[j].Pos) })
	return out
}

// SortPositions упорядочивает координаты по x, затем y, затем z
func SortPositions(list []vec.Vec3) {
	sort.Slice(list, func(i, j int) bool { return lessPos(list[i], list[j]) })
}

func lessPos(a, b vec.Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
