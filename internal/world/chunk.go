package world

import (
	"fmt"
	"sync"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

const (
	// ChunkVolume - число ячеек в чанке 16x16x16
	ChunkVolume = vec.ChunkSize * vec.ChunkSize * vec.ChunkSize
	// SerializedSize - длина несжатого представления: пара {id, aux} на ячейку
	SerializedSize = ChunkVolume * 2

	serializeStride = 2
)

// RangeError - обращение к локальной координате вне [0,16). Это ошибка логики
// вызывающего кода, поэтому Get/Set паникуют с этим значением.
type RangeError struct {
	X, Y, Z int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("world: локальная координата (%d,%d,%d) вне чанка", e.X, e.Y, e.Z)
}

// chunkLookup - невладеющая ссылка чанка на мир, только для пометки соседей
type chunkLookup interface {
	GetChunkIfLoaded(pos vec.Vec3) (*Chunk, bool)
}

// Chunk представляет участок мира размером 16x16x16 блоков.
// Запись идёт только из тика-владельца, чтение (мешинг, API) - под RLock.
type Chunk struct {
	Pos vec.Vec3 // Координаты чанка в сетке чанков

	mu     sync.RWMutex
	blocks [ChunkVolume]block.BlockData

	empty        bool // true, пока не записан ни один непустой блок
	renderDirty  bool // геометрию нужно перестроить
	networkDirty bool // байты нужно разослать заново
	persistDirty bool // чанк изменён с последнего сохранения

	world chunkLookup
}

// NewChunk создаёт новый пустой чанк с указанными координатами
func NewChunk(pos vec.Vec3) *Chunk {
	return &Chunk{
		Pos:         pos,
		empty:       true,
		renderDirty: true,
	}
}

func index(x, y, z int) int {
	return x + y*vec.ChunkSize + z*vec.ChunkSize*vec.ChunkSize
}

func checkBounds(x, y, z int) {
	if x < 0 || x >= vec.ChunkSize || y < 0 || y >= vec.ChunkSize || z < 0 || z >= vec.ChunkSize {
		panic(&RangeError{X: x, Y: y, Z: z})
	}
}

// Get возвращает блок по локальным координатам
func (c *Chunk) Get(x, y, z int) block.BlockData {
	checkBounds(x, y, z)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[index(x, y, z)]
}

// GetLocal - Get по вектору
func (c *Chunk) GetLocal(local vec.Vec3) block.BlockData {
	return c.Get(local.X, local.Y, local.Z)
}

// Set устанавливает блок по локальным координатам. Снимает флаг пустоты
// (обратно он не возвращается), помечает чанк грязным для рендера и сети,
// а при записи на границу - помечает уже загруженного соседа за этой границей.
func (c *Chunk) Set(x, y, z int, data block.BlockData) {
	checkBounds(x, y, z)

	c.mu.Lock()
	c.blocks[index(x, y, z)] = data
	if !data.IsAir() {
		c.empty = false
	}
	c.renderDirty = true
	c.networkDirty = true
	c.persistDirty = true
	w := c.world
	c.mu.Unlock()

	if w == nil {
		return
	}

	// Соседей помечаем после снятия своей блокировки
	local := vec.Vec3{X: x, Y: y, Z: z}
	for _, face := range vec.Faces {
		if !onBorder(local, face) {
			continue
		}
		if n, ok := w.GetChunkIfLoaded(c.Pos.Side(face)); ok {
			n.MarkDirty()
		}
	}
}

// SetLocal - Set по вектору
func (c *Chunk) SetLocal(local vec.Vec3, data block.BlockData) {
	c.Set(local.X, local.Y, local.Z, data)
}

// onBorder сообщает, прилегает ли ячейка к грани чанка face
func onBorder(local vec.Vec3, face vec.Face) bool {
	coord := [3]int{local.X, local.Y, local.Z}[face.Axis()]
	if face.Positive() {
		return coord == vec.ChunkSize-1
	}
	return coord == 0
}

// Fill заполняет весь чанк одним блоком (для генераторов)
func (c *Chunk) Fill(data block.BlockData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.blocks {
		c.blocks[i] = data
	}
	if !data.IsAir() {
		c.empty = false
	}
	c.renderDirty = true
	c.networkDirty = true
	c.persistDirty = true
}

// MarkDirty помечает геометрию чанка устаревшей
func (c *Chunk) MarkDirty() {
	c.mu.Lock()
	c.renderDirty = true
	c.mu.Unlock()
}

// MarkNetworkDirty помечает чанк для повторной рассылки
func (c *Chunk) MarkNetworkDirty() {
	c.mu.Lock()
	c.networkDirty = true
	c.mu.Unlock()
}

// IsEmpty возвращает true, пока в чанк не записан ни один непустой блок
func (c *Chunk) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.empty
}

// IsRenderDirty сообщает, нужна ли перестройка геометрии
func (c *Chunk) IsRenderDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renderDirty
}

// ClearRenderDirty снимает флаг перестройки геометрии
func (c *Chunk) ClearRenderDirty() {
	c.mu.Lock()
	c.renderDirty = false
	c.mu.Unlock()
}

// IsNetworkDirty сообщает, нужно ли разослать чанк
func (c *Chunk) IsNetworkDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networkDirty
}

// ClearNetworkDirty снимает флаг рассылки
func (c *Chunk) ClearNetworkDirty() {
	c.mu.Lock()
	c.networkDirty = false
	c.mu.Unlock()
}

// IsPersistDirty сообщает, изменён ли чанк с последнего сохранения
func (c *Chunk) IsPersistDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persistDirty
}

// ClearPersistDirty снимает флаг сохранения
func (c *Chunk) ClearPersistDirty() {
	c.mu.Lock()
	c.persistDirty = false
	c.mu.Unlock()
}

// MarkPersistDirty возвращает чанк в очередь сохранения
func (c *Chunk) MarkPersistDirty() {
	c.mu.Lock()
	c.persistDirty = true
	c.mu.Unlock()
}

// CountNonAir возвращает число непустых ячеек
func (c *Chunk) CountNonAir() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, b := range c.blocks {
		if !b.IsAir() {
			n++
		}
	}
	return n
}

// Snapshot - копия блоков чанка на момент вызова (copy-on-read для мешинга)
type Snapshot struct {
	Pos    vec.Vec3
	Blocks [ChunkVolume]block.BlockData
}

// Get возвращает блок снимка по локальным координатам
func (s *Snapshot) Get(x, y, z int) block.BlockData {
	checkBounds(x, y, z)
	return s.Blocks[index(x, y, z)]
}

// Snapshot копирует блоки под блокировкой чтения
func (c *Chunk) Snapshot() *Snapshot {
	s := &Snapshot{Pos: c.Pos}
	c.mu.RLock()
	s.Blocks = c.blocks
	c.mu.RUnlock()
	return s
}

// Serialize кодирует чанк: пары {id, aux} в порядке x, затем y, затем z, RLE с шагом 2
func (c *Chunk) Serialize() []byte {
	raw := make([]byte, SerializedSize)

	c.mu.RLock()
	for i, b := range c.blocks {
		raw[i*2] = byte(b.ID)
		raw[i*2+1] = b.Aux
	}
	c.mu.RUnlock()

	out, err := codec.Encode(raw, serializeStride)
	if err != nil {
		// длина всегда кратна шагу
		panic(err)
	}
	return out
}

// Deserialize заменяет содержимое чанка данными из буфера. Битый буфер
// (обрыв RLE или неверная длина) отбрасывается с предупреждением, чанк
// сохраняет прежнее состояние. Возвращает true, если данные применены.
func (c *Chunk) Deserialize(data []byte) bool {
	raw, err := codec.Decode(data, serializeStride)
	if err != nil {
		logging.GetWorldLogger().Warn("Чанк %v: буфер отброшен: %v", c.Pos, err)
		return false
	}
	if len(raw) != SerializedSize {
		logging.GetWorldLogger().Warn("Чанк %v: буфер отброшен: длина %d, ожидалось %d", c.Pos, len(raw), SerializedSize)
		return false
	}

	c.mu.Lock()
	for i := range c.blocks {
		b := block.BlockData{ID: block.BlockID(raw[i*2]), Aux: raw[i*2+1]}
		c.blocks[i] = b
		if !b.IsAir() {
			c.empty = false
		}
	}
	c.renderDirty = true
	w := c.world
	c.mu.Unlock()

	if w != nil {
		markNeighbors(w, c.Pos)
	}
	return true
}

// markNeighbors помечает грязными все загруженные соседние чанки
func markNeighbors(w chunkLookup, pos vec.Vec3) {
	for _, face := range vec.Faces {
		if n, ok := w.GetChunkIfLoaded(pos.Side(face)); ok {
			n.MarkDirty()
		}
	}
}

func (c *Chunk) attach(w chunkLookup) {
	c.mu.Lock()
	c.world = w
	c.mu.Unlock()
}
