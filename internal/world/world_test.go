package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

func newTestWorld(t *testing.T, gen Generator) *World {
	t.Helper()
	return New(Options{Registry: implementations.NewDefaultRegistry(), Generator: gen})
}

func TestWorldBlockOperations(t *testing.T) {
	w := newTestWorld(t, nil)

	pos := vec.Vec3{X: 100, Y: 5, Z: -3}
	w.SetBlock(pos, block.Of(block.StoneBlockID))

	assert.Equal(t, block.Of(block.StoneBlockID), w.GetBlock(pos))
	assert.Equal(t, block.Air, w.GetBlock(vec.Vec3{X: 101, Y: 5, Z: -3}))
}

func TestWorldNegativeCoordinates(t *testing.T) {
	w := newTestWorld(t, nil)

	w.SetBlock(vec.Vec3{X: -1, Y: -1, Z: -1}, block.Of(block.DirtBlockID))

	c, ok := w.GetChunkIfLoaded(vec.Vec3{X: -1, Y: -1, Z: -1})
	require.True(t, ok, "Блок (-1,-1,-1) должен попасть в чанк (-1,-1,-1)")
	assert.Equal(t, block.Of(block.DirtBlockID), c.Get(15, 15, 15))

	_, ok = w.GetChunkIfLoaded(vec.Vec3{})
	assert.False(t, ok, "Чанк (0,0,0) не должен загружаться")
}

func TestWorldGeneratorCalledOnce(t *testing.T) {
	calls := map[vec.Vec3]int{}
	gen := GeneratorFunc(func(pos vec.Vec3, c *Chunk) {
		calls[pos]++
		c.Set(0, 0, 0, block.Of(block.StoneBlockID))
	})
	w := newTestWorld(t, gen)

	pos := vec.Vec3{X: 2, Y: 0, Z: 2}
	first := w.GetChunk(pos)
	second := w.GetChunk(pos)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls[pos], "Генератор должен вызываться ровно один раз на чанк")
	assert.False(t, first.IsPersistDirty(), "Сгенерированный чанк не требует сохранения")
}

func TestWorldGetChunkIfLoadedNoSideEffect(t *testing.T) {
	w := newTestWorld(t, nil)

	_, ok := w.GetChunkIfLoaded(vec.Vec3{X: 9})
	assert.False(t, ok)
	assert.Equal(t, 0, w.Len())
}

func TestBorderWriteMarksLoadedNeighbor(t *testing.T) {
	w := newTestWorld(t, nil)

	origin := w.GetChunk(vec.Vec3{})
	east := w.GetChunk(vec.Vec3{X: 1})
	east.ClearRenderDirty()

	origin.Set(15, 4, 4, block.Of(block.StoneBlockID))
	assert.True(t, east.IsRenderDirty(), "Запись на границу должна пометить соседа")

	east.ClearRenderDirty()
	origin.Set(7, 4, 4, block.Of(block.StoneBlockID))
	assert.False(t, east.IsRenderDirty(), "Внутренняя запись соседа не трогает")
}

func TestBorderWriteDoesNotLoadNeighbor(t *testing.T) {
	w := newTestWorld(t, nil)

	c := w.GetChunk(vec.Vec3{})
	c.Set(0, 0, 0, block.Of(block.StoneBlockID))

	assert.Equal(t, 1, w.Len(), "Запись на границу не должна загружать соседей")
	for _, face := range vec.Faces {
		_, ok := w.GetChunkIfLoaded(vec.Vec3{}.Side(face))
		assert.False(t, ok)
	}
}

type mapSource map[vec.Vec3][]byte

func (m mapSource) LoadChunkData(pos vec.Vec3) ([]byte, bool) {
	data, ok := m[pos]
	return data, ok
}

func TestWorldLoadsFromSource(t *testing.T) {
	saved := NewChunk(vec.Vec3{X: 3})
	saved.Set(1, 1, 1, block.Of(block.GlassBlockID))

	generated := false
	w := New(Options{
		Registry:  implementations.NewDefaultRegistry(),
		Generator: GeneratorFunc(func(vec.Vec3, *Chunk) { generated = true }),
		Source:    mapSource{{X: 3}: saved.Serialize()},
	})

	c := w.GetChunk(vec.Vec3{X: 3})
	assert.False(t, generated, "Сохранённый чанк не должен генерироваться")
	assert.Equal(t, block.Of(block.GlassBlockID), c.Get(1, 1, 1))
	assert.False(t, c.IsPersistDirty())
	assert.True(t, c.IsNetworkDirty(), "Загруженный чанк нужно разослать репликам")
}

func TestEnsureChunkSkipsGeneratorAndSource(t *testing.T) {
	calls := 0
	w := New(Options{
		Registry:  implementations.NewDefaultRegistry(),
		Generator: GeneratorFunc(func(vec.Vec3, *Chunk) { calls++ }),
		Source:    mapSource{{X: 1}: NewChunk(vec.Vec3{X: 1}).Serialize()},
	})
	left := w.GetChunk(vec.Vec3{})
	left.ClearRenderDirty()
	calls = 0

	c := w.EnsureChunk(vec.Vec3{X: 1})
	assert.Zero(t, calls)
	assert.True(t, c.IsEmpty())
	assert.False(t, c.IsNetworkDirty())
	assert.Same(t, c, w.EnsureChunk(vec.Vec3{X: 1}))
	assert.True(t, left.IsRenderDirty(), "Сосед помечается при появлении чанка")

	loaded, ok := w.GetChunkIfLoaded(vec.Vec3{X: 1})
	require.True(t, ok)
	assert.Same(t, c, loaded, "GetChunk после EnsureChunk ничего не загружает")
	assert.Same(t, c, w.GetChunk(vec.Vec3{X: 1}))
	assert.Zero(t, calls)
}

func TestWorldCorruptSourceFallsBackToGenerator(t *testing.T) {
	generated := false
	w := New(Options{
		Generator: GeneratorFunc(func(vec.Vec3, *Chunk) { generated = true }),
		Source:    mapSource{{}: {5, 1, 0}},
	})

	w.GetChunk(vec.Vec3{})
	assert.True(t, generated)
}

func TestWorldUnload(t *testing.T) {
	w := newTestWorld(t, nil)
	w.GetChunk(vec.Vec3{X: 1})
	w.GetChunk(vec.Vec3{X: -1})

	assert.Equal(t, []vec.Vec3{{X: -1}, {X: 1}}, w.LoadedChunks())
	assert.True(t, w.Unload(vec.Vec3{X: 1}))
	assert.False(t, w.Unload(vec.Vec3{X: 1}))
	assert.Equal(t, 1, w.Len())
}

func TestWorldDirtyForNetwork(t *testing.T) {
	w := newTestWorld(t, nil)
	w.GetChunk(vec.Vec3{})
	w.SetBlock(vec.Vec3{X: 20}, block.Of(block.StoneBlockID))

	dirty := w.DirtyForNetwork()
	require.Len(t, dirty, 1)
	assert.Equal(t, vec.Vec3{X: 1}, dirty[0].Pos)
}

func TestWorldIsSolid(t *testing.T) {
	w := newTestWorld(t, nil)
	w.SetBlock(vec.Vec3{X: 1}, block.Of(block.StoneBlockID))
	w.SetBlock(vec.Vec3{X: 2}, block.Of(block.WaterBlockID))

	assert.True(t, w.IsSolid(vec.Vec3{X: 1}))
	assert.False(t, w.IsSolid(vec.Vec3{X: 2}), "Вода не сплошная")
	assert.False(t, w.IsSolid(vec.Vec3{X: 3}))
	assert.False(t, w.IsSolid(vec.Vec3{X: 500}), "Незагруженное считается воздухом")
}
