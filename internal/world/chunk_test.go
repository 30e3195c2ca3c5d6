package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

func TestChunkCreateAndGetBlock(t *testing.T) {
	c := NewChunk(vec.Vec3{X: 5, Y: -1, Z: 10})

	assert.Equal(t, vec.Vec3{X: 5, Y: -1, Z: 10}, c.Pos)
	assert.True(t, c.IsEmpty(), "Новый чанк должен быть пустым")
	assert.Equal(t, block.Air, c.Get(3, 4, 5), "Блоки должны быть инициализированы воздухом")

	stone := block.New(block.StoneBlockID, 7)
	c.Set(3, 4, 5, stone)
	assert.Equal(t, stone, c.Get(3, 4, 5))
	assert.Equal(t, 1, c.CountNonAir())
}

func TestChunkOutOfRangePanics(t *testing.T) {
	c := NewChunk(vec.Vec3{})

	defer func() {
		r := recover()
		require.NotNil(t, r, "Ожидалась паника при выходе за границы")
		rangeErr, ok := r.(*RangeError)
		require.True(t, ok, "Паника должна нести *RangeError")
		assert.Equal(t, 16, rangeErr.X)
	}()
	c.Get(16, 0, 0)
}

func TestChunkEmptinessMonotonic(t *testing.T) {
	c := NewChunk(vec.Vec3{})

	c.Set(0, 0, 0, block.Air)
	assert.True(t, c.IsEmpty(), "Запись воздуха не снимает флаг пустоты")

	c.Set(0, 0, 0, block.Of(block.DirtBlockID))
	assert.False(t, c.IsEmpty())

	c.Set(0, 0, 0, block.Air)
	assert.False(t, c.IsEmpty(), "Флаг пустоты не возвращается автоматически")
}

func TestChunkSetMarksDirty(t *testing.T) {
	c := NewChunk(vec.Vec3{})
	c.ClearRenderDirty()
	c.ClearNetworkDirty()

	c.Set(8, 8, 8, block.Of(block.StoneBlockID))
	assert.True(t, c.IsRenderDirty())
	assert.True(t, c.IsNetworkDirty())
	assert.True(t, c.IsPersistDirty())
}

func TestChunkSerializeRoundTrip(t *testing.T) {
	src := NewChunk(vec.Vec3{X: 1})
	src.Set(0, 0, 0, block.New(block.StoneBlockID, 1))
	src.Set(15, 15, 15, block.New(block.DoorBlockID, 0x0A))
	for x := 0; x < 16; x++ {
		src.Set(x, 3, 7, block.Of(block.GrassBlockID))
	}

	data := src.Serialize()
	assert.Less(t, len(data), SerializedSize, "Почти пустой чанк должен сжиматься")

	dst := NewChunk(vec.Vec3{X: 1})
	require.True(t, dst.Deserialize(data))
	assert.Equal(t, src.Snapshot().Blocks, dst.Snapshot().Blocks)
	assert.False(t, dst.IsEmpty())
	assert.True(t, dst.IsRenderDirty())
}

func TestEmptyChunkSerializedSize(t *testing.T) {
	c := NewChunk(vec.Vec3{})
	// 4096 одинаковых пар: 21 повтор по 193 и хвост из 43, по три байта на серию
	assert.Len(t, c.Serialize(), 66)
}

func TestChunkDeserializeRejectsMalformed(t *testing.T) {
	c := NewChunk(vec.Vec3{})
	c.Set(1, 2, 3, block.Of(block.SandBlockID))
	before := c.Snapshot().Blocks

	// Серия обещает 6 кортежей, данных на один
	assert.False(t, c.Deserialize([]byte{5, 1, 0}), "Оборванный буфер должен отбрасываться")

	// Корректный RLE, но не той длины
	short, err := codec.Encode(make([]byte, 10), 2)
	require.NoError(t, err)
	assert.False(t, c.Deserialize(short), "Буфер неверной длины должен отбрасываться")

	assert.Equal(t, before, c.Snapshot().Blocks, "Содержимое чанка не должно меняться")
}

func TestChunkSnapshotIsCopy(t *testing.T) {
	c := NewChunk(vec.Vec3{})
	c.Set(2, 2, 2, block.Of(block.StoneBlockID))

	snap := c.Snapshot()
	c.Set(2, 2, 2, block.Air)

	assert.Equal(t, block.Of(block.StoneBlockID), snap.Get(2, 2, 2), "Снимок не должен видеть последующие записи")
}

func TestChunkFill(t *testing.T) {
	c := NewChunk(vec.Vec3{})
	c.Fill(block.Of(block.StoneBlockID))

	assert.Equal(t, ChunkVolume, c.CountNonAir())
	assert.False(t, c.IsEmpty())
}
