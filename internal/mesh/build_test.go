package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

func newTestWorld() *world.World {
	return world.New(world.Options{Registry: implementations.NewDefaultRegistry()})
}

func TestBuildSingleCube(t *testing.T) {
	w := newTestWorld()
	w.SetBlock(vec.Vec3{X: 4, Y: 4, Z: 4}, block.Of(block.StoneBlockID))

	g := Build(w, w.Registry(), vec.Vec3{})

	require.Contains(t, g.Buckets, implementations.MaterialOpaque)
	b := g.Buckets[implementations.MaterialOpaque]
	assert.Len(t, b.Vertices, 24, "6 граней по 4 вершины")
	assert.Len(t, b.Indices, 36)
	assert.Equal(t, 6, g.Quads)
	require.Len(t, g.Shape.Boxes, 1)
	assert.Equal(t, 4.0, g.Shape.Boxes[0].Min.X())
}

func TestBuildHidesSharedFaces(t *testing.T) {
	w := newTestWorld()
	w.SetBlock(vec.Vec3{X: 4, Y: 4, Z: 4}, block.Of(block.StoneBlockID))
	w.SetBlock(vec.Vec3{X: 5, Y: 4, Z: 4}, block.Of(block.StoneBlockID))

	g := Build(w, w.Registry(), vec.Vec3{})

	assert.Equal(t, 10, g.Quads, "Общая грань двух кубов не рисуется")
	assert.Len(t, g.Shape.Boxes, 1, "Соседние коробки сливаются в одну")
	assert.Equal(t, 2, g.Solids)
}

func TestBuildChecksNeighborAcrossBorder(t *testing.T) {
	w := newTestWorld()
	w.SetBlock(vec.Vec3{X: 15}, block.Of(block.StoneBlockID))

	g := Build(w, w.Registry(), vec.Vec3{})
	assert.Equal(t, 6, g.Quads, "Незагруженный сосед считается воздухом")

	w.SetBlock(vec.Vec3{X: 16}, block.Of(block.StoneBlockID))
	g = Build(w, w.Registry(), vec.Vec3{})
	assert.Equal(t, 5, g.Quads, "Грань к сплошному соседу в другом чанке скрыта")
}

func TestBuildMaterialBuckets(t *testing.T) {
	w := newTestWorld()
	w.SetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}, block.Of(block.GlassBlockID))
	w.SetBlock(vec.Vec3{X: 2, Y: 1, Z: 1}, block.Of(block.GlassBlockID))
	w.SetBlock(vec.Vec3{X: 8, Y: 1, Z: 1}, block.Of(block.WaterBlockID))

	g := Build(w, w.Registry(), vec.Vec3{})

	require.Contains(t, g.Buckets, implementations.MaterialCutout)
	require.Contains(t, g.Buckets, implementations.MaterialTranslucent)
	assert.NotContains(t, g.Buckets, implementations.MaterialOpaque)
	assert.Len(t, g.Buckets[implementations.MaterialCutout].Vertices, 10*4, "Стекло к стеклу грань не рисует")
	assert.Len(t, g.Shape.Boxes, 1, "Вода не даёт коллизии")
}

func TestBuildDelegatesNonFullBlocks(t *testing.T) {
	w := newTestWorld()
	w.SetBlock(vec.Vec3{X: 3, Y: 3, Z: 3}, block.Of(block.SlabBlockID))

	g := Build(w, w.Registry(), vec.Vec3{})

	assert.Equal(t, 6, g.Quads, "Плита рисуется своим эмиттером")
	b := g.Buckets[implementations.MaterialOpaque]
	require.NotNil(t, b)
	for _, v := range b.Vertices {
		assert.LessOrEqual(t, v.Pos.Y(), float32(3.5), "Нижняя плита не выше половины ячейки")
	}
	require.Len(t, g.Shape.Boxes, 1)
	assert.InDelta(t, 3.5, g.Shape.Boxes[0].Max.Y(), 1e-9)
}

func TestBuildRecordsBlockObjects(t *testing.T) {
	w := newTestWorld()
	door := block.New(block.DoorBlockID, implementations.DoorAux(implementations.FacingEast, false, false))
	w.SetBlock(vec.Vec3{X: -3, Y: 2, Z: 5}, door)

	pos := vec.Vec3{X: -3, Y: 2, Z: 5}.ToChunkCoords()
	g := Build(w, w.Registry(), pos)

	require.Len(t, g.Objects, 1)
	assert.Equal(t, implementations.ObjectDoor, g.Objects[0].Kind)
	assert.Equal(t, vec.Vec3{X: -3, Y: 2, Z: 5}, g.Objects[0].World)
	assert.Equal(t, vec.Vec3{X: 13, Y: 2, Z: 5}, g.Objects[0].Local)
	assert.Equal(t, door, g.Objects[0].Data)
	assert.Equal(t, 0, g.Quads, "Дверь рисует её объект")
}

func TestBuildUnloadedChunkIsEmpty(t *testing.T) {
	w := newTestWorld()
	g := Build(w, w.Registry(), vec.Vec3{X: 7})

	assert.Empty(t, g.Buckets)
	assert.True(t, g.Shape.Empty())
	assert.Equal(t, 0, w.Len(), "Сборка не должна загружать чанк")
}
