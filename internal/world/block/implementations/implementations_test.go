package implementations

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// quadRecorder реализует block.MeshWriter для тестов
type quadRecorder struct {
	quads []mgl32.Vec3
	count map[string]int
}

func newQuadRecorder() *quadRecorder {
	return &quadRecorder{count: make(map[string]int)}
}

func (q *quadRecorder) Quad(material string, corners [4]mgl32.Vec3, normal mgl32.Vec3, texture uint16) {
	q.quads = append(q.quads, normal)
	q.count[material]++
}

// fixedNeighbors возвращает один и тот же блок со всех сторон, кроме переопределенных
type fixedNeighbors struct {
	all   block.BlockData
	sides map[vec.Face]block.BlockData
}

func (n fixedNeighbors) Neighbor(face vec.Face) block.BlockData {
	if b, ok := n.sides[face]; ok {
		return b
	}
	return n.all
}

func TestRegisterDefaults(t *testing.T) {
	r := block.NewRegistry()
	require.NoError(t, RegisterDefaults(r))
	assert.Equal(t, len(Defaults()), r.Len())

	// повторная регистрация должна упасть на первом же ID
	assert.ErrorIs(t, RegisterDefaults(r), block.ErrDuplicateID)
}

func TestSlabMesh(t *testing.T) {
	slab := Slab()
	rec := newQuadRecorder()

	// снизу камень - нижняя грань не рисуется
	slab.Mesh.EmitMesh(block.Of(block.SlabBlockID), fixedNeighbors{
		all:   block.Air,
		sides: map[vec.Face]block.BlockData{vec.FaceDown: block.Of(block.StoneBlockID)},
	}, rec)

	assert.Len(t, rec.quads, 5)
	assert.Equal(t, 5, rec.count[MaterialOpaque])
	assert.NotContains(t, rec.quads, block.FaceNormal(vec.FaceDown))

	// верхняя плита под камнем: верх скрыт, внутренняя нижняя грань видна
	rec = newQuadRecorder()
	slab.Mesh.EmitMesh(block.New(block.SlabBlockID, SlabTop), fixedNeighbors{all: block.Of(block.StoneBlockID)}, rec)
	assert.Len(t, rec.quads, 1)
	assert.Equal(t, block.FaceNormal(vec.FaceDown), rec.quads[0])
}

func TestSlabCollision(t *testing.T) {
	boxes := Slab().Boxes(block.New(block.SlabBlockID, SlabTop))
	require.Len(t, boxes, 1)
	assert.InDelta(t, 0.5, boxes[0].Min[1], 1e-9)
	assert.InDelta(t, 0.5, boxes[0].Volume(), 1e-9)
}

func TestDoorCollisionRotatesWhenOpen(t *testing.T) {
	door := Door()
	closed := door.Boxes(block.New(block.DoorBlockID, DoorAux(FacingNorth, false, false)))
	open := door.Boxes(block.New(block.DoorBlockID, DoorAux(FacingNorth, true, false)))

	require.Len(t, closed, 1)
	require.Len(t, open, 1)
	assert.InDelta(t, doorThickness, closed[0].Max[2], 1e-9)
	assert.InDelta(t, 1-doorThickness, open[0].Min[0], 1e-9)
	assert.True(t, door.HasBlockObject())
	assert.Equal(t, ObjectDoor, door.BlockObject)
}

func TestWaterFaces(t *testing.T) {
	water := Water()
	stone := Stone()
	glass := Glass()
	w := block.Of(block.WaterBlockID)

	assert.True(t, water.IsFaceVisible(w, block.Air, Air(), vec.FaceUp))
	assert.False(t, water.IsFaceVisible(w, w, water, vec.FaceUp))
	assert.False(t, water.IsFaceVisible(w, block.Of(block.StoneBlockID), stone, vec.FaceDown))
	assert.True(t, water.IsFaceVisible(w, block.Of(block.GlassBlockID), glass, vec.FaceEast))
	assert.Empty(t, water.Boxes(w), "вода не сталкивается")
}

func TestLeavesDrawInnerFaces(t *testing.T) {
	leaves := Leaves()
	l := block.Of(block.LeavesBlockID)
	assert.True(t, leaves.IsFaceVisible(l, l, leaves, vec.FaceWest))
	assert.False(t, leaves.IsFaceVisible(l, block.Of(block.DirtBlockID), Dirt(), vec.FaceDown))
}

func TestTorchMesh(t *testing.T) {
	rec := newQuadRecorder()
	Torch().Mesh.EmitMesh(block.Of(block.TorchBlockID), fixedNeighbors{all: block.Air}, rec)
	assert.Equal(t, 5, rec.count[MaterialCutout])
	assert.Empty(t, Torch().Boxes(block.Of(block.TorchBlockID)))
}
