package implementations

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/world/block"
)

// Биты Aux двери: 0-1 - направление, 2 - открыта, 3 - верхняя половина
const (
	DoorFacingMask uint8 = 0x3
	DoorOpen       uint8 = 0x4
	DoorUpper      uint8 = 0x8
)

// Направления створки (значение DoorFacingMask)
const (
	FacingNorth uint8 = iota
	FacingEast
	FacingSouth
	FacingWest
)

const doorThickness = 3.0 / 16

// Door - дверь. Геометрию рисует живой объект блока, сам блок даёт только коллизию.
func Door() *block.Descriptor {
	return &block.Descriptor{
		ID:          block.DoorBlockID,
		Name:        "door",
		Solid:       true,
		Material:    MaterialCutout,
		Collision:   doorCollision{},
		Drops:       []block.Drop{{Item: "door", Count: 1, Chance: 1}},
		BlockObject: ObjectDoor,
	}
}

// DoorAux собирает Aux двери
func DoorAux(facing uint8, open, upper bool) uint8 {
	aux := facing & DoorFacingMask
	if open {
		aux |= DoorOpen
	}
	if upper {
		aux |= DoorUpper
	}
	return aux
}

type doorCollision struct{}

// CollisionBoxes возвращает тонкую панель вдоль стороны facing;
// открытая дверь поворачивается на четверть оборота
func (doorCollision) CollisionBoxes(data block.BlockData) []physics.AABB {
	facing := data.Aux & DoorFacingMask
	if data.Aux&DoorOpen != 0 {
		facing = (facing + 1) & DoorFacingMask
	}

	var box physics.AABB
	switch facing {
	case FacingNorth:
		box = physics.NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, doorThickness})
	case FacingEast:
		box = physics.NewAABB(mgl64.Vec3{1 - doorThickness, 0, 0}, mgl64.Vec3{1, 1, 1})
	case FacingSouth:
		box = physics.NewAABB(mgl64.Vec3{0, 0, 1 - doorThickness}, mgl64.Vec3{1, 1, 1})
	default:
		box = physics.NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{doorThickness, 1, 1})
	}
	return []physics.AABB{box}
}
