package implementations

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// SlabTop - бит Aux: плита в верхней половине ячейки
const SlabTop uint8 = 1

// Slab - половина блока. Нижняя или верхняя половина задается битом SlabTop.
func Slab() *block.Descriptor {
	textures := block.UniformTextures(texSlabSide)
	textures[vec.FaceUp] = texSlabTop
	textures[vec.FaceDown] = texSlabTop

	return &block.Descriptor{
		ID:        block.SlabBlockID,
		Name:      "slab",
		Solid:     true,
		Material:  MaterialOpaque,
		Textures:  textures,
		Mesh:      slabShape{textures: textures},
		Collision: slabShape{textures: textures},
		Drops:     []block.Drop{{Item: "slab", Count: 1, Chance: 1}},
	}
}

type slabShape struct {
	textures [vec.FaceCount]uint16
}

func slabBox(data block.BlockData) physics.AABB {
	if data.Aux&SlabTop != 0 {
		return physics.NewAABB(mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{1, 1, 1})
	}
	return physics.NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0.5, 1})
}

// CollisionBoxes возвращает половину куба
func (s slabShape) CollisionBoxes(data block.BlockData) []physics.AABB {
	return []physics.AABB{slabBox(data)}
}

// EmitMesh рисует коробку половины блока. Грань, прижатая к границе ячейки,
// пропускается, если соседний блок непрозрачный (id соседа - не воздух и не сама плита).
func (s slabShape) EmitMesh(data block.BlockData, neighbors block.NeighborView, out block.MeshWriter) {
	box := slabBox(data)
	flush := vec.FaceDown
	if data.Aux&SlabTop != 0 {
		flush = vec.FaceUp
	}

	for _, face := range vec.Faces {
		onBorder := face != flush.Opposite()
		if onBorder && occludes(neighbors.Neighbor(face)) {
			continue
		}
		out.Quad(MaterialOpaque, block.BoxFace(box, face), block.FaceNormal(face), s.textures[face])
	}
}

// occludes - упрощенная проверка для неполных блоков: закрывают только
// встроенные непрозрачные кубы
func occludes(n block.BlockData) bool {
	switch n.ID {
	case block.StoneBlockID, block.DirtBlockID, block.GrassBlockID, block.SandBlockID:
		return true
	}
	return false
}
