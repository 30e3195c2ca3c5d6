package implementations

import "github.com/annel0/blockverse/internal/world/block"

// Индексы текстур атласа
const (
	texStone uint16 = iota + 1
	texDirt
	texGrassTop
	texGrassSide
	texSand
	texWater
	texGlass
	texLeaves
	texSlabTop
	texSlabSide
	texTorch
)

// Stone - базовый непрозрачный куб
func Stone() *block.Descriptor {
	return &block.Descriptor{
		ID:        block.StoneBlockID,
		Name:      "stone",
		Solid:     true,
		FullBlock: true,
		Opaque:    true,
		Material:  MaterialOpaque,
		Textures:  block.UniformTextures(texStone),
		Drops:     []block.Drop{{Item: "cobblestone", Count: 1, Chance: 1}},
	}
}

// Sand - песок
func Sand() *block.Descriptor {
	return &block.Descriptor{
		ID:        block.SandBlockID,
		Name:      "sand",
		Solid:     true,
		FullBlock: true,
		Opaque:    true,
		Material:  MaterialOpaque,
		Textures:  block.UniformTextures(texSand),
		Drops:     []block.Drop{{Item: "sand", Count: 1, Chance: 1}},
	}
}
