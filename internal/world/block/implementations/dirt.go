package implementations

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Dirt - земля
func Dirt() *block.Descriptor {
	return &block.Descriptor{
		ID:        block.DirtBlockID,
		Name:      "dirt",
		Solid:     true,
		FullBlock: true,
		Opaque:    true,
		Material:  MaterialOpaque,
		Textures:  block.UniformTextures(texDirt),
		Drops:     []block.Drop{{Item: "dirt", Count: 1, Chance: 1}},
	}
}

// Grass - трава: разные текстуры сверху, снизу и по бокам
func Grass() *block.Descriptor {
	textures := block.UniformTextures(texGrassSide)
	textures[vec.FaceUp] = texGrassTop
	textures[vec.FaceDown] = texDirt

	return &block.Descriptor{
		ID:        block.GrassBlockID,
		Name:      "grass",
		Solid:     true,
		FullBlock: true,
		Opaque:    true,
		Material:  MaterialOpaque,
		Textures:  textures,
		Drops:     []block.Drop{{Item: "dirt", Count: 1, Chance: 1}},
	}
}
