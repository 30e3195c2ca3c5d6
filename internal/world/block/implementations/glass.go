package implementations

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Glass - прозрачный сплошной куб
func Glass() *block.Descriptor {
	return &block.Descriptor{
		ID:        block.GlassBlockID,
		Name:      "glass",
		Solid:     true,
		FullBlock: true,
		Material:  MaterialCutout,
		Textures:  block.UniformTextures(texGlass),
	}
}

// Leaves - листва: грани между соседними листьями рисуются (сквозь листву видно листву)
func Leaves() *block.Descriptor {
	return &block.Descriptor{
		ID:          block.LeavesBlockID,
		Name:        "leaves",
		Solid:       true,
		FullBlock:   true,
		Material:    MaterialCutout,
		Textures:    block.UniformTextures(texLeaves),
		FaceVisible: leavesFaceVisible,
		Drops:       []block.Drop{{Item: "sapling", Count: 1, Chance: 0.05}},
	}
}

func leavesFaceVisible(self block.BlockData, selfDesc *block.Descriptor, neighbor block.BlockData, neighborDesc *block.Descriptor, face vec.Face) bool {
	if neighborDesc == nil {
		return true
	}
	return !(neighborDesc.FullBlock && neighborDesc.Opaque)
}
