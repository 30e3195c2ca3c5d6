package implementations

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Water - полупрозрачный несплошной куб. Рисует только грани к воздуху
// и к неполным блокам; с другой водой и с непрозрачными кубами граница не рисуется.
func Water() *block.Descriptor {
	return &block.Descriptor{
		ID:          block.WaterBlockID,
		Name:        "water",
		FullBlock:   true,
		Material:    MaterialTranslucent,
		Textures:    block.UniformTextures(texWater),
		FaceVisible: waterFaceVisible,
	}
}

func waterFaceVisible(self block.BlockData, selfDesc *block.Descriptor, neighbor block.BlockData, neighborDesc *block.Descriptor, face vec.Face) bool {
	if neighbor.IsAir() || neighborDesc == nil {
		return true
	}
	if neighbor.ID == self.ID {
		return false
	}
	return !(neighborDesc.FullBlock && neighborDesc.Opaque)
}
