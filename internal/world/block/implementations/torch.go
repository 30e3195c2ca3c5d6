package implementations

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Torch - тонкий столбик без коллизии
func Torch() *block.Descriptor {
	return &block.Descriptor{
		ID:       block.TorchBlockID,
		Name:     "torch",
		Material: MaterialCutout,
		Textures: block.UniformTextures(texTorch),
		Mesh:     torchMesh{},
		Drops:    []block.Drop{{Item: "torch", Count: 1, Chance: 1}},
	}
}

type torchMesh struct{}

var torchBox = physics.NewAABB(mgl64.Vec3{7.0 / 16, 0, 7.0 / 16}, mgl64.Vec3{9.0 / 16, 10.0 / 16, 9.0 / 16})

// EmitMesh рисует 4 боковые грани и верх столбика; низ прижат к опоре и не виден
func (torchMesh) EmitMesh(data block.BlockData, neighbors block.NeighborView, out block.MeshWriter) {
	for _, face := range vec.Faces {
		if face == vec.FaceDown {
			continue
		}
		out.Quad(MaterialCutout, block.BoxFace(torchBox, face), block.FaceNormal(face), texTorch)
	}
}
