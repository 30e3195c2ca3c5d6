package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// chunkView - снимок чанка плюс ссылки на загруженных соседей для граничных ячеек
type chunkView struct {
	snap      *world.Snapshot
	neighbors [vec.FaceCount]*world.Chunk
}

func newChunkView(w *world.World, c *world.Chunk) *chunkView {
	v := &chunkView{snap: c.Snapshot()}
	for _, face := range vec.Faces {
		if n, ok := w.GetChunkIfLoaded(c.Pos.Side(face)); ok {
			v.neighbors[face] = n
		}
	}
	return v
}

// at возвращает блок по локальным координатам, выходя за границу к соседу.
// Незагруженный сосед считается воздухом.
func (v *chunkView) at(x, y, z int) block.BlockData {
	if x >= 0 && x < vec.ChunkSize && y >= 0 && y < vec.ChunkSize && z >= 0 && z < vec.ChunkSize {
		return v.snap.Get(x, y, z)
	}

	var face vec.Face
	switch {
	case x < 0:
		face = vec.FaceWest
	case x >= vec.ChunkSize:
		face = vec.FaceEast
	case y < 0:
		face = vec.FaceDown
	case y >= vec.ChunkSize:
		face = vec.FaceUp
	case z < 0:
		face = vec.FaceNorth
	default:
		face = vec.FaceSouth
	}

	n := v.neighbors[face]
	if n == nil {
		return block.Air
	}
	return n.Get(vec.Mod(x, vec.ChunkSize), vec.Mod(y, vec.ChunkSize), vec.Mod(z, vec.ChunkSize))
}

// cellNeighbors реализует block.NeighborView для одной ячейки
type cellNeighbors struct {
	view  *chunkView
	local vec.Vec3
}

func (n cellNeighbors) Neighbor(face vec.Face) block.BlockData {
	p := n.local.Side(face)
	return n.view.at(p.X, p.Y, p.Z)
}

// Build - вычислительная стадия: только чтение мира и реестра, без побочных
// эффектов. Полные блоки дают квадраты видимых граней, неполные рисует их
// MeshEmitter, сплошные добавляют коробки в общую форму коллизии.
// Для незагруженного чанка возвращает пустую геометрию.
func Build(w *world.World, reg *block.Registry, pos vec.Vec3) *Geometry {
	g := newGeometry(pos)

	c, ok := w.GetChunkIfLoaded(pos)
	if !ok || c.IsEmpty() {
		g.Shape = physics.NewCompoundShape(nil)
		return g
	}

	view := newChunkView(w, c)
	origin := vec.FromChunkLocal(pos, vec.Vec3{})
	var boxes []physics.AABB

	for z := 0; z < vec.ChunkSize; z++ {
		for y := 0; y < vec.ChunkSize; y++ {
			for x := 0; x < vec.ChunkSize; x++ {
				data := view.snap.Get(x, y, z)
				if data.IsAir() {
					continue
				}
				desc := reg.MustGet(data.ID)
				local := vec.Vec3{X: x, Y: y, Z: z}

				if desc.HasBlockObject() {
					g.Objects = append(g.Objects, ObjectCell{
						Local: local,
						World: origin.Add(local),
						Kind:  desc.BlockObject,
						Data:  data,
					})
				}

				out := cellWriter{g: g, offset: mgl32.Vec3{float32(x), float32(y), float32(z)}}
				switch {
				case desc.FullBlock:
					emitCube(out, view, reg, desc, data, local)
				case desc.Mesh != nil:
					desc.Mesh.EmitMesh(data, cellNeighbors{view: view, local: local}, out)
				}

				if cell := desc.Boxes(data); len(cell) > 0 {
					offset := mgl64.Vec3{float64(x), float64(y), float64(z)}
					for _, b := range cell {
						boxes = append(boxes, b.Offset(offset))
					}
					g.Solids++
				}
			}
		}
	}

	g.Shape = physics.NewCompoundShape(boxes)
	return g
}

// emitCube рисует видимые грани полного блока
func emitCube(out cellWriter, view *chunkView, reg *block.Registry, desc *block.Descriptor, data block.BlockData, local vec.Vec3) {
	unit := physics.UnitBox()
	for _, face := range vec.Faces {
		p := local.Side(face)
		neighbor := view.at(p.X, p.Y, p.Z)

		var neighborDesc *block.Descriptor
		if !neighbor.IsAir() {
			neighborDesc = reg.MustGet(neighbor.ID)
		}
		if !desc.IsFaceVisible(data, neighbor, neighborDesc, face) {
			continue
		}
		out.Quad(desc.Material, block.BoxFace(unit, face), block.FaceNormal(face), desc.Texture(face))
	}
}
