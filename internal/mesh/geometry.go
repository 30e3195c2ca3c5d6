package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Vertex - вершина буфера: позиция в координатах чанка, нормаль и индекс текстуры
type Vertex struct {
	Pos     mgl32.Vec3
	Normal  mgl32.Vec3
	Texture uint16
}

// Bucket - растущий буфер вершин одного материала
type Bucket struct {
	Material string
	Vertices []Vertex
	Indices  []uint32
}

// Empty сообщает, что в корзине нет ни одной вершины
func (b *Bucket) Empty() bool {
	return b == nil || len(b.Vertices) == 0
}

// addQuad добавляет четырёхугольник двумя треугольниками
func (b *Bucket) addQuad(corners [4]mgl32.Vec3, normal mgl32.Vec3, texture uint16) {
	base := uint32(len(b.Vertices))
	for _, c := range corners {
		b.Vertices = append(b.Vertices, Vertex{Pos: c, Normal: normal, Texture: texture})
	}
	b.Indices = append(b.Indices, base, base+1, base+2, base, base+2, base+3)
}

// ObjectCell - ячейка, которую занимает живой объект блока
type ObjectCell struct {
	Local vec.Vec3 // в чанке
	World vec.Vec3
	Kind  string
	Data  block.BlockData
}

// Geometry - неизменяемый результат вычислительной стадии для одного чанка
type Geometry struct {
	Pos     vec.Vec3
	Buckets map[string]*Bucket
	Shape   physics.CompoundShape
	Objects []ObjectCell
	Quads   int
	Solids  int // число блоков, давших коробки коллизии
}

func newGeometry(pos vec.Vec3) *Geometry {
	return &Geometry{
		Pos:     pos,
		Buckets: make(map[string]*Bucket),
	}
}

func (g *Geometry) bucket(material string) *Bucket {
	b, ok := g.Buckets[material]
	if !ok {
		b = &Bucket{Material: material}
		g.Buckets[material] = b
	}
	return b
}

// VertexCount возвращает общее число вершин по всем материалам
func (g *Geometry) VertexCount() int {
	n := 0
	for _, b := range g.Buckets {
		n += len(b.Vertices)
	}
	return n
}

// cellWriter переносит квадраты из пространства ячейки в пространство чанка
type cellWriter struct {
	g      *Geometry
	offset mgl32.Vec3
}

// Quad реализует block.MeshWriter
func (w cellWriter) Quad(material string, corners [4]mgl32.Vec3, normal mgl32.Vec3, texture uint16) {
	for i := range corners {
		corners[i] = corners[i].Add(w.offset)
	}
	w.g.bucket(material).addQuad(corners, normal, texture)
	w.g.Quads++
}
