package block

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
)

// MeshWriter принимает геометрию, которую дескриптор генерирует для нестандартных
// блоков. Координаты вершин локальные: [0,1]^3 относительно угла ячейки.
type MeshWriter interface {
	Quad(material string, corners [4]mgl32.Vec3, normal mgl32.Vec3, texture uint16)
}

// MeshEmitter генерирует геометрию блока, который не является полным кубом
type MeshEmitter interface {
	EmitMesh(data BlockData, neighbors NeighborView, out MeshWriter)
}

// NeighborView позволяет эмиттеру посмотреть на соседей (например, чтобы не рисовать
// грань плиты, прижатую к полному блоку)
type NeighborView interface {
	Neighbor(face vec.Face) BlockData
}

// CollisionProvider возвращает коробки коллизии блока в локальных координатах
type CollisionProvider interface {
	CollisionBoxes(data BlockData) []physics.AABB
}

// FaceVisibility решает, видна ли грань face блока self, если за ней лежит neighbor.
// neighborDesc может быть nil только для незарегистрированного соседа.
type FaceVisibility func(self BlockData, selfDesc *Descriptor, neighbor BlockData, neighborDesc *Descriptor, face vec.Face) bool

// Drop описывает одну строку таблицы выпадения
type Drop struct {
	Item   string  `json:"item" yaml:"item"`
	Count  int     `json:"count" yaml:"count"`
	Chance float64 `json:"chance" yaml:"chance"`
}

// Descriptor - общее для всех экземпляров описание типа блока.
// Неизменяем после загрузки; состояние конкретной ячейки живет в BlockData.Aux.
type Descriptor struct {
	ID        BlockID
	Name      string
	Solid     bool // участвует в коллизии и трассировке "сквозь несплошные"
	FullBlock bool // полный куб 1x1x1, рисуется гранями
	Opaque    bool // закрывает соседние грани

	// Material - имя корзины рендера (один буфер вершин на материал в чанке)
	Material string
	// Textures - индекс текстуры для каждой грани, индексируется vec.Face
	Textures [vec.FaceCount]uint16

	FaceVisible FaceVisibility    // nil - DefaultFaceVisible
	Mesh        MeshEmitter       // для неполных блоков
	Collision   CollisionProvider // nil - полный куб для Solid-блоков
	Drops       []Drop

	// BlockObject - тип живого объекта, занимающего ячейку (дверь, табличка); пусто - нет
	BlockObject string
}

// DefaultFaceVisible: грань видна, если сосед пустой или не закрывает её полностью.
// Два одинаковых прозрачных блока (стекло к стеклу, вода к воде) грань между собой не рисуют.
func DefaultFaceVisible(self BlockData, selfDesc *Descriptor, neighbor BlockData, neighborDesc *Descriptor, face vec.Face) bool {
	if neighbor.IsAir() || neighborDesc == nil {
		return true
	}
	if neighborDesc.Opaque && neighborDesc.FullBlock {
		return false
	}
	if neighbor.ID == self.ID && selfDesc != nil && selfDesc.FullBlock && neighborDesc.FullBlock {
		return false
	}
	return true
}

// IsFaceVisible применяет предикат видимости дескриптора
func (d *Descriptor) IsFaceVisible(self, neighbor BlockData, neighborDesc *Descriptor, face vec.Face) bool {
	if d.FaceVisible != nil {
		return d.FaceVisible(self, d, neighbor, neighborDesc, face)
	}
	return DefaultFaceVisible(self, d, neighbor, neighborDesc, face)
}

// Boxes возвращает коробки коллизии для конкретного состояния блока
func (d *Descriptor) Boxes(data BlockData) []physics.AABB {
	if d.Collision != nil {
		return d.Collision.CollisionBoxes(data)
	}
	if d.Solid {
		return []physics.AABB{physics.UnitBox()}
	}
	return nil
}

// HasBlockObject сообщает, требует ли блок отдельного живого объекта
func (d *Descriptor) HasBlockObject() bool {
	return d.BlockObject != ""
}

// Texture возвращает индекс текстуры грани
func (d *Descriptor) Texture(face vec.Face) uint16 {
	if face >= vec.FaceCount {
		return 0
	}
	return d.Textures[face]
}

// UniformTextures заполняет все грани одним индексом
func UniformTextures(tex uint16) [vec.FaceCount]uint16 {
	var t [vec.FaceCount]uint16
	for i := range t {
		t[i] = tex
	}
	return t
}
