package physics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB представляет выровненный по осям параллелепипед
type AABB struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// NewAABB создаёт коробку, упорядочивая углы по каждой оси
func NewAABB(a, b mgl64.Vec3) AABB {
	var box AABB
	for i := 0; i < 3; i++ {
		box.Min[i] = min(a[i], b[i])
		box.Max[i] = max(a[i], b[i])
	}
	return box
}

// UnitBox возвращает коробку полного блока в локальных координатах [0,1]^3
func UnitBox() AABB {
	return AABB{Max: mgl64.Vec3{1, 1, 1}}
}

// Offset сдвигает коробку на вектор
func (a AABB) Offset(v mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(v), Max: a.Max.Add(v)}
}

// Volume возвращает объём коробки
func (a AABB) Volume() float64 {
	d := a.Max.Sub(a.Min)
	return d[0] * d[1] * d[2]
}

// Union возвращает минимальную коробку, содержащую обе
func (a AABB) Union(b AABB) AABB {
	var out AABB
	for i := 0; i < 3; i++ {
		out.Min[i] = min(a.Min[i], b.Min[i])
		out.Max[i] = max(a.Max[i], b.Max[i])
	}
	return out
}

// Intersects проверяет пересечение двух коробок (касание гранями не считается)
func (a AABB) Intersects(b AABB) bool {
	return a.Min[0] < b.Max[0] && a.Max[0] > b.Min[0] &&
		a.Min[1] < b.Max[1] && a.Max[1] > b.Min[1] &&
		a.Min[2] < b.Max[2] && a.Max[2] > b.Min[2]
}

// Contains проверяет, находится ли точка внутри коробки
func (a AABB) Contains(p mgl64.Vec3) bool {
	return p[0] >= a.Min[0] && p[0] < a.Max[0] &&
		p[1] >= a.Min[1] && p[1] < a.Max[1] &&
		p[2] >= a.Min[2] && p[2] < a.Max[2]
}

// CompoundShape - агрегированная форма коллизии чанка для внешнего коллайдера
type CompoundShape struct {
	Boxes  []AABB `json:"boxes"`
	Bounds AABB   `json:"bounds"`
}

// NewCompoundShape собирает форму из коробок, предварительно объединяя соседние
func NewCompoundShape(boxes []AABB) CompoundShape {
	merged := MergeBoxes(boxes)
	shape := CompoundShape{Boxes: merged}
	for i, b := range merged {
		if i == 0 {
			shape.Bounds = b
			continue
		}
		shape.Bounds = shape.Bounds.Union(b)
	}
	return shape
}

// Empty сообщает, что в форме нет коробок
func (s CompoundShape) Empty() bool {
	return len(s.Boxes) == 0
}

// Collides проверяет пересечение пробной коробки с формой
func (s CompoundShape) Collides(probe AABB) bool {
	if s.Empty() || !s.Bounds.Intersects(probe) {
		return false
	}
	for _, b := range s.Boxes {
		if b.Intersects(probe) {
			return true
		}
	}
	return false
}

// MergeBoxes жадно склеивает коробки, которые касаются вдоль одной оси и
// совпадают по сечению двух других. Проход выполняется по X, затем Y, затем Z.
// Суммарный объём сохраняется, число коробок не растёт.
func MergeBoxes(boxes []AABB) []AABB {
	if len(boxes) < 2 {
		return append([]AABB(nil), boxes...)
	}

	out := append([]AABB(nil), boxes...)
	for axis := 0; axis < 3; axis++ {
		out = mergeAlong(out, axis)
	}
	return out
}

func mergeAlong(boxes []AABB, axis int) []AABB {
	u, v := (axis+1)%3, (axis+2)%3

	sort.Slice(boxes, func(i, j int) bool {
		a, b := boxes[i], boxes[j]
		if a.Min[u] != b.Min[u] {
			return a.Min[u] < b.Min[u]
		}
		if a.Max[u] != b.Max[u] {
			return a.Max[u] < b.Max[u]
		}
		if a.Min[v] != b.Min[v] {
			return a.Min[v] < b.Min[v]
		}
		if a.Max[v] != b.Max[v] {
			return a.Max[v] < b.Max[v]
		}
		return a.Min[axis] < b.Min[axis]
	})

	merged := boxes[:0:0]
	for _, b := range boxes {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if sameSection(*last, b, u, v) && last.Max[axis] == b.Min[axis] {
				last.Max[axis] = b.Max[axis]
				continue
			}
		}
		merged = append(merged, b)
	}
	return merged
}

func sameSection(a, b AABB, u, v int) bool {
	return a.Min[u] == b.Min[u] && a.Max[u] == b.Max[u] &&
		a.Min[v] == b.Min[v] && a.Max[v] == b.Max[v]
}
