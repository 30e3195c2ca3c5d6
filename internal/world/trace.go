package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/vec"
)

// MaxTraceSteps - предел пересечений границ блоков за одну трассировку
const MaxTraceSteps = 100

// IgnoreFilter решает, пропускает ли луч блок (true - лететь дальше)
type IgnoreFilter func(pos vec.Vec3) bool

// TraceResult - итог трассировки луча
type TraceResult struct {
	Hit      bool
	Block    vec.Vec3   // блок попадания
	Face     vec.Face   // грань, в которую вошёл луч (противоположна направлению движения)
	Distance float64    // путь до точки входа
	End      mgl64.Vec3 // точка попадания или место остановки
	Steps    int
}

// Trace идёт лучом от start по направлению dir (ожидается нормализованным)
// по сетке блоков методом DDA. Стартовый блок не проверяется; после каждого
// пересечения границы новый блок проверяется фильтром. Поиск прекращается
// на MaxTraceSteps шагах, при превышении maxDistance и при нулевом шаге
// (луч уже лежит на границе и идёт внутрь неё).
func Trace(start, dir mgl64.Vec3, maxDistance float64, ignore IgnoreFilter) TraceResult {
	pos := start
	cell := [3]int{
		int(math.Floor(start[0])),
		int(math.Floor(start[1])),
		int(math.Floor(start[2])),
	}
	traveled := 0.0

	for step := 1; step <= MaxTraceSteps; step++ {
		axis := -1
		best := math.Inf(1)
		for a := 0; a < 3; a++ {
			s := axisStride(pos[a], cell[a], dir[a])
			if s < best {
				best = s
				axis = a
			}
		}

		// Нулевое направление или вырожденный нулевой шаг
		if axis < 0 || best <= 0 {
			return TraceResult{End: pos, Distance: traveled, Steps: step - 1}
		}

		if traveled+best > maxDistance {
			end := start.Add(dir.Mul(maxDistance))
			return TraceResult{End: end, Distance: maxDistance, Steps: step - 1}
		}

		traveled += best
		pos = pos.Add(dir.Mul(best))

		positive := dir[axis] > 0
		if positive {
			cell[axis]++
			pos[axis] = float64(cell[axis])
		} else {
			cell[axis]--
			pos[axis] = float64(cell[axis] + 1)
		}

		hit := vec.Vec3{X: cell[0], Y: cell[1], Z: cell[2]}
		if ignore != nil && ignore(hit) {
			continue
		}
		return TraceResult{
			Hit:      true,
			Block:    hit,
			Face:     vec.FaceFromAxis(axis, !positive),
			Distance: traveled,
			End:      pos,
			Steps:    step,
		}
	}

	return TraceResult{End: pos, Distance: traveled, Steps: MaxTraceSteps}
}

// axisStride - доля направления до ближайшей границы ячейки по оси.
// Нулевая компонента направления эту ось никогда не пересекает.
func axisStride(p float64, cell int, d float64) float64 {
	frac := p - float64(cell)
	switch {
	case d > 0:
		return (1 - frac) / d
	case d < 0:
		return frac / -d
	default:
		return math.Inf(1)
	}
}

// Trace - трассировка по блокам мира. nil-фильтр пропускает несплошные блоки.
func (w *World) Trace(start, dir mgl64.Vec3, maxDistance float64, ignore IgnoreFilter) TraceResult {
	if ignore == nil {
		ignore = IgnoreNonSolid(w)
	}
	return Trace(start, dir, maxDistance, ignore)
}

// IgnoreNonSolid пропускает всё, что не является сплошным блоком.
// Незагруженные чанки считаются воздухом.
func IgnoreNonSolid(w *World) IgnoreFilter {
	return func(pos vec.Vec3) bool {
		return !w.IsSolid(pos)
	}
}

// IgnoreAir пропускает только воздух (попадает в воду, стекло и т.п.)
func IgnoreAir(w *World) IgnoreFilter {
	return func(pos vec.Vec3) bool {
		b, ok := w.GetBlockIfLoaded(pos)
		return !ok || b.IsAir()
	}
}
