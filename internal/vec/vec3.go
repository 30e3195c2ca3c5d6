package vec

import "math"

// Размер чанка по каждой оси (в блоках)
const (
	ChunkSize  = 16
	ChunkShift = 4
	ChunkMask  = ChunkSize - 1
)

// Vec3 представляет трехмерный вектор с целочисленными координатами
// (позиция блока в мире, позиция чанка в сетке чанков или локальная позиция в чанке).
type Vec3 struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// FloorDiv делит с округлением вниз, в отличие от встроенного деления,
// которое округляет к нулю (-1/16 == 0, а FloorDiv(-1, 16) == -1).
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod возвращает неотрицательный остаток: ((a % b) + b) % b
func Mod(a, b int) int {
	return ((a % b) + b) % b
}

// ToChunkCoords преобразует мировые координаты блока в координаты чанка
func (v Vec3) ToChunkCoords() Vec3 {
	return Vec3{
		X: FloorDiv(v.X, ChunkSize),
		Y: FloorDiv(v.Y, ChunkSize),
		Z: FloorDiv(v.Z, ChunkSize),
	}
}

// LocalInChunk возвращает локальные координаты внутри чанка, всегда в [0,16)
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{
		X: Mod(v.X, ChunkSize),
		Y: Mod(v.Y, ChunkSize),
		Z: Mod(v.Z, ChunkSize),
	}
}

// FromChunkLocal собирает мировую позицию из координат чанка и локальной позиции
func FromChunkLocal(chunk, local Vec3) Vec3 {
	return Vec3{
		X: chunk.X*ChunkSize + local.X,
		Y: chunk.Y*ChunkSize + local.Y,
		Z: chunk.Z*ChunkSize + local.Z,
	}
}

// InChunkBounds проверяет, что локальная позиция лежит в [0,16) по всем осям
func (v Vec3) InChunkBounds() bool {
	return v.X >= 0 && v.X < ChunkSize &&
		v.Y >= 0 && v.Y < ChunkSize &&
		v.Z >= 0 && v.Z < ChunkSize
}

// DistanceSquared возвращает квадрат евклидова расстояния до другого вектора
func (v Vec3) DistanceSquared(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// DistanceTo возвращает евклидово расстояние до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	return math.Sqrt(float64(v.DistanceSquared(other)))
}

// ChebyshevDistance возвращает расстояние по максимальной оси
func (v Vec3) ChebyshevDistance(other Vec3) int {
	return max(abs(v.X-other.X), abs(v.Y-other.Y), abs(v.Z-other.Z))
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Side возвращает соседнюю позицию через грань face
func (v Vec3) Side(face Face) Vec3 {
	return v.Add(face.Normal())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
