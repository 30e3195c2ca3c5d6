package vec

// Face обозначает грань блока. West/East лежат на оси X, Down/Up на Y, North/South на Z.
type Face uint8

const (
	FaceWest  Face = iota // -X
	FaceEast              // +X
	FaceDown              // -Y
	FaceUp                // +Y
	FaceNorth             // -Z
	FaceSouth             // +Z

	FaceCount // всегда последний
)

// Faces перечисляет все грани в порядке индексов
var Faces = [FaceCount]Face{FaceWest, FaceEast, FaceDown, FaceUp, FaceNorth, FaceSouth}

var faceNormals = [FaceCount]Vec3{
	FaceWest:  {X: -1},
	FaceEast:  {X: 1},
	FaceDown:  {Y: -1},
	FaceUp:    {Y: 1},
	FaceNorth: {Z: -1},
	FaceSouth: {Z: 1},
}

var faceNames = [FaceCount]string{"west", "east", "down", "up", "north", "south"}

// Normal возвращает единичный вектор, направленный наружу из грани
func (f Face) Normal() Vec3 {
	if f >= FaceCount {
		return Vec3{}
	}
	return faceNormals[f]
}

// Opposite возвращает противоположную грань
func (f Face) Opposite() Face {
	return f ^ 1
}

// Axis возвращает номер оси грани: 0 - X, 1 - Y, 2 - Z
func (f Face) Axis() int {
	return int(f) / 2
}

// Positive сообщает, смотрит ли грань в положительном направлении оси
func (f Face) Positive() bool {
	return f&1 == 1
}

// FaceFromAxis возвращает грань по оси и знаку направления
func FaceFromAxis(axis int, positive bool) Face {
	f := Face(axis * 2)
	if positive {
		f++
	}
	return f
}

// String возвращает имя грани
func (f Face) String() string {
	if f >= FaceCount {
		return "none"
	}
	return faceNames[f]
}
