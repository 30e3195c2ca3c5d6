package block

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
)

// BoxFace возвращает 4 угла грани коробки против часовой стрелки,
// если смотреть снаружи (нормаль грани направлена на наблюдателя).
func BoxFace(box physics.AABB, face vec.Face) [4]mgl32.Vec3 {
	x0, y0, z0 := float32(box.Min[0]), float32(box.Min[1]), float32(box.Min[2])
	x1, y1, z1 := float32(box.Max[0]), float32(box.Max[1]), float32(box.Max[2])

	switch face {
	case vec.FaceWest:
		return [4]mgl32.Vec3{{x0, y0, z0}, {x0, y0, z1}, {x0, y1, z1}, {x0, y1, z0}}
	case vec.FaceEast:
		return [4]mgl32.Vec3{{x1, y0, z1}, {x1, y0, z0}, {x1, y1, z0}, {x1, y1, z1}}
	case vec.FaceDown:
		return [4]mgl32.Vec3{{x0, y0, z0}, {x1, y0, z0}, {x1, y0, z1}, {x0, y0, z1}}
	case vec.FaceUp:
		return [4]mgl32.Vec3{{x0, y1, z1}, {x1, y1, z1}, {x1, y1, z0}, {x0, y1, z0}}
	case vec.FaceNorth:
		return [4]mgl32.Vec3{{x1, y0, z0}, {x0, y0, z0}, {x0, y1, z0}, {x1, y1, z0}}
	default:
		return [4]mgl32.Vec3{{x0, y0, z1}, {x1, y0, z1}, {x1, y1, z1}, {x0, y1, z1}}
	}
}

// FaceNormal возвращает нормаль грани в формате вершинного буфера
func FaceNormal(face vec.Face) mgl32.Vec3 {
	n := face.Normal()
	return mgl32.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}
}
