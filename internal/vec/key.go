package vec

import (
	"fmt"
	"strconv"
	"strings"
)

// Key возвращает текстовый ключ вида "x:y:z"
func (v Vec3) Key() string {
	return strconv.Itoa(v.X) + ":" + strconv.Itoa(v.Y) + ":" + strconv.Itoa(v.Z)
}

// String реализует fmt.Stringer
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// ParseKey разбирает ключ вида "x:y:z"
func ParseKey(s string) (Vec3, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("vec: неверный ключ %q", s)
	}
	var coords [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Vec3{}, fmt.Errorf("vec: неверный ключ %q: %w", s, err)
		}
		coords[i] = n
	}
	return Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
