package implementations

import "github.com/annel0/blockverse/internal/world/block"

// Air - пустая ячейка: не рисуется, не сталкивается
func Air() *block.Descriptor {
	return &block.Descriptor{
		ID:   block.AirBlockID,
		Name: "air",
	}
}
