package implementations

import "github.com/annel0/blockverse/internal/world/block"

// Sign - табличка; текст и модель живут в объекте блока
func Sign() *block.Descriptor {
	return &block.Descriptor{
		ID:          block.SignBlockID,
		Name:        "sign",
		Material:    MaterialCutout,
		Drops:       []block.Drop{{Item: "sign", Count: 1, Chance: 1}},
		BlockObject: ObjectSign,
	}
}
