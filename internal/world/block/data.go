package block

import "fmt"

// BlockID представляет идентификатор типа блока
type BlockID uint8

// MaxBlockID - последний допустимый ID (один байт на ID)
const MaxBlockID = 255

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0 - зарезервирован под пустоту
	StoneBlockID                // 1
	DirtBlockID                 // 2
	GrassBlockID                // 3
	SandBlockID                 // 4
	WaterBlockID                // 5

	// Прозрачные и декоративные блоки (начиная с 64)
	GlassBlockID  BlockID = 64
	LeavesBlockID BlockID = 65
	SlabBlockID   BlockID = 66
	TorchBlockID  BlockID = 67

	// Интерактивные блоки с отдельным объектом (начиная с 128)
	DoorBlockID BlockID = 128
	SignBlockID BlockID = 129
)

// BlockData - значение ячейки: ID типа и вспомогательный байт состояния
// (ориентация, вариант). Aux интерпретирует только дескриптор ID.
type BlockData struct {
	ID  BlockID `json:"id"`
	Aux uint8   `json:"aux"`
}

// Air - пустая ячейка
var Air = BlockData{}

// New создаёт BlockData с указанным состоянием
func New(id BlockID, aux uint8) BlockData {
	return BlockData{ID: id, Aux: aux}
}

// Of создаёт BlockData с нулевым состоянием
func Of(id BlockID) BlockData {
	return BlockData{ID: id}
}

// IsAir сообщает, пуста ли ячейка
func (b BlockData) IsAir() bool {
	return b.ID == AirBlockID
}

// String возвращает отладочное представление
func (b BlockData) String() string {
	return fmt.Sprintf("%d:%d", b.ID, b.Aux)
}
