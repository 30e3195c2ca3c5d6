package implementations

import (
	"fmt"

	"github.com/annel0/blockverse/internal/world/block"
)

// Имена корзин рендера
const (
	MaterialOpaque      = "opaque"
	MaterialCutout      = "cutout"
	MaterialTranslucent = "translucent"
)

// Типы живых объектов блоков
const (
	ObjectDoor = "door"
	ObjectSign = "sign"
)

// Defaults возвращает дескрипторы всех встроенных блоков
func Defaults() []*block.Descriptor {
	return []*block.Descriptor{
		Air(),
		Stone(),
		Dirt(),
		Grass(),
		Sand(),
		Water(),
		Glass(),
		Leaves(),
		Slab(),
		Torch(),
		Door(),
		Sign(),
	}
}

// RegisterDefaults регистрирует все встроенные блоки в реестре
func RegisterDefaults(r *block.Registry) error {
	for _, d := range Defaults() {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("регистрация %s: %w", d.Name, err)
		}
	}
	return nil
}

// NewDefaultRegistry создаёт реестр со встроенными блоками
func NewDefaultRegistry() *block.Registry {
	r := block.NewRegistry()
	if err := RegisterDefaults(r); err != nil {
		panic(err)
	}
	return r
}
