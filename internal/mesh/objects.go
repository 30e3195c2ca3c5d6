package mesh

import (
	"sync"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// BlockObject - живой объект, занимающий ячейку (дверь, табличка)
type BlockObject interface {
	Destroy()
}

// DataReceiver - контракт объекта, принимающего новое состояние своей ячейки
type DataReceiver interface {
	ReceiveData(data block.BlockData)
}

// ObjectFactory создаёт объекты блоков по виду из дескриптора.
// nil-результат означает, что объект для этого вида не нужен.
type ObjectFactory interface {
	NewBlockObject(kind string, pos vec.Vec3) BlockObject
}

// ObjectKinds - фабрика по таблице конструкторов
type ObjectKinds map[string]func(pos vec.Vec3) BlockObject

// NewBlockObject вызывает конструктор вида, если он зарегистрирован
func (k ObjectKinds) NewBlockObject(kind string, pos vec.Vec3) BlockObject {
	ctor, ok := k[kind]
	if !ok {
		return nil
	}
	return ctor(pos)
}

// StateObject - простой объект, который хранит последнее полученное состояние.
// Headless-сервер использует его для дверей и табличек.
type StateObject struct {
	Kind string
	Pos  vec.Vec3

	mu        sync.Mutex
	data      block.BlockData
	received  int
	destroyed bool
}

// NewStateObject создаёт объект вида kind в ячейке pos
func NewStateObject(kind string, pos vec.Vec3) *StateObject {
	return &StateObject{Kind: kind, Pos: pos}
}

// StateKinds возвращает фабрику StateObject для перечисленных видов
func StateKinds(kinds ...string) ObjectKinds {
	k := make(ObjectKinds, len(kinds))
	for _, kind := range kinds {
		kind := kind
		k[kind] = func(pos vec.Vec3) BlockObject { return NewStateObject(kind, pos) }
	}
	return k
}

// ReceiveData реализует DataReceiver
func (o *StateObject) ReceiveData(data block.BlockData) {
	o.mu.Lock()
	o.data = data
	o.received++
	o.mu.Unlock()
}

// Destroy реализует BlockObject
func (o *StateObject) Destroy() {
	o.mu.Lock()
	o.destroyed = true
	o.mu.Unlock()
}

// Data возвращает последнее полученное состояние
func (o *StateObject) Data() block.BlockData {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.data
}

// Destroyed сообщает, уничтожен ли объект
func (o *StateObject) Destroyed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.destroyed
}
