package block

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateID возвращается при повторной регистрации того же ID
	ErrDuplicateID = errors.New("block: duplicate block id")
	// ErrUnknownID возвращается при запросе незарегистрированного ID
	ErrUnknownID = errors.New("block: unknown block id")
)

// Registry хранит дескрипторы блоков, по одному слоту на ID (0..255).
// Таблица заполняется один раз при старте (или целиком заменяется при hot-reload)
// и после этого только читается.
type Registry struct {
	mu          sync.RWMutex
	descriptors [MaxBlockID + 1]*Descriptor
	count       int
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{}
}

// Register добавляет дескриптор. Повторный ID - ошибка.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("block: nil descriptor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.descriptors[d.ID]; existing != nil {
		return fmt.Errorf("%w: %d (%s уже занят %s)", ErrDuplicateID, d.ID, d.Name, existing.Name)
	}
	r.descriptors[d.ID] = d
	r.count++
	return nil
}

// MustRegister регистрирует дескриптор и паникует при коллизии ID
func (r *Registry) MustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Get возвращает дескриптор для указанного ID
func (r *Registry) Get(id BlockID) (*Descriptor, bool) {
	r.mu.RLock()
	d := r.descriptors[id]
	r.mu.RUnlock()
	return d, d != nil
}

// MustGet возвращает дескриптор или паникует: незарегистрированный ID в данных
// означает ошибку в логике, а не восстановимое состояние.
func (r *Registry) MustGet(id BlockID) *Descriptor {
	d, ok := r.Get(id)
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrUnknownID, id))
	}
	return d
}

// IsRegistered проверяет, является ли ID допустимым идентификатором блока
func (r *Registry) IsRegistered(id BlockID) bool {
	_, ok := r.Get(id)
	return ok
}

// Len возвращает количество зарегистрированных дескрипторов
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// All возвращает все дескрипторы, упорядоченные по ID
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, r.count)
	for _, d := range r.descriptors {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// Reload атомарно заменяет всю таблицу новым списком деклараций.
// При коллизии ID внутри списка таблица не меняется.
func (r *Registry) Reload(decls []*Descriptor) error {
	var table [MaxBlockID + 1]*Descriptor
	for _, d := range decls {
		if d == nil {
			continue
		}
		if existing := table[d.ID]; existing != nil {
			return fmt.Errorf("%w: %d (%s и %s)", ErrDuplicateID, d.ID, existing.Name, d.Name)
		}
		table[d.ID] = d
	}

	r.mu.Lock()
	r.descriptors = table
	r.count = 0
	for _, d := range table {
		if d != nil {
			r.count++
		}
	}
	r.mu.Unlock()
	return nil
}

// Names возвращает карту имя -> ID (для отладочных API и конфигурации)
func (r *Registry) Names() map[string]BlockID {
	all := r.All()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	out := make(map[string]BlockID, len(all))
	for _, d := range all {
		out[d.Name] = d.ID
	}
	return out
}
