package storage

import (
	"context"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
)

// MemoryStore реализует ChunkStore в памяти.
// Используется в тестах и для миров без сохранения.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[vec.Vec3][]byte
	closed bool
}

// NewMemoryStore создает пустое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[vec.Vec3][]byte)}
}

// Save сохраняет копию байтов чанка
func (s *MemoryStore) Save(ctx context.Context, pos vec.Vec3, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotReady
	}
	s.data[pos] = append([]byte(nil), data...)
	return nil
}

// Load возвращает копию байтов чанка
func (s *MemoryStore) Load(ctx context.Context, pos vec.Vec3) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrNotReady
	}
	data, ok := s.data[pos]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Delete удаляет чанк
func (s *MemoryStore) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, pos)
	return nil
}

// Close помечает хранилище закрытым
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len возвращает число сохранённых чанков
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
