package mesh

import (
	"sync"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
)

// RenderSink - сторона рендера и коллайдера. Все методы вызываются только
// со стадии фиксации (горутина тика), реализация может не быть потокобезопасной.
type RenderSink interface {
	// UpdateBucket создаёт или заменяет рендерер материала в чанке
	UpdateBucket(pos vec.Vec3, b *Bucket)
	// DestroyBucket удаляет рендерер материала целиком
	DestroyBucket(pos vec.Vec3, material string)
	// UpdateCollider заменяет форму коллизии чанка
	UpdateCollider(pos vec.Vec3, shape physics.CompoundShape)
	// DestroyCollider удаляет коллайдер чанка
	DestroyCollider(pos vec.Vec3)
}

// NopSink отбрасывает всё
type NopSink struct{}

func (NopSink) UpdateBucket(vec.Vec3, *Bucket)                 {}
func (NopSink) DestroyBucket(vec.Vec3, string)                 {}
func (NopSink) UpdateCollider(vec.Vec3, physics.CompoundShape) {}
func (NopSink) DestroyCollider(vec.Vec3)                       {}

// MemorySink хранит последнее зафиксированное состояние каждого чанка.
// Используется headless-сервером (коллизии для API) и в тестах.
type MemorySink struct {
	mu        sync.RWMutex
	buckets   map[vec.Vec3]map[string]*Bucket
	colliders map[vec.Vec3]physics.CompoundShape
	destroyed int
}

// NewMemorySink создаёт пустой MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{
		buckets:   make(map[vec.Vec3]map[string]*Bucket),
		colliders: make(map[vec.Vec3]physics.CompoundShape),
	}
}

func (s *MemorySink) UpdateBucket(pos vec.Vec3, b *Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.buckets[pos]
	if !ok {
		m = make(map[string]*Bucket)
		s.buckets[pos] = m
	}
	m[b.Material] = b
}

func (s *MemorySink) DestroyBucket(pos vec.Vec3, material string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.buckets[pos]; ok {
		delete(m, material)
		if len(m) == 0 {
			delete(s.buckets, pos)
		}
	}
	s.destroyed++
}

func (s *MemorySink) UpdateCollider(pos vec.Vec3, shape physics.CompoundShape) {
	s.mu.Lock()
	s.colliders[pos] = shape
	s.mu.Unlock()
}

func (s *MemorySink) DestroyCollider(pos vec.Vec3) {
	s.mu.Lock()
	delete(s.colliders, pos)
	s.mu.Unlock()
}

// Bucket возвращает живой буфер материала чанка
func (s *MemorySink) Bucket(pos vec.Vec3, material string) (*Bucket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[pos][material]
	return b, ok
}

// Materials возвращает число живых рендереров чанка
func (s *MemorySink) Materials(pos vec.Vec3) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[pos])
}

// Collider возвращает форму коллизии чанка
func (s *MemorySink) Collider(pos vec.Vec3) (physics.CompoundShape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shape, ok := s.colliders[pos]
	return shape, ok
}

// Destroyed возвращает число уничтоженных рендереров за всё время
func (s *MemorySink) Destroyed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}
