package storage

import (
	"context"
	"errors"

	"github.com/annel0/blockverse/internal/vec"
)

// ErrNotReady - хранилище закрыто
var ErrNotReady = errors.New("storage: хранилище не готово")

// ChunkStore хранит сериализованные байты чанков (см. world.Chunk.Serialize)
type ChunkStore interface {
	Save(ctx context.Context, pos vec.Vec3, data []byte) error
	// Load возвращает false без ошибки, если чанк не сохранялся
	Load(ctx context.Context, pos vec.Vec3) ([]byte, bool, error)
	Delete(ctx context.Context, pos vec.Vec3) error
	Close() error
}

// ChunkKey возвращает ключ чанка вида "chunk:x:y:z"
func ChunkKey(pos vec.Vec3) string {
	return "chunk:" + pos.Key()
}
