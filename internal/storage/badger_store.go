package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/vec"
)

// BadgerStore хранит чанки в BadgerDB. Значения дополнительно сжаты zstd.
type BadgerStore struct {
	db      *badger.DB
	dbPath  string
	zstd    *codec.Zstd
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerStore открывает хранилище в каталоге dataPath/world.
// Пустой dataPath - база в памяти (для тестов и одноразовых миров).
func NewBadgerStore(dataPath string, z *codec.Zstd) (*BadgerStore, error) {
	var opts badger.Options
	dbPath := ""
	if dataPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath = filepath.Join(dataPath, "world")
		opts = badger.DefaultOptions(dbPath)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	if z == nil {
		z = codec.MustZstd()
	}
	return &BadgerStore{
		db:      db,
		dbPath:  dbPath,
		zstd:    z,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (bs *BadgerStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}

	bs.isReady = false
	return bs.db.Close()
}

// Save сохраняет байты чанка
func (bs *BadgerStore) Save(ctx context.Context, pos vec.Vec3, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrNotReady
	}

	value := bs.zstd.Compress(data)
	err := bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ChunkKey(pos)), value)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load читает байты чанка
func (bs *BadgerStore) Load(ctx context.Context, pos vec.Vec3) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, false, ErrNotReady
	}

	var value []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ChunkKey(pos)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	data, err := bs.zstd.Decompress(value)
	if err != nil {
		return nil, false, fmt.Errorf("чанк %v повреждён: %w", pos, err)
	}
	return data, true, nil
}

// Delete удаляет чанк
func (bs *BadgerStore) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrNotReady
	}
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(ChunkKey(pos)))
	})
}

// Positions возвращает координаты всех сохранённых чанков
func (bs *BadgerStore) Positions() ([]vec.Vec3, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrNotReady
	}

	var out []vec.Vec3
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("chunk:")

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			pos, err := vec.ParseKey(strings.TrimPrefix(key, "chunk:"))
			if err != nil {
				continue
			}
			out = append(out, pos)
		}
		return nil
	})
	return out, err
}
