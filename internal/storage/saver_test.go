package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

type failingStore struct {
	*MemoryStore
}

func (failingStore) Save(context.Context, vec.Vec3, []byte) error {
	return errors.New("диск заполнен")
}

func TestSaverRoundTripThroughWorld(t *testing.T) {
	store := NewMemoryStore()
	saver := NewSaver(store, NewMetrics(prometheus.NewRegistry()))
	reg := implementations.NewDefaultRegistry()
	ctx := context.Background()

	w := world.New(world.Options{Registry: reg, Source: saver})
	pos := vec.Vec3{X: 17, Y: 3, Z: -1}
	w.SetBlock(pos, block.Of(block.StoneBlockID))

	saved, err := saver.SaveDirty(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	// Повторно ничего не сохраняется
	saved, err = saver.SaveDirty(ctx, w)
	require.NoError(t, err)
	assert.Zero(t, saved)

	// Новый мир поднимает чанк из хранилища вместо генератора
	generated := 0
	w2 := world.New(world.Options{
		Registry: reg,
		Source:   saver,
		Generator: world.GeneratorFunc(func(vec.Vec3, *world.Chunk) {
			generated++
		}),
	})
	assert.Equal(t, block.Of(block.StoneBlockID), w2.GetBlock(pos))
	assert.Zero(t, generated)
}

func TestSaverUnloadSavesDirtyChunk(t *testing.T) {
	store := NewMemoryStore()
	saver := NewSaver(store, nil)
	w := world.New(world.Options{Registry: implementations.NewDefaultRegistry(), Source: saver})

	pos := vec.Vec3{X: 1, Y: 1, Z: 1}
	w.SetBlock(pos, block.Of(block.DirtBlockID))

	require.NoError(t, saver.Unload(context.Background(), w, vec.Vec3{}))
	assert.Zero(t, w.Len())
	assert.Equal(t, 1, store.Len())
}

func TestSaverKeepsFlagOnFailure(t *testing.T) {
	saver := NewSaver(failingStore{NewMemoryStore()}, nil)
	w := world.New(world.Options{Registry: implementations.NewDefaultRegistry()})
	w.SetBlock(vec.Vec3{}, block.Of(block.StoneBlockID))

	saved, err := saver.SaveDirty(context.Background(), w)
	assert.Error(t, err)
	assert.Zero(t, saved)

	c, ok := w.GetChunkIfLoaded(vec.Vec3{})
	require.True(t, ok)
	assert.True(t, c.IsPersistDirty(), "Чанк должен остаться в очереди сохранения")
}

func TestSaverMissReturnsFalse(t *testing.T) {
	saver := NewSaver(NewMemoryStore(), nil)
	_, ok := saver.LoadChunkData(vec.Vec3{X: 99})
	assert.False(t, ok)
}
