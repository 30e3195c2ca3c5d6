package replication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

func newWorld() *world.World {
	return world.New(world.Options{Registry: implementations.NewDefaultRegistry()})
}

func TestChunkEnvelopeRoundTrip(t *testing.T) {
	z := codec.MustZstd()
	defer z.Close()

	c := world.NewChunk(vec.Vec3{X: -2, Y: 1, Z: 7})
	c.Set(3, 3, 3, block.Of(block.StoneBlockID))
	data := c.Serialize()

	for _, zz := range []*codec.Zstd{nil, z} {
		ev := NewChunkEnvelope("host", c.Pos, data, zz)
		pos, out, err := DecodeChunkEnvelope(ev, z)
		require.NoError(t, err)
		assert.Equal(t, c.Pos, pos)
		assert.Equal(t, data, out)
	}
}

func TestDecodeRejectsBadEnvelope(t *testing.T) {
	ev := eventbus.NewEnvelope("host", EventChunkData, []byte{1})
	ev.Metadata[MetaChunk] = "1:2"
	_, _, err := DecodeChunkEnvelope(ev, nil)
	assert.ErrorIs(t, err, ErrBadPayload)

	ev.Metadata[MetaChunk] = "1:2:3"
	ev.Metadata[MetaEncoding] = EncodingZstd
	_, _, err = DecodeChunkEnvelope(ev, codec.MustZstd())
	assert.ErrorIs(t, err, ErrBadPayload, "Не zstd-данные должны отбрасываться")
}

func TestBroadcastAndReceive(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	z := codec.MustZstd()
	defer z.Close()

	host := newWorld()
	client := newWorld()

	recv := NewReceiver(client, z, 16)
	require.NoError(t, recv.Start(context.Background(), bus))
	defer recv.Stop()

	host.SetBlock(vec.Vec3{X: 1, Y: 2, Z: 3}, block.Of(block.GlassBlockID))
	host.SetBlock(vec.Vec3{X: -20, Y: 2, Z: 3}, block.Of(block.DirtBlockID))

	b := NewBroadcaster(host, bus, "host", z)
	sent, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Empty(t, host.DirtyForNetwork(), "После рассылки флаги сняты")

	applied := 0
	require.Eventually(t, func() bool {
		applied += len(recv.ApplyPending())
		return applied == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, block.Of(block.GlassBlockID), client.GetBlock(vec.Vec3{X: 1, Y: 2, Z: 3}))
	assert.Equal(t, block.Of(block.DirtBlockID), client.GetBlock(vec.Vec3{X: -20, Y: 2, Z: 3}))

	sent, err = b.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "Чистые чанки повторно не рассылаются")
}

func TestReceiverDoesNotGenerate(t *testing.T) {
	generated := 0
	client := world.New(world.Options{
		Registry: implementations.NewDefaultRegistry(),
		Generator: world.GeneratorFunc(func(_ vec.Vec3, c *world.Chunk) {
			generated++
			c.Fill(block.Of(block.DirtBlockID))
		}),
	})

	c := world.NewChunk(vec.Vec3{X: 2})
	c.Set(0, 0, 0, block.Of(block.StoneBlockID))
	recv := NewReceiver(client, nil, 4)
	require.True(t, recv.Apply(NewChunkEnvelope("host", c.Pos, c.Serialize(), nil)))

	assert.Zero(t, generated)
	got, ok := client.GetChunkIfLoaded(c.Pos)
	require.True(t, ok)
	assert.Equal(t, 1, got.CountNonAir())
	assert.False(t, got.IsNetworkDirty(), "Реплика не рассылает чанки дальше")
	assert.False(t, got.IsPersistDirty())
}

func TestReceiverDecodesZstdWithoutOwnCompression(t *testing.T) {
	z := codec.MustZstd()
	defer z.Close()

	c := world.NewChunk(vec.Vec3{Y: -1})
	c.Fill(block.Of(block.StoneBlockID))

	client := newWorld()
	recv := NewReceiver(client, nil, 4)
	require.True(t, recv.Apply(NewChunkEnvelope("host", c.Pos, c.Serialize(), z)))
	assert.Equal(t, block.Of(block.StoneBlockID), client.GetBlock(vec.Vec3{X: 5, Y: -3, Z: 9}))
}

func TestBroadcastPersistedChunk(t *testing.T) {
	saved := world.NewChunk(vec.Vec3{})
	saved.Set(4, 4, 4, block.Of(block.GlassBlockID))

	store := storage.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), saved.Pos, saved.Serialize()))
	saver := storage.NewSaver(store, nil)

	host := world.New(world.Options{Registry: implementations.NewDefaultRegistry(), Source: saver})
	host.GetChunk(vec.Vec3{})

	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	client := newWorld()
	recv := NewReceiver(client, nil, 16)
	require.NoError(t, recv.Start(context.Background(), bus))
	defer recv.Stop()

	sent, err := NewBroadcaster(host, bus, "host", nil).Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "Чанк из хранилища рассылается без правок")

	require.Eventually(t, func() bool {
		return len(recv.ApplyPending()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, block.Of(block.GlassBlockID), client.GetBlock(vec.Vec3{X: 4, Y: 4, Z: 4}))
}

func TestReceiverKeepsStateOnMalformed(t *testing.T) {
	client := newWorld()
	client.SetBlock(vec.Vec3{}, block.Of(block.StoneBlockID))
	recv := NewReceiver(client, nil, 4)

	ev := NewChunkEnvelope("host", vec.Vec3{}, []byte{5, 1, 0}, nil)
	assert.False(t, recv.Apply(ev))
	assert.Equal(t, block.Of(block.StoneBlockID), client.GetBlock(vec.Vec3{}))

	applied, rejected := recv.Stats()
	assert.Equal(t, uint64(0), applied)
	assert.Equal(t, uint64(1), rejected)
}

// failingBus отклоняет все публикации
type failingBus struct{ eventbus.EventBus }

func (failingBus) Publish(context.Context, *eventbus.Envelope) error {
	return errors.New("шина недоступна")
}

func TestFlushFailureKeepsDirty(t *testing.T) {
	host := newWorld()
	host.SetBlock(vec.Vec3{}, block.Of(block.StoneBlockID))

	b := NewBroadcaster(host, failingBus{}, "host", nil)
	sent, err := b.Flush(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, host.DirtyForNetwork(), 1, "Неотправленный чанк остаётся помеченным")
}
