package replication

import (
	"context"
	"sync/atomic"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// Receiver на стороне без полномочий принимает байты чанков и применяет
// их через Chunk.Deserialize. Конверты копятся в очереди, применяет их
// ApplyPending из тика-владельца мира. Генератор и источник мира реплики
// не вызываются: чанк заводится пустым и целиком заменяется байтами хоста.
type Receiver struct {
	world   *world.World
	zstd    *codec.Zstd
	pending chan *eventbus.Envelope
	sub     eventbus.Subscription
	logger  *logging.Logger

	applied  atomic.Uint64
	rejected atomic.Uint64
}

// NewReceiver создаёт приёмник с очередью заданной ёмкости.
// z == nil - приёмник заводит свой декодер: кодировку выбирает хост.
func NewReceiver(w *world.World, z *codec.Zstd, capacity int) *Receiver {
	if capacity <= 0 {
		capacity = 1024
	}
	if z == nil {
		z = codec.MustZstd()
	}
	return &Receiver{
		world:   w,
		zstd:    z,
		pending: make(chan *eventbus.Envelope, capacity),
		logger:  logging.GetReplicationLogger(),
	}
}

// Start подписывается на события ChunkData
func (r *Receiver) Start(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: []string{EventChunkData}, Replay: true}, func(ctx context.Context, ev *eventbus.Envelope) {
		select {
		case r.pending <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

// Stop отписывается от шины
func (r *Receiver) Stop() {
	if r.sub != nil {
		r.sub.Unsubscribe()
	}
}

// ApplyPending применяет накопившиеся конверты без ожидания новых и
// возвращает координаты обновлённых чанков
func (r *Receiver) ApplyPending() []vec.Vec3 {
	var out []vec.Vec3
	for {
		select {
		case ev := <-r.pending:
			if pos, ok := r.apply(ev); ok {
				out = append(out, pos)
			}
		default:
			return out
		}
	}
}

// Apply применяет один конверт. Битые данные логируются и отбрасываются,
// чанк сохраняет прежнее состояние.
func (r *Receiver) Apply(ev *eventbus.Envelope) bool {
	_, ok := r.apply(ev)
	return ok
}

func (r *Receiver) apply(ev *eventbus.Envelope) (vec.Vec3, bool) {
	pos, data, err := DecodeChunkEnvelope(ev, r.zstd)
	if err != nil {
		r.rejected.Add(1)
		logging.LogProtocolError(r.logger, ev.Source, err, ev.Payload)
		return pos, false
	}

	if !r.world.EnsureChunk(pos).Deserialize(data) {
		r.rejected.Add(1)
		return pos, false
	}
	r.applied.Add(1)
	return pos, true
}

// Stats возвращает число применённых и отброшенных конвертов
func (r *Receiver) Stats() (applied, rejected uint64) {
	return r.applied.Load(), r.rejected.Load()
}
