package replication

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/world"
)

// Broadcaster на стороне хоста рассылает полные байты каждого чанка
// с флагом сетевой рассылки. Вызывается из тика-владельца мира.
type Broadcaster struct {
	world  *world.World
	bus    eventbus.EventBus
	source string
	zstd   *codec.Zstd
	logger *logging.Logger
}

// NewBroadcaster создаёт рассыльщик. z == nil - полезная нагрузка без zstd.
func NewBroadcaster(w *world.World, bus eventbus.EventBus, source string, z *codec.Zstd) *Broadcaster {
	return &Broadcaster{
		world:  w,
		bus:    bus,
		source: source,
		zstd:   z,
		logger: logging.GetReplicationLogger(),
	}
}

// Flush публикует все чанки с флагом рассылки и снимает флаг. Чанк,
// который не удалось опубликовать, остаётся помеченным до следующего тика.
func (b *Broadcaster) Flush(ctx context.Context) (int, error) {
	sent := 0
	var errs []error

	for _, c := range b.world.DirtyForNetwork() {
		// Флаг снимаем до сериализации: запись после неё пометит чанк снова
		c.ClearNetworkDirty()
		ev := NewChunkEnvelope(b.source, c.Pos, c.Serialize(), b.zstd)

		if err := b.bus.Publish(ctx, ev); err != nil {
			c.MarkNetworkDirty()
			errs = append(errs, fmt.Errorf("чанк %v: %w", c.Pos, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		sent++
	}

	if sent > 0 {
		b.logger.Debug("Разослано чанков: %d", sent)
	}
	return sent, errors.Join(errs...)
}
