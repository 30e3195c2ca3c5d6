package eventbus

import (
	"context"

	"github.com/annel0/blockverse/internal/logging"
)

// StartLoggingListener пишет каждое событие шины в отладочный лог репликации.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	log := logging.GetReplicationLogger()
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(_ context.Context, ev *Envelope) {
		log.Debug("[bus] %s от %s, раздел %q, %d байт", ev.EventType, ev.Source, ev.Metadata[MetaPartition], len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	log.Info("Логирование событий шины включено")
	return sub, nil
}
