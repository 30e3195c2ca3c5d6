package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/annel0/blockverse/internal/logging"
)

const (
	defaultStream  = "BLOCKVERSE"
	subjectPrefix  = "blockverse"
	emptyPartition = "_"
)

// JetStreamBus реализует EventBus поверх NATS JetStream.
//
// Subject события: blockverse.<type>.<partition>. Стрим хранит только
// последнее сообщение на subject, поэтому для ChunkData он работает как
// снимок мира: новая реплика с Filter.Replay получает текущие байты каждого
// чанка, затем живой поток.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
// url: nats://127.0.0.1:4222, stream: "BLOCKVERSE", retention 0 - без срока.
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = defaultStream
	}

	nc, err := nats.Connect(url,
		nats.Name("blockverse"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.GetReplicationLogger().Warn("NATS отключён: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.GetReplicationLogger().Info("NATS переподключён к %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:              stream,
		Subjects:          []string{subjectPrefix + ".>"},
		Retention:         nats.LimitsPolicy,
		MaxAge:            retention,
		MaxMsgsPerSubject: 1,
		Discard:           nats.DiscardOld,
		Storage:           nats.FileStorage,
	}
	if _, err = js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(cfg)
	} else {
		_, err = js.UpdateStream(cfg)
	}
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("stream %s: %w", stream, err)
	}

	logging.GetReplicationLogger().Info("JetStreamBus подключён: %s, стрим %s", url, stream)
	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

// subjectToken приводит строку к допустимому токену subject
func subjectToken(s string) string {
	if s == "" {
		return emptyPartition
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}

// Subject возвращает subject, в который публикуется событие
func Subject(ev *Envelope) string {
	return subjectPrefix + "." + subjectToken(ev.EventType) + "." + subjectToken(ev.Metadata[MetaPartition])
}

// filterSubject сужает подписку на сервере, если тип один
func filterSubject(f Filter) string {
	if len(f.Types) == 1 {
		return subjectPrefix + "." + subjectToken(f.Types[0]) + ".>"
	}
	return subjectPrefix + ".>"
}

// Publish сериализует Envelope в JSON и публикует в его subject.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err = jb.js.Publish(Subject(ev), data, nats.Context(ctx)); err != nil {
		jb.dropped.Add(1)
		return err
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт эфемерного consumer'а. Без Filter.Replay он получает
// только новые события.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	deliver := nats.DeliverNew()
	if f.Replay {
		deliver = nats.DeliverLastPerSubject()
	}

	natSub, err := jb.js.Subscribe(filterSubject(f), func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			jb.dropped.Add(1)
			logging.LogProtocolError(logging.GetReplicationLogger(), msg.Subject, err, msg.Data)
			_ = msg.Term()
			return
		}
		if matchFilter(&ev, f) {
			h(ctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}, nats.BindStream(jb.stream), nats.ManualAck(), deliver, nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
