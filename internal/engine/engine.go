package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/mesh"
	"github.com/annel0/blockverse/internal/replication"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/streaming"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrStopped - тик-цикл остановлен, команда не будет выполнена
var ErrStopped = errors.New("engine: остановлен")

// Options - параметры движка
type Options struct {
	World     *world.World
	Streaming streaming.Config
	Pipeline  mesh.PipelineConfig
	Sink      mesh.RenderSink    // nil - NopSink
	Factory   mesh.ObjectFactory // nil - без объектов блоков

	// Bus != nil включает репликацию: хост рассылает, реплика принимает.
	// Мир реплики не генерирует и не читает чанки сам, их присылает хост.
	Bus       eventbus.EventBus
	Source    string
	Compress  bool
	InboxSize int

	Saver        *storage.Saver // nil - без сохранения
	TickInterval time.Duration  // 0 - 50ms
	SaveInterval time.Duration  // 0 - сохранять только при остановке

	Registerer prometheus.Registerer
}

// Stats - сводка состояния для API
type Stats struct {
	Tick         uint64               `json:"tick"`
	Authority    bool                 `json:"authority"`
	LoadedChunks int                  `json:"loaded_chunks"`
	Mesh         mesh.Stats           `json:"mesh"`
	Observers    int                  `json:"observers"`
	LastTick     streaming.TickReport `json:"last_tick"`
	Broadcast    uint64               `json:"broadcast"`
	Applied      uint64               `json:"applied"`
	Rejected     uint64               `json:"rejected"`
	Saved        uint64               `json:"saved"`
}

type command struct {
	fn   func(w *world.World)
	done chan struct{}
}

// Engine - авторитетный тик: стриминг, мешинг, репликация и сохранение
// в одной горутине-владельце. Остальные горутины меняют мир только через Do.
type Engine struct {
	world     *world.World
	manager   *mesh.Manager
	pipeline  *mesh.Pipeline
	scheduler *streaming.Scheduler
	authority bool

	broadcaster *replication.Broadcaster
	receiver    *replication.Receiver
	bus         eventbus.EventBus

	saver        *storage.Saver
	tickInterval time.Duration
	saveInterval time.Duration

	commands chan command
	stopped  chan struct{}

	mu        sync.RWMutex
	observers map[string]streaming.Observer
	last      streaming.TickReport

	tick      atomic.Uint64
	broadcast atomic.Uint64
	saved     atomic.Uint64

	logger *logging.Logger
}

// New собирает движок вокруг мира
func New(opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	if opts.Source == "" {
		opts.Source = "authority"
	}

	manager := mesh.NewManager(opts.World, mesh.Options{
		Sink:      opts.Sink,
		Factory:   opts.Factory,
		Authority: opts.Streaming.Authority,
		Metrics:   mesh.NewMetrics(opts.Registerer),
	})

	e := &Engine{
		world:        opts.World,
		manager:      manager,
		pipeline:     mesh.NewPipeline(manager, opts.Pipeline),
		scheduler:    streaming.NewScheduler(opts.World, manager, opts.Streaming, streaming.WithMetrics(streaming.NewMetrics(opts.Registerer))),
		authority:    opts.Streaming.Authority,
		bus:          opts.Bus,
		saver:        opts.Saver,
		tickInterval: opts.TickInterval,
		saveInterval: opts.SaveInterval,
		commands:     make(chan command, 64),
		stopped:      make(chan struct{}),
		observers:    make(map[string]streaming.Observer),
		logger:       logging.GetEngineLogger(),
	}

	if opts.Bus != nil {
		if e.authority {
			var z *codec.Zstd
			if opts.Compress {
				z = codec.MustZstd()
			}
			e.broadcaster = replication.NewBroadcaster(opts.World, opts.Bus, opts.Source, z)
		} else {
			// Кодировку выбирает хост, декодер нужен всегда
			e.receiver = replication.NewReceiver(opts.World, codec.MustZstd(), opts.InboxSize)
		}
	}
	return e
}

// Authority сообщает, является ли узел хостом
func (e *Engine) Authority() bool { return e.authority }

// World возвращает мир движка
func (e *Engine) World() *world.World { return e.world }

// Manager возвращает менеджер представлений
func (e *Engine) Manager() *mesh.Manager { return e.manager }

// SetObserver добавляет или перемещает наблюдателя
func (e *Engine) SetObserver(id string, pos mgl64.Vec3) {
	e.mu.Lock()
	e.observers[id] = streaming.Observer{ID: id, Pos: pos}
	e.mu.Unlock()
}

// RemoveObserver убирает наблюдателя
func (e *Engine) RemoveObserver(id string) {
	e.mu.Lock()
	delete(e.observers, id)
	e.mu.Unlock()
}

func (e *Engine) snapshotObservers() []streaming.Observer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]streaming.Observer, 0, len(e.observers))
	for _, o := range e.observers {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Do выполняет fn в горутине тика и ждёт завершения
func (e *Engine) Do(ctx context.Context, fn func(w *world.World)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetBlock меняет блок через тик-владельца
func (e *Engine) SetBlock(ctx context.Context, pos vec.Vec3, data block.BlockData) error {
	return e.Do(ctx, func(w *world.World) {
		w.SetBlock(pos, data)
	})
}

func (e *Engine) drainCommands() int {
	n := 0
	for {
		select {
		case cmd := <-e.commands:
			cmd.fn(e.world)
			close(cmd.done)
			n++
		default:
			return n
		}
	}
}

// Step выполняет один тик:
// команды -> входящие чанки -> стриминг -> перестройка -> фиксация -> рассылка.
func (e *Engine) Step(ctx context.Context) streaming.TickReport {
	e.drainCommands()

	if e.receiver != nil {
		e.materializeReplicated(ctx, e.receiver.ApplyPending())
	}

	report := e.scheduler.Tick(ctx, e.snapshotObservers())

	e.pipeline.ScheduleDirty()
	e.pipeline.Commit()

	if e.broadcaster != nil {
		sent, err := e.broadcaster.Flush(ctx)
		e.broadcast.Add(uint64(sent))
		if err != nil {
			e.logger.Warn("Рассылка чанков: %v", err)
		}
	}

	e.mu.Lock()
	e.last = report
	e.mu.Unlock()
	e.tick.Add(1)
	return report
}

// materializeReplicated строит представления чанков, присланных хостом.
// Стриминг на реплике не работает, поэтому видимым становится всё присланное,
// кроме пустого. Уже видимые чанки перестроит ScheduleDirty.
func (e *Engine) materializeReplicated(ctx context.Context, applied []vec.Vec3) {
	for _, pos := range applied {
		if e.manager.IsRendered(pos) {
			continue
		}
		c, ok := e.world.GetChunkIfLoaded(pos)
		if !ok || c.IsEmpty() {
			continue
		}
		if err := e.manager.Materialize(ctx, pos); err != nil && !errors.Is(err, mesh.ErrInFlight) {
			e.logger.Warn("Чанк %v от хоста не отображён: %v", pos, err)
		}
	}
}

// Save сохраняет изменённые чанки; без Saver ничего не делает
func (e *Engine) Save(ctx context.Context) error {
	if e.saver == nil {
		return nil
	}
	n, err := e.saver.SaveDirty(ctx, e.world)
	e.saved.Add(uint64(n))
	return err
}

// Run крутит тик до отмены ctx. Перед выходом сохраняет изменённые чанки.
// Вызывается один раз.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)

	e.pipeline.Start(ctx)
	defer e.pipeline.Stop()

	if e.receiver != nil {
		if err := e.receiver.Start(ctx, e.bus); err != nil {
			return err
		}
		defer e.receiver.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(e.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				start := time.Now()
				e.Step(gctx)
				if d := time.Since(start); d > e.tickInterval {
					e.logger.Debug("Тик %d занял %v (период %v)", e.tick.Load(), d, e.tickInterval)
				}
			}
		}
	})

	if e.saver != nil && e.saveInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(e.saveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := e.Save(gctx); err != nil {
						e.logger.Error("Периодическое сохранение: %v", err)
					}
				}
			}
		})
	}

	e.logger.Info("Движок запущен: тик %v, хост: %v", e.tickInterval, e.authority)
	err := g.Wait()

	// Контекст тика уже отменён, финальное сохранение получает свой
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := e.Save(saveCtx); serr != nil {
		err = errors.Join(err, serr)
	}
	e.logger.Info("Движок остановлен на тике %d", e.tick.Load())
	return err
}

// Stats возвращает сводку состояния
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	s := Stats{
		Observers: len(e.observers),
		LastTick:  e.last,
	}
	e.mu.RUnlock()

	s.Tick = e.tick.Load()
	s.Authority = e.authority
	s.LoadedChunks = e.world.Len()
	s.Mesh = e.manager.Stats()
	s.Broadcast = e.broadcast.Load()
	s.Saved = e.saved.Load()
	if e.receiver != nil {
		s.Applied, s.Rejected = e.receiver.Stats()
	}
	return s
}
