package mesh

import (
	"context"
	"runtime"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
)

// PipelineConfig - параметры асинхронного конвейера
type PipelineConfig struct {
	Workers   int  `yaml:"workers"`    // 0 - по числу CPU
	QueueSize int  `yaml:"queue_size"` // 0 - Workers*4
	Torture   bool `yaml:"torture"`    // перестраивать все видимые чанки каждый тик
}

// Pipeline - двухстадийный конвейер: воркеры считают Geometry по снимкам
// чанков, Commit в горутине тика переносит результаты в Manager.
type Pipeline struct {
	manager *Manager
	torture bool
	workers int

	jobs    chan vec.Vec3
	results chan *Geometry

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPipeline создаёт конвейер поверх менеджера представлений
func NewPipeline(m *Manager, cfg PipelineConfig) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	return &Pipeline{
		manager: m,
		torture: cfg.Torture,
		workers: cfg.Workers,
		jobs:    make(chan vec.Vec3, cfg.QueueSize),
		results: make(chan *Geometry, cfg.QueueSize),
	}
}

// Manager возвращает стадию фиксации конвейера
func (p *Pipeline) Manager() *Manager {
	return p.manager
}

// Start запускает воркеры
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.manager.logger.Info("Конвейер мешинга запущен: %d воркеров", p.workers)
}

// Stop останавливает воркеры и ждёт их завершения
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case pos := <-p.jobs:
			g := p.manager.build(pos)
			select {
			case p.results <- g:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Schedule ставит видимый чанк в очередь перестройки. Возвращает false,
// если чанк не виден, уже перестраивается или очередь заполнена.
func (p *Pipeline) Schedule(pos vec.Vec3) bool {
	if !p.manager.IsRendered(pos) {
		return false
	}
	c, ok := p.manager.world.GetChunkIfLoaded(pos)
	if !ok {
		return false
	}
	if !p.manager.acquire(pos) {
		return false
	}

	// Запись после снятия флага снова пометит чанк, и следующий тик его перестроит
	c.ClearRenderDirty()
	select {
	case p.jobs <- pos:
		return true
	default:
		c.MarkDirty()
		p.manager.release(pos)
		return false
	}
}

// ScheduleDirty ставит в очередь все видимые чанки с флагом перестройки
// (в режиме Torture - все видимые). Возвращает число поставленных.
func (p *Pipeline) ScheduleDirty() int {
	n := 0
	for _, pos := range p.manager.RenderedChunks() {
		if !p.torture {
			c, ok := p.manager.world.GetChunkIfLoaded(pos)
			if !ok || !c.IsRenderDirty() {
				continue
			}
		}
		if p.Schedule(pos) {
			n++
		}
	}
	return n
}

// Commit забирает готовые результаты без ожидания и фиксирует их.
// Вызывается только из горутины тика.
func (p *Pipeline) Commit() int {
	n := 0
	for {
		select {
		case g := <-p.results:
			p.manager.Apply(g)
			p.manager.release(g.Pos)
			n++
		default:
			return n
		}
	}
}

// Pending возвращает число результатов, ожидающих фиксации
func (p *Pipeline) Pending() int {
	return len(p.results)
}
