package streaming

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// Observer - точка, вокруг которой держатся видимые чанки (игрок, камера)
type Observer struct {
	ID  string
	Pos mgl64.Vec3
}

// Chunk возвращает чанк, в котором находится наблюдатель
func (o Observer) Chunk() vec.Vec3 {
	return vec.Vec3{
		X: int(math.Floor(o.Pos[0])),
		Y: int(math.Floor(o.Pos[1])),
		Z: int(math.Floor(o.Pos[2])),
	}.ToChunkCoords()
}

// Space - источник чанков (обычно *world.World)
type Space interface {
	GetChunk(pos vec.Vec3) *world.Chunk
	LoadedChunks() []vec.Vec3
}

// Materializer создаёт и уничтожает живые представления чанков (см. mesh.Manager)
type Materializer interface {
	IsRendered(pos vec.Vec3) bool
	RenderedChunks() []vec.Vec3
	Materialize(ctx context.Context, pos vec.Vec3) error
	Evict(pos vec.Vec3) bool
}

// TickReport - итог одного прохода
type TickReport struct {
	Evicted        int  `json:"evicted"`
	Materialized   int  `json:"materialized"`
	Pending        int  `json:"pending"`
	BudgetExceeded bool `json:"budget_exceeded"`
}

// Scheduler раз в тик выгружает далёкие представления и материализует
// ближайшие чанки с ограничением по количеству и по времени.
// Постоянной очереди нет: порядок пересчитывается каждый тик.
type Scheduler struct {
	cfg     Config
	space   Space
	mat     Materializer
	clock   func() time.Time
	rng     *rand.Rand
	metrics *Metrics
	tracer  trace.Tracer
	logger  *logging.Logger
}

// Option настраивает планировщик
type Option func(*Scheduler)

// WithClock подменяет часы (для тестов бюджета времени)
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithRand подменяет генератор случайной выборки выгрузки
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithMetrics задаёт метрики
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracer задаёт трейсер OpenTelemetry
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// NewScheduler создаёт планировщик
func NewScheduler(space Space, mat Materializer, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:    cfg.withDefaults(),
		space:  space,
		mat:    mat,
		clock:  time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		tracer: otel.Tracer("blockverse/streaming"),
		logger: logging.GetStreamingLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// Config возвращает действующую конфигурацию
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Tick выполняет фазы выгрузки и загрузки. На стороне без полномочий ничего не делает.
func (s *Scheduler) Tick(ctx context.Context, observers []Observer) TickReport {
	var report TickReport
	if !s.cfg.Authority {
		return report
	}

	ctx, span := s.tracer.Start(ctx, "streaming.Tick")
	defer span.End()

	start := s.clock()
	s.metrics.Ticks.Inc()

	centers := make([]vec.Vec3, len(observers))
	for i, o := range observers {
		centers[i] = o.Chunk()
	}

	if s.cfg.ProximityStreaming {
		report.Evicted = s.unloadPhase(centers)
	}
	s.loadPhase(ctx, centers, start, &report)

	s.metrics.Evicted.Add(float64(report.Evicted))
	s.metrics.Materialized.Add(float64(report.Materialized))
	s.metrics.Pending.Set(float64(report.Pending))
	if report.BudgetExceeded {
		s.metrics.BudgetExceeded.Inc()
	}
	s.metrics.TickDuration.Observe(s.clock().Sub(start).Seconds())

	span.SetAttributes(
		attribute.Int("streaming.observers", len(observers)),
		attribute.Int("streaming.evicted", report.Evicted),
		attribute.Int("streaming.materialized", report.Materialized),
		attribute.Int("streaming.pending", report.Pending),
		attribute.Bool("streaming.budget_exceeded", report.BudgetExceeded),
	)

	if report.Evicted > 0 || report.Materialized > 0 {
		s.logger.Debug("Стриминг: выгружено %d, материализовано %d, отложено %d",
			report.Evicted, report.Materialized, report.Pending)
	}
	return report
}

// unloadPhase проверяет случайную выборку видимых чанков и уничтожает
// представления дальше RenderForgetRadius от всех наблюдателей
func (s *Scheduler) unloadPhase(centers []vec.Vec3) int {
	rendered := s.mat.RenderedChunks()
	if len(rendered) > s.cfg.UnloadBatchSize {
		s.rng.Shuffle(len(rendered), func(i, j int) {
			rendered[i], rendered[j] = rendered[j], rendered[i]
		})
		rendered = rendered[:s.cfg.UnloadBatchSize]
	}

	evicted := 0
	for _, pos := range rendered {
		if nearestChebyshev(pos, centers) > s.cfg.RenderForgetRadius {
			if s.mat.Evict(pos) {
				evicted++
			}
		}
	}
	return evicted
}

// loadPhase строит кандидатов заново и материализует не больше BatchSize
func (s *Scheduler) loadPhase(ctx context.Context, centers []vec.Vec3, start time.Time, report *TickReport) {
	candidates := s.candidates(centers)

	processed := 0
	for _, pos := range candidates {
		if report.Materialized >= s.cfg.BatchSize {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if s.clock().Sub(start) > s.cfg.TimeBudget {
			report.BudgetExceeded = true
			break
		}
		processed++

		// Загрузка или генерация происходит здесь и учитывается в бюджете
		c := s.space.GetChunk(pos)
		if c.IsEmpty() {
			continue
		}

		if err := s.mat.Materialize(ctx, pos); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Debug("Чанк %v не материализован: %v", pos, err)
			}
			continue
		}
		report.Materialized++
	}

	report.Pending = len(candidates) - processed
}

// candidates - объединение кубов вокруг наблюдателей (или все загруженные
// чанки), без уже видимых, ближайшие первыми
func (s *Scheduler) candidates(centers []vec.Vec3) []vec.Vec3 {
	if !s.cfg.ProximityStreaming {
		var out []vec.Vec3
		for _, pos := range s.space.LoadedChunks() {
			if !s.mat.IsRendered(pos) {
				out = append(out, pos)
			}
		}
		return out
	}

	r := s.cfg.RenderChunkRadius
	seen := make(map[vec.Vec3]struct{})
	var out []vec.Vec3
	for _, center := range centers {
		for dz := -r; dz <= r; dz++ {
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					pos := center.Add(vec.Vec3{X: dx, Y: dy, Z: dz})
					if _, dup := seen[pos]; dup {
						continue
					}
					seen[pos] = struct{}{}
					if s.mat.IsRendered(pos) {
						continue
					}
					out = append(out, pos)
				}
			}
		}
	}

	dist := make(map[vec.Vec3]int, len(out))
	for _, pos := range out {
		dist[pos] = nearestSquared(pos, centers)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := dist[out[i]], dist[out[j]]
		if di != dj {
			return di < dj
		}
		a, b := out[i], out[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

// nearestChebyshev - минимальное расстояние по наибольшей оси до наблюдателей.
// Без наблюдателей любой чанк считается бесконечно далёким.
func nearestChebyshev(pos vec.Vec3, centers []vec.Vec3) int {
	best := math.MaxInt
	for _, c := range centers {
		best = min(best, pos.ChebyshevDistance(c))
	}
	return best
}

func nearestSquared(pos vec.Vec3, centers []vec.Vec3) int {
	best := math.MaxInt
	for _, c := range centers {
		best = min(best, pos.DistanceSquared(c))
	}
	return best
}
