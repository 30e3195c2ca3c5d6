package streaming

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

// fakeMaterializer запоминает видимые чанки и порядок материализации
type fakeMaterializer struct {
	rendered map[vec.Vec3]bool
	order    []vec.Vec3
	evicted  []vec.Vec3
}

func newFakeMaterializer(rendered ...vec.Vec3) *fakeMaterializer {
	f := &fakeMaterializer{rendered: make(map[vec.Vec3]bool)}
	for _, pos := range rendered {
		f.rendered[pos] = true
	}
	return f
}

func (f *fakeMaterializer) IsRendered(pos vec.Vec3) bool { return f.rendered[pos] }

func (f *fakeMaterializer) RenderedChunks() []vec.Vec3 {
	out := make([]vec.Vec3, 0, len(f.rendered))
	for pos := range f.rendered {
		out = append(out, pos)
	}
	world.SortPositions(out)
	return out
}

func (f *fakeMaterializer) Materialize(_ context.Context, pos vec.Vec3) error {
	f.rendered[pos] = true
	f.order = append(f.order, pos)
	return nil
}

func (f *fakeMaterializer) Evict(pos vec.Vec3) bool {
	if !f.rendered[pos] {
		return false
	}
	delete(f.rendered, pos)
	f.evicted = append(f.evicted, pos)
	return true
}

func solidGenerator() world.Generator {
	return world.GeneratorFunc(func(_ vec.Vec3, c *world.Chunk) {
		c.Set(0, 0, 0, block.Of(block.StoneBlockID))
	})
}

func newTestWorld(gen world.Generator) *world.World {
	return world.New(world.Options{Registry: implementations.NewDefaultRegistry(), Generator: gen})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RenderChunkRadius = 2
	cfg.RenderForgetRadius = 4
	return cfg
}

func origin() []Observer {
	return []Observer{{ID: "p1", Pos: mgl64.Vec3{8, 8, 8}}}
}

func TestObserverChunk(t *testing.T) {
	o := Observer{Pos: mgl64.Vec3{-0.5, 17, 31.9}}
	assert.Equal(t, vec.Vec3{X: -1, Y: 1, Z: 1}, o.Chunk())
}

func TestTickRespectsBatchSize(t *testing.T) {
	w := newTestWorld(solidGenerator())
	mat := newFakeMaterializer()
	cfg := testConfig()
	cfg.BatchSize = 5

	s := NewScheduler(w, mat, cfg, WithMetrics(NewMetrics(prometheus.NewRegistry())))
	report := s.Tick(context.Background(), origin())

	assert.Equal(t, 5, report.Materialized, "За тик не больше BatchSize чанков")
	assert.Equal(t, 125-5, report.Pending)
	assert.False(t, report.BudgetExceeded)

	report = s.Tick(context.Background(), origin())
	assert.Equal(t, 5, report.Materialized, "Остаток доделывается в следующих тиках")
	assert.Len(t, mat.rendered, 10)
}

func TestTickStopsOnTimeBudget(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	// Медленная генерация: каждый чанк "занимает" 30мс
	slow := world.GeneratorFunc(func(_ vec.Vec3, c *world.Chunk) {
		now = now.Add(30 * time.Millisecond)
		c.Set(1, 1, 1, block.Of(block.DirtBlockID))
	})
	w := newTestWorld(slow)
	mat := newFakeMaterializer()
	cfg := testConfig()
	cfg.BatchSize = 100
	cfg.TimeBudget = 100 * time.Millisecond

	s := NewScheduler(w, mat, cfg, WithClock(clock))
	report := s.Tick(context.Background(), origin())

	assert.True(t, report.BudgetExceeded)
	assert.Equal(t, 4, report.Materialized, "Проход прерывается сразу после превышения бюджета")
	assert.Less(t, report.Materialized, cfg.BatchSize)
}

func TestTickNearestFirst(t *testing.T) {
	w := newTestWorld(solidGenerator())
	mat := newFakeMaterializer()
	cfg := testConfig()
	cfg.BatchSize = 7

	s := NewScheduler(w, mat, cfg)
	s.Tick(context.Background(), []Observer{{Pos: mgl64.Vec3{40, 8, 8}}})

	require.Len(t, mat.order, 7)
	assert.Equal(t, vec.Vec3{X: 2}, mat.order[0], "Первым грузится чанк наблюдателя")
	for _, pos := range mat.order[1:] {
		assert.Equal(t, 1, pos.DistanceSquared(vec.Vec3{X: 2}), "Затем шесть соседей по граням")
	}
}

func TestTickSkipsEmptyChunks(t *testing.T) {
	w := newTestWorld(nil)
	mat := newFakeMaterializer()

	s := NewScheduler(w, mat, testConfig())
	report := s.Tick(context.Background(), origin())

	assert.Equal(t, 0, report.Materialized)
	assert.Empty(t, mat.rendered)
}

func TestUnloadBeyondForgetRadius(t *testing.T) {
	w := newTestWorld(nil)
	near := vec.Vec3{X: 1}
	far := vec.Vec3{X: 10}
	mat := newFakeMaterializer(near, far)

	s := NewScheduler(w, mat, testConfig())
	report := s.Tick(context.Background(), origin())

	assert.Equal(t, 1, report.Evicted)
	assert.Equal(t, []vec.Vec3{far}, mat.evicted)
	assert.True(t, mat.rendered[near])
}

func TestUnloadSampleBounded(t *testing.T) {
	w := newTestWorld(nil)
	var far []vec.Vec3
	for i := 0; i < 50; i++ {
		far = append(far, vec.Vec3{X: 100 + i})
	}
	mat := newFakeMaterializer(far...)
	cfg := testConfig()
	cfg.UnloadBatchSize = 10

	s := NewScheduler(w, mat, cfg, WithRand(rand.New(rand.NewSource(1))))
	report := s.Tick(context.Background(), origin())

	assert.Equal(t, 10, report.Evicted, "За тик проверяется не больше UnloadBatchSize чанков")
	assert.Len(t, mat.rendered, 40)
}

func TestNonAuthorityNoop(t *testing.T) {
	w := newTestWorld(solidGenerator())
	mat := newFakeMaterializer(vec.Vec3{X: 50})
	cfg := testConfig()
	cfg.Authority = false

	s := NewScheduler(w, mat, cfg)
	report := s.Tick(context.Background(), origin())

	assert.Equal(t, TickReport{}, report)
	assert.Equal(t, 0, w.Len(), "Без полномочий генерация не запускается")
	assert.Len(t, mat.rendered, 1)
}

func TestNonProximityMaterializesLoaded(t *testing.T) {
	w := newTestWorld(solidGenerator())
	w.GetChunk(vec.Vec3{X: 30})
	w.GetChunk(vec.Vec3{X: -30})
	mat := newFakeMaterializer()
	cfg := testConfig()
	cfg.ProximityStreaming = false

	s := NewScheduler(w, mat, cfg)
	report := s.Tick(context.Background(), nil)

	assert.Equal(t, 2, report.Materialized)
	assert.Equal(t, 0, report.Evicted)
}
