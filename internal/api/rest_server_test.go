package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/streaming"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/block/implementations"
)

func setupTestServer(t *testing.T) (*RestServer, *engine.Engine) {
	t.Helper()

	reg := prometheus.NewRegistry()
	bus := eventbus.NewMemoryBus(16)
	e := engine.New(engine.Options{
		World:        world.New(world.Options{Registry: implementations.NewDefaultRegistry()}),
		Streaming:    streaming.DefaultConfig(),
		TickInterval: 2 * time.Millisecond,
		Registerer:   reg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		bus.Close()
	})

	rs := NewRestServer(Config{
		Engine:   e,
		Bus:      bus,
		Registry: reg,
		Extra:    map[string]func() any{"build": func() any { return "test" }},
	})
	return rs, e
}

func doJSON(t *testing.T, rs *RestServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func TestHealth(t *testing.T) {
	rs, _ := setupTestServer(t)
	w := doJSON(t, rs, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSetAndGetBlock(t *testing.T) {
	rs, e := setupTestServer(t)

	w := doJSON(t, rs, http.MethodPut, "/api/blocks/-1/20/5", SetBlockRequest{ID: ptr(uint8(block.StoneBlockID))})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, block.Of(block.StoneBlockID), e.World().GetBlock(vec.Vec3{X: -1, Y: 20, Z: 5}))

	w = doJSON(t, rs, http.MethodGet, "/api/blocks/-1/20/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got BlockResponse
	decodeData(t, w, &got)
	assert.Equal(t, uint8(block.StoneBlockID), got.ID)
	assert.True(t, got.Solid)
	assert.True(t, got.Loaded)
	assert.NotEmpty(t, got.Name)

	w = doJSON(t, rs, http.MethodGet, "/api/blocks/500/500/500", nil)
	decodeData(t, w, &got)
	assert.False(t, got.Loaded)
	assert.Zero(t, got.ID)
}

func TestSetBlockValidation(t *testing.T) {
	rs, _ := setupTestServer(t)

	w := doJSON(t, rs, http.MethodPut, "/api/blocks/0/0/0", map[string]int{"aux": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, rs, http.MethodPut, "/api/blocks/0/0/0", SetBlockRequest{ID: ptr(uint8(250))})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, rs, http.MethodPut, "/api/blocks/a/0/0", SetBlockRequest{ID: ptr(uint8(1))})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetBlockRejectedOnReplica(t *testing.T) {
	cfg := streaming.DefaultConfig()
	cfg.Authority = false
	e := engine.New(engine.Options{
		World:      world.New(world.Options{Registry: implementations.NewDefaultRegistry()}),
		Streaming:  cfg,
		Registerer: prometheus.NewRegistry(),
	})
	rs := NewRestServer(Config{Engine: e, Registry: prometheus.NewRegistry()})

	w := doJSON(t, rs, http.MethodPut, "/api/blocks/1/2/3", SetBlockRequest{ID: ptr(uint8(block.StoneBlockID))})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, e.World().Len(), "Реплика не должна заводить чанк")
}

func TestGetChunkBytes(t *testing.T) {
	rs, e := setupTestServer(t)

	w := doJSON(t, rs, http.MethodGet, "/api/chunks/0/0/0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, e.SetBlock(context.Background(), vec.Vec3{X: 1, Y: 2, Z: 3}, block.Of(block.DirtBlockID)))

	w = doJSON(t, rs, http.MethodGet, "/api/chunks/0/0/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "false", w.Header().Get("X-Chunk-Empty"))

	c := world.NewChunk(vec.Vec3{})
	require.True(t, c.Deserialize(w.Body.Bytes()))
	assert.Equal(t, block.Of(block.DirtBlockID), c.Get(1, 2, 3))
}

func TestTrace(t *testing.T) {
	rs, e := setupTestServer(t)
	require.NoError(t, e.SetBlock(context.Background(), vec.Vec3{X: 3}, block.Of(block.StoneBlockID)))

	w := doJSON(t, rs, http.MethodPost, "/api/trace", TraceRequest{
		Origin:      [3]float64{0.5, 0.5, 0.5},
		Direction:   [3]float64{2, 0, 0}, // нормализуется сервером
		MaxDistance: 10,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res TraceResponse
	decodeData(t, w, &res)
	assert.True(t, res.Hit)
	assert.Equal(t, [3]int{3, 0, 0}, res.Block)
	assert.Equal(t, "west", res.Face)
	assert.InDelta(t, 2.5, res.Distance, 1e-9)

	w = doJSON(t, rs, http.MethodPost, "/api/trace", TraceRequest{Direction: [3]float64{0, 0, 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestObserversAndStats(t *testing.T) {
	rs, _ := setupTestServer(t)

	w := doJSON(t, rs, http.MethodPut, "/api/observers/cam", ObserverRequest{Pos: [3]float64{1, 2, 3}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, rs, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Engine engine.Stats `json:"engine"`
		Server ProcessStats `json:"server"`
		Build  string       `json:"build"`
	}
	decodeData(t, w, &stats)
	assert.Equal(t, 1, stats.Engine.Observers)
	assert.True(t, stats.Engine.Authority)
	assert.Equal(t, "test", stats.Build)
	assert.Positive(t, stats.Server.Goroutines)

	w = doJSON(t, rs, http.MethodDelete, "/api/observers/cam", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rs, _ := setupTestServer(t)
	doJSON(t, rs, http.MethodGet, "/health", nil)

	w := doJSON(t, rs, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blockverse_api_http_request_duration_seconds")
	assert.Contains(t, w.Body.String(), "blockverse_streaming_ticks_total")
}

func ptr[T any](v T) *T { return &v }
