package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// RestServer - отладочный REST API над миром
type RestServer struct {
	router  *gin.Engine
	engine  *engine.Engine
	bus     eventbus.EventBus
	extra   map[string]func() any
	port    string
	metrics *ServerMetrics
	srv     *http.Server
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // адрес для запуска сервера, по умолчанию ":8088"
	Engine   *engine.Engine       // обязателен
	Bus      eventbus.EventBus    // nil - без статистики шины
	Registry *prometheus.Registry // nil - метрики HTTP не собираются, /metrics пуст
	// Дополнительные секции /api/stats (например, кеш)
	Extra map[string]func() any
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("blockverse_api"))
	router.Use(middleware.NewRequestLogger(nil).Handler())

	var reg prometheus.Registerer
	gatherer := prometheus.Gatherer(prometheus.NewRegistry())
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("blockverse_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	server := &RestServer{
		router:  router,
		engine:  config.Engine,
		bus:     config.Bus,
		extra:   config.Extra,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logging.GetServerLogger(),
	}

	server.srv = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/chunks/:x/:y/:z", rs.handleGetChunk)
		api.GET("/blocks/:x/:y/:z", rs.handleGetBlock)
		api.PUT("/blocks/:x/:y/:z", rs.handleSetBlock)
		api.POST("/trace", rs.handleTrace)
		api.PUT("/observers/:id", rs.handleSetObserver)
		api.DELETE("/observers/:id", rs.handleRemoveObserver)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// parsePos читает :x/:y/:z из пути
func parsePos(c *gin.Context) (vec.Vec3, error) {
	var out [3]int
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %s: %q не число", name, c.Param(name))
		}
		out[i] = v
	}
	return vec.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"tick":   rs.engine.Stats().Tick,
	})
}

// handleStats возвращает статистику движка, шины и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]any{
		"engine": rs.engine.Stats(),
		"server": rs.metrics.Snapshot(),
	}
	if rs.bus != nil {
		stats["eventbus"] = rs.bus.Metrics()
	}
	for name, fn := range rs.extra {
		stats[name] = fn()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleGetChunk отдаёт сериализованные байты загруженного чанка
func (rs *RestServer) handleGetChunk(c *gin.Context) {
	pos, err := parsePos(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	chunk, ok := rs.engine.World().GetChunkIfLoaded(pos)
	if !ok {
		fail(c, http.StatusNotFound, "Чанк не загружен")
		return
	}
	c.Header("X-Chunk-Empty", strconv.FormatBool(chunk.IsEmpty()))
	c.Data(http.StatusOK, "application/octet-stream", chunk.Serialize())
}

// BlockResponse описывает блок
type BlockResponse struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	ID     uint8  `json:"id"`
	Aux    uint8  `json:"aux"`
	Name   string `json:"name"`
	Solid  bool   `json:"solid"`
	Loaded bool   `json:"loaded"`
}

func (rs *RestServer) describe(pos vec.Vec3, data block.BlockData, loaded bool) BlockResponse {
	resp := BlockResponse{X: pos.X, Y: pos.Y, Z: pos.Z, ID: uint8(data.ID), Aux: data.Aux, Loaded: loaded}
	if d, ok := rs.engine.World().Registry().Get(data.ID); ok {
		resp.Name = d.Name
		resp.Solid = d.Solid
	}
	return resp
}

// handleGetBlock возвращает блок; незагруженные чанки не подгружаются
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := parsePos(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	data, loaded := rs.engine.World().GetBlockIfLoaded(pos)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок", Data: rs.describe(pos, data, loaded)})
}

// SetBlockRequest - тело PUT /api/blocks
type SetBlockRequest struct {
	ID  *uint8 `json:"id" binding:"required"`
	Aux uint8  `json:"aux"`
}

// handleSetBlock меняет блок через тик движка
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	pos, err := parsePos(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	// Мир реплики перезаписывает хост, локальная правка бы разошлась с ним
	if !rs.engine.Authority() {
		fail(c, http.StatusConflict, "Узел - реплика, блоки меняет только хост")
		return
	}

	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	id := block.BlockID(*req.ID)
	if !rs.engine.World().Registry().IsRegistered(id) {
		fail(c, http.StatusUnprocessableEntity, fmt.Sprintf("Блок %d не зарегистрирован", id))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	data := block.New(id, req.Aux)
	if err := rs.engine.SetBlock(ctx, pos, data); err != nil {
		rs.logger.Warn("Не удалось изменить блок %v: %v", pos, err)
		fail(c, http.StatusServiceUnavailable, "Движок не принял команду")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок изменён", Data: rs.describe(pos, data, true)})
}

// TraceRequest - тело POST /api/trace
type TraceRequest struct {
	Origin      [3]float64 `json:"origin"`
	Direction   [3]float64 `json:"direction"`
	MaxDistance float64    `json:"max_distance"`
	// all: останавливаться на любом непустом блоке, а не только на сплошном
	All bool `json:"all"`
}

// TraceResponse - итог трассировки
type TraceResponse struct {
	Hit      bool       `json:"hit"`
	Block    [3]int     `json:"block"`
	Face     string     `json:"face"`
	Distance float64    `json:"distance"`
	End      [3]float64 `json:"end"`
	Steps    int        `json:"steps"`
}

// handleTrace трассирует луч по загруженным чанкам
func (rs *RestServer) handleTrace(c *gin.Context) {
	var req TraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	dir := mgl64.Vec3(req.Direction)
	if dir.Len() == 0 {
		fail(c, http.StatusBadRequest, "Нулевое направление")
		return
	}
	if req.MaxDistance <= 0 {
		req.MaxDistance = 64
	}

	w := rs.engine.World()
	filter := world.IgnoreNonSolid(w)
	if req.All {
		filter = world.IgnoreAir(w)
	}
	res := w.Trace(mgl64.Vec3(req.Origin), dir.Normalize(), req.MaxDistance, filter)

	resp := TraceResponse{
		Hit:      res.Hit,
		Distance: res.Distance,
		End:      [3]float64(res.End),
		Steps:    res.Steps,
	}
	if res.Hit {
		resp.Block = [3]int{res.Block.X, res.Block.Y, res.Block.Z}
		resp.Face = res.Face.String()
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Трассировка", Data: resp})
}

// ObserverRequest - тело PUT /api/observers/:id
type ObserverRequest struct {
	Pos [3]float64 `json:"pos"`
}

func (rs *RestServer) handleSetObserver(c *gin.Context) {
	var req ObserverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	rs.engine.SetObserver(c.Param("id"), mgl64.Vec3(req.Pos))
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Наблюдатель обновлён"})
}

func (rs *RestServer) handleRemoveObserver(c *gin.Context) {
	rs.engine.RemoveObserver(c.Param("id"))
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Наблюдатель удалён"})
}

// Start запускает REST сервер и блокируется до Shutdown
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.port)
	if err := rs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.srv.Shutdown(ctx)
}
