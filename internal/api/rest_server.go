package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/middleware"
	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ChunkSource снимок состояния менеджера чанков
type ChunkSource interface {
	Stats() world.ManagerStats
	State(coord vec.Vec2) world.ChunkState
	Chunk(coord vec.Vec2) (*world.ChunkData, bool)
	Chunks(state world.ChunkState) []vec.Vec2
}

// TileInspector диагностика отдельного тайла
type TileInspector interface {
	InspectTile(tile vec.Vec2) world.TileInfo
}

// CacheStatsSource источник статистики кеша шума
type CacheStatsSource interface {
	CacheStats() terrain.CacheStats
}

// RestServer отладочный HTTP API состояния мира
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	chunks  ChunkSource
	tiles   TileInspector
	noise   CacheStatsSource
	bus     eventbus.EventBus
	logger  *logging.Logger
	metrics *ServerMetrics
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string            // адрес для запуска сервера, ":8088"
	Chunks   ChunkSource       // менеджер чанков
	Tiles    TileInspector     // генератор чанков
	Noise    CacheStatsSource  // поле шума, может быть nil
	Bus      eventbus.EventBus // шина событий, может быть nil
	Registry *prometheus.Registry
	Logger   *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// StatsResponse ответ /api/stats
type StatsResponse struct {
	Chunks  world.ManagerStats  `json:"chunks"`
	Noise   *terrain.CacheStats `json:"noise_cache,omitempty"`
	Events  *eventbus.Stats     `json:"events,omitempty"`
	Process ProcessStats        `json:"process"`
}

// ChunkListResponse ответ /api/chunks
type ChunkListResponse struct {
	Resident []vec.Vec2 `json:"resident"`
	Pending  []vec.Vec2 `json:"pending"`
}

// ChunkResponse ответ /api/chunks/:x/:y
type ChunkResponse struct {
	Coord vec.Vec2         `json:"coord"`
	State string           `json:"state"`
	Data  *world.ChunkData `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger(config.Logger)
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("debug_api"))

	promMw := middleware.NewPrometheusMiddleware("debug_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	rs := &RestServer{
		router:  router,
		chunks:  config.Chunks,
		tiles:   config.Tiles,
		noise:   config.Noise,
		bus:     config.Bus,
		logger:  config.Logger,
		metrics: NewServerMetrics(),
	}
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/chunks", rs.handleChunks)
		api.GET("/chunks/:x/:y", rs.handleChunk)
		api.GET("/terrain/:x/:y", rs.handleTerrain)
	}

	rs.router.GET("/health", rs.handleHealth)
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// handleStats возвращает счетчики менеджера, кеша шума, шины и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	resp := StatsResponse{
		Chunks:  rs.chunks.Stats(),
		Process: rs.metrics.Snapshot(),
	}
	if rs.noise != nil {
		cs := rs.noise.CacheStats()
		resp.Noise = &cs
	}
	if rs.bus != nil {
		bs := rs.bus.Metrics()
		resp.Events = &bs
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    resp,
	})
}

// handleChunks возвращает списки загруженных и генерируемых чанков
func (rs *RestServer) handleChunks(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список чанков получен",
		Data: ChunkListResponse{
			Resident: rs.chunks.Chunks(world.ChunkResident),
			Pending:  rs.chunks.Chunks(world.ChunkPending),
		},
	})
}

// handleChunk возвращает данные одного чанка
func (rs *RestServer) handleChunk(c *gin.Context) {
	coord, ok := parseCoord(c)
	if !ok {
		return
	}

	state := rs.chunks.State(coord)
	if state == world.ChunkUnloaded {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Чанк %s не загружен", coord),
		})
		return
	}

	resp := ChunkResponse{Coord: coord, State: state.String()}
	if data, ok := rs.chunks.Chunk(coord); ok {
		resp.Data = data
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Чанк найден",
		Data:    resp,
	})
}

// handleTerrain возвращает уровень, маску и арт тайла
func (rs *RestServer) handleTerrain(c *gin.Context) {
	tile, ok := parseCoord(c)
	if !ok {
		return
	}

	info := rs.tiles.InspectTile(tile)
	c.JSON(http.StatusOK, GenericResponse{
		Success: info.Error == "",
		Message: "Тайл рассчитан",
		Data:    info,
	})
}

func parseCoord(c *gin.Context) (vec.Vec2, bool) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Координаты должны быть целыми числами",
		})
		return vec.Vec2{}, false
	}
	return vec.Vec2{X: x, Y: y}, true
}

// handleHealth проверка здоровья сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"uptime": rs.metrics.GetUptime(),
	})
}

// Start запускает сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 Отладочный API запущен на %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска API: %w", err)
	}
	return nil
}

// Stop останавливает сервер, дожидаясь завершения активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	rs.logger.Info("🛑 Остановка отладочного API")
	return rs.server.Shutdown(ctx)
}
