package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/tileworld/internal/api"
	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/entity"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// TickRate частота тиков клиента
const TickRate = 60

// ViewerID идентификатор блуждающего наблюдателя
const ViewerID = "walker"

// App собирает конвейер генерации мира и крутит цикл тиков
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	registry   *prometheus.Registry
	bus        eventbus.EventBus
	busLog     eventbus.Subscription
	busMetrics *eventbus.MetricsExporter

	field     *terrain.NoiseField
	generator *world.ChunkGenerator
	tiles     *world.TileWorld
	viewers   *world.ViewerSet
	walker    *entity.Walker
	walkArea  entity.WorldAPI
	store     *storage.ChunkStore
	redis     *storage.RedisChunkCache
	manager   *world.ChunkManager

	api        *api.RestServer
	metricsSrv *http.Server
	telemetry  observability.ShutdownFunc
}

// New создает все компоненты по конфигурации. Серверы не запускаются до Run.
func New(ctx context.Context, cfg *config.Config) (app *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		logger:   logging.GetChunkLogger(),
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.telemetry, err = observability.InitTelemetry(ctx, cfg.Telemetry, a.logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации телеметрии: %w", err)
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Шина событий чанков
	if cfg.Events.NATSURL != "" {
		js, err := eventbus.NewJetStreamBus(cfg.Events.NATSURL, cfg.Events.Stream, cfg.Events.Retention, cfg.Events.BufferSize)
		if err != nil {
			return nil, err
		}
		a.bus = js
	} else {
		a.bus = eventbus.NewMemoryBus(cfg.Events.BufferSize)
	}
	if a.busLog, err = eventbus.StartLoggingListener(a.bus, a.logger); err != nil {
		return nil, err
	}
	a.busMetrics = eventbus.NewMetricsExporter(a.bus, a.registry, time.Second)

	// Генерация
	a.generator, a.field, err = world.NewGeneratorFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	field := a.field
	if err = metrics.RegisterNoiseCache(a.registry, func() (uint64, uint64) {
		s := field.CacheStats()
		return s.Hits, s.Misses
	}); err != nil {
		return nil, err
	}

	// Мир и наблюдатель
	a.tiles = world.NewTileWorld()
	a.viewers = world.NewViewerSet()
	grid := a.generator.Grid()
	wanderRadius := float64(grid.ChunkSize.X) * grid.TilePx * 4
	a.walker = entity.NewWalker(ViewerID, vec.Vec2Float{}, 2, wanderRadius, cfg.Terrain.Seed)
	a.walkArea = entity.TerrainWorld{
		Levels:   a.field,
		Grid:     grid,
		MinLevel: terrain.TerrainLevel(cfg.Terrain.WaterLevel) + 1,
	}
	a.viewers.Set(ViewerID, a.walker.Position)

	opts := []world.ManagerOption{
		world.WithEventBus(a.bus),
		world.WithMetrics(metrics.NewStreamerMetrics(a.registry)),
		world.WithLogger(a.logger),
	}
	var cache world.ChunkCache
	if cfg.Storage.Enabled {
		if a.store, err = storage.NewChunkStore(cfg.Storage.Path); err != nil {
			return nil, err
		}
		cache = a.store
	}
	if cfg.Storage.Redis.Addr != "" {
		if a.redis, err = storage.NewRedisChunkCache(cfg.Storage.Redis, cache); err != nil {
			return nil, err
		}
		cache = a.redis
	}
	if cache != nil {
		gen, err := cfg.GenerationKey()
		if err != nil {
			return nil, err
		}
		a.logger.Info("💾 Кеш чанков включен: отпечаток генерации %016x", gen)
		opts = append(opts, world.WithChunkCache(cache, gen))
	}

	a.manager, err = world.NewChunkManager(ctx, &cfg.Chunks, a.generator, a.tiles, a.viewers, opts...)
	if err != nil {
		return nil, err
	}

	a.api = api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetAPIPort()),
		Chunks:   a.manager,
		Tiles:    a.generator,
		Noise:    a.field,
		Bus:      a.bus,
		Registry: a.registry,
		Logger:   logging.GetAPILogger(),
	})
	a.metricsSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.logger.Info("🌍 Мир готов: seed=%d уровней=%d чанк=%dx%d воркеров=%d",
		a.field.Seed(), a.field.Levels(), cfg.Chunks.Width, cfg.Chunks.Height, cfg.Chunks.Workers)
	return a, nil
}

// Step выполняет один тик: шаг наблюдателя и тик менеджера чанков
func (a *App) Step(ctx context.Context) world.TickReport {
	a.walker.Update(a.walkArea)
	a.viewers.Set(ViewerID, a.walker.Position)
	return a.manager.Tick(ctx)
}

// Run запускает серверы и цикл тиков до отмены ctx
func (a *App) Run(ctx context.Context) error {
	a.busMetrics.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.api.Start)
	g.Go(func() error {
		a.logger.Info("📊 Метрики Prometheus на %s/metrics", a.metricsSrv.Addr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка сервера метрик: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.loop(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(a.api.Stop(stopCtx), a.metricsSrv.Shutdown(stopCtx))
	})

	return g.Wait()
}

func (a *App) loop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report := a.Step(ctx)
			if report.Tick%(TickRate*10) == 0 {
				stats := a.manager.Stats()
				a.logger.Info("⏱️ Тик %d: загружено=%d в работе=%d наблюдатель=%s",
					report.Tick, stats.Resident, stats.Pending, a.walker.Position.Floor())
			}
		}
	}
}

// Manager менеджер чанков
func (a *App) Manager() *world.ChunkManager {
	return a.manager
}

// TileWorld приемник мутаций
func (a *App) TileWorld() *world.TileWorld {
	return a.tiles
}

// Registry реестр метрик Prometheus
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Close останавливает компоненты в обратном порядке создания
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.manager != nil {
		errs = append(errs, a.manager.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.field != nil {
		a.field.Close()
	}
	if a.busMetrics != nil {
		a.busMetrics.Stop()
	}
	if a.busLog != nil {
		a.busLog.Unsubscribe()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry(ctx))
	}
	return errors.Join(errs...)
}
