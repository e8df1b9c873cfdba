package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/vec"
)

// ChunkState состояние чанка в менеджере
type ChunkState uint8

const (
	ChunkUnloaded ChunkState = iota
	ChunkPending             // задача генерации в работе
	ChunkResident            // применен к миру
)

func (s ChunkState) String() string {
	switch s {
	case ChunkUnloaded:
		return "unloaded"
	case ChunkPending:
		return "pending"
	case ChunkResident:
		return "resident"
	default:
		return "unknown"
	}
}

// ChunkCache дисковый кеш сгенерированных чанков.
// Промах (nil, false, nil) не является ошибкой.
type ChunkCache interface {
	Load(ctx context.Context, gen uint64, coord vec.Vec2) (*ChunkData, bool, error)
	Store(ctx context.Context, gen uint64, data *ChunkData) error
}

// TickReport итог одного тика
type TickReport struct {
	Tick      uint64        `json:"tick"`
	Submitted int           `json:"submitted"`
	Applied   int           `json:"applied"`
	Despawned int           `json:"despawned"`
	Duration  time.Duration `json:"duration"`
}

// ManagerStats снимок счетчиков менеджера
type ManagerStats struct {
	Tick      uint64 `json:"tick"`
	Resident  int    `json:"resident"`
	Pending   int    `json:"pending"`
	Submitted uint64 `json:"submitted"`
	Applied   uint64 `json:"applied"`
	Despawned uint64 `json:"despawned"`
	Ignored   uint64 `json:"ignored"` // Завершения для чанков не в состоянии Pending
	Workers   int    `json:"workers"`
	QueueSize int    `json:"queue_size"`
}

// snapshotEntry чанк в снимке менеджера
type snapshotEntry struct {
	state ChunkState
	data  *ChunkData
}

// ChunkManager отслеживает состояние чанков и решает, какие генерировать и выгружать.
//
// Карта состояний принадлежит потребляющей горутине: Tick, SpawnAround,
// DrainCompleted и DespawnFar вызываются только из нее. Для остальных горутин
// (отладочный API) менеджер публикует снимок под RWMutex.
type ChunkManager struct {
	cfg       config.ChunkConfig
	grid      Grid
	generator *ChunkGenerator
	sink      MutationSink
	viewers   ViewerRegistry
	atlas     AtlasRef
	pool      *pool

	cache    ChunkCache
	cacheGen uint64
	bus      eventbus.EventBus
	metrics  *metrics.StreamerMetrics
	logger   *logging.Logger

	states  map[vec.Vec2]ChunkState
	data    map[vec.Vec2]*ChunkData
	pending int
	tick    uint64
	totals  ManagerStats

	snapMu   sync.RWMutex
	snapshot map[vec.Vec2]snapshotEntry
	snapStat ManagerStats
}

// ManagerOption настраивает ChunkManager
type ManagerOption func(*ChunkManager)

// WithChunkCache включает кеш чанков. gen (config.GenerationKey) входит в ключ кеша:
// чанки другой конфигурации рельефа и тайлсета не читаются.
func WithChunkCache(cache ChunkCache, gen uint64) ManagerOption {
	return func(m *ChunkManager) {
		m.cache = cache
		m.cacheGen = gen
	}
}

// WithEventBus публикует события chunk.spawned / chunk.despawned
func WithEventBus(bus eventbus.EventBus) ManagerOption {
	return func(m *ChunkManager) { m.bus = bus }
}

// WithMetrics включает Prometheus-метрики
func WithMetrics(sm *metrics.StreamerMetrics) ManagerOption {
	return func(m *ChunkManager) { m.metrics = sm }
}

// WithAtlas задает ссылку на атлас, передаваемую в мутации
func WithAtlas(atlas AtlasRef) ManagerOption {
	return func(m *ChunkManager) { m.atlas = atlas }
}

// WithLogger задает логгер компонента
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *ChunkManager) { m.logger = l }
}

// NewChunkManager создает менеджер и запускает пул воркеров.
// Конфигурация проверяется заранее; здесь дополнительно проверяется гистерезис.
func NewChunkManager(ctx context.Context, cfg *config.ChunkConfig, generator *ChunkGenerator, sink MutationSink, viewers ViewerRegistry, opts ...ManagerOption) (*ChunkManager, error) {
	if generator == nil || sink == nil || viewers == nil {
		return nil, errors.New("менеджеру чанков нужны генератор, приемник мутаций и наблюдатели")
	}
	if cfg.Workers <= 0 || cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("%w: workers и queue_size должны быть > 0", config.ErrInvalidConfig)
	}
	if worst := cfg.WorstCaseSpawnDistanceSq(); cfg.DespawnDistanceSq <= worst {
		return nil, fmt.Errorf("%w: despawn_distance_sq (%g) должен быть больше %g",
			config.ErrInvalidConfig, cfg.DespawnDistanceSq, worst)
	}

	m := &ChunkManager{
		cfg:       *cfg,
		grid:      generator.Grid(),
		generator: generator,
		sink:      sink,
		viewers:   viewers,
		states:    make(map[vec.Vec2]ChunkState),
		data:      make(map[vec.Vec2]*ChunkData),
		snapshot:  make(map[vec.Vec2]snapshotEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.GetChunkLogger()
	}

	m.totals.Workers = cfg.Workers
	m.totals.QueueSize = cfg.QueueSize
	m.pool = newPool(ctx, cfg.Workers, cfg.QueueSize, m.work)

	m.logger.Info("Менеджер чанков: %dx%d тайлов, радиус %dx%d, воркеров %d, очередь %d",
		cfg.Width, cfg.Height, cfg.SpawnRadiusX, cfg.SpawnRadiusY, cfg.Workers, cfg.QueueSize)
	m.publishSnapshot()
	return m, nil
}

// work выполняется на воркере: сначала дисковый кеш, затем генерация
func (m *ChunkManager) work(ctx context.Context, task GenerationTask) GenerationResult {
	start := time.Now()

	if m.cache != nil {
		data, ok, err := m.cache.Load(ctx, m.cacheGen, task.Coord)
		switch {
		case err != nil:
			m.metrics.StoreResult("error")
			m.logger.Warn("Ошибка чтения кеша чанка %s: %v", task.Coord, err)
		case ok && data.Valid(m.grid.ChunkSize.X, m.grid.ChunkSize.Y) && data.Coord == task.Coord:
			m.metrics.StoreResult("hit")
			return GenerationResult{Coord: task.Coord, Data: data, FromCache: true, Elapsed: time.Since(start)}
		default:
			m.metrics.StoreResult("miss")
		}
	}

	data := m.generator.Generate(ctx, task.Coord)
	elapsed := time.Since(start)
	m.metrics.ObserveGeneration(elapsed)

	if m.cache != nil {
		if err := m.cache.Store(ctx, m.cacheGen, data); err != nil {
			m.logger.Warn("Ошибка записи кеша чанка %s: %v", task.Coord, err)
		}
	}
	return GenerationResult{Coord: task.Coord, Data: data, Elapsed: elapsed}
}

// Tick один шаг потребляющей стороны: постановка, сбор результатов, выгрузка
func (m *ChunkManager) Tick(ctx context.Context) TickReport {
	start := time.Now()
	positions := m.viewers.ViewerPositions()

	report := TickReport{Tick: m.tick}
	report.Submitted = m.spawnAround(positions)
	report.Applied = m.drainCompleted(ctx)
	report.Despawned = m.despawnFar(ctx, positions)
	report.Duration = time.Since(start)

	m.tick++
	m.metrics.ObserveTick(report.Duration)
	m.publishSnapshot()

	if report.Submitted+report.Applied+report.Despawned > 0 {
		m.logger.Trace("Тик %d: поставлено=%d применено=%d выгружено=%d в работе=%d за %s",
			report.Tick, report.Submitted, report.Applied, report.Despawned, m.pending, report.Duration)
	}
	return report
}

// SpawnAround ставит генерацию для всех чанков в окне вокруг каждой позиции,
// которые еще не загружены и не генерируются. Возвращает число поставленных задач.
func (m *ChunkManager) SpawnAround(positions []vec.Vec2Float) int {
	n := m.spawnAround(positions)
	m.publishSnapshot()
	return n
}

// DrainCompleted применяет все готовые результаты, не блокируясь
func (m *ChunkManager) DrainCompleted(ctx context.Context) int {
	n := m.drainCompleted(ctx)
	m.publishSnapshot()
	return n
}

// DespawnFar выгружает чанки, привязка которых дальше порога от всех наблюдателей
func (m *ChunkManager) DespawnFar(ctx context.Context, positions []vec.Vec2Float) int {
	n := m.despawnFar(ctx, positions)
	m.publishSnapshot()
	return n
}

type spawnCandidate struct {
	coord  vec.Vec2
	distSq int
}

func (m *ChunkManager) spawnAround(positions []vec.Vec2Float) int {
	rx, ry := m.cfg.SpawnRadiusX, m.cfg.SpawnRadiusY

	seen := make(map[vec.Vec2]struct{})
	var candidates []spawnCandidate
	for _, pos := range positions {
		center := m.grid.PixelToChunk(pos)
		// Окно [c-R, c+R) по каждой оси
		for x := center.X - rx; x < center.X+rx; x++ {
			for y := center.Y - ry; y < center.Y+ry; y++ {
				coord := vec.Vec2{X: x, Y: y}
				if m.states[coord] != ChunkUnloaded {
					continue
				}
				if _, dup := seen[coord]; dup {
					continue
				}
				seen[coord] = struct{}{}
				candidates = append(candidates, spawnCandidate{coord: coord, distSq: coord.DistanceSquared(center)})
			}
		}
	}
	if len(candidates) == 0 {
		return 0
	}

	// Ближние чанки первыми: при ограничении они не ждут дальних
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distSq != candidates[j].distSq {
			return candidates[i].distSq < candidates[j].distSq
		}
		a, b := candidates[i].coord, candidates[j].coord
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	submitted := 0
	now := time.Now()
	for i, c := range candidates {
		if m.cfg.MaxSubmitPerTick > 0 && submitted >= m.cfg.MaxSubmitPerTick {
			m.metrics.SubmitDeferred("throttle", len(candidates)-i)
			break
		}
		if m.pending >= m.cfg.QueueSize || !m.pool.trySubmit(GenerationTask{Coord: c.coord, Submitted: now}) {
			m.metrics.SubmitDeferred("queue_full", len(candidates)-i)
			break
		}

		m.states[c.coord] = ChunkPending
		m.pending++
		submitted++
		m.totals.Submitted++
		m.metrics.ChunkSubmitted()
		logging.LogChunkSpawn(m.logger, c.coord.X, c.coord.Y)
	}
	return submitted
}

func (m *ChunkManager) drainCompleted(ctx context.Context) int {
	applied := 0
	for {
		result, ok := m.pool.poll()
		if !ok {
			return applied
		}
		if m.applyResult(ctx, result) {
			applied++
		}
	}
}

// applyResult переводит Pending -> Resident ровно один раз на координату.
// Результат для чанка не в состоянии Pending игнорируется.
func (m *ChunkManager) applyResult(ctx context.Context, result GenerationResult) bool {
	if m.states[result.Coord] != ChunkPending {
		m.totals.Ignored++
		m.metrics.DuplicateCompletion()
		m.logger.Debug("Повторное завершение чанка %s в состоянии %s, пропуск", result.Coord, m.states[result.Coord])
		return false
	}
	m.pending--

	if err := m.sink.Apply(BuildSpawnBatch(result.Data, m.grid, m.atlas)); err != nil {
		// Чанк вернется в очередь на следующем тике
		delete(m.states, result.Coord)
		m.logger.Error("Не удалось применить чанк %s: %v", result.Coord, err)
		return false
	}

	m.states[result.Coord] = ChunkResident
	m.data[result.Coord] = result.Data
	m.totals.Applied++
	if result.FromCache {
		m.metrics.ChunkApplied("cache")
	} else {
		m.metrics.ChunkApplied("generated")
	}

	m.publishEvent(ctx, eventbus.EventChunkSpawned, eventbus.ChunkEvent{
		X:          result.Coord.X,
		Y:          result.Coord.Y,
		Tick:       m.tick,
		FromCache:  result.FromCache,
		BorderSize: len(result.Data.Border),
	})
	return true
}

func (m *ChunkManager) despawnFar(ctx context.Context, positions []vec.Vec2Float) int {
	if len(positions) == 0 {
		return 0
	}

	var far []vec.Vec2
	nearest := make(map[vec.Vec2]float64)
	for coord, state := range m.states {
		if state != ChunkResident {
			continue
		}
		anchor := m.grid.ChunkToPixel(coord)
		best := math.Inf(1)
		for _, p := range positions {
			if d := anchor.DistanceSquared(p); d < best {
				best = d
			}
		}
		if best > m.cfg.DespawnDistanceSq {
			far = append(far, coord)
			nearest[coord] = best
		}
	}
	sortCoords(far)

	despawned := 0
	for _, coord := range far {
		if err := m.sink.Apply(BuildDespawnBatch(coord)); err != nil {
			m.logger.Error("Не удалось выгрузить чанк %s: %v", coord, err)
			continue
		}
		delete(m.states, coord)
		delete(m.data, coord)
		despawned++
		m.totals.Despawned++
		m.metrics.ChunkDespawned()
		logging.LogChunkDespawn(m.logger, coord.X, coord.Y, nearest[coord])

		m.publishEvent(ctx, eventbus.EventChunkDespawned, eventbus.ChunkEvent{
			X:          coord.X,
			Y:          coord.Y,
			Tick:       m.tick,
			DistanceSq: nearest[coord],
		})
	}
	return despawned
}

func (m *ChunkManager) publishEvent(ctx context.Context, eventType string, payload eventbus.ChunkEvent) {
	if m.bus == nil {
		return
	}
	ev, err := eventbus.NewChunkEnvelope(eventType, payload)
	if err != nil {
		m.logger.Warn("Ошибка создания события %s: %v", eventType, err)
		return
	}
	if err := m.bus.Publish(ctx, ev); err != nil {
		m.logger.Warn("Ошибка публикации события %s: %v", eventType, err)
	}
}

// publishSnapshot копирует состояние для читателей из других горутин
func (m *ChunkManager) publishSnapshot() {
	snap := make(map[vec.Vec2]snapshotEntry, len(m.states))
	resident := 0
	for coord, state := range m.states {
		snap[coord] = snapshotEntry{state: state, data: m.data[coord]}
		if state == ChunkResident {
			resident++
		}
	}

	stats := m.totals
	stats.Tick = m.tick
	stats.Resident = resident
	stats.Pending = m.pending

	m.snapMu.Lock()
	m.snapshot = snap
	m.snapStat = stats
	m.snapMu.Unlock()

	m.metrics.SetCounts(resident, m.pending)
}

// State состояние чанка по последнему снимку
func (m *ChunkManager) State(coord vec.Vec2) ChunkState {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snapshot[coord].state
}

// Chunk данные загруженного чанка по последнему снимку
func (m *ChunkManager) Chunk(coord vec.Vec2) (*ChunkData, bool) {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	s, ok := m.snapshot[coord]
	if !ok || s.state != ChunkResident {
		return nil, false
	}
	return s.data, true
}

// Chunks координаты чанков в состоянии state, отсортированные
func (m *ChunkManager) Chunks(state ChunkState) []vec.Vec2 {
	m.snapMu.RLock()
	out := make([]vec.Vec2, 0, len(m.snapshot))
	for coord, s := range m.snapshot {
		if s.state == state {
			out = append(out, coord)
		}
	}
	m.snapMu.RUnlock()

	sortCoords(out)
	return out
}

// Stats счетчики по последнему снимку
func (m *ChunkManager) Stats() ManagerStats {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snapStat
}

// Grid сетка менеджера
func (m *ChunkManager) Grid() Grid {
	return m.grid
}

// Close останавливает пул воркеров. Чанки в работе отбрасываются.
func (m *ChunkManager) Close() error {
	err := m.pool.close()
	m.logger.Info("Менеджер чанков остановлен: загружено=%d в работе=%d", m.totals.Applied-m.totals.Despawned, m.pending)
	return err
}
