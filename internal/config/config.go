package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig возвращается при любой ошибке валидации конфигурации.
// Ошибки таблиц считаются ошибками сборки данных и должны обнаруживаться на старте.
var ErrInvalidConfig = errors.New("invalid config")

// MaxWeightDraw верхняя граница случайного броска при выборе варианта тайла
const MaxWeightDraw = 1000

// Config корневая структура конфигурации клиента.
// Загружается один раз при старте, перезагрузка во время работы не поддерживается.
type Config struct {
	Terrain   TerrainConfig   `yaml:"terrain"`
	Chunks    ChunkConfig     `yaml:"chunks"`
	Tileset   TilesetConfig   `yaml:"tileset"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TerrainConfig параметры шума и классификации рельефа
type TerrainConfig struct {
	Seed       int64     `yaml:"seed"`
	Octaves    int32     `yaml:"octaves"`
	Frequency  float64   `yaml:"frequency"`
	Alpha      float64   `yaml:"alpha"` // Затухание амплитуды между октавами
	Beta       float64   `yaml:"beta"`  // Рост частоты между октавами
	Zoom       float64   `yaml:"zoom"`
	Samples    int       `yaml:"samples"` // Суперсэмплинг: samples x samples точек на тайл
	ClampMin   float64   `yaml:"clamp_min"`
	ClampMax   float64   `yaml:"clamp_max"`
	CacheSize  int64     `yaml:"cache_size"`
	LayerRange []float64 `yaml:"layer_range"`
	WaterLevel uint32    `yaml:"water_level"`
}

// Levels возвращает количество уровней рельефа, задаваемых таблицей порогов
func (t *TerrainConfig) Levels() int {
	return len(t.LayerRange) - 1
}

// ChunkConfig параметры стриминга чанков
type ChunkConfig struct {
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`
	TilePx            float64 `yaml:"tile_px"`
	SpawnRadiusX      int     `yaml:"spawn_radius_x"`
	SpawnRadiusY      int     `yaml:"spawn_radius_y"`
	DespawnDistanceSq float64 `yaml:"despawn_distance_sq"`
	Workers           int     `yaml:"workers"`
	QueueSize         int     `yaml:"queue_size"`
	MaxSubmitPerTick  int     `yaml:"max_submit_per_tick"` // 0 = без ограничения
	VariantSeed       int64   `yaml:"variant_seed"`        // 0 = сид от текущего времени
}

// WorstCaseSpawnDistanceSq квадрат максимального расстояния от наблюдателя
// до якоря чанка, который может попасть в окно спавна.
func (c *ChunkConfig) WorstCaseSpawnDistanceSq() float64 {
	dx := float64((c.SpawnRadiusX+1)*c.Width) * c.TilePx
	dy := float64((c.SpawnRadiusY+1)*c.Height) * c.TilePx
	return dx*dx + dy*dy
}

// TilesetConfig таблицы выбора тайлов атласа
type TilesetConfig struct {
	TilesetSize uint32                       `yaml:"tileset_size"`
	Offsets     map[uint32]uint32            `yaml:"offsets"`
	Weights     map[uint32]map[uint32]uint32 `yaml:"weights"`
	Corners     map[uint32]uint32            `yaml:"corners"`
	// StrictCorners отключает подстановку ближайшей маски: промах по таблице углов
	// становится фатальной ошибкой генерации
	StrictCorners bool `yaml:"strict_corners"`
}

// ServerConfig порты отладочного API и метрик
type ServerConfig struct {
	APIPort     int `yaml:"api_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// StorageConfig кеш сгенерированных чанков на диске и в Redis
type StorageConfig struct {
	Enabled bool        `yaml:"enabled"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig горячий кеш чанков. Пустой Addr выключает Redis.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"`
}

// EventsConfig транспорт событий чанков. Пустой NATSURL - шина в памяти.
type EventsConfig struct {
	BufferSize int           `yaml:"buffer_size"`
	NATSURL    string        `yaml:"nats_url"`
	Stream     string        `yaml:"stream"`
	Retention  time.Duration `yaml:"retention"`
}

// TelemetryConfig настройки OpenTelemetry
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// LoggingConfig настройки логирования
type LoggingConfig struct {
	Dir          string `yaml:"dir"` // Пусто = только консоль
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// GetAPIPort возвращает порт отладочного API с поддержкой fallback значений
func (s *ServerConfig) GetAPIPort() int {
	return getPortWithEnvFallback(s.APIPort, "TILEWORLD_API_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "TILEWORLD_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Default возвращает конфигурацию с таблицами и константами по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load читает YAML файл конфигурации, дополняет пропущенные поля значениями
// по умолчанию и валидирует результат.
// Если path == "", пытается прочитать путь из ENV TILEWORLD_CONFIG,
// иначе возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TILEWORLD_CONFIG")
		if path == "" {
			cfg := Default()
			return cfg, cfg.Validate()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	return Parse(data)
}

// Parse разбирает YAML, дополняет значения по умолчанию и валидирует результат
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults заполняет нулевые поля значениями по умолчанию.
// Уровень воды берется по умолчанию только вместе с таблицей порогов:
// свой layer_range требует явного water_level.
func (c *Config) applyDefaults() {
	t := &c.Terrain
	if t.Octaves == 0 {
		t.Octaves = 3
	}
	if t.Frequency == 0 {
		t.Frequency = 1.0
	}
	if t.Alpha == 0 {
		t.Alpha = 2.0
	}
	if t.Beta == 0 {
		t.Beta = 2.0
	}
	if t.Zoom == 0 {
		t.Zoom = 120
	}
	if t.Samples == 0 {
		t.Samples = 2
	}
	if t.ClampMin == 0 && t.ClampMax == 0 {
		t.ClampMax = 2
	}
	if t.CacheSize == 0 {
		t.CacheSize = 1 << 16
	}
	if len(t.LayerRange) == 0 {
		t.LayerRange = append([]float64(nil), DefaultLayerRange...)
		t.WaterLevel = DefaultWaterLevel
	}

	ch := &c.Chunks
	if ch.Width == 0 {
		ch.Width = 6
	}
	if ch.Height == 0 {
		ch.Height = 6
	}
	if ch.TilePx == 0 {
		ch.TilePx = 16
	}
	if ch.SpawnRadiusX == 0 {
		ch.SpawnRadiusX = 6
	}
	if ch.SpawnRadiusY == 0 {
		ch.SpawnRadiusY = 4
	}
	if ch.DespawnDistanceSq == 0 {
		r := float64(ch.Width*ch.SpawnRadiusX+ch.Height*ch.SpawnRadiusY)*ch.TilePx + 2
		ch.DespawnDistanceSq = r * r
	}
	if ch.Workers == 0 {
		ch.Workers = runtime.NumCPU()
	}
	if ch.QueueSize == 0 {
		ch.QueueSize = 1024
	}

	ts := &c.Tileset
	if ts.TilesetSize == 0 {
		ts.TilesetSize = DefaultTilesetSize
	}
	if len(ts.Offsets) == 0 {
		ts.Offsets = DefaultOffsets()
	}
	if len(ts.Weights) == 0 {
		ts.Weights = DefaultWeights()
	}
	if len(ts.Corners) == 0 {
		ts.Corners = DefaultCorners()
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "data"
	}
	if c.Storage.Redis.PoolSize == 0 {
		c.Storage.Redis.PoolSize = 10
	}
	if c.Storage.Redis.TTL == 0 {
		c.Storage.Redis.TTL = time.Hour
	}
	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = 1024
	}
	if c.Events.Stream == "" {
		c.Events.Stream = "TILEWORLD"
	}
	if c.Events.Retention == 0 {
		c.Events.Retention = 24 * time.Hour
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "tileworld"
	}
	if c.Logging.ConsoleLevel == "" {
		c.Logging.ConsoleLevel = "info"
	}
	if c.Logging.FileLevel == "" {
		c.Logging.FileLevel = "debug"
	}
}

// Validate проверяет согласованность конфигурации. Любая ошибка фатальна.
func (c *Config) Validate() error {
	if err := c.Terrain.validate(); err != nil {
		return err
	}
	if err := c.Chunks.validate(); err != nil {
		return err
	}
	return c.Tileset.validate(c.Terrain.Levels())
}

func (t *TerrainConfig) validate() error {
	if err := ValidateLayerRange(t.LayerRange); err != nil {
		return err
	}
	if int(t.WaterLevel) >= t.Levels() {
		return fmt.Errorf("%w: water_level %d вне диапазона уровней [0,%d)", ErrInvalidConfig, t.WaterLevel, t.Levels())
	}
	if t.Octaves <= 0 {
		return fmt.Errorf("%w: octaves должно быть > 0", ErrInvalidConfig)
	}
	if t.Zoom <= 0 || t.Frequency <= 0 {
		return fmt.Errorf("%w: zoom и frequency должны быть > 0", ErrInvalidConfig)
	}
	if t.Samples <= 0 {
		return fmt.Errorf("%w: samples должно быть > 0", ErrInvalidConfig)
	}
	if t.ClampMax <= t.ClampMin {
		return fmt.Errorf("%w: clamp_max (%g) должен быть больше clamp_min (%g)", ErrInvalidConfig, t.ClampMax, t.ClampMin)
	}
	if t.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size не может быть отрицательным", ErrInvalidConfig)
	}
	return nil
}

// ValidateLayerRange проверяет, что таблица порогов строго возрастает
func ValidateLayerRange(ranges []float64) error {
	if len(ranges) < 2 {
		return fmt.Errorf("%w: layer_range должен содержать минимум 2 значения, получено %d", ErrInvalidConfig, len(ranges))
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i] <= ranges[i-1] {
			return fmt.Errorf("%w: layer_range не возрастает на позиции %d (%g <= %g)", ErrInvalidConfig, i, ranges[i], ranges[i-1])
		}
	}
	return nil
}

func (c *ChunkConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: размер чанка должен быть > 0, получено %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.TilePx <= 0 {
		return fmt.Errorf("%w: tile_px должен быть > 0", ErrInvalidConfig)
	}
	if c.SpawnRadiusX <= 0 || c.SpawnRadiusY <= 0 {
		return fmt.Errorf("%w: радиус спавна должен быть > 0", ErrInvalidConfig)
	}
	if c.Workers <= 0 || c.QueueSize <= 0 {
		return fmt.Errorf("%w: workers и queue_size должны быть > 0", ErrInvalidConfig)
	}
	if c.MaxSubmitPerTick < 0 {
		return fmt.Errorf("%w: max_submit_per_tick не может быть отрицательным", ErrInvalidConfig)
	}
	if worst := c.WorstCaseSpawnDistanceSq(); c.DespawnDistanceSq <= worst {
		return fmt.Errorf("%w: despawn_distance_sq (%g) должен быть больше худшего расстояния спавна (%g)",
			ErrInvalidConfig, c.DespawnDistanceSq, worst)
	}
	return nil
}

func (ts *TilesetConfig) validate(levels int) error {
	for level := 0; level < levels; level++ {
		if _, ok := ts.Offsets[uint32(level)]; !ok {
			return fmt.Errorf("%w: нет смещения атласа для уровня %d", ErrInvalidConfig, level)
		}

		weights, ok := ts.Weights[uint32(level)]
		if !ok || len(weights) == 0 {
			return fmt.Errorf("%w: нет таблицы вариантов для уровня %d", ErrInvalidConfig, level)
		}
		if _, ok := weights[0]; !ok {
			return fmt.Errorf("%w: таблица вариантов уровня %d должна начинаться с ключа 0", ErrInvalidConfig, level)
		}
		for key := range weights {
			if key > MaxWeightDraw {
				return fmt.Errorf("%w: ключ %d таблицы уровня %d больше %d", ErrInvalidConfig, key, level, MaxWeightDraw)
			}
		}
	}

	if len(ts.Corners) == 0 {
		return fmt.Errorf("%w: таблица углов пуста", ErrInvalidConfig)
	}
	for mask := range ts.Corners {
		if mask > 0xFF {
			return fmt.Errorf("%w: маска углов %#x не помещается в 8 бит", ErrInvalidConfig, mask)
		}
	}
	return nil
}
