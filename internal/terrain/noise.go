package terrain

import (
	"fmt"
	"math"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/aquilax/go-perlin"
)

// NoiseField детерминированное поле высот на основе фрактального шума Перлина.
// Для фиксированного сида и параметров значение зависит только от (x,y).
// Безопасен для одновременного использования из нескольких воркеров.
type NoiseField struct {
	noise      *perlin.Perlin
	classifier *LayerClassifier
	cache      *noiseCache

	seed      int64
	frequency float64
	zoom      float64
	samples   int
	clampMin  float64
	clampMax  float64
}

// NewNoiseField создает поле шума по конфигурации рельефа
func NewNoiseField(cfg *config.TerrainConfig) (*NoiseField, error) {
	classifier, err := NewLayerClassifier(cfg.LayerRange)
	if err != nil {
		return nil, err
	}
	if cfg.Samples <= 0 || cfg.Zoom <= 0 {
		return nil, fmt.Errorf("%w: samples и zoom должны быть > 0", config.ErrInvalidConfig)
	}

	cache, err := newNoiseCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	logging.GetTerrainLogger().Info("Поле шума: seed=%d octaves=%d zoom=%.1f samples=%d уровней=%d кеш=%d",
		cfg.Seed, cfg.Octaves, cfg.Zoom, cfg.Samples, classifier.Levels(), cfg.CacheSize)

	return &NoiseField{
		noise:      perlin.NewPerlin(cfg.Alpha, cfg.Beta, cfg.Octaves, cfg.Seed),
		classifier: classifier,
		cache:      cache,
		seed:       cfg.Seed,
		frequency:  cfg.Frequency,
		zoom:       cfg.Zoom,
		samples:    cfg.Samples,
		clampMin:   cfg.ClampMin,
		clampMax:   cfg.ClampMax,
	}, nil
}

// Sample возвращает усредненное значение шума тайла в диапазоне [clampMin, clampMax].
// Внутри тайла берется samples x samples точек.
func (n *NoiseField) Sample(x, y int) float64 {
	startX := float64(x) / n.zoom
	startY := float64(y) / n.zoom
	step := 1 / (float64(n.samples) * n.zoom)

	total := 0.0
	for i := 0; i < n.samples; i++ {
		sx := startX + float64(i)*step
		for j := 0; j < n.samples; j++ {
			sy := startY + float64(j)*step
			total += n.noise.Noise2D(sx*n.frequency, sy*n.frequency)
		}
	}

	mean := total/float64(n.samples*n.samples) + 1
	return math.Max(n.clampMin, math.Min(n.clampMax, mean))
}

// GetLevel возвращает уровень рельефа тайла, используя кеш
func (n *NoiseField) GetLevel(x, y int) TerrainLevel {
	if level, ok := n.cache.get(x, y); ok {
		return level
	}

	level := n.classifier.Classify(n.Sample(x, y))
	n.cache.set(x, y, level)
	return level
}

// Levels количество уровней рельефа
func (n *NoiseField) Levels() int {
	return n.classifier.Levels()
}

// Seed сид поля
func (n *NoiseField) Seed() int64 {
	return n.seed
}

// CacheStats возвращает счетчики попаданий и промахов кеша
func (n *NoiseField) CacheStats() CacheStats {
	return n.cache.stats()
}

// Close освобождает кеш
func (n *NoiseField) Close() {
	n.cache.close()
}
