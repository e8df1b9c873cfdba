package config

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// generationInputs настройки, от которых зависит содержимое сгенерированного чанка
type generationInputs struct {
	Terrain     TerrainConfig `yaml:"terrain"`
	Tileset     TilesetConfig `yaml:"tileset"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	VariantSeed int64         `yaml:"variant_seed"`
}

// GenerationKey отпечаток рельефа, тайлсета и размеров чанка.
// Входит в ключ кеша чанков: чанки, сгенерированные с другими таблицами, не переиспользуются.
// Размер кеша шума на результат не влияет и в отпечаток не входит.
func (c *Config) GenerationKey() (uint64, error) {
	in := generationInputs{
		Terrain:     c.Terrain,
		Tileset:     c.Tileset,
		Width:       c.Chunks.Width,
		Height:      c.Chunks.Height,
		VariantSeed: c.Chunks.VariantSeed,
	}
	in.Terrain.CacheSize = 0

	// yaml.v3 сортирует ключи карт, поэтому вывод детерминирован
	raw, err := yaml.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации настроек генерации: %w", err)
	}
	return xxhash.Sum64(raw), nil
}
