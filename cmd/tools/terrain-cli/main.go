package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/terrain"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// Символы уровней для render: от глубокой воды к горам
const levelGlyphs = "~-.,:;=+*#%@"

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации")
		command    = flag.String("cmd", "render", "Команда: render, inspect, store")
		seed       = flag.Int64("seed", 0, "Переопределить сид рельефа")
		x          = flag.Int("x", 0, "Тайл X (левый нижний угол для render)")
		y          = flag.Int("y", 0, "Тайл Y (левый нижний угол для render)")
		width      = flag.Int("w", 64, "Ширина области render в тайлах")
		height     = flag.Int("h", 32, "Высота области render в тайлах")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Terrain.Seed = *seed
		}
	})
	logging.GetLoggerManager().Configure("", logging.WARN, logging.WARN)

	switch *command {
	case "render":
		err = renderLevels(cfg, vec.Vec2{X: *x, Y: *y}, *width, *height)
	case "inspect":
		err = inspectTile(cfg, vec.Vec2{X: *x, Y: *y})
	case "store":
		err = showStoreStats(cfg)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// renderLevels печатает карту уровней. Север (+Y) сверху.
func renderLevels(cfg *config.Config, origin vec.Vec2, width, height int) error {
	field, err := terrain.NewNoiseField(&cfg.Terrain)
	if err != nil {
		return err
	}
	defer field.Close()

	fmt.Printf("🗺️  seed=%d область (%d,%d) %dx%d, уровень воды %d\n",
		field.Seed(), origin.X, origin.Y, width, height, cfg.Terrain.WaterLevel)

	var sb strings.Builder
	for row := height - 1; row >= 0; row-- {
		for col := 0; col < width; col++ {
			level := field.GetLevel(origin.X+col, origin.Y+row)
			sb.WriteByte(glyph(level))
		}
		sb.WriteByte('\n')
	}
	fmt.Print(sb.String())

	stats := field.CacheStats()
	fmt.Printf("\n📊 Кеш шума: hits=%d misses=%d\n", stats.Hits, stats.Misses)
	return nil
}

func glyph(level terrain.TerrainLevel) byte {
	if int(level) >= len(levelGlyphs) {
		return levelGlyphs[len(levelGlyphs)-1]
	}
	return levelGlyphs[level]
}

// inspectTile печатает уровень, маску и арт тайла в JSON
func inspectTile(cfg *config.Config, tile vec.Vec2) error {
	gen, field, err := world.NewGeneratorFromConfig(cfg)
	if err != nil {
		return err
	}
	defer field.Close()

	info := gen.InspectTile(tile)
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// showStoreStats печатает число сохраненных чанков текущей конфигурации
func showStoreStats(cfg *config.Config) error {
	store, err := storage.NewChunkStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	gen, err := cfg.GenerationKey()
	if err != nil {
		return err
	}
	count, err := store.Count(gen)
	if err != nil {
		return err
	}
	fmt.Printf("💾 %s: seed=%d отпечаток=%016x чанков=%d\n", cfg.Storage.Path, cfg.Terrain.Seed, gen, count)
	return nil
}
