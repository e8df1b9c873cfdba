package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/tileworld/internal/app"
	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию $TILEWORLD_CONFIG)")
	seed := flag.Int64("seed", 0, "Переопределить сид рельефа")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	applySeedFlag(flag.CommandLine, cfg, *seed)

	// Инициализируем систему логирования
	consoleLevel, err := logging.ParseLevel(cfg.Logging.ConsoleLevel)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fileLevel, err := logging.ParseLevel(cfg.Logging.FileLevel)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logging.GetLoggerManager().Configure(cfg.Logging.Dir, consoleLevel, fileLevel)
	if err := logging.InitDefaultLogger("client"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск клиента мира тайлов...")

	// Канал для получения сигналов ОС
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error("❌ Ошибка инициализации: %v", err)
		os.Exit(1)
	}

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 Отладочный API: http://localhost:%d", cfg.Server.GetAPIPort())
	logging.Info("   📊 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetAPIPort())

	if err := client.Run(ctx); err != nil {
		logging.Error("❌ Ошибка работы клиента: %v", err)
	}
	logging.Info("📡 Завершение работы...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Close(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки: %v", err)
	}

	logging.Info("👋 Клиент успешно остановлен")
}

// applySeedFlag переопределяет сид только если флаг -seed указан явно, в том числе -seed 0
func applySeedFlag(fs *flag.FlagSet, cfg *config.Config, seed int64) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Terrain.Seed = seed
		}
	})
}
