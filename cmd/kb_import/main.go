package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/config"
	"github.com/gcbaptista/go-entity-linker/internal/kb"
	"github.com/gcbaptista/go-entity-linker/internal/logging"
)

func main() {
	var (
		fixture  = flag.String("fixture", "", "YAML knowledge base to import (required)")
		driver   = flag.String("driver", config.DriverSQLite, "Target driver: sqlite, postgres or memory")
		dsn      = flag.String("dsn", "", "SQLite file path or PostgreSQL connection string")
		snapshot = flag.String("snapshot", "", "Gob snapshot to write (memory driver)")
		logLevel = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	if *fixture == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -fixture kb.yaml [-driver sqlite -dsn kb.db | -driver memory -snapshot kb.gob]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger, err := logging.New(*logLevel, "console")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := importFixture(ctx, *fixture, *driver, *dsn, *snapshot, logger); err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}
}

func importFixture(ctx context.Context, fixture, driver, dsn, snapshot string, logger *zap.Logger) error {
	data, err := kb.LoadFixture(fixture)
	if err != nil {
		return err
	}

	cfg := config.KnowledgeBaseConfig{Driver: driver, DSN: dsn, MaxConnections: 4}
	if driver == config.DriverMemory && snapshot == "" {
		return fmt.Errorf("the memory driver needs -snapshot to keep the imported data")
	}

	store, err := kb.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close knowledge base", zap.Error(err))
		}
	}()

	lastDecile := -1
	err = store.Import(ctx, data, func(done, total int) {
		percent := done * 100 / max(total, 1)
		if percent/10 != lastDecile {
			lastDecile = percent / 10
			logger.Info("Import progress", zap.Int("done", done), zap.Int("total", total), zap.Int("percent", percent))
		}
	})
	if err != nil {
		return err
	}
	logger.Info("Imported knowledge base", zap.String("fixture", fixture), zap.String("driver", driver), zap.Int("rows", data.Size()))

	if memory, ok := store.(*kb.MemoryStore); ok {
		return memory.SaveSnapshot(snapshot)
	}
	return nil
}
