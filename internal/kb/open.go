// Package kb implements the candidate index and link graph backends of the
// entity linker: an in-memory store, SQLite and PostgreSQL, plus a shared
// lookup cache.
package kb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/config"
	"github.com/gcbaptista/go-entity-linker/services"
)

// Store is a backend that can also be written to.
type Store interface {
	services.KnowledgeBase
	services.KnowledgeBaseImporter
}

// OpenStore opens the backend selected by cfg without any caching.
// The memory backend is seeded from the snapshot when present, otherwise from the fixture.
// A fixture on a SQL backend is imported on open.
func OpenStore(ctx context.Context, cfg config.KnowledgeBaseConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.DriverMemory, "":
		store := NewMemoryStore(logger)
		if cfg.SnapshotPath != "" {
			err := store.LoadSnapshot(ctx, cfg.SnapshotPath)
			if err == nil {
				return store, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			logger.Info("No knowledge base snapshot found", zap.String("path", cfg.SnapshotPath))
		}
		if err := importFixture(ctx, store, cfg.FixturePath, logger); err != nil {
			return nil, err
		}
		if cfg.SnapshotPath != "" && cfg.FixturePath != "" {
			if err := store.SaveSnapshot(cfg.SnapshotPath); err != nil {
				logger.Warn("Failed to save knowledge base snapshot", zap.Error(err))
			}
		}
		return store, nil

	case config.DriverSQLite:
		store, err := OpenSQLite(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		if err := importFixture(ctx, store, cfg.FixturePath, logger); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case config.DriverPostgres:
		store, err := OpenPostgres(ctx, cfg.DSN, cfg.MaxConnections, logger)
		if err != nil {
			return nil, err
		}
		if err := importFixture(ctx, store, cfg.FixturePath, logger); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown knowledge base driver '%s'", cfg.Driver)
	}
}

// Open opens the configured backend and wraps it with the shared lookup cache
// when a cache TTL is configured.
func Open(ctx context.Context, cfg config.KnowledgeBaseConfig, logger *zap.Logger) (Store, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTL <= 0 {
		return store, nil
	}
	return NewCached(store, cfg.CacheTTL, cfg.CacheCapacity, logger), nil
}

func importFixture(ctx context.Context, store services.KnowledgeBaseImporter, path string, logger *zap.Logger) error {
	if path == "" {
		return nil
	}
	data, err := LoadFixture(path)
	if err != nil {
		return err
	}
	logger.Info("Importing knowledge base fixture", zap.String("path", path), zap.Int("rows", data.Size()))
	return store.Import(ctx, data, nil)
}
