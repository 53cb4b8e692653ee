package backend

import (
	"context"
	"fmt"

	"cashbook/internal/kv/file"
	"cashbook/internal/kv/memory"
	"cashbook/internal/log"
	"cashbook/internal/storage"
)

// Factory creates slots based on configuration.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentBackend)
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *Factory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &BackendResult{Slot: repo, Type: cfg.Type, Cleanup: repo.Close}, nil

	case FileBackend:
		slot, err := file.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file backend", "data_dir", cfg.DataDir)
		return &BackendResult{Slot: slot, Type: cfg.Type, Cleanup: noop}, nil

	default:
		f.logger.WarnContext(ctx, "Initialized memory backend, data is lost on exit")
		return &BackendResult{Slot: memory.New(), Type: cfg.Type, Cleanup: noop}, nil
	}
}

func noop() error { return nil }
