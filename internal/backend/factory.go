package backend

import (
	"context"
	"fmt"
	"log/slog"

	"dailyspend/internal/ledger/memory"
	"dailyspend/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	repo = repo.WithDefaultTimezone(config.DefaultTimezone)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"default_timezone", config.DefaultTimezone)

	return &Result{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	store := memory.New().WithDefaultTimezone(config.DefaultTimezone)

	f.logger.Info("Initialized memory backend", "default_timezone", config.DefaultTimezone)

	return &Result{
		Store:   store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
