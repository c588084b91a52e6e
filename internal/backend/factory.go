package backend

import (
	"context"
	"fmt"

	"dtmoney/internal/log"
	"dtmoney/internal/storage"
	"dtmoney/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLBackend(ctx, storage.DialectSQLite, config.SQLiteDBPath)
	case PostgresBackend:
		return f.createSQLBackend(ctx, storage.DialectPostgres, config.PostgresURL)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, d storage.Dialect, dsn string) (*BackendResult, error) {
	var (
		repo *storage.SQLRepository
		err  error
	)
	if d == storage.DialectSQLite {
		repo, err = storage.NewSQLiteRepository(dsn, f.logger)
	} else {
		repo, err = storage.NewPostgresRepository(dsn, f.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", d, err)
	}

	f.logger.InfoContext(ctx, "Initialized SQL backend", "dialect", string(d))

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
		Ping:       repo.Ping,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", config.SeedFile, log.FieldCount, store.Len())

	return &BackendResult{Repository: store}, nil
}
