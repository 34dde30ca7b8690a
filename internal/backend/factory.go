package backend

import (
	"context"
	"fmt"

	"ledgerdash/internal/ledger"
	"ledgerdash/internal/ledger/memory"
	"ledgerdash/internal/log"
	"ledgerdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	cats, wallets := ledger.LoadSeeds(dataDir(config))
	if err := repo.EnsureWorkspace(ctx, config.DefaultWorkspace, cats, wallets); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to seed default workspace: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: repo, Ready: repo.Ping, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	dir := dataDir(config)
	cats, wallets := ledger.LoadSeeds(dir)
	store := memory.New()
	store.AddWorkspace(config.DefaultWorkspace, cats, wallets)

	f.logger.Info("Initialized memory backend", "data_directory", dir)
	return &Result{
		Store:   store,
		Ready:   func(context.Context) error { return nil },
		Cleanup: func() error { return nil },
	}, nil
}

func dataDir(config Config) string {
	if config.DataDirectory == "" {
		return "data"
	}
	return config.DataDirectory
}
