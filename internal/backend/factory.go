package backend

import (
	"context"
	"errors"
	"fmt"

	"kharcha/internal/amqp"
	"kharcha/internal/log"
	"kharcha/internal/storage"
	"kharcha/internal/store"
	"kharcha/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the repository and, when configured, the AMQP client.
// A broker that cannot be reached is logged and events stay disabled.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo store.Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		repo = f.createMemoryBackend(ctx, config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Repository: repo}
	if client := f.connectEvents(ctx, config); client != nil {
		result.Events = client
		result.Publisher = client
	}
	result.Cleanup = func() error {
		var errs []error
		if result.Events != nil {
			errs = append(errs, result.Events.Close())
		}
		errs = append(errs, repo.Close())
		return errors.Join(errs...)
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (store.Repository, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) store.Repository {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	s := memory.NewFromFiles(dataDir)
	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	return s
}

func (f *DefaultFactory) connectEvents(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP URL not set, ledger events disabled")
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
