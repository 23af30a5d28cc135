// Package backend builds the storage and event stack selected by
// configuration.
package backend

import (
	"context"
	"slices"

	"kharcha/internal/amqp"
	"kharcha/internal/services"
	"kharcha/internal/store"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult is a ready repository plus the optional event client.
// Publisher is nil, not a typed nil, when events are disabled.
type BackendResult struct {
	Repository store.Repository
	Events     *amqp.Client
	Publisher  services.Publisher
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend seed directory
	DataDirectory string

	// Events, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	return slices.Contains(BackendTypes, bt)
}
