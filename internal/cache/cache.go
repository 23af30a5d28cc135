// Package cache holds the in-process read caches of the services.
package cache

import (
	"log/slog"
	"time"
)

// Cache is the read-through cache a service depends on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry; writes call it to invalidate derived data.
	Purge()
	Size() int
}

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries out of registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *slog.Logger
	started     bool
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Call before StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Swept expired cache entries", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine started by StartCleanup.
func (m *Manager) Stop() {
	select {
	case <-m.stopCleanup:
		return
	default:
	}
	close(m.stopCleanup)
	if m.started {
		<-m.cleanupDone
	}
}
