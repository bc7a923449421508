package orchestrator

import (
	"context"
	"sync"

	sharederrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

// DefaultRegistryLimit bounds the in-memory cancellation registry.
const DefaultRegistryLimit = 1024

// Registry stores per-request cancellation flags.
type Registry interface {
	Cancel(ctx context.Context, requestID string) error
	IsCancelled(ctx context.Context, requestID string) (bool, error)
	Clear(ctx context.Context, requestID string) error
}

// MemoryRegistry is a process-local Registry. When full, the oldest flag is
// evicted.
type MemoryRegistry struct {
	mu      sync.Mutex
	limit   int
	seq     uint64
	entries map[string]uint64
}

// NewMemoryRegistry creates a registry holding at most limit flags.
func NewMemoryRegistry(limit int) *MemoryRegistry {
	if limit <= 0 {
		limit = DefaultRegistryLimit
	}
	return &MemoryRegistry{limit: limit, entries: make(map[string]uint64)}
}

// Cancel implements Registry.
func (m *MemoryRegistry) Cancel(_ context.Context, requestID string) error {
	if requestID == "" {
		return sharederrors.ErrEmptyRequestID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[requestID]; !ok && len(m.entries) >= m.limit {
		m.evictOldestLocked()
	}
	m.seq++
	m.entries[requestID] = m.seq
	return nil
}

// IsCancelled implements Registry.
func (m *MemoryRegistry) IsCancelled(_ context.Context, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[requestID]
	return ok, nil
}

// Clear implements Registry.
func (m *MemoryRegistry) Clear(_ context.Context, requestID string) error {
	m.mu.Lock()
	delete(m.entries, requestID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of flags held.
func (m *MemoryRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryRegistry) evictOldestLocked() {
	var oldestID string
	var oldest uint64
	for id, seq := range m.entries {
		if oldestID == "" || seq < oldest {
			oldestID, oldest = id, seq
		}
	}
	delete(m.entries, oldestID)
}
