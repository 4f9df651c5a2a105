package state

import (
	"context"
	"slices"
	"sync"
)

// Backend durably stores the full state blob.
type Backend interface {
	// Load returns the stored blob, or nil when nothing was stored yet.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored blob.
	Save(ctx context.Context, blob []byte) error
}

// MemoryBackend keeps the blob in memory and counts saves.
type MemoryBackend struct {
	mu    sync.Mutex
	blob  []byte
	saves int
}

// NewMemoryBackend returns a backend preloaded with blob (may be nil).
func NewMemoryBackend(blob []byte) *MemoryBackend {
	return &MemoryBackend{blob: slices.Clone(blob)}
}

// Load implements Backend.
func (m *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.blob), nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(ctx context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = slices.Clone(blob)
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Blob returns the last saved blob.
func (m *MemoryBackend) Blob() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.blob)
}
