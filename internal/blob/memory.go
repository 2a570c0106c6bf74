package blob

import (
	"context"
	"sync"
)

// Memory is a map-backed store for tests and dev runs.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte

	// FailWrites makes Set/Delete return this error when non-nil; tests use
	// it to simulate a full or unavailable backend.
	FailWrites error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

// Get returns a copy of the slot payload, or nil when absent.
func (m *Memory) Get(_ context.Context, slot string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.slots[slot]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Set replaces the slot payload.
func (m *Memory) Set(_ context.Context, slot string, payload []byte) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.slots[slot] = stored
	return nil
}

// Delete removes the slot.
func (m *Memory) Delete(_ context.Context, slot string) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slot)
	return nil
}

// Healthy always reports true.
func (m *Memory) Healthy(_ context.Context) bool { return true }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
