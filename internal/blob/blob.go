// Package blob persists named JSON slots. Every write replaces the whole
// slot payload; there are no partial updates at this layer.
package blob

import "context"

// Slot names used by the records store.
const (
	SlotStudents = "students"
	SlotAutosave = "autosave"
	SlotActivity = "activity"
)

// Store is the abstraction over different backends.
type Store interface {
	// Get returns the slot payload, or nil when the slot is absent.
	Get(ctx context.Context, slot string) ([]byte, error)
	// Set replaces the slot payload.
	Set(ctx context.Context, slot string, payload []byte) error
	// Delete removes the slot. Deleting an absent slot is a no-op.
	Delete(ctx context.Context, slot string) error
	// Healthy verifies the backend is reachable.
	Healthy(ctx context.Context) bool
	Close() error
}
