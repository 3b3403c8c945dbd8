package store

import (
	"context"
	"errors"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// UpdateFunc maps the current room state to the next one. It receives
// the default empty state when the room does not exist, and must not
// retain the argument (implementations may call it more than once on
// contention).
type UpdateFunc func(domain.RoomState) domain.RoomState

// Store is the shared, lease-expiring room-state store.
//
// Update must be atomic per room key: concurrent updates of the same
// room are applied in some serial order, never interleaved. Every
// successful update refreshes the room's lease, so an idle room is
// reclaimed after the TTL regardless of how its last connection ended.
// Updates that produce an empty room delete the key instead of writing
// it back.
type Store interface {
	// Get returns the room state and whether the room exists. A missing
	// or expired room is not an error.
	Get(ctx context.Context, roomID string) (domain.RoomState, bool, error)

	// Update atomically applies fn to the current-or-default state and
	// persists the result with a refreshed lease.
	Update(ctx context.Context, roomID string, fn UpdateFunc) (domain.RoomState, error)

	Close() error
}

// ErrUpdateConflict is returned when an optimistic-concurrency backend
// exhausts its retries for a contended room key.
var ErrUpdateConflict = errors.New("room update conflict: retries exhausted")
