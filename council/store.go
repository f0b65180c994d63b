package council

import (
	"context"

	"github.com/moltenlabs/councilflow/types"
)

// Store is the injected registry of council sessions. Implementations can
// back the registry with different storage backends (in-memory, Redis).
//
// The store mediates every state transition: Confirm is the only way to
// move a council from pending to active, and all mutations of an active
// council go through the ActiveCouncil handle it returns. Councils in
// pending or complete state are therefore structurally immutable to
// callers.
type Store interface {
	// Create inserts a new council. Fails with DUPLICATE_ID if the id
	// already exists.
	Create(ctx context.Context, c *types.Council) error

	// Get returns a copy of the council, or NOT_FOUND.
	Get(ctx context.Context, id string) (*types.Council, error)

	// Confirm transitions a pending council to active and returns a
	// mutation handle. It is a guarded no-op: if the council is missing
	// or not pending it returns (nil, false) without error, since this
	// represents a race the caller can safely ignore.
	Confirm(ctx context.Context, id string) (ActiveCouncil, bool)

	// Active returns a mutation handle for a council that is already
	// active. Fails with NOT_FOUND for unknown ids and INVALID_TRANSITION
	// for councils in any other state.
	Active(ctx context.Context, id string) (ActiveCouncil, error)

	// ListByStatus returns all councils in the given state, in insertion
	// order.
	ListByStatus(ctx context.Context, status types.CouncilStatus) ([]*types.Council, error)

	// FirstByStatus returns the oldest council in the given state, or
	// NOT_FOUND. This is the degraded no-id addressing mode used by the
	// chat-trigger layer; id-addressed operations should be preferred.
	FirstByStatus(ctx context.Context, status types.CouncilStatus) (*types.Council, error)

	// Close releases store resources.
	Close() error
}

// ActiveCouncil is a handle to a council in the active state, obtained
// from a successful Confirm (or Active). All read-modify-write operations
// on one council are serialized through its handle.
type ActiveCouncil interface {
	// ID returns the council id the handle refers to.
	ID() string

	// Snapshot returns a copy of the council's current state.
	Snapshot(ctx context.Context) (*types.Council, error)

	// Mutate applies fn to the council under the per-council lock and
	// commits the result. The mutation is atomic: if fn returns an error,
	// nothing is persisted. Fails with INVALID_TRANSITION once the
	// council has left the active state, so a completed council is
	// frozen. fn may itself move the status to complete as its final
	// write.
	Mutate(ctx context.Context, fn func(c *types.Council) error) error
}

// errNotFound builds the canonical NOT_FOUND error for a council id.
func errNotFound(id string) *types.Error {
	return types.NewError(types.ErrNotFound, "council not found").WithCouncilID(id)
}

// errNotActive builds the canonical INVALID_TRANSITION error for an
// operation that requires the active state.
func errNotActive(id string, status types.CouncilStatus) *types.Error {
	return types.NewError(types.ErrInvalidTransition,
		"council is "+string(status)+", operation requires active state").WithCouncilID(id)
}
