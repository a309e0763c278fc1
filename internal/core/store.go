package core

import (
	"context"
	"time"
)

// EntityStore persists entities of every registered kind.
type EntityStore interface {
	// Create stores a new entity. Returns ErrDuplicateIdentifier if an entity
	// of the same kind with the same id exists, including soft-deleted ones.
	// A failed create never writes anything.
	Create(ctx context.Context, e *Entity) error

	// Upsert creates the entity, or replaces the fields of an existing one
	// (restoring it if soft-deleted). Reports whether a row was created.
	Upsert(ctx context.Context, e *Entity) (created bool, err error)

	// Get retrieves a live entity. Returns ErrNotFound if absent or deleted.
	Get(ctx context.Context, kind, id string) (*Entity, error)

	// Update replaces the fields of a live entity. Returns ErrNotFound.
	Update(ctx context.Context, e *Entity) error

	// Delete soft-deletes a live entity. Returns ErrNotFound.
	Delete(ctx context.Context, kind, id string) error

	// List returns a page of entities and the total matching count.
	List(ctx context.Context, filter ListFilter) ([]Entity, int64, error)
}

// SequenceStore backs identifier allocation with a per-prefix counter.
type SequenceStore interface {
	// LastIdentifier returns the well-formed identifier of kind with the
	// highest numeric suffix under prefix, counting soft-deleted rows.
	// Returns "" when there is none.
	LastIdentifier(ctx context.Context, kind, prefix string) (string, error)

	// ClaimSequence atomically reserves and returns the next sequence number
	// for prefix: greater than every number claimed or raised before, and at
	// least floor. Concurrent callers never receive the same number.
	ClaimSequence(ctx context.Context, prefix string, floor int64) (int64, error)

	// RaiseSequence moves the counter for prefix up to at least n without
	// claiming anything beyond it. Used when ids arrive from imports.
	RaiseSequence(ctx context.Context, prefix string, n int64) error
}

// ActivityStore persists the activity log.
type ActivityStore interface {
	LogActivity(ctx context.Context, entry *ActivityEntry) error
	GetActivity(ctx context.Context, id string) (*ActivityEntry, error)
	ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, int64, error)

	// PruneActivity deletes up to limit entries created before cutoff and
	// returns how many were removed.
	PruneActivity(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Store bundles every persistence concern the service needs.
type Store interface {
	EntityStore
	SequenceStore
	ActivityStore
}
