// Package memstore is an in-process implementation of core.Store. It backs
// the tests and the server's DATABASE_URL-less development mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/maintrack/internal/core"
)

type entityKey struct {
	kind string
	id   string
}

// Store keeps every entity, sequence counter and activity entry in memory.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	entities  map[entityKey]*core.Entity
	sequences map[string]int64
	activity  []core.ActivityEntry
	now       func() time.Time
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		entities:  make(map[entityKey]*core.Entity),
		sequences: make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func cloneEntity(e *core.Entity) *core.Entity {
	c := *e
	c.Fields = make(core.Fields, len(e.Fields))
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// Create implements core.EntityStore.
func (s *Store) Create(ctx context.Context, e *core.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey{e.Kind, e.ID}
	if _, exists := s.entities[key]; exists {
		return fmt.Errorf("%s %s: %w", e.Kind, e.ID, core.ErrDuplicateIdentifier)
	}
	s.entities[key] = cloneEntity(e)
	return nil
}

// Upsert implements core.EntityStore.
func (s *Store) Upsert(ctx context.Context, e *core.Entity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey{e.Kind, e.ID}
	existing, ok := s.entities[key]
	if !ok {
		s.entities[key] = cloneEntity(e)
		return true, nil
	}

	updated := cloneEntity(e)
	updated.CreatedAt = existing.CreatedAt
	updated.DeletedAt = nil
	s.entities[key] = updated

	e.CreatedAt = existing.CreatedAt
	return false, nil
}

// Get implements core.EntityStore.
func (s *Store) Get(ctx context.Context, kind, id string) (*core.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[entityKey{kind, id}]
	if !ok || e.Deleted() {
		return nil, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return cloneEntity(e), nil
}

// Update implements core.EntityStore.
func (s *Store) Update(ctx context.Context, e *core.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey{e.Kind, e.ID}
	existing, ok := s.entities[key]
	if !ok || existing.Deleted() {
		return fmt.Errorf("%s %s: %w", e.Kind, e.ID, core.ErrNotFound)
	}

	updated := cloneEntity(e)
	updated.CreatedAt = existing.CreatedAt
	s.entities[key] = updated
	return nil
}

// Delete implements core.EntityStore.
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[entityKey{kind, id}]
	if !ok || e.Deleted() {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	now := s.now()
	e.DeletedAt = &now
	e.UpdatedAt = now
	return nil
}

// List implements core.EntityStore. Results are ordered by identifier with
// shorter identifiers first, so CUST999 precedes CUST1000.
func (s *Store) List(ctx context.Context, filter core.ListFilter) ([]core.Entity, int64, error) {
	filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.RLock()
	var matched []*core.Entity
	for key, e := range s.entities {
		if key.kind != filter.Kind {
			continue
		}
		if e.Deleted() && !filter.IncludeDeleted {
			continue
		}
		if search != "" && !matchesSearch(e, search) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].ID, matched[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := min(start+filter.Limit, len(matched))

	page := make([]core.Entity, 0, end-start)
	for _, e := range matched[start:end] {
		page = append(page, *cloneEntity(e))
	}
	return page, total, nil
}

func matchesSearch(e *core.Entity, search string) bool {
	if strings.Contains(strings.ToLower(e.ID), search) {
		return true
	}
	for _, v := range e.Fields {
		if strings.Contains(strings.ToLower(core.FieldString(v)), search) {
			return true
		}
	}
	return false
}

// LastIdentifier implements core.SequenceStore.
func (s *Store) LastIdentifier(ctx context.Context, kind, prefix string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  int64
		found bool
	)
	for key := range s.entities {
		if key.kind != kind {
			continue
		}
		n, err := core.ParseIdentifier(prefix, key.id)
		if err != nil {
			continue
		}
		if !found || n > best {
			best, found = n, true
		}
	}
	if !found {
		return "", nil
	}
	return core.FormatIdentifier(prefix, best), nil
}

// ClaimSequence implements core.SequenceStore.
func (s *Store) ClaimSequence(ctx context.Context, prefix string, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := max(s.sequences[prefix]+1, floor)
	s.sequences[prefix] = next
	return next, nil
}

// RaiseSequence implements core.SequenceStore.
func (s *Store) RaiseSequence(ctx context.Context, prefix string, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > s.sequences[prefix] {
		s.sequences[prefix] = n
	}
	return nil
}

// LogActivity implements core.ActivityStore.
func (s *Store) LogActivity(ctx context.Context, entry *core.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activity = append(s.activity, *entry)
	return nil
}

// GetActivity implements core.ActivityStore.
func (s *Store) GetActivity(ctx context.Context, id string) (*core.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.activity {
		if s.activity[i].ID == id {
			entry := s.activity[i]
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("activity %s: %w", id, core.ErrNotFound)
}

// ListActivity implements core.ActivityStore. Newest entries come first.
func (s *Store) ListActivity(ctx context.Context, filter core.ActivityFilter) ([]core.ActivityEntry, int64, error) {
	filter.Normalize()

	s.mu.RLock()
	var matched []core.ActivityEntry
	for i := len(s.activity) - 1; i >= 0; i-- {
		a := s.activity[i]
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if filter.EntityID != "" && a.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		if !filter.Since.IsZero() && a.CreatedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, a)
	}
	s.mu.RUnlock()

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := min(start+filter.Limit, len(matched))
	return append([]core.ActivityEntry{}, matched[start:end]...), total, nil
}

// PruneActivity implements core.ActivityStore.
func (s *Store) PruneActivity(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.activity[:0]
	var removed int64
	for _, a := range s.activity {
		if a.CreatedAt.Before(cutoff) && (limit <= 0 || removed < int64(limit)) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.activity = kept
	return removed, nil
}
