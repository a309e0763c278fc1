package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Metrics receives operational measurements from the service.
// Implemented by the metric package; a no-op is used when none is set.
type Metrics interface {
	ObserveImport(kind string, processed, failed int, d time.Duration)
	IdentifierAllocated(kind string)
	IdentifierCollision(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveImport(string, int, int, time.Duration) {}
func (nopMetrics) IdentifierAllocated(string) {}
func (nopMetrics) IdentifierCollision(string) {}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	MaxConcurrentImports int           // Parallel imports allowed (default: 5)
	ImportWait           time.Duration // How long an import waits for a slot (default: 30s)
	ImportTimeout        time.Duration // Upper bound for one import (default: 10m)
	AllocationRetries    int           // Extra create attempts after an id collision (default: 3)
	Metrics              Metrics
	Clock                func() time.Time
}

// Service provides the business logic for entities, identifiers and imports.
type Service struct {
	store   Store
	limiter *ImportLimiter
	metrics Metrics
	now     func() time.Time

	importTimeout     time.Duration
	allocationRetries int
}

// NewService creates a Service backed by store.
func NewService(store Store, opts Options) *Service {
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = 10 * time.Minute
	}
	if opts.AllocationRetries < 0 {
		opts.AllocationRetries = 0
	} else if opts.AllocationRetries == 0 {
		opts.AllocationRetries = 3
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		store:             store,
		limiter:           NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		metrics:           opts.Metrics,
		now:               opts.Clock,
		importTimeout:     opts.ImportTimeout,
		allocationRetries: opts.AllocationRetries,
	}
}

// ListEntities returns the registered entity definitions.
func (s *Service) ListEntities() []EntityDefinition {
	return All()
}

// Create validates body, mints an identifier and stores a new entity.
// Any "id" in body is ignored: identifiers are always allocated.
//
// If the store rejects the identifier as a duplicate (a concurrent writer
// got there first) a fresh identifier is allocated and the create retried.
// When the retries run out the ErrDuplicateIdentifier is returned; an
// existing entity is never overwritten.
func (s *Service) Create(ctx context.Context, kind string, body Record) (*Entity, error) {
	def, err := Lookup(kind)
	if err != nil {
		return nil, err
	}

	fields, err := s.prepareFields(ctx, def, body)
	if err != nil {
		return nil, err
	}

	attempts := s.allocationRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		id, err := s.allocateID(ctx, def)
		if err != nil {
			return nil, err
		}

		now := s.now()
		e := &Entity{
			Kind:      def.Kind,
			ID:        id,
			Fields:    fields,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.store.Create(ctx, e)
		if err == nil {
			s.metrics.IdentifierAllocated(def.Kind)
			s.recordActivity(ctx, ActionCreate, def.Kind, id, nil)
			return e, nil
		}
		if !errors.Is(err, ErrDuplicateIdentifier) {
			return nil, fmt.Errorf("create %s: %w", def.Kind, err)
		}

		s.metrics.IdentifierCollision(def.Kind)
		slog.Warn("identifier collision, reallocating",
			"kind", def.Kind,
			"id", id,
			"attempt", attempt,
		)
		lastErr = err
	}

	return nil, fmt.Errorf("create %s after %d attempts: %w", def.Kind, attempts, lastErr)
}

// Get returns a live entity.
func (s *Service) Get(ctx context.Context, kind, id string) (*Entity, error) {
	def, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, def.Kind, id)
}

// List returns a page of entities of one kind.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entity, int64, error) {
	if _, err := Lookup(filter.Kind); err != nil {
		return nil, 0, err
	}
	filter.Normalize()
	return s.store.List(ctx, filter)
}

// Update merges the fields present in body into an existing entity.
// The identifier is immutable; an "id" in body is ignored.
func (s *Service) Update(ctx context.Context, kind, id string, body Record) (*Entity, error) {
	def, err := Lookup(kind)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, def.Kind, id)
	if err != nil {
		return nil, err
	}

	changes, err := BuildFields(def, body, true)
	if err != nil {
		return nil, err
	}

	merged := make(Fields, len(existing.Fields)+len(changes))
	for k, v := range existing.Fields {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}

	var errs FieldErrors
	for _, spec := range def.FieldSpecs {
		if spec.Required && merged[spec.Name] == nil {
			errs = append(errs, FieldError{Field: spec.Name, Message: "required field is empty"})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkFields(ctx, def, merged); err != nil {
		return nil, err
	}

	existing.Fields = merged
	existing.UpdatedAt = s.now()
	if err := s.store.Update(ctx, existing); err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(changes))
	for k := range changes {
		changed = append(changed, k)
	}
	s.recordActivity(ctx, ActionUpdate, def.Kind, id, map[string]any{"fields": changed})
	return existing, nil
}

// Delete soft-deletes an entity. Its identifier stays reserved.
func (s *Service) Delete(ctx context.Context, kind, id string) error {
	def, err := Lookup(kind)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, def.Kind, id); err != nil {
		return err
	}
	s.recordActivity(ctx, ActionDelete, def.Kind, id, nil)
	return nil
}

// PeekNextID previews the identifier the next create would most likely
// receive. Nothing is reserved.
func (s *Service) PeekNextID(ctx context.Context, kind string) (string, error) {
	def, err := Lookup(kind)
	if err != nil {
		return "", err
	}
	last, err := s.store.LastIdentifier(ctx, def.Kind, def.Prefix)
	if err != nil {
		return "", fmt.Errorf("read last %s identifier: %w", def.Kind, err)
	}
	next, _ := NextIdentifier(def.Prefix, []string{last})
	return next, nil
}

// allocateID derives the next identifier from the highest existing one and
// claims it from the per-prefix sequence, which serializes concurrent
// allocations and keeps numbers of deleted rows from being handed out again.
func (s *Service) allocateID(ctx context.Context, def EntityDefinition) (string, error) {
	last, err := s.store.LastIdentifier(ctx, def.Kind, def.Prefix)
	if err != nil {
		return "", fmt.Errorf("read last %s identifier: %w", def.Kind, err)
	}

	var existing []string
	if last != "" {
		existing = append(existing, last)
	}
	candidate, malformed := NextIdentifier(def.Prefix, existing)
	for _, bad := range malformed {
		slog.Warn("ignoring malformed identifier",
			"kind", def.Kind,
			"prefix", def.Prefix,
			"id", bad,
		)
	}

	floor, err := ParseIdentifier(def.Prefix, candidate)
	if err != nil {
		return "", err
	}

	n, err := s.store.ClaimSequence(ctx, def.Prefix, floor)
	if err != nil {
		return "", fmt.Errorf("claim %s sequence: %w", def.Prefix, err)
	}
	return FormatIdentifier(def.Prefix, n), nil
}

// prepareFields coerces a create body and runs every field check.
func (s *Service) prepareFields(ctx context.Context, def EntityDefinition, body Record) (Fields, error) {
	fields, err := BuildFields(def, body, false)
	if err != nil {
		return nil, err
	}
	if err := s.checkFields(ctx, def, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// checkFields runs the definition's cross-field rule and verifies that
// every reference points at a live entity.
func (s *Service) checkFields(ctx context.Context, def EntityDefinition, fields Fields) error {
	if def.Check != nil {
		if err := def.Check(fields); err != nil {
			return err
		}
	}

	var errs FieldErrors
	for _, spec := range def.FieldSpecs {
		if spec.Ref == "" {
			continue
		}
		ref, ok := fields[spec.Name].(string)
		if !ok || ref == "" {
			continue
		}
		_, err := s.store.Get(ctx, spec.Ref, ref)
		if errors.Is(err, ErrNotFound) {
			label := spec.Ref
			if refDef, ok := Get(spec.Ref); ok {
				label = strings.ToLower(refDef.Label)
			}
			errs = append(errs, FieldError{
				Field:   spec.Name,
				Message: fmt.Sprintf("referenced %s %s does not exist", label, ref),
			})
			continue
		}
		if err != nil {
			return fmt.Errorf("check %s reference: %w", spec.Name, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ImportLimiterStatus returns the current import slot usage.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until all active imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
