package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContextCheckInterval is how many rows BatchUpsert writes between
// cancellation checks.
var ContextCheckInterval = 100

// Import runs the full pipeline over one uploaded file.
//
// A file that cannot be parsed returns an error matching ErrMalformedInput and
// a file missing required columns or values returns an *ImportValidationError;
// neither writes anything. Otherwise rows are upserted one by one and the
// outcome lists every row that failed.
func (s *Service) Import(ctx context.Context, kind, fileName string, data []byte, delimiter rune) (*ImportOutcome, error) {
	def, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	start := time.Now()

	file, err := ParseFile(data, delimiter)
	if err != nil {
		return nil, err
	}

	result := file.Validate(def.ImportRequired())
	if !result.Valid {
		slog.Info("import rejected",
			"kind", def.Kind,
			"file", fileName,
			"violations", len(result.Errors),
		)
		return nil, &ImportValidationError{Result: result}
	}

	outcome, err := s.BatchUpsert(ctx, def, file.Records())
	if outcome != nil {
		outcome.FileName = fileName
		outcome.Duration = time.Since(start)
		s.metrics.ObserveImport(def.Kind, outcome.Processed, outcome.Failed(), outcome.Duration)
		s.recordActivity(ctx, ActionImport, def.Kind, "", map[string]any{
			"batchId":   outcome.BatchID,
			"fileName":  fileName,
			"totalRows": outcome.TotalRows,
			"processed": outcome.Processed,
			"created":   outcome.Created,
			"updated":   outcome.Updated,
			"failed":    outcome.Failed(),
		})
	}
	if err != nil {
		return outcome, err
	}

	slog.Info("import complete",
		"kind", def.Kind,
		"file", fileName,
		"batch_id", outcome.BatchID,
		"rows", outcome.TotalRows,
		"processed", outcome.Processed,
		"failed", outcome.Failed(),
		"duration", outcome.Duration,
	)
	return outcome, nil
}

// BatchUpsert writes records in order, creating or replacing each entity by
// its identifier. A failing row is recorded as "<Label> <id>: <reason>" and
// the remaining rows still run. Re-importing the same records leaves the
// store unchanged apart from timestamps.
//
// If ctx ends midway the partial outcome is returned with ctx's error.
func (s *Service) BatchUpsert(ctx context.Context, def EntityDefinition, records []Record) (*ImportOutcome, error) {
	outcome := &ImportOutcome{
		BatchID:   uuid.NewString(),
		Kind:      def.Kind,
		TotalRows: len(records),
		Errors:    []string{},
	}

	var highest int64
	var foreign []string
	for i, rec := range records {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return outcome, fmt.Errorf("import %s cancelled after %d rows: %w", def.Kind, i, err)
			}
		}

		id := strings.TrimSpace(rec[def.IDField])
		created, err := s.upsertRecord(ctx, def, id, rec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return outcome, fmt.Errorf("import %s cancelled after %d rows: %w", def.Kind, i, err)
			}
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s %s: %s", def.Label, id, rowMessage(err)))
			continue
		}

		outcome.Processed++
		if created {
			outcome.Created++
		} else {
			outcome.Updated++
		}
		n, err := ParseIdentifier(def.Prefix, id)
		if err != nil {
			foreign = append(foreign, id)
			continue
		}
		if n > highest {
			highest = n
		}
	}

	if len(foreign) > 0 {
		slog.Warn("imported identifiers outside the allocator's format",
			"kind", def.Kind,
			"prefix", def.Prefix,
			"count", len(foreign),
			"ids", sample(foreign, 10),
		)
	}

	// Rows are committed by now. Allocation stays correct without the raise
	// because LastIdentifier counts them.
	if highest > 0 {
		if err := s.store.RaiseSequence(ctx, def.Prefix, highest); err != nil {
			slog.Warn("failed to raise identifier sequence after import",
				"kind", def.Kind,
				"prefix", def.Prefix,
				"value", highest,
				"error", err,
			)
		}
	}
	return outcome, nil
}

func (s *Service) upsertRecord(ctx context.Context, def EntityDefinition, id string, rec Record) (bool, error) {
	if id == "" {
		return false, FieldErrors{{Field: def.IDField, Message: "required field is empty"}}
	}

	fields, err := BuildFields(def, rec, false)
	if err != nil {
		return false, err
	}
	if err := s.checkFields(ctx, def, fields); err != nil {
		return false, err
	}

	now := s.now()
	return s.store.Upsert(ctx, &Entity{
		Kind:      def.Kind,
		ID:        id,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func sample(ids []string, n int) []string {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}

// rowMessage renders a row failure without the error chain's prefixes.
func rowMessage(err error) string {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return strings.Join(fe.Messages(), "; ")
	}
	var single FieldError
	if errors.As(err, &single) {
		return single.Error()
	}
	return err.Error()
}
