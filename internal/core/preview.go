package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PreviewSummary counts what an import of the file would do.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	NewRows         int `json:"newRows"`
	UpdateRows      int `json:"updateRows"`
	ErrorRows       int `json:"errorRows"`
	DuplicateInFile int `json:"duplicateInFile"`
}

// RowPreview is a sample of a row that would be created.
type RowPreview struct {
	LineNumber int    `json:"lineNumber"`
	ID         string `json:"id"`
	Values     Record `json:"values"`
}

// UpdateDiff shows the stored and incoming values of a row that would be
// updated. Changed lists the fields whose values differ.
type UpdateDiff struct {
	LineNumber int      `json:"lineNumber"`
	ID         string   `json:"id"`
	Current    Record   `json:"current"`
	Incoming   Record   `json:"incoming"`
	Changed    []string `json:"changed"`
}

// ErrorPreview is a row that would fail, with every reason.
type ErrorPreview struct {
	LineNumber int      `json:"lineNumber"`
	ID         string   `json:"id,omitempty"`
	Errors     []string `json:"errors"`
}

// DuplicatePreview is an id that appears on several lines; the last one wins.
type DuplicatePreview struct {
	ID          string `json:"id"`
	LineNumbers []int  `json:"lineNumbers"`
}

// ImportPreview is the read-only analysis of an import file.
type ImportPreview struct {
	Kind             string             `json:"kind"`
	Summary          PreviewSummary     `json:"summary"`
	NewRowSamples    []RowPreview       `json:"newRowSamples"`
	UpdateDiffs      []UpdateDiff       `json:"updateDiffs"`
	ErrorSamples     []ErrorPreview     `json:"errorSamples"`
	DuplicateSamples []DuplicatePreview `json:"duplicateSamples"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
}

const (
	maxNewRowSamples    = 10
	maxUpdateDiffs      = 10
	maxErrorSamples     = 20
	maxDuplicateSamples = 10
)

// PreviewImport runs Parse, Validate and Convert on data and reports what
// an Import of it would do, without writing. Input and validation failures
// are returned exactly as Import returns them.
func (s *Service) PreviewImport(ctx context.Context, kind string, data []byte, delimiter rune) (*ImportPreview, error) {
	start := time.Now()

	def, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	file, err := ParseFile(data, delimiter)
	if err != nil {
		return nil, err
	}
	if result := file.Validate(def.ImportRequired()); !result.Valid {
		return nil, &ImportValidationError{Result: result}
	}
	records := file.Records()

	resp := &ImportPreview{
		Kind:             def.Kind,
		Summary:          PreviewSummary{TotalRows: len(records)},
		NewRowSamples:    []RowPreview{},
		UpdateDiffs:      []UpdateDiff{},
		ErrorSamples:     []ErrorPreview{},
		DuplicateSamples: []DuplicatePreview{},
	}
	seen := make(map[string][]int)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := file.Line(i)
		id := strings.TrimSpace(rec[def.IDField])

		var fields Fields
		var err error
		if id == "" {
			err = FieldErrors{{Field: def.IDField, Message: "required field is empty"}}
		} else {
			seen[id] = append(seen[id], line)
			fields, err = s.prepareFields(ctx, def, rec)
		}
		if err != nil {
			if !isRowError(err) {
				return nil, err
			}
			resp.Summary.ErrorRows++
			if len(resp.ErrorSamples) < maxErrorSamples {
				resp.ErrorSamples = append(resp.ErrorSamples, ErrorPreview{
					LineNumber: line,
					ID:         id,
					Errors:     rowMessages(err),
				})
			}
			continue
		}

		current, err := s.store.Get(ctx, def.Kind, id)
		switch {
		case errors.Is(err, ErrNotFound):
			resp.Summary.NewRows++
			if len(resp.NewRowSamples) < maxNewRowSamples {
				resp.NewRowSamples = append(resp.NewRowSamples, RowPreview{LineNumber: line, ID: id, Values: fieldRecord(def, fields)})
			}
		case err != nil:
			return nil, fmt.Errorf("look up %s %s: %w", def.Kind, id, err)
		default:
			resp.Summary.UpdateRows++
			if len(resp.UpdateDiffs) < maxUpdateDiffs {
				resp.UpdateDiffs = append(resp.UpdateDiffs, diffFields(def, line, id, current.Fields, fields))
			}
		}
	}

	dupIDs := make([]string, 0)
	for id, lines := range seen {
		if len(lines) > 1 {
			resp.Summary.DuplicateInFile += len(lines) - 1
			dupIDs = append(dupIDs, id)
		}
	}
	sort.Slice(dupIDs, func(i, j int) bool { return seen[dupIDs[i]][0] < seen[dupIDs[j]][0] })
	for _, id := range dupIDs {
		if len(resp.DuplicateSamples) == maxDuplicateSamples {
			break
		}
		resp.DuplicateSamples = append(resp.DuplicateSamples, DuplicatePreview{ID: id, LineNumbers: seen[id]})
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

// isRowError reports whether err describes the row rather than the store.
func isRowError(err error) bool {
	return errors.Is(err, ErrInvalidField)
}

func rowMessages(err error) []string {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe.Messages()
	}
	return []string{rowMessage(err)}
}

// fieldRecord renders typed fields back to their CSV text.
func fieldRecord(def EntityDefinition, fields Fields) Record {
	rec := make(Record, len(def.FieldSpecs))
	for _, spec := range def.FieldSpecs {
		rec[spec.Name] = FieldString(fields[spec.Name])
	}
	return rec
}

func diffFields(def EntityDefinition, line int, id string, current, incoming Fields) UpdateDiff {
	diff := UpdateDiff{
		LineNumber: line,
		ID:         id,
		Current:    fieldRecord(def, current),
		Incoming:   fieldRecord(def, incoming),
		Changed:    []string{},
	}
	for _, spec := range def.FieldSpecs {
		if diff.Current[spec.Name] != diff.Incoming[spec.Name] {
			diff.Changed = append(diff.Changed, spec.Name)
		}
	}
	return diff
}
