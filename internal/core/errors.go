package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the service, the stores and the web layer.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnknownEntity       = errors.New("unknown entity kind")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrInvalidField        = errors.New("invalid field")
	ErrMissingInput        = errors.New("no file provided")
	ErrMalformedInput      = errors.New("invalid csv")
	ErrValidationFailed    = errors.New("validation failed")
	ErrMalformedIdentifier = errors.New("malformed identifier")
)

// FieldError describes one invalid field on a create or update.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is a collection of field errors. It matches ErrInvalidField.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 1 {
		return "invalid field " + e[0].Error()
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("%d invalid fields: %s", len(e), strings.Join(parts, "; "))
}

func (e FieldErrors) Is(target error) bool {
	return target == ErrInvalidField
}

// Messages returns the individual errors as strings.
func (e FieldErrors) Messages() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Error()
	}
	return out
}

// ImportValidationError carries the full violation list of a rejected import.
// It matches ErrValidationFailed.
type ImportValidationError struct {
	Result ValidationResult
}

func (e *ImportValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d errors", len(e.Result.Errors))
}

func (e *ImportValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
