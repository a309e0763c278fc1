package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil", nil, ""},
		{"duplicate identifier", fmt.Errorf("create customers: %w", ErrDuplicateIdentifier), "DB001"},
		{"postgres unique violation", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB003"},
		{"deadline wins over timeout", context.DeadlineExceeded, "IMP003"},
		{"cancelled", context.Canceled, "IMP002"},
		{"bare timeout", errors.New("i/o timeout"), "DB006"},
		{"dangling reference", FieldErrors{{Field: "customerId", Message: "referenced customer CUST404 does not exist"}}, "VAL007"},
		{"bad date", FieldErrors{{Field: "startDate", Message: `invalid date "soon"`}}, "VAL001"},
		{"missing column", errors.New(`missing required column "name"`), "VAL004"},
		{"validation failed", &ImportValidationError{}, "VAL005"},
		{"malformed file", fmt.Errorf("%w: no header row", ErrMalformedInput), "FILE002"},
		{"no file", ErrMissingInput, "FILE003"},
		{"busy", ErrTooManyUploads, "IMP001"},
		{"unknown kind", fmt.Errorf("%w: gadgets", ErrUnknownEntity), "ENT001"},
		{"not found", fmt.Errorf("customers CUST001: %w", ErrNotFound), "ENT002"},
		{"unmatched", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestFormatUserError(t *testing.T) {
	assert.Equal(t, "", FormatUserError(nil))
	assert.Equal(t,
		"No file was uploaded (Code: FILE003). Attach a CSV file in the \"file\" field",
		FormatUserError(ErrMissingInput),
	)
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.False(t, IsUserFacing(errors.New("segfault-ish")))
	assert.True(t, IsUserFacing(ErrNotFound))
}
