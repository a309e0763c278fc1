package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/maintrack/internal/core"
)

func TestMapError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, core.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), core.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", Detail: "Key (kind, id)=(customers, CUST001) already exists."}, core.ErrDuplicateIdentifier},
		{"other pg error", &pgconn.PgError{Code: "23503"}, nil},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			switch {
			case tt.err == nil:
				if got != nil {
					t.Errorf("mapError(nil) = %v", got)
				}
			case tt.want == nil:
				if errors.Is(got, core.ErrNotFound) || errors.Is(got, core.ErrDuplicateIdentifier) {
					t.Errorf("mapError(%v) = %v, want unmapped", tt.err, got)
				}
			default:
				if !errors.Is(got, tt.want) {
					t.Errorf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
				}
			}
		})
	}
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"entities", "id_sequences", "activity_log"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema is missing table %s", table)
		}
	}
}
