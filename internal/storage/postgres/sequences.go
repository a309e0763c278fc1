package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LastIdentifier implements core.SequenceStore. Ordering is on the numeric
// suffix; identifiers whose suffix is not all digits are ignored.
func (s *Store) LastIdentifier(ctx context.Context, kind, prefix string) (string, error) {
	var id string
	err := getDB(ctx, s.pool).QueryRow(ctx, `
		SELECT id FROM entities
		WHERE kind = $1
		  AND left(id, length($2)) = $2
		  AND substring(id FROM length($2) + 1) ~ '^[0-9]+$'
		ORDER BY substring(id FROM length($2) + 1)::numeric DESC
		LIMIT 1`,
		kind, prefix,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last %s identifier: %w", kind, err)
	}
	return id, nil
}

// ClaimSequence implements core.SequenceStore. The upsert takes a row lock
// on the prefix, so concurrent claims are serialized by the database.
func (s *Store) ClaimSequence(ctx context.Context, prefix string, floor int64) (int64, error) {
	var n int64
	err := getDB(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO id_sequences (prefix, last_value)
		VALUES ($1, $2)
		ON CONFLICT (prefix) DO UPDATE SET
			last_value = GREATEST(id_sequences.last_value + 1, EXCLUDED.last_value),
			updated_at = now()
		RETURNING last_value`,
		prefix, max(floor, 1),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("claim %s: %w", prefix, mapError(err))
	}
	return n, nil
}

// RaiseSequence implements core.SequenceStore.
func (s *Store) RaiseSequence(ctx context.Context, prefix string, n int64) error {
	_, err := getDB(ctx, s.pool).Exec(ctx, `
		INSERT INTO id_sequences (prefix, last_value)
		VALUES ($1, $2)
		ON CONFLICT (prefix) DO UPDATE SET
			last_value = GREATEST(id_sequences.last_value, EXCLUDED.last_value),
			updated_at = now()`,
		prefix, n,
	)
	if err != nil {
		return fmt.Errorf("raise %s: %w", prefix, mapError(err))
	}
	return nil
}
