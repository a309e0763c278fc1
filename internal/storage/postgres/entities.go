package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/maintrack/internal/core"
)

const entityColumns = `kind, id, fields, created_at, updated_at, deleted_at`

// Create implements core.EntityStore. The (kind, id) primary key makes a
// duplicate fail atomically, soft-deleted rows included.
func (s *Store) Create(ctx context.Context, e *core.Entity) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode %s fields: %w", e.Kind, err)
	}

	_, err = getDB(ctx, s.pool).Exec(ctx, `
		INSERT INTO entities (kind, id, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.Kind, e.ID, fields, e.CreatedAt, e.UpdatedAt,
	)
	return mapError(err)
}

// Upsert implements core.EntityStore. xmax is zero only for freshly
// inserted rows, which tells creates and updates apart in one round trip.
func (s *Store) Upsert(ctx context.Context, e *core.Entity) (bool, error) {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return false, fmt.Errorf("encode %s fields: %w", e.Kind, err)
	}

	var (
		createdAt time.Time
		inserted  bool
	)
	err = getDB(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO entities (kind, id, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, id) DO UPDATE SET
			fields     = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
		RETURNING created_at, (xmax = 0) AS inserted`,
		e.Kind, e.ID, fields, e.CreatedAt, e.UpdatedAt,
	).Scan(&createdAt, &inserted)
	if err != nil {
		return false, mapError(err)
	}

	e.CreatedAt = createdAt
	return inserted, nil
}

// Get implements core.EntityStore.
func (s *Store) Get(ctx context.Context, kind, id string) (*core.Entity, error) {
	row := getDB(ctx, s.pool).QueryRow(ctx, `
		SELECT `+entityColumns+`
		FROM entities
		WHERE kind = $1 AND id = $2 AND deleted_at IS NULL`,
		kind, id,
	)

	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, err)
		}
		return nil, err
	}
	return e, nil
}

// Update implements core.EntityStore.
func (s *Store) Update(ctx context.Context, e *core.Entity) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode %s fields: %w", e.Kind, err)
	}

	tag, err := getDB(ctx, s.pool).Exec(ctx, `
		UPDATE entities SET fields = $3, updated_at = $4
		WHERE kind = $1 AND id = $2 AND deleted_at IS NULL`,
		e.Kind, e.ID, fields, e.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", e.Kind, e.ID, core.ErrNotFound)
	}
	return nil
}

// Delete implements core.EntityStore.
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	tag, err := getDB(ctx, s.pool).Exec(ctx, `
		UPDATE entities SET deleted_at = now(), updated_at = now()
		WHERE kind = $1 AND id = $2 AND deleted_at IS NULL`,
		kind, id,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

// List implements core.EntityStore. Shorter identifiers sort first so that
// CUST999 precedes CUST1000.
func (s *Store) List(ctx context.Context, filter core.ListFilter) ([]core.Entity, int64, error) {
	filter.Normalize()

	wb := NewWhereBuilder()
	wb.Add("kind", filter.Kind)
	if !filter.IncludeDeleted {
		wb.AddRaw("deleted_at IS NULL")
	}
	wb.AddSearch(filter.Search, "id", "fields::text")
	where, args := wb.Build()

	db := getDB(ctx, s.pool)

	var total int64
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM entities"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", filter.Kind, err)
	}

	query := "SELECT " + entityColumns + " FROM entities" + where +
		fmt.Sprintf(" ORDER BY length(id), id LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", filter.Kind, err)
	}
	defer rows.Close()

	entities := make([]core.Entity, 0, filter.Limit)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, 0, err
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

func scanEntity(row pgx.Row) (*core.Entity, error) {
	var (
		e      core.Entity
		fields []byte
	)
	if err := row.Scan(&e.Kind, &e.ID, &fields, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt); err != nil {
		return nil, mapError(err)
	}

	e.Fields = make(core.Fields)
	if len(fields) > 0 {
		dec := json.NewDecoder(bytes.NewReader(fields))
		dec.UseNumber()
		if err := dec.Decode(&e.Fields); err != nil {
			return nil, fmt.Errorf("decode %s %s fields: %w", e.Kind, e.ID, err)
		}
	}
	return &e, nil
}
