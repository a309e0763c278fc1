package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/maintrack/internal/core"
)

const activityColumns = `id, action, severity, kind, entity_id, user_id, ip_address, user_agent, details, created_at`

// LogActivity implements core.ActivityStore.
func (s *Store) LogActivity(ctx context.Context, entry *core.ActivityEntry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("activity id %q: %w", entry.ID, err)
	}

	var details []byte
	if len(entry.Details) > 0 {
		if details, err = json.Marshal(entry.Details); err != nil {
			return fmt.Errorf("encode activity details: %w", err)
		}
	}

	_, err = getDB(ctx, s.pool).Exec(ctx, `
		INSERT INTO activity_log (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id,
		string(entry.Action),
		string(entry.Severity),
		entry.Kind,
		entry.EntityID,
		entry.UserID,
		entry.IPAddress,
		entry.UserAgent,
		details,
		entry.CreatedAt,
	)
	return mapError(err)
}

// GetActivity implements core.ActivityStore.
func (s *Store) GetActivity(ctx context.Context, id string) (*core.ActivityEntry, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", id, core.ErrNotFound)
	}

	row := getDB(ctx, s.pool).QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activity_log WHERE id = $1`, uid)
	entry, err := scanActivity(row)
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", id, err)
	}
	return entry, nil
}

// ListActivity implements core.ActivityStore. Newest entries come first.
func (s *Store) ListActivity(ctx context.Context, filter core.ActivityFilter) ([]core.ActivityEntry, int64, error) {
	filter.Normalize()

	wb := NewWhereBuilder()
	wb.Add("kind", filter.Kind)
	wb.Add("entity_id", filter.EntityID)
	wb.Add("action", string(filter.Action))
	wb.AddSince("created_at", filter.Since)
	where, args := wb.Build()

	db := getDB(ctx, s.pool)

	var total int64
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM activity_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}

	query := "SELECT " + activityColumns + " FROM activity_log" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]core.ActivityEntry, 0)
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PruneActivity implements core.ActivityStore. Oldest entries go first.
func (s *Store) PruneActivity(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := getDB(ctx, s.pool).Exec(ctx, `
		DELETE FROM activity_log
		WHERE id IN (
			SELECT id FROM activity_log
			WHERE created_at < $1
			ORDER BY created_at
			LIMIT $2
		)`,
		cutoff, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanActivity(row pgx.Row) (*core.ActivityEntry, error) {
	var (
		e        core.ActivityEntry
		id       uuid.UUID
		action   string
		severity string
		details  []byte
	)
	err := row.Scan(&id, &action, &severity, &e.Kind, &e.EntityID, &e.UserID,
		&e.IPAddress, &e.UserAgent, &details, &e.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	e.ID = id.String()
	e.Action = core.ActivityAction(action)
	e.Severity = core.ActivitySeverity(severity)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode activity %s details: %w", e.ID, err)
		}
	}
	return &e, nil
}
