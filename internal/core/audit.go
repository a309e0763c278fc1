package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ActivityAction represents the type of change being recorded.
type ActivityAction string

const (
	ActionCreate ActivityAction = "create"
	ActionUpdate ActivityAction = "update"
	ActionDelete ActivityAction = "delete"
	ActionImport ActivityAction = "import"
)

// ActivitySeverity represents the severity level of an activity entry.
type ActivitySeverity string

const (
	SeverityLow    ActivitySeverity = "low"
	SeverityMedium ActivitySeverity = "medium"
	SeverityHigh   ActivitySeverity = "high"
)

// ActivityEntry is one row of the activity log.
type ActivityEntry struct {
	ID        string           `json:"id"`
	Action    ActivityAction   `json:"action"`
	Severity  ActivitySeverity `json:"severity"`
	Kind      string           `json:"kind"`
	EntityID  string           `json:"entityId,omitempty"`
	UserID    string           `json:"userId,omitempty"`
	IPAddress string           `json:"ipAddress,omitempty"`
	UserAgent string           `json:"userAgent,omitempty"`
	Details   map[string]any   `json:"details,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ActivityFilter contains filtering options for querying the activity log.
type ActivityFilter struct {
	Kind     string
	EntityID string
	Action   ActivityAction
	Since    time.Time
	Limit    int
	Offset   int
}

// Normalize applies default and maximum page sizes.
func (f *ActivityFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// determineSeverity returns the severity for an action.
func determineSeverity(action ActivityAction) ActivitySeverity {
	switch action {
	case ActionDelete, ActionImport:
		return SeverityHigh
	case ActionUpdate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// recordActivity writes an activity entry, taking the caller's identity from
// ctx. Failures are logged and swallowed: the change itself already happened.
func (s *Service) recordActivity(ctx context.Context, action ActivityAction, kind, entityID string, details map[string]any) {
	entry := &ActivityEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Severity:  determineSeverity(action),
		Kind:      kind,
		EntityID:  entityID,
		UserID:    GetUserIDFromContext(ctx),
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		Details:   details,
		CreatedAt: s.now(),
	}

	if err := s.store.LogActivity(ctx, entry); err != nil {
		slog.Warn("failed to record activity",
			"action", action,
			"kind", kind,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// ListActivity returns activity entries matching filter and the total count.
func (s *Service) ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, int64, error) {
	filter.Normalize()
	if filter.Kind != "" {
		if _, err := Lookup(filter.Kind); err != nil {
			return nil, 0, err
		}
	}
	return s.store.ListActivity(ctx, filter)
}

// GetActivity returns a single activity entry.
func (s *Service) GetActivity(ctx context.Context, id string) (*ActivityEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	return s.store.GetActivity(ctx, id)
}
