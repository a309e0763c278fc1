package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/maintrack/internal/core"
)

// handleListActivity lists activity entries, newest first.
// Query: kind, entityId, action, since (RFC 3339 or YYYY-MM-DD), limit, offset.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.ActivityFilter{
		Kind:     q.Get("kind"),
		EntityID: q.Get("entityId"),
		Action:   core.ActivityAction(q.Get("action")),
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	}
	if since := q.Get("since"); since != "" {
		t, ok := parseSince(since)
		if !ok {
			respondBadRequest(w, "since must be RFC 3339 or YYYY-MM-DD")
			return
		}
		filter.Since = t
	}
	filter.Normalize()

	entries, total, err := s.service.ListActivity(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, listResponse[core.ActivityEntry]{
		Data:   entries,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func parseSince(v string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
