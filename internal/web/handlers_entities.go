package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/maintrack/internal/core"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

type fieldInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Enum     []string `json:"enum,omitempty"`
	Ref      string   `json:"ref,omitempty"`
}

type entityInfo struct {
	Kind     string      `json:"kind"`
	Label    string      `json:"label"`
	Plural   string      `json:"plural"`
	Prefix   string      `json:"prefix"`
	IDField  string      `json:"idField"`
	Columns  []string    `json:"columns"`
	Required []string    `json:"importRequired"`
	Fields   []fieldInfo `json:"fields"`
}

type listResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	defs := s.service.ListEntities()
	out := make([]entityInfo, 0, len(defs))
	for _, def := range defs {
		info := entityInfo{
			Kind:     def.Kind,
			Label:    def.Label,
			Plural:   def.Plural,
			Prefix:   def.Prefix,
			IDField:  def.IDField,
			Columns:  def.Columns(),
			Required: def.ImportRequired(),
			Fields:   make([]fieldInfo, 0, len(def.FieldSpecs)),
		}
		for _, spec := range def.FieldSpecs {
			info.Fields = append(info.Fields, fieldInfo{
				Name:     spec.Name,
				Type:     spec.Type.String(),
				Required: spec.Required,
				Enum:     spec.EnumValues,
				Ref:      spec.Ref,
			})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.ListFilter{
		Kind:           chi.URLParam(r, "kind"),
		Search:         q.Get("search"),
		Limit:          queryInt(r, "limit", 0),
		Offset:         queryInt(r, "offset", 0),
		IncludeDeleted: q.Get("includeDeleted") == "true",
	}
	filter.Normalize()

	rows, total, err := s.service.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.Entity{}
	}
	writeJSON(w, http.StatusOK, listResponse[core.Entity]{
		Data:   rows,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.service.Get(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	e, err := s.service.Create(r.Context(), chi.URLParam(r, "kind"), body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+e.ID)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	e, err := s.service.Update(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id"), body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNextID(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	next, err := s.service.PeekNextID(r.Context(), kind)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kind": kind, "nextId": next})
}

// decodeBody reads a JSON object into a Record, keeping numbers as written.
func decodeBody(w http.ResponseWriter, r *http.Request) (core.Record, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		respondBadRequest(w, "request body must be a JSON object")
		return nil, false
	}
	return core.RecordFromJSON(body), true
}

// queryInt parses a non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return i
}
