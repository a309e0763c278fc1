package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/maintrack/internal/core"
	"github.com/JonMunkholm/maintrack/internal/logging"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// ImportResponse is the body of every import response. Errors is never null.
type ImportResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []string            `json:"errors"`
	Summary *core.ImportOutcome `json:"summary,omitempty"`
}

func importFailure(w http.ResponseWriter, status int, message string, errs ...string) {
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, status, ImportResponse{Message: message, Errors: errs})
}

// upload is a CSV file read from a multipart request.
type upload struct {
	def       core.EntityDefinition
	fileName  string
	data      []byte
	delimiter rune
}

// readUpload reads the "file" and "delimiter" form values. On failure it
// writes the response and returns false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	kind := chi.URLParam(r, "kind")
	def, ok := core.Get(kind)
	if !ok {
		respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownEntity, kind))
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			importFailure(w, http.StatusRequestEntityTooLarge, "Invalid file",
				fmt.Sprintf("file too large: limit is %d bytes", tooLarge.Limit))
			return nil, false
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			importFailure(w, http.StatusBadRequest, "No file uploaded", core.FormatUserError(core.ErrMissingInput))
			return nil, false
		}
		importFailure(w, http.StatusBadRequest, "Invalid file", err.Error())
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		importFailure(w, http.StatusBadRequest, "No file uploaded", core.FormatUserError(core.ErrMissingInput))
		return nil, false
	}
	defer file.Close()

	delimiter, err := parseDelimiter(r.FormValue("delimiter"))
	if err != nil {
		importFailure(w, http.StatusBadRequest, "Invalid file", err.Error())
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		importFailure(w, http.StatusBadRequest, "Invalid file", err.Error())
		return nil, false
	}

	return &upload{def: def, fileName: header.Filename, data: data, delimiter: delimiter}, true
}

// respondImportError writes the failure shared by import and preview.
// It reports false for errors it does not recognise.
func respondImportError(w http.ResponseWriter, err error) bool {
	var verr *core.ImportValidationError
	switch {
	case errors.As(err, &verr):
		importFailure(w, http.StatusBadRequest, "Validation failed", verr.Result.Errors...)
	case errors.Is(err, core.ErrMissingInput):
		importFailure(w, http.StatusBadRequest, "No file uploaded", core.FormatUserError(err))
	case errors.Is(err, core.ErrMalformedInput):
		importFailure(w, http.StatusBadRequest, "Invalid file", err.Error())
	case errors.Is(err, core.ErrTooManyUploads):
		w.Header().Set("Retry-After", "30")
		importFailure(w, http.StatusServiceUnavailable, "Import failed", core.FormatUserError(err))
	default:
		return false
	}
	return true
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	logger := logging.WithFields(r.Context(), "kind", up.def.Kind, "file", up.fileName)
	logger.Info("import started", "bytes", len(up.data))

	outcome, err := s.service.Import(r.Context(), up.def.Kind, up.fileName, up.data, up.delimiter)
	if err == nil {
		writeJSON(w, http.StatusOK, ImportResponse{
			Success: true,
			Message: fmt.Sprintf("%d %s processed", outcome.Processed, up.def.Plural),
			Errors:  outcome.Errors,
			Summary: outcome,
		})
		return
	}
	if respondImportError(w, err) {
		return
	}

	logger.Error("import failed", "error", err)
	resp := ImportResponse{Message: "Import failed", Errors: []string{err.Error()}, Summary: outcome}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// PreviewResponse is the body of a successful import preview.
type PreviewResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Preview *core.ImportPreview `json:"preview"`
}

// handleImportPreview analyses an upload the way handleImport would
// process it, without writing.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	preview, err := s.service.PreviewImport(r.Context(), up.def.Kind, up.data, up.delimiter)
	if err != nil {
		if respondImportError(w, err) {
			return
		}
		logging.WithFields(r.Context(), "kind", up.def.Kind, "file", up.fileName).
			Error("import preview failed", "error", err)
		importFailure(w, http.StatusInternalServerError, "Preview failed", err.Error())
		return
	}

	sum := preview.Summary
	writeJSON(w, http.StatusOK, PreviewResponse{
		Success: true,
		Message: fmt.Sprintf("%d new, %d updated, %d with errors", sum.NewRows, sum.UpdateRows, sum.ErrorRows),
		Preview: preview,
	})
}

// parseDelimiter accepts a single character, or "tab"/"\t" for tabs.
// Empty means the default comma.
func parseDelimiter(v string) (rune, error) {
	switch v {
	case "":
		return core.DefaultDelimiter, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(v)
	if size != len(v) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q: use a single character", v)
	}
	return r, nil
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	def, err := core.Lookup(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.csv"`, def.Kind))

	cw := csv.NewWriter(w)
	_ = cw.Write(def.Columns())
	cw.Flush()
}

// exportPageSize is the number of rows fetched per store round trip.
const exportPageSize = 500

// handleExport streams every live row of a kind as CSV, in identifier order.
// An optional search narrows the rows the same way the list endpoint does.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	def, err := core.Lookup(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	filter := core.ListFilter{
		Kind:   def.Kind,
		Search: r.URL.Query().Get("search"),
		Limit:  exportPageSize,
	}

	// Fetch the first page before committing to a 200.
	rows, total, err := s.service.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.csv"`, def.Kind, timestamp))

	columns := def.Columns()
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return
	}

	written := 0
	record := make([]string, len(columns))
	for {
		for _, e := range rows {
			record[0] = e.ID
			for i, col := range columns[1:] {
				record[i+1] = core.FieldString(e.Fields[col])
			}
			if err := cw.Write(record); err != nil {
				return
			}
		}
		written += len(rows)
		cw.Flush()
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		if len(rows) < exportPageSize || int64(written) >= total {
			break
		}
		filter.Offset = written
		rows, _, err = s.service.List(r.Context(), filter)
		if err != nil {
			logging.FromContext(r.Context()).Error("export aborted",
				"kind", def.Kind,
				"rows_written", written,
				"error", err,
			)
			return
		}
	}

	if err := cw.Error(); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "kind", def.Kind, "error", err)
	}
}
