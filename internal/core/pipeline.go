package core

// pipeline.go holds the pure stages of the import pipeline:
//
//	Parse -> Validate -> Convert -> BatchUpsert
//
// Parse and Validate failures reject the whole file before any write.
// BatchUpsert (import.go) is the only stage that touches the store, and it
// never aborts on a single bad row.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter separates cells when the caller does not choose one.
const DefaultDelimiter = ','

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParsedFile is an import file split into its header and data rows.
// Lines[i] is the file line on which Rows[i] starts.
type ParsedFile struct {
	Header []string
	Rows   [][]string
	Lines  []int
}

// Parse splits raw delimited text into a header and its data rows.
// A UTF-8 BOM is dropped, invalid UTF-8 is replaced and fully blank rows are
// skipped. Returns ErrMalformedInput when no header row can be read.
func Parse(data []byte, delimiter rune) (header []string, rows [][]string, err error) {
	f, err := ParseFile(data, delimiter)
	if err != nil {
		return nil, nil, err
	}
	return f.Header, f.Rows, nil
}

// ParseFile is Parse that also records the line each data row starts on,
// counting skipped blank rows and quoted cells that span lines.
func ParseFile(data []byte, delimiter rune) (*ParsedFile, error) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}

	data = sanitizeUTF8(bytes.TrimPrefix(data, utf8BOM))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	f := &ParsedFile{}
	for {
		rec, readErr := r.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, readErr)
		}
		if isEmptyRow(rec) {
			continue
		}
		if f.Header == nil {
			f.Header = make([]string, len(rec))
			for i, h := range rec {
				f.Header[i] = CleanCell(h)
			}
			continue
		}
		line, _ := r.FieldPos(0)
		f.Rows = append(f.Rows, rec)
		f.Lines = append(f.Lines, line)
	}

	if f.Header == nil {
		return nil, fmt.Errorf("%w: no header row", ErrMalformedInput)
	}
	return f, nil
}

// Validate checks that every required column exists and that every data row
// has a value for each of them. All violations are collected. When a column
// is missing entirely the rows are not inspected.
//
// Rows are numbered as if they directly follow a header on line 1; use
// ParsedFile.Validate for the lines the rows were read from.
func Validate(header []string, rows [][]string, required []string) ValidationResult {
	return validateRows(header, rows, nil, required)
}

// Validate is the package-level Validate with row numbers taken from the
// file.
func (f *ParsedFile) Validate(required []string) ValidationResult {
	return validateRows(f.Header, f.Rows, f.Lines, required)
}

// Records converts the data rows.
func (f *ParsedFile) Records() []Record {
	return Convert(f.Header, f.Rows)
}

// Line returns the file line of data row i.
func (f *ParsedFile) Line(i int) int {
	return rowLine(f.Lines, i)
}

func rowLine(lines []int, i int) int {
	if i < len(lines) {
		return lines[i]
	}
	return i + 2
}

func validateRows(header []string, rows [][]string, lines []int, required []string) ValidationResult {
	result := ValidationResult{Valid: true}
	idx := MakeHeaderIndex(header)

	for _, name := range required {
		if _, ok := idx[name]; !ok {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("missing required column %q", name))
		}
	}
	if !result.Valid {
		return result
	}

	for i, row := range rows {
		line := rowLine(lines, i)
		for _, name := range required {
			pos := idx[name]
			if pos >= len(row) || CleanCell(row[pos]) == "" {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: missing required field %q", line, name))
			}
		}
	}

	return result
}

// Convert zips each data row against the header into a Record. Short rows
// are padded with empty values and surplus cells are dropped. No type
// coercion happens here.
func Convert(header []string, rows [][]string) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if _, seen := rec[name]; seen {
				continue
			}
			if i < len(row) {
				rec[name] = CleanCell(row[i])
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
