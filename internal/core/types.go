package core

import (
	"encoding/json"
	"time"
)

// FieldType represents the expected data type for an entity field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldBool
	FieldInteger
)

var fieldTypeNames = [...]string{"text", "enum", "date", "numeric", "bool", "integer"}

func (t FieldType) String() string {
	if int(t) < 0 || int(t) >= len(fieldTypeNames) {
		return "unknown"
	}
	return fieldTypeNames[t]
}

// FieldSpec defines the rules for a single entity field (and CSV column).
type FieldSpec struct {
	Name       string              // Field name, also the CSV header (matched exactly)
	Type       FieldType           // Expected data type
	Required   bool                // Must be present and non-empty on create and import
	EnumValues []string            // Valid values for FieldEnum
	Ref        string              // Kind of the entity this field references, if any
	Normalizer func(string) string // Optional transformation applied before coercion
}

// Fields holds the typed attribute values of an entity.
// Values are string, bool, int64, decimal.Decimal or nil.
type Fields map[string]any

// Record is one converted CSV row: field name to raw cell value.
type Record map[string]string

// Entity is a single stored row of any registered kind.
type Entity struct {
	Kind      string
	ID        string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the entity has been soft-deleted.
func (e *Entity) Deleted() bool {
	return e.DeletedAt != nil
}

// MarshalJSON flattens the entity into one object: id, fields, timestamps.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+4)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["id"] = e.ID
	out["createdAt"] = e.CreatedAt.UTC().Format(time.RFC3339)
	out["updatedAt"] = e.UpdatedAt.UTC().Format(time.RFC3339)
	if e.DeletedAt != nil {
		out["deletedAt"] = e.DeletedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// ListFilter contains options for filtering and paginating entity lists.
type ListFilter struct {
	Kind           string
	Search         string // Case-insensitive match against the id and text fields
	Offset         int
	Limit          int
	IncludeDeleted bool
}

// Normalize applies default and maximum page sizes.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ValidationResult is the outcome of validating an import before any write.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// ImportOutcome is the result of a batch upsert. Partial success is expected:
// Processed counts successful rows and Errors lists the failed ones in file order.
type ImportOutcome struct {
	BatchID   string        `json:"batchId"`
	Kind      string        `json:"kind"`
	FileName  string        `json:"fileName,omitempty"`
	TotalRows int           `json:"totalRows"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"-"`
}

// Failed returns the number of rows that could not be processed.
func (o *ImportOutcome) Failed() int {
	return len(o.Errors)
}
