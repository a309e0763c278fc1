package core

// convert.go turns raw string values (CSV cells or JSON request values) into
// typed entity fields.
//
// User-provided data is messy:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// Empty values always convert to nil; the field is absent rather than zero.

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical storage format for date fields.
const DateLayout = "2006-01-02"

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are moved to the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
		time.RFC3339,
	}
)

// ToDate parses a date in any supported layout.
func ToDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ToDecimal parses a number, accepting currency symbols, thousands
// separators and accounting negatives "(123.45)".
func ToDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ToBool accepts true/false, yes/no, t/f, y/n, 1/0.
func ToBool(s string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// ToInteger parses a whole number, allowing thousands separators.
func ToInteger(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// HeaderIndex maps column names to their position in a CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Names are cleaned but matched exactly; the first occurrence of a name wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := CleanCell(h)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// surrounding whitespace, the Excel formula prefix (="...") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// convertValue coerces one raw value according to spec.
// Empty input yields nil without error.
func convertValue(raw string, spec FieldSpec) (any, error) {
	raw = CleanCell(raw)
	if raw == "" {
		return nil, nil
	}
	if spec.Normalizer != nil {
		raw = spec.Normalizer(raw)
	}

	switch spec.Type {
	case FieldNumeric:
		d, ok := ToDecimal(raw)
		if !ok {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		return d, nil
	case FieldInteger:
		n, ok := ToInteger(raw)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil
	case FieldDate:
		t, ok := ToDate(raw)
		if !ok {
			return nil, fmt.Errorf("invalid date %q (use YYYY-MM-DD or similar)", raw)
		}
		return t.Format(DateLayout), nil
	case FieldBool:
		b, ok := ToBool(raw)
		if !ok {
			return nil, fmt.Errorf("invalid bool %q: must be yes/no, true/false, or 1/0", raw)
		}
		return b, nil
	case FieldEnum:
		for _, ev := range spec.EnumValues {
			if strings.EqualFold(ev, raw) {
				return ev, nil
			}
		}
		return nil, fmt.Errorf("invalid enum %q: must be one of %s", raw, strings.Join(spec.EnumValues, ", "))
	default:
		return raw, nil
	}
}

// BuildFields coerces a record into typed fields for def. Only fields named
// in the definition are kept. Every conversion problem is reported; a
// required field that is empty is an error unless partial is set (updates
// only carry the fields being changed).
func BuildFields(def EntityDefinition, rec Record, partial bool) (Fields, error) {
	fields := make(Fields, len(def.FieldSpecs))
	var errs FieldErrors

	for _, spec := range def.FieldSpecs {
		raw, present := rec[spec.Name]
		if partial && !present {
			continue
		}
		v, err := convertValue(raw, spec)
		if err != nil {
			errs = append(errs, FieldError{Field: spec.Name, Message: err.Error()})
			continue
		}
		if v == nil && spec.Required {
			errs = append(errs, FieldError{Field: spec.Name, Message: "required field is empty"})
			continue
		}
		fields[spec.Name] = v
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return fields, nil
}

// RecordFromJSON flattens a decoded JSON object into a Record so request
// bodies go through the same coercion as CSV cells. Numbers should be
// decoded with json.Decoder.UseNumber to keep their exact text.
func RecordFromJSON(body map[string]any) Record {
	rec := make(Record, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case nil:
			rec[k] = ""
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case bool:
			rec[k] = strconv.FormatBool(val)
		case float64:
			rec[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			rec[k] = fmt.Sprint(val)
		}
	}
	return rec
}

// FieldString renders a stored field value back to its CSV form.
func FieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case decimal.Decimal:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
