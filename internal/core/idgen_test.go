package core

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func TestFormatIdentifier(t *testing.T) {
	tests := []struct {
		prefix string
		n      int64
		want   string
	}{
		{"CUST", 1, "CUST001"},
		{"TMP", 4, "TMP004"},
		{"WO", 42, "WO042"},
		{"CUST", 999, "CUST999"},
		{"CUST", 1000, "CUST1000"},
		{"USR", 123456, "USR123456"},
	}
	for _, tt := range tests {
		if got := FormatIdentifier(tt.prefix, tt.n); got != tt.want {
			t.Errorf("FormatIdentifier(%q, %d) = %q, want %q", tt.prefix, tt.n, got, tt.want)
		}
	}
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		prefix  string
		id      string
		want    int64
		wantErr bool
	}{
		{"CUST", "CUST003", 3, false},
		{"CUST", "CUST1000", 1000, false},
		{"CUST", "CUST0", 0, false},
		{"CUST", "CUST", 0, true},
		{"CUST", "CUSTabc", 0, true},
		{"CUST", "CUST-12", 0, true},
		{"CUST", "CUST 12", 0, true},
		{"CUST", "USR001", 0, true},
		{"CUST", "cust001", 0, true},
		{"CUST", "CUST99999999999999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseIdentifier(tt.prefix, tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedIdentifier) {
					t.Errorf("ParseIdentifier(%q) err = %v, want ErrMalformedIdentifier", tt.id, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseIdentifier(%q) = %d, %v; want %d", tt.id, got, err, tt.want)
			}
		})
	}
}

func TestNextIdentifier(t *testing.T) {
	tests := []struct {
		name          string
		prefix        string
		existing      []string
		want          string
		wantMalformed []string
	}{
		{"empty set", "CUST", nil, "CUST001", nil},
		{"single last id", "TMP", []string{"TMP003"}, "TMP004", nil},
		{"unordered set", "USR", []string{"USR002", "USR010", "USR007"}, "USR011", nil},
		{"width expands", "CUST", []string{"CUST999"}, "CUST1000", nil},
		{"numeric not lexicographic", "CUST", []string{"CUST1000", "CUST999"}, "CUST1001", nil},
		{"other prefixes ignored", "SLA", []string{"RPT900", "SLA002"}, "SLA003", nil},
		{"malformed skipped", "RPT", []string{"RPT005", "RPTX9", "RPT"}, "RPT006", []string{"RPTX9", "RPT"}},
		{"only malformed", "RPT", []string{"RPT-old"}, "RPT001", []string{"RPT-old"}},
		{"unpadded legacy id", "WO", []string{"WO7"}, "WO008", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, malformed := NextIdentifier(tt.prefix, tt.existing)
			if got != tt.want {
				t.Errorf("NextIdentifier = %q, want %q", got, tt.want)
			}
			if fmt.Sprint(malformed) != fmt.Sprint(tt.wantMalformed) {
				t.Errorf("malformed = %v, want %v", malformed, tt.wantMalformed)
			}
		})
	}
}

// Every allocation must exceed every existing suffix and not already exist.
func TestNextIdentifier_AlwaysGreater(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		n := 1 + r.Intn(20)
		existing := make([]string, n)
		seen := make(map[string]bool, n)
		var max int64
		for i := range existing {
			v := int64(r.Intn(5000))
			existing[i] = FormatIdentifier("AST", v)
			seen[existing[i]] = true
			if v > max {
				max = v
			}
		}

		next, _ := NextIdentifier("AST", existing)
		got, err := ParseIdentifier("AST", next)
		if err != nil {
			t.Fatalf("round %d: produced unparseable %q", round, next)
		}
		if got <= max {
			t.Fatalf("round %d: %q not greater than max %d", round, next, max)
		}
		if seen[next] {
			t.Fatalf("round %d: %q already exists", round, next)
		}
	}
}

func TestMaxSequence(t *testing.T) {
	if got := MaxSequence("LSE", nil); got != 0 {
		t.Errorf("empty = %d, want 0", got)
	}
	if got := MaxSequence("LSE", []string{"LSE004", "LSE1200", "LSEbad", "CUST9999"}); got != 1200 {
		t.Errorf("MaxSequence = %d, want 1200", got)
	}
}
