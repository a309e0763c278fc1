package core

// idgen.go mints human-readable sequential identifiers such as CUST003.
//
// An identifier is an uppercase prefix followed by a decimal suffix padded to
// at least IdentifierWidth digits. The width grows instead of wrapping, so
// CUST999 is followed by CUST1000. Lexicographic ordering stops matching
// numeric ordering at that point, which is why every comparison here is done
// on the parsed suffix.

import (
	"fmt"
	"strconv"
	"strings"
)

// IdentifierWidth is the minimum number of suffix digits.
const IdentifierWidth = 3

// FormatIdentifier renders prefix and sequence number as an identifier.
func FormatIdentifier(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, IdentifierWidth, n)
}

// ParseIdentifier returns the sequence number of id under prefix.
// Returns ErrMalformedIdentifier if id does not carry the prefix or its
// suffix is not a non-negative decimal integer.
func ParseIdentifier(prefix, id string) (int64, error) {
	if !strings.HasPrefix(id, prefix) {
		return 0, fmt.Errorf("%w: %q does not start with %q", ErrMalformedIdentifier, id, prefix)
	}
	suffix := id[len(prefix):]
	if suffix == "" {
		return 0, fmt.Errorf("%w: %q has no numeric suffix", ErrMalformedIdentifier, id)
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q has non-numeric suffix", ErrMalformedIdentifier, id)
		}
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedIdentifier, id, err)
	}
	return n, nil
}

// NextIdentifier computes the identifier following every member of existing
// that shares prefix. existing may be the single last identifier or the full
// set. Members with another prefix are ignored; members carrying the prefix
// but an unparseable suffix are skipped and returned as malformed so the
// caller can report them.
func NextIdentifier(prefix string, existing []string) (next string, malformed []string) {
	var max int64
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := ParseIdentifier(prefix, id)
		if err != nil {
			malformed = append(malformed, id)
			continue
		}
		if n > max {
			max = n
		}
	}
	return FormatIdentifier(prefix, max+1), malformed
}

// MaxSequence returns the highest well-formed sequence number in ids,
// or 0 if there is none.
func MaxSequence(prefix string, ids []string) int64 {
	var max int64
	for _, id := range ids {
		if n, err := ParseIdentifier(prefix, id); err == nil && n > max {
			max = n
		}
	}
	return max
}
