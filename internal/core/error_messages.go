package core

// error_messages.go turns technical errors into messages with a support code.
//
// Codes by category:
//
//	DB001-DB006   storage conflicts and connectivity
//	VAL001-VAL007 field and column validation
//	FILE001-FILE004 uploaded file problems
//	IMP001-IMP003 import capacity and request lifetime
//	ENT001-ENT002 entity lookup
//	ERR000        no pattern matched; check the server log
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns precede general ones.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-facing explanation of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Storage
	{"duplicate identifier", UserMessage{"A record with this ID already exists", "Retry the request; a new ID will be assigned", "DB001"}},
	{"duplicate key", UserMessage{"A record with this ID already exists", "Retry the request; a new ID will be assigned", "DB001"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Create or import the referenced records first", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB003"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB004"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB005"}},

	// Request lifetime. Listed before the generic timeout pattern.
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "IMP003"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},

	// Validation
	{"referenced", UserMessage{"Referenced record does not exist", "Create or import the referenced records first", "VAL007"}},
	{"invalid date", UserMessage{"Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", "VAL001"}},
	{"invalid number", UserMessage{"Invalid number format detected", "Use a plain decimal such as 1250.00", "VAL002"}},
	{"required field", UserMessage{"Required field is empty", "Ensure all required fields have values", "VAL003"}},
	{"missing required column", UserMessage{"Required column is missing from the file", "Download the template and compare the headers", "VAL004"}},
	{"validation failed", UserMessage{"The file failed validation", "Fix the listed rows and upload again", "VAL005"}},
	{"invalid enum", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", "VAL006"}},
	{"invalid field", UserMessage{"One or more fields are invalid", "Check the listed fields and try again", "VAL006"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is delimited text with a header row", "FILE002"}},
	{"no file provided", UserMessage{"No file was uploaded", "Attach a CSV file in the \"file\" field", "FILE003"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a CSV file with a header and data rows", "FILE004"}},

	// Import capacity
	{"too many concurrent uploads", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP001"}},

	// Entities
	{"unknown entity kind", UserMessage{"Unknown entity type", "Use one of the types listed at /api/entities", "ENT001"}},
	{"not found", UserMessage{"Record not found", "Verify the ID is correct", "ENT002"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the user message for the first pattern err matches, or
// the ERR000 fallback. A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
