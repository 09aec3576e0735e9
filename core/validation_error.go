package core

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError collects per-field validation messages. A non-empty
// value renders as a 422 with the field details in the error body.
type ValidationError map[string][]string

// NewValidationError creates an empty validation error.
func NewValidationError() ValidationError {
	return make(ValidationError)
}

// Add appends an error message for a field.
func (e ValidationError) Add(field, message string) {
	e[field] = append(e[field], message)
}

// IsEmpty reports whether no field has errors.
func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}

// Error implements the error interface with a stable, human-readable
// summary of the failing fields.
func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if msgs := e[field]; len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs[0]))
		}
	}
	return "validation error: " + strings.Join(parts, ", ")
}
