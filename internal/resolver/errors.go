// Package resolver implements the Semantic Column Resolver (C3): mapping a
// caller-chosen set of role names to concrete table columns via an LLM call,
// with a deterministic keyword fallback and a composite-column extraction
// path. The resolver is stateless and safe for concurrent use.
package resolver

import "fmt"

// RoleUnknownColumnError is returned when the LLM (or a caller-supplied
// override) names a column absent from the table's schema.
type RoleUnknownColumnError struct {
	Role      string
	Column    string
	Available []string
}

func (e *RoleUnknownColumnError) Error() string {
	return fmt.Sprintf("resolver: role %q mapped to unknown column %q; available: %v", e.Role, e.Column, e.Available)
}

// ExtractionSpecError is returned when a requested composite-column
// extraction pattern is malformed or lacks exactly one capture group.
type ExtractionSpecError struct {
	Pattern string
	Reason  string
}

func (e *ExtractionSpecError) Error() string {
	return fmt.Sprintf("resolver: invalid extraction pattern %q: %s", e.Pattern, e.Reason)
}
