// Package pipeline translates tool requests into deterministic MongoDB
// aggregation pipelines, always anchored by the tenant prelude match.
package pipeline

import "fmt"

// UnknownColumnError is returned when a requested column is absent from the
// table's schema. Carries the available columns so the agent can self-correct.
type UnknownColumnError struct {
	Column    string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q; available columns: %v", e.Column, e.Available)
}

// FilterGrammarError is returned for a filter document using an unsupported
// operator or malformed shape.
type FilterGrammarError struct {
	Reason string
}

func (e *FilterGrammarError) Error() string {
	return fmt.Sprintf("invalid filter: %s", e.Reason)
}

// AuthorizationError is returned when a pipeline request would cross a
// tenant boundary. Fatal — never surfaced to the loop as a retryable
// observation.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization error: %s", e.Reason)
}

// DerivedColumnError is returned when a composite-column extraction pattern
// fails to match.
type DerivedColumnError struct {
	Column  string
	Pattern string
}

func (e *DerivedColumnError) Error() string {
	return fmt.Sprintf("could not derive column from %q using pattern %q", e.Column, e.Pattern)
}

// StoreUnavailableError is returned after transport errors have exhausted
// the retry budget (3 attempts, 50/200/800ms backoff).
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("document store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
