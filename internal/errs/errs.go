// Package errs collects the error taxonomy spec.md §7 requires above the
// pipeline/numeric-kernel layer: semantic errors the ReAct loop itself
// raises (loop detection, iteration cap, unparseable output), resource
// errors from LLM providers, and the sentinel/validation pattern
// internal/api maps to HTTP status codes, grounded on
// pkg/services/errors.go and pkg/api/errors.go's errors.As dispatch.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the internal/db/internal/api not-found/conflict
// dispatch, mirroring pkg/services/errors.go's ErrNotFound/ErrAlreadyExists.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
)

// ValidationError wraps a user-input error (spec.md §7's 400-class: unknown
// file/table, unknown column, bad filter grammar, bad date string,
// ambiguous clarification), grounded on pkg/services/errors.go.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AuthorizationError is fatal and audited: tenant mismatch or missing user
// context, deliberately indistinguishable from not-found to the caller
// (spec.md §7).
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization error: %s", e.Reason)
}

// LoopDetectedError is a semantic, unrecoverable error: the same
// action+input repeated three times in a row (spec.md §4.5 stop
// conditions).
type LoopDetectedError struct {
	Action string
	Input  string
}

func (e *LoopDetectedError) Error() string {
	return fmt.Sprintf("loop detected: action %q with input %q repeated three times", e.Action, e.Input)
}

// IterationCapExceededError is raised when the orchestrator's forced
// conclusion itself fails to produce a usable final answer.
type IterationCapExceededError struct {
	Iterations int
}

func (e *IterationCapExceededError) Error() string {
	return fmt.Sprintf("iteration cap (%d) exceeded without a final answer", e.Iterations)
}

// WallClockExceededError is raised when the request's wall-clock budget
// (default 180s, spec.md §4.5) elapses before a final answer is produced.
type WallClockExceededError struct {
	Budget string
}

func (e *WallClockExceededError) Error() string {
	return fmt.Sprintf("wall-clock budget (%s) exceeded", e.Budget)
}

// UnparseableOutputError is raised after three consecutive turns of model
// output that fails ReAct parsing (spec.md §7's semantic-error class).
type UnparseableOutputError struct {
	ConsecutiveFailures int
}

func (e *UnparseableOutputError) Error() string {
	return fmt.Sprintf("model output failed to parse %d consecutive turns", e.ConsecutiveFailures)
}

// AmbiguousClarificationError is raised when the user's reply to a
// date-range clarification prompt cannot be resolved into a start/end pair
// after the maximum number of attempts (spec.md §4.5).
type AmbiguousClarificationError struct {
	Attempts int
}

func (e *AmbiguousClarificationError) Error() string {
	return fmt.Sprintf("could not resolve a date range after %d attempts", e.Attempts)
}

// ProviderUnavailableError is a resource error: both the primary and
// fallback LLM providers failed for one request (spec.md §4.5's retry
// policy, grounded on pkg/mcp/recovery.go's ClassifyError escalation).
type ProviderUnavailableError struct {
	Primary  string
	Fallback string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("providers %s and %s both unavailable: %v", e.Primary, e.Fallback, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// RateLimitedError reports a provider's token-bucket rate limit was
// exhausted (golang.org/x/time/rate, spec.md §5).
type RateLimitedError struct {
	Provider string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider %q rate limit exceeded", e.Provider)
}

// IsValidationError reports whether err (or any error it wraps) is a
// ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
