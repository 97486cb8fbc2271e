package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/tabletalk/internal/errs"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.NewValidationError("column", "unknown column"), http.StatusBadRequest},
		{"ambiguous clarification", &errs.AmbiguousClarificationError{Attempts: 2}, http.StatusBadRequest},
		{"not found", errs.ErrNotFound, http.StatusNotFound},
		{"authorization", &errs.AuthorizationError{Reason: "tenant mismatch"}, http.StatusNotFound},
		{"already exists", errs.ErrAlreadyExists, http.StatusConflict},
		{"loop detected", &errs.LoopDetectedError{Action: "agg_helper", Input: "x"}, http.StatusUnprocessableEntity},
		{"iteration cap", &errs.IterationCapExceededError{Iterations: 25}, http.StatusUnprocessableEntity},
		{"rate limited", &errs.RateLimitedError{Provider: "openai-default"}, http.StatusTooManyRequests},
		{"provider unavailable", &errs.ProviderUnavailableError{Primary: "a", Fallback: "b"}, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			httpErr := mapError(tc.err)
			assert.Equal(t, tc.want, httpErr.Code)
		})
	}
}
