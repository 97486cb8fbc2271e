package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/tabletalk/internal/errs"
)

// mapError maps the error taxonomy spec.md §7 defines to HTTP status
// codes, grounded on pkg/api/errors.go's errors.As dispatch chain.
func mapError(err error) *echo.HTTPError {
	var validErr *errs.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}

	var ambigErr *errs.AmbiguousClarificationError
	if errors.As(err, &ambigErr) {
		return echo.NewHTTPError(http.StatusBadRequest, ambigErr.Error())
	}

	// Authorization failures are deliberately indistinguishable from
	// not-found, per spec.md §7.
	var authErr *errs.AuthorizationError
	if errors.As(err, &authErr) || errors.Is(err, errs.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, errs.ErrAlreadyExists) {
		return echo.NewHTTPError(http.StatusConflict, "resource already exists")
	}

	var loopErr *errs.LoopDetectedError
	var capErr *errs.IterationCapExceededError
	var wallErr *errs.WallClockExceededError
	var parseErr *errs.UnparseableOutputError
	if errors.As(err, &loopErr) || errors.As(err, &capErr) ||
		errors.As(err, &wallErr) || errors.As(err, &parseErr) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	var rateErr *errs.RateLimitedError
	if errors.As(err, &rateErr) {
		return echo.NewHTTPError(http.StatusTooManyRequests, rateErr.Error())
	}

	var provErr *errs.ProviderUnavailableError
	if errors.As(err, &provErr) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, provErr.Error())
	}

	slog.Error("unexpected internal error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
