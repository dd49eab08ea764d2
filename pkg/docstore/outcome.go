package docstore

import (
	"errors"

	"postboard/pkg/outcome"
)

// ToOutcome maps a store failure to the typed error an operation returns.
// Errors that already carry an outcome kind pass through untouched.
func ToOutcome(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var typed *outcome.Error
	switch {
	case errors.As(err, &typed):
		return typed
	case errors.Is(err, ErrNotFound):
		return outcome.NotFound(notFoundMsg)
	case errors.Is(err, ErrConflict):
		return outcome.Conflict("Concurrent update, please retry", err)
	}
	return outcome.Internal(err)
}
