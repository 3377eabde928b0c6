// Package common defines sentinel errors and small helpers shared across
// the FoodShare client layers. Callers should use errors.Is to match the
// error values.
package common

import "errors"

var (
	// Gating errors, returned before a gated mutation reaches the network.
	ErrGatingViolation = errors.New("action not permitted for current session")
	ErrNotSignedIn     = errors.New("not signed in")

	// Validation errors for local input.
	ErrValidation = errors.New("validation error")

	// Local data errors.
	ErrNotFound = errors.New("not found")
)
