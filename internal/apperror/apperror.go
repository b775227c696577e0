// Package apperror defines the error kinds shared by all domain packages.
//
// Domain sentinels wrap exactly one kind, so callers can test for the precise
// error or just its kind:
//
//	var ErrRoleNotFound = fmt.Errorf("role not found: %w", apperror.ErrNotFound)
//
//	errors.Is(err, role.ErrRoleNotFound)  // precise
//	errors.Is(err, apperror.ErrNotFound)  // kind
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict the operation clashes with existing state.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized the caller could not be identified.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden the caller is identified but lacks the required role or permission.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation the input is malformed.
	ErrValidation = errors.New("validation failed")
)

// ForbiddenError names the requirement the caller did not meet.
type ForbiddenError struct {
	Roles       []string
	Permissions []string
}

func (e *ForbiddenError) Error() string {
	var parts []string

	if len(e.Roles) > 0 {
		parts = append(parts, "one of roles ["+strings.Join(e.Roles, ", ")+"]")
	}

	if len(e.Permissions) > 0 {
		parts = append(parts, "one of permissions ["+strings.Join(e.Permissions, ", ")+"]")
	}

	return "forbidden: requires " + strings.Join(parts, " or ")
}

// Unwrap makes errors.Is(err, ErrForbidden) hold.
func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// Validation wraps a validation message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
