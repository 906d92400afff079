package helper

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource, citation or hypothesis does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameter is returned for parameters outside their allowed domain.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnavailable is returned when an optional capability is not configured.
	ErrUnavailable = errors.New("capability unavailable")
)

// NewError wraps err with the step it failed in.
// The wrapped error stays reachable for errors.Is and errors.As.
func NewError(step string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", step, err)
}

// MapNotFound converts sql.ErrNoRows into ErrNotFound and wraps everything else.
func MapNotFound(step string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(step, ErrNotFound)
	}
	return NewError(step, err)
}
