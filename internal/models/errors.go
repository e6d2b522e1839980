package models

import (
	"errors"
	"fmt"
)

const (
	MsgBothConflict        = "Table is already reserved near this time and is occupied by an active order"
	MsgReservationConflict = "Table is already reserved close to the requested time"
	MsgOrderConflict       = "Table is occupied by an active order at the requested time"
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports that a table cannot be booked at the requested instant.
type ConflictError struct {
	ReservationConflict bool
	OrderConflict       bool
}

func (e *ConflictError) Error() string {
	switch {
	case e.ReservationConflict && e.OrderConflict:
		return MsgBothConflict
	case e.OrderConflict:
		return MsgOrderConflict
	default:
		return MsgReservationConflict
	}
}

// NotFoundError reports an operation on a reservation that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("reservation %s not found", e.ID)
}

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateSlot is returned by stores when an active reservation already holds the
	// same table, date and time.
	ErrDuplicateSlot = errors.New("table slot already reserved")
)
