package core

import "errors"

var (
	// ErrNotFound is returned when an update or delete names an id that is
	// not in the collection.
	ErrNotFound = errors.New("transaction not found")
	// ErrCorruptStore wraps any failure to decode the persisted collection.
	ErrCorruptStore = errors.New("stored transactions are corrupt")

	ErrEmptyTitle    = errors.New("empty title")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidType   = errors.New("type must be Income or Expense")
)

// IsValidation reports whether err comes from input validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidType)
}
