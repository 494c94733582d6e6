package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrCustomerNotFound = errors.New("customer not found")

	ErrInvalidID = errors.New("invalid ID format")

	// ErrAlreadyBooked is returned when a conditional open -> booked
	// transition matched no open slot.
	ErrAlreadyBooked = errors.New("slot already booked")

	ErrDuplicate = errors.New("slot already exists for this time and date")
)
