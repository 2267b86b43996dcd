package credit

import "errors"

var (
	// ErrInsufficientCredits is returned when a reservation exceeds a pool's availability
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInvalidCreditType is returned for an unknown credit type
	ErrInvalidCreditType = errors.New("invalid credit type")

	// ErrPoolNotFound is returned when the referenced pool does not exist
	ErrPoolNotFound = errors.New("credit pool not found")

	ErrInternal = errors.New("internal error")
)
