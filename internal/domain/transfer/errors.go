package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrTransferNotFound is returned when an id lookup matches nothing
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrInvalidCode is returned when a code lookup matches nothing
	ErrInvalidCode = errors.New("invalid transfer code")

	// ErrSelfRedemption is returned when the sender tries to resolve their own transfer
	ErrSelfRedemption = errors.New("cannot redeem your own transfer")

	// ErrSelfTransfer is returned when a sender addresses a transfer to their own email
	ErrSelfTransfer = errors.New("cannot send credits to yourself")

	// ErrNotRecipient is returned when the caller is not an allowed resolver
	ErrNotRecipient = errors.New("transfer is addressed to a different recipient")

	// ErrNotParticipant is returned when the caller may not read the record
	ErrNotParticipant = errors.New("not a participant of this transfer")

	// ErrAlreadyResolved is the errors.Is target for AlreadyResolvedError
	ErrAlreadyResolved = errors.New("transfer already resolved")

	// ErrTransferExpired is returned when the transfer deadline has passed
	ErrTransferExpired = errors.New("transfer has expired")

	// ErrCodeCollision is returned when code generation keeps hitting existing codes
	ErrCodeCollision = errors.New("could not generate a unique transfer code")

	ErrInternal = errors.New("internal error")
)

// AlreadyResolvedError reports a transfer that already left the pending
// state. Status only refines the user-facing message; callers branch on
// errors.Is(err, ErrAlreadyResolved).
type AlreadyResolvedError struct {
	Status Status
}

func (e *AlreadyResolvedError) Error() string {
	switch e.Status {
	case StatusAccepted:
		return "transfer was already accepted"
	case StatusRejected:
		return "transfer was already rejected"
	case StatusExpired:
		return "transfer has expired"
	default:
		return fmt.Sprintf("transfer is not pending (status: %s)", e.Status)
	}
}

func (e *AlreadyResolvedError) Is(target error) bool {
	return target == ErrAlreadyResolved
}
