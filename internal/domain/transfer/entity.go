package transfer

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
)

// Status represents the transfer lifecycle state. Transitions are one-way:
// pending -> accepted | rejected | expired.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Action names the two ways a recipient can resolve a pending transfer.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// RecipientKind tags who may redeem a transfer.
type RecipientKind string

const (
	// RecipientEmail addresses a single recipient by email.
	RecipientEmail RecipientKind = "email"
	// RecipientAnyoneWithCode lets any authenticated user other than the
	// sender redeem the transfer by presenting its code.
	RecipientAnyoneWithCode RecipientKind = "anyone_with_code"
)

// Recipient is the tagged recipient variant. Email is set only for
// RecipientEmail.
type Recipient struct {
	Kind  RecipientKind `json:"kind"`
	Email string        `json:"email,omitempty"`
}

// Transfer is a pending offer to move a fixed credit amount from sender to
// a recipient, with an expiry. credits_amount is already reserved on
// source_credit_id while the transfer is pending.
type Transfer struct {
	ID             uuid.UUID         `db:"id"`
	TransferCode   string            `db:"transfer_code"`
	FromUserID     uuid.UUID         `db:"from_user_id"`
	ToUserEmail    sql.NullString    `db:"to_user_email"` // NULL = anyone with the code
	ToUserID       uuid.NullUUID     `db:"to_user_id"`
	CreditsAmount  int               `db:"credits_amount"`
	CreditType     credit.CreditType `db:"credit_type"`
	Status         Status            `db:"status"`
	SourceCreditID uuid.UUID         `db:"source_credit_id"`
	Message        sql.NullString    `db:"message"`
	CreatedAt      time.Time         `db:"created_at"`
	ExpiresAt      time.Time         `db:"expires_at"`
	AcceptedAt     sql.NullTime      `db:"accepted_at"`
}

// Recipient returns the tagged recipient variant for this transfer.
func (t *Transfer) Recipient() Recipient {
	if !t.ToUserEmail.Valid {
		return Recipient{Kind: RecipientAnyoneWithCode}
	}
	return Recipient{Kind: RecipientEmail, Email: t.ToUserEmail.String}
}

// IsShareable reports whether any authenticated user holding the code may
// redeem this transfer.
func (t *Transfer) IsShareable() bool {
	return !t.ToUserEmail.Valid
}

// ExpiredAt reports whether the transfer deadline has passed at now.
func (t *Transfer) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// CanBeResolvedBy reports whether the authenticated caller is an allowed
// resolver. The sender is excluded separately by the self-redemption guard.
func (t *Transfer) CanBeResolvedBy(userID uuid.UUID, email string) bool {
	if t.IsShareable() {
		return true
	}
	if t.ToUserID.Valid && t.ToUserID.UUID == userID {
		return true
	}
	return strings.EqualFold(t.ToUserEmail.String, email)
}

// InvolvesUser reports whether the caller is the sender or an allowed
// resolver, for read access to the record.
func (t *Transfer) InvolvesUser(userID uuid.UUID, email string) bool {
	return t.FromUserID == userID || t.CanBeResolvedBy(userID, email)
}
