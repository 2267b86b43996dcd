package notification

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type represents notification type
type Type string

const (
	TypeTransferReceived Type = "transfer_received" // Recipient: credits waiting for you
	TypeTransferAccepted Type = "transfer_accepted" // Sender: recipient took the credits
	TypeTransferRejected Type = "transfer_rejected" // Sender: recipient declined, credits returned
)

// Notification represents an in-app notification row. Push delivery is
// handled by a separate service; this slice only stores and lists rows.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      Type            `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Body      sql.NullString  `db:"body" json:"body,omitempty"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime    `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// NotificationData links a notification to the transfer that caused it.
type NotificationData struct {
	TransferID    *uuid.UUID `json:"transfer_id,omitempty"`
	CreditType    string     `json:"credit_type,omitempty"`
	CreditsAmount int        `json:"credits_amount,omitempty"`
}

// SetData encodes data to JSON
func (n *Notification) SetData(data *NotificationData) {
	if data != nil {
		n.Data, _ = json.Marshal(data)
	}
}
