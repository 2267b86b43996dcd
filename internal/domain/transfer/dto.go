package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
)

// CreateTransferRequest for POST /transfers. Exactly one of to_email and
// shareable must be set; the handler enforces the exclusivity.
type CreateTransferRequest struct {
	ToEmail    string `json:"to_email,omitempty" validate:"omitempty,email"`
	Shareable  bool   `json:"shareable,omitempty"`
	CreditType string `json:"credit_type" validate:"required,credit_type"`
	Amount     int    `json:"amount" validate:"required,gt=0"`
	Message    string `json:"message,omitempty" validate:"max=500"`
}

// ResolveTransferRequest for POST /accept-credit-transfer. Exactly one of
// transfer_id and transfer_code must be set.
type ResolveTransferRequest struct {
	TransferID   string `json:"transfer_id,omitempty" validate:"omitempty,uuid"`
	TransferCode string `json:"transfer_code,omitempty"`
	Action       string `json:"action" validate:"required,transfer_action"`
}

// TransferResponse represents a transfer in the API.
type TransferResponse struct {
	ID            uuid.UUID         `json:"id"`
	TransferCode  string            `json:"transfer_code"`
	FromUserID    uuid.UUID         `json:"from_user_id"`
	Recipient     Recipient         `json:"recipient"`
	ToUserID      *uuid.UUID        `json:"to_user_id,omitempty"`
	CreditsAmount int               `json:"credits_amount"`
	CreditType    credit.CreditType `json:"credit_type"`
	Status        Status            `json:"status"`
	Message       string            `json:"message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	AcceptedAt    *time.Time        `json:"accepted_at,omitempty"`
}

// TransferResponseFromEntity converts a transfer to its API shape.
func TransferResponseFromEntity(t *Transfer) *TransferResponse {
	resp := &TransferResponse{
		ID:            t.ID,
		TransferCode:  t.TransferCode,
		FromUserID:    t.FromUserID,
		Recipient:     t.Recipient(),
		CreditsAmount: t.CreditsAmount,
		CreditType:    t.CreditType,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
		ExpiresAt:     t.ExpiresAt,
	}

	if t.ToUserID.Valid {
		id := t.ToUserID.UUID
		resp.ToUserID = &id
	}
	if t.Message.Valid {
		resp.Message = t.Message.String
	}
	if t.AcceptedAt.Valid {
		at := t.AcceptedAt.Time
		resp.AcceptedAt = &at
	}

	return resp
}

// TransferResponsesFromEntities converts a list of transfers.
func TransferResponsesFromEntities(transfers []Transfer) []*TransferResponse {
	out := make([]*TransferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, TransferResponseFromEntity(&transfers[i]))
	}
	return out
}
