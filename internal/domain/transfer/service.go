package transfer

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
	"github.com/tunewish/tunewish-api/internal/domain/user"
)

// Lookup identifies a transfer either by id or by human-entered code.
// Exactly one side is set.
type Lookup struct {
	ID   uuid.NullUUID
	Code string
}

// LookupByID builds an id lookup.
func LookupByID(id uuid.UUID) Lookup {
	return Lookup{ID: uuid.NullUUID{UUID: id, Valid: true}}
}

// LookupByCode builds a code lookup.
func LookupByCode(code string) Lookup {
	return Lookup{Code: code}
}

// Notifier records in-app notifications for transfer events. Delivery is
// best-effort and must never fail the transfer mutation.
type Notifier interface {
	TransferReceived(ctx context.Context, recipientID uuid.UUID, t *Transfer)
	TransferResolved(ctx context.Context, senderID uuid.UUID, t *Transfer, action Action)
}

// Service owns the transfer lifecycle: creation with reservation, and
// resolution with the guards of the redemption flow.
type Service struct {
	repo     *Repository
	users    user.Repository
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo *Repository, users user.Repository, notifier Notifier, ttl time.Duration) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		ttl:      ttl,
		now:      time.Now,
	}
}

// CreateTransfer reserves req.Amount from one of the sender's pools and
// inserts a pending record with a shareable code and a fixed expiry,
// atomically. Addressing a transfer to your own email is rejected.
func (s *Service) CreateTransfer(ctx context.Context, senderID uuid.UUID, senderEmail string, req CreateTransferRequest) (*Transfer, error) {
	creditType := credit.CreditType(req.CreditType)
	if !creditType.Valid() {
		return nil, credit.ErrInvalidCreditType
	}
	if req.Amount <= 0 {
		return nil, credit.ErrInvalidAmount
	}

	var toEmail sql.NullString
	if !req.Shareable {
		if strings.EqualFold(req.ToEmail, senderEmail) {
			return nil, ErrSelfTransfer
		}
		toEmail = sql.NullString{String: req.ToEmail, Valid: true}
	}

	now := s.now()
	t := &Transfer{
		ID:            uuid.New(),
		TransferCode:  generateTransferCode(),
		FromUserID:    senderID,
		ToUserEmail:   toEmail,
		CreditsAmount: req.Amount,
		CreditType:    creditType,
		Status:        StatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if req.Message != "" {
		t.Message = sql.NullString{String: req.Message, Valid: true}
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	log.Info().
		Str("transfer_id", t.ID.String()).
		Str("from_user_id", senderID.String()).
		Str("credit_type", string(creditType)).
		Int("amount", req.Amount).
		Bool("shareable", t.IsShareable()).
		Msg("transfer created")

	s.notifyRecipient(ctx, t)

	return t, nil
}

// ResolveTransfer accepts or rejects a pending transfer on behalf of the
// authenticated caller. Guard failures mutate nothing; the only writes are
// the lazy expiry transition and the accept/reject transaction.
func (s *Service) ResolveTransfer(ctx context.Context, lookup Lookup, userID uuid.UUID, email string, action Action) (*Transfer, error) {
	t, err := s.lookup(ctx, lookup)
	if err != nil {
		return nil, err
	}

	if t.FromUserID == userID {
		return nil, ErrSelfRedemption
	}

	if !t.CanBeResolvedBy(userID, email) {
		return nil, ErrNotRecipient
	}

	if t.Status != StatusPending {
		return nil, &AlreadyResolvedError{Status: t.Status}
	}

	now := s.now()
	if t.ExpiredAt(now) {
		if err := s.repo.MarkExpired(ctx, t.ID); err != nil {
			return nil, err
		}
		return nil, ErrTransferExpired
	}

	switch action {
	case ActionAccept:
		if err := s.repo.Accept(ctx, t, userID, now); err != nil {
			return nil, err
		}
		t.Status = StatusAccepted
		t.AcceptedAt = sql.NullTime{Time: now, Valid: true}
	case ActionReject:
		if err := s.repo.Reject(ctx, t, userID); err != nil {
			return nil, err
		}
		t.Status = StatusRejected
	default:
		return nil, ErrInternal
	}

	t.ToUserID = uuid.NullUUID{UUID: userID, Valid: true}

	log.Info().
		Str("transfer_id", t.ID.String()).
		Str("resolved_by", userID.String()).
		Str("action", string(action)).
		Msg("transfer resolved")

	if s.notifier != nil {
		s.notifier.TransferResolved(ctx, t.FromUserID, t, action)
	}

	return t, nil
}

// GetTransfer returns a transfer visible to the caller (sender or allowed
// resolver).
func (s *Service) GetTransfer(ctx context.Context, id uuid.UUID, userID uuid.UUID, email string) (*Transfer, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.InvolvesUser(userID, email) {
		return nil, ErrNotParticipant
	}
	return t, nil
}

// ListSent returns transfers the caller created.
func (s *Service) ListSent(ctx context.Context, userID uuid.UUID) ([]Transfer, error) {
	return s.repo.ListSent(ctx, userID)
}

// ListReceived returns pending transfers addressed to the caller.
func (s *Service) ListReceived(ctx context.Context, userID uuid.UUID, email string) ([]Transfer, error) {
	return s.repo.ListReceived(ctx, userID, email)
}

func (s *Service) lookup(ctx context.Context, lookup Lookup) (*Transfer, error) {
	if lookup.ID.Valid {
		return s.repo.GetByID(ctx, lookup.ID.UUID)
	}
	return s.repo.GetByCode(ctx, lookup.Code)
}

// notifyRecipient records an in-app notification for a named recipient who
// already has an account. Shareable transfers have nobody to notify.
func (s *Service) notifyRecipient(ctx context.Context, t *Transfer) {
	if s.notifier == nil || t.IsShareable() {
		return
	}

	recipient, err := s.users.GetByEmail(ctx, t.ToUserEmail.String)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			log.Warn().Err(err).Str("transfer_id", t.ID.String()).Msg("recipient lookup for notification failed")
		}
		return
	}

	s.notifier.TransferReceived(ctx, recipient.ID, t)
}
