package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
)

const (
	queryTimeout     = 3 * time.Second
	codeInsertTries  = 3
	transferColumns  = `id, transfer_code, from_user_id, to_user_email, to_user_id, credits_amount, credit_type, status, source_credit_id, message, created_at, expires_at, accepted_at`
	uniqueViolationC = "23505"
)

// Repository owns transfer rows and the multi-statement transactions that
// keep them consistent with the credit ledger. Status transitions are
// conditional updates on status = 'pending' so two concurrent resolvers
// cannot both win.
type Repository struct {
	db      *sqlx.DB
	credits *credit.Repository
}

func NewRepository(db *sqlx.DB, credits *credit.Repository) *Repository {
	return &Repository{db: db, credits: credits}
}

// GetByID looks a transfer up by its primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transfer
	err := r.db.GetContext(ctx2, &t, `SELECT `+transferColumns+` FROM credit_transfers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("%w: get transfer by id", ErrInternal)
	}
	return &t, nil
}

// GetByCode looks a transfer up by its upper-normalized shareable code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Transfer, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transfer
	err := r.db.GetContext(ctx2, &t, `SELECT `+transferColumns+` FROM credit_transfers WHERE transfer_code = $1`, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("%w: get transfer by code", ErrInternal)
	}
	return &t, nil
}

// Create reserves t.CreditsAmount from one of the sender's pools and inserts
// the pending record, atomically. On return t.SourceCreditID points at the
// debited pool and t.TransferCode may have been regenerated after a
// collision.
func (r *Repository) Create(ctx context.Context, t *Transfer) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	pool, err := r.credits.FindPoolForReserveTx(ctx2, tx, t.FromUserID, t.CreditType, t.CreditsAmount)
	if err != nil {
		return err
	}

	if err := r.credits.ReserveTx(ctx2, tx, pool.ID, t.CreditsAmount); err != nil {
		return err
	}
	t.SourceCreditID = pool.ID

	if err := r.insertWithFreshCode(ctx2, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return nil
}

// insertWithFreshCode retries the insert with a regenerated code when the
// unique index on transfer_code rejects the row.
func (r *Repository) insertWithFreshCode(ctx context.Context, tx *sqlx.Tx, t *Transfer) error {
	for attempt := 0; attempt < codeInsertTries; attempt++ {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credit_transfers (
				id, transfer_code, from_user_id, to_user_email, credits_amount,
				credit_type, status, source_credit_id, message, created_at, expires_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, t.ID, t.TransferCode, t.FromUserID, t.ToUserEmail, t.CreditsAmount,
			t.CreditType, t.Status, t.SourceCreditID, t.Message, t.CreatedAt, t.ExpiresAt)
		if err == nil {
			return nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationC {
			t.TransferCode = generateTransferCode()
			continue
		}
		return fmt.Errorf("%w: insert transfer", ErrInternal)
	}
	return ErrCodeCollision
}

// MarkExpired lazily transitions a pending transfer to expired. Touching no
// rows is fine: a concurrent caller already wrote the same terminal state.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		UPDATE credit_transfers
		SET status = $2
		WHERE id = $1 AND status = $3
	`, id, StatusExpired, StatusPending)
	if err != nil {
		return fmt.Errorf("%w: mark expired", ErrInternal)
	}
	return nil
}

// Accept claims a pending transfer for toUserID and grants the recipient a
// new pool of t.CreditsAmount, as one transaction. Exactly one concurrent
// caller observes status = 'pending' and wins; the rest get
// AlreadyResolvedError. The sender's reservation is never touched here: the
// reserved amount left the sender for good.
func (r *Repository) Accept(ctx context.Context, t *Transfer, toUserID uuid.UUID, now time.Time) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := r.claimTx(ctx2, tx, t.ID, StatusAccepted, toUserID, &now); err != nil {
		return err
	}

	if _, err := r.credits.GrantTx(ctx2, tx, toUserID, t.CreditType.TransferPlanID(), t.CreditType, t.CreditsAmount); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return nil
}

// Reject claims a pending transfer as rejected, recording who declined, and
// releases the original reservation back to the sender's pool, as one
// transaction. The recipient is granted nothing.
func (r *Repository) Reject(ctx context.Context, t *Transfer, toUserID uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := r.claimTx(ctx2, tx, t.ID, StatusRejected, toUserID, nil); err != nil {
		return err
	}

	if err := r.credits.ReleaseTx(ctx2, tx, t.SourceCreditID, t.CreditsAmount); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return nil
}

// claimTx performs the conditional pending -> terminal transition. When the
// row is no longer pending it reads the current status so the caller can
// report what happened to it.
func (r *Repository) claimTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, to Status, toUserID uuid.UUID, acceptedAt *time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE credit_transfers
		SET status = $2, to_user_id = $3, accepted_at = $4
		WHERE id = $1 AND status = $5
	`, id, to, toUserID, acceptedAt, StatusPending)
	if err != nil {
		return fmt.Errorf("%w: claim transfer", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		var current Status
		if err := tx.GetContext(ctx, &current, `SELECT status FROM credit_transfers WHERE id = $1`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTransferNotFound
			}
			return fmt.Errorf("%w: read transfer status", ErrInternal)
		}
		return &AlreadyResolvedError{Status: current}
	}
	return nil
}

// ListSent returns all transfers created by a user, newest first.
func (r *Repository) ListSent(ctx context.Context, userID uuid.UUID) ([]Transfer, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	transfers := make([]Transfer, 0)
	err := r.db.SelectContext(ctx2, &transfers, `
		SELECT `+transferColumns+`
		FROM credit_transfers
		WHERE from_user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sent transfers", ErrInternal)
	}
	return transfers, nil
}

// ListReceived returns pending transfers addressed to the caller by user id
// or email. Shareable transfers are excluded: they are reachable only via
// their code.
func (r *Repository) ListReceived(ctx context.Context, userID uuid.UUID, email string) ([]Transfer, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	transfers := make([]Transfer, 0)
	err := r.db.SelectContext(ctx2, &transfers, `
		SELECT `+transferColumns+`
		FROM credit_transfers
		WHERE status = $1
		  AND to_user_email IS NOT NULL
		  AND (to_user_id = $2 OR lower(to_user_email) = lower($3))
		ORDER BY created_at DESC
	`, StatusPending, userID, email)
	if err != nil {
		return nil, fmt.Errorf("%w: list received transfers", ErrInternal)
	}
	return transfers, nil
}
