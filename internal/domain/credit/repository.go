package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository provides the credit pool primitives every flow that touches
// balances goes through. Reserve, Release and Grant are single-statement
// conditional updates so concurrent callers race safely at the row level.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Reserve commits amount credits from a pool by incrementing used_credits.
// Fails with ErrInsufficientCredits when the pool cannot cover the amount.
func (r *Repository) Reserve(ctx context.Context, poolID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE user_credits
		SET used_credits = used_credits + $2, updated_at = now()
		WHERE id = $1 AND is_active AND total_credits - used_credits >= $2
	`, poolID, amount)
	if err != nil {
		return fmt.Errorf("%w: reserve credits", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return r.classifyReserveMiss(ctx2, poolID)
	}

	return nil
}

// ReserveTx is Reserve within an external transaction. The caller commits.
func (r *Repository) ReserveTx(ctx context.Context, tx *sqlx.Tx, poolID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE user_credits
		SET used_credits = used_credits + $2, updated_at = now()
		WHERE id = $1 AND is_active AND total_credits - used_credits >= $2
	`, poolID, amount)
	if err != nil {
		return fmt.Errorf("%w: reserve credits", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrInsufficientCredits
	}

	return nil
}

// Release returns previously reserved credits to a pool. used_credits is
// floored at zero to tolerate partial prior releases.
func (r *Repository) Release(ctx context.Context, poolID uuid.UUID, amount int) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return release(ctx2, r.db, poolID, amount)
}

// ReleaseTx is Release within an external transaction. The caller commits.
func (r *Repository) ReleaseTx(ctx context.Context, tx *sqlx.Tx, poolID uuid.UUID, amount int) error {
	return release(ctx, tx, poolID, amount)
}

func release(ctx context.Context, e sqlx.ExtContext, poolID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	result, err := e.ExecContext(ctx, `
		UPDATE user_credits
		SET used_credits = GREATEST(used_credits - $2, 0), updated_at = now()
		WHERE id = $1
	`, poolID, amount)
	if err != nil {
		return fmt.Errorf("%w: release credits", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrPoolNotFound
	}

	return nil
}

// Grant inserts a new active pool of amount credits for a user.
func (r *Repository) Grant(ctx context.Context, userID uuid.UUID, planID string, creditType CreditType, amount int) (*Pool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return grant(ctx2, r.db, userID, planID, creditType, amount)
}

// GrantTx is Grant within an external transaction. The caller commits.
func (r *Repository) GrantTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, planID string, creditType CreditType, amount int) (*Pool, error) {
	return grant(ctx, tx, userID, planID, creditType, amount)
}

func grant(ctx context.Context, e sqlx.ExtContext, userID uuid.UUID, planID string, creditType CreditType, amount int) (*Pool, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !creditType.Valid() {
		return nil, ErrInvalidCreditType
	}

	pool := &Pool{
		ID:           uuid.New(),
		UserID:       userID,
		PlanID:       planID,
		CreditType:   creditType,
		TotalCredits: amount,
		UsedCredits:  0,
		IsActive:     true,
	}

	_, err := e.ExecContext(ctx, `
		INSERT INTO user_credits (id, user_id, plan_id, credit_type, total_credits, used_credits, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, true, now(), now())
	`, pool.ID, pool.UserID, pool.PlanID, pool.CreditType, pool.TotalCredits)
	if err != nil {
		return nil, fmt.Errorf("%w: grant credits", ErrInternal)
	}

	return pool, nil
}

// GetPool returns a single pool row.
func (r *Repository) GetPool(ctx context.Context, poolID uuid.UUID) (*Pool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var pool Pool
	err := r.db.GetContext(ctx2, &pool, `
		SELECT id, user_id, plan_id, credit_type, total_credits, used_credits, is_active, created_at, updated_at
		FROM user_credits
		WHERE id = $1
	`, poolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("%w: get pool", ErrInternal)
	}

	return &pool, nil
}

// ListPools returns all of a user's pools, newest first, for the audit view.
func (r *Repository) ListPools(ctx context.Context, userID uuid.UUID) ([]Pool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pools := make([]Pool, 0)
	err := r.db.SelectContext(ctx2, &pools, `
		SELECT id, user_id, plan_id, credit_type, total_credits, used_credits, is_active, created_at, updated_at
		FROM user_credits
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list pools", ErrInternal)
	}

	return pools, nil
}

// AvailableByType sums availability over a user's active pools of one type.
func (r *Repository) AvailableByType(ctx context.Context, userID uuid.UUID, creditType CreditType) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var available int
	err := r.db.GetContext(ctx2, &available, `
		SELECT COALESCE(SUM(total_credits - used_credits), 0)
		FROM user_credits
		WHERE user_id = $1 AND credit_type = $2 AND is_active
	`, userID, creditType)
	if err != nil {
		return 0, fmt.Errorf("%w: available by type", ErrInternal)
	}

	return available, nil
}

// FindPoolForReserveTx locks and returns the oldest active pool of the given
// type that can cover amount. Used by transfer creation so the reservation
// target cannot be drained between selection and reserve.
func (r *Repository) FindPoolForReserveTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, creditType CreditType, amount int) (*Pool, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var pool Pool
	err := tx.GetContext(ctx, &pool, `
		SELECT id, user_id, plan_id, credit_type, total_credits, used_credits, is_active, created_at, updated_at
		FROM user_credits
		WHERE user_id = $1 AND credit_type = $2 AND is_active AND total_credits - used_credits >= $3
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE
	`, userID, creditType, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientCredits
		}
		return nil, fmt.Errorf("%w: find pool for reserve", ErrInternal)
	}

	return &pool, nil
}

// classifyReserveMiss distinguishes a missing pool from a drained one after
// a conditional reserve touched no rows.
func (r *Repository) classifyReserveMiss(ctx context.Context, poolID uuid.UUID) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM user_credits WHERE id = $1)`, poolID)
	if err != nil {
		return fmt.Errorf("%w: classify reserve miss", ErrInternal)
	}
	if !exists {
		return ErrPoolNotFound
	}
	return ErrInsufficientCredits
}
