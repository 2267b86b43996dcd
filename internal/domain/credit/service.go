package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service wraps the ledger primitives with input checks and logging.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Reserve commits amount credits from a pool ahead of a transfer.
func (s *Service) Reserve(ctx context.Context, poolID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.repo.Reserve(ctx, poolID, amount); err != nil {
		return err
	}
	log.Info().Str("pool_id", poolID.String()).Int("amount", amount).Msg("credits reserved")
	return nil
}

// Release returns reserved credits to a pool after a rejected transfer.
func (s *Service) Release(ctx context.Context, poolID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.repo.Release(ctx, poolID, amount); err != nil {
		return err
	}
	log.Info().Str("pool_id", poolID.String()).Int("amount", amount).Msg("credits released")
	return nil
}

// Grant inserts a new active pool for a user.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, planID string, creditType CreditType, amount int) (*Pool, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	pool, err := s.repo.Grant(ctx, userID, planID, creditType, amount)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Str("plan_id", planID).
		Str("credit_type", string(creditType)).
		Int("amount", amount).
		Msg("credits granted")
	return pool, nil
}

// GetPool returns a single pool row.
func (s *Service) GetPool(ctx context.Context, poolID uuid.UUID) (*Pool, error) {
	return s.repo.GetPool(ctx, poolID)
}

// ListPools returns all pools owned by a user.
func (s *Service) ListPools(ctx context.Context, userID uuid.UUID) ([]Pool, error) {
	return s.repo.ListPools(ctx, userID)
}

// Balance returns per-type availability for a user.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (map[CreditType]int, error) {
	balance := make(map[CreditType]int, 2)
	for _, creditType := range []CreditType{CreditTypeVocal, CreditTypeInstrumental} {
		available, err := s.repo.AvailableByType(ctx, userID, creditType)
		if err != nil {
			return nil, err
		}
		balance[creditType] = available
	}
	return balance, nil
}
