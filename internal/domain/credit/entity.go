package credit

import (
	"time"

	"github.com/google/uuid"
)

// CreditType partitions credits into non-fungible families.
type CreditType string

const (
	CreditTypeVocal        CreditType = "vocal"
	CreditTypeInstrumental CreditType = "instrumental"
)

// Valid reports whether t is a known credit type.
func (t CreditType) Valid() bool {
	return t == CreditTypeVocal || t == CreditTypeInstrumental
}

// TransferPlanID returns the plan id recorded on pools created by transfer
// acceptance. The "_transfer" suffix keeps credit provenance auditable.
func (t CreditType) TransferPlanID() string {
	return string(t) + "_transfer"
}

// Pool is a batch of credits granted to a user from one origin (a purchase
// plan or a redeemed transfer), tracked with a used/total counter. Pools are
// never hard-deleted.
type Pool struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	PlanID       string     `db:"plan_id" json:"plan_id"`
	CreditType   CreditType `db:"credit_type" json:"credit_type"`
	TotalCredits int        `db:"total_credits" json:"total_credits"`
	UsedCredits  int        `db:"used_credits" json:"used_credits"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Available returns the credits still usable from this pool. Inactive pools
// contribute nothing.
func (p *Pool) Available() int {
	if !p.IsActive {
		return 0
	}
	return p.TotalCredits - p.UsedCredits
}
