package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
)

// Creation-time guards fire before any storage access, so they are testable
// without a database.
func newGuardService() *Service {
	return &Service{repo: NewRepository(nil, nil), ttl: 168 * time.Hour, now: time.Now}
}

func TestCreateTransferSelfEmailRejected(t *testing.T) {
	svc := newGuardService()

	_, err := svc.CreateTransfer(context.Background(), uuid.New(), "me@example.com", CreateTransferRequest{
		ToEmail:    "Me@Example.COM",
		CreditType: "vocal",
		Amount:     3,
	})
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestCreateTransferInvalidCreditType(t *testing.T) {
	svc := newGuardService()

	_, err := svc.CreateTransfer(context.Background(), uuid.New(), "me@example.com", CreateTransferRequest{
		ToEmail:    "fan@example.com",
		CreditType: "orchestral",
		Amount:     3,
	})
	if !errors.Is(err, credit.ErrInvalidCreditType) {
		t.Fatalf("expected ErrInvalidCreditType, got %v", err)
	}
}

func TestCreateTransferInvalidAmount(t *testing.T) {
	svc := newGuardService()

	_, err := svc.CreateTransfer(context.Background(), uuid.New(), "me@example.com", CreateTransferRequest{
		ToEmail:    "fan@example.com",
		CreditType: "vocal",
		Amount:     0,
	})
	if !errors.Is(err, credit.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAlreadyResolvedErrorIsTarget(t *testing.T) {
	err := error(&AlreadyResolvedError{Status: StatusAccepted})
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatal("AlreadyResolvedError should match ErrAlreadyResolved")
	}

	var resolved *AlreadyResolvedError
	if !errors.As(err, &resolved) || resolved.Status != StatusAccepted {
		t.Fatal("errors.As should recover the status")
	}
}
