package transfer

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
)

// An insufficient-credits failure means two different things depending on
// the operation: the sender genuinely lacking credits at creation time, or
// a broken reservation surfacing during resolution.
func TestInsufficientCreditsMappedPerOperation(t *testing.T) {
	h := NewHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/accept-credit-transfer", nil)

	rec := httptest.NewRecorder()
	h.writeError(rec, req, credit.ErrInsufficientCredits)
	if rec.Code != http.StatusConflict {
		t.Fatalf("creation path: expected 409, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.writeResolveError(rec, req, credit.ErrInsufficientCredits)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("redeem path: expected 500, got %d", rec.Code)
	}

	// Everything else passes through to the shared mapping.
	rec = httptest.NewRecorder()
	h.writeResolveError(rec, req, ErrSelfRedemption)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for self-redemption, got %d", rec.Code)
	}
}
