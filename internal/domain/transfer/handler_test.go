package transfer_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
	"github.com/tunewish/tunewish-api/internal/domain/transfer"
	"github.com/tunewish/tunewish-api/internal/domain/user"
	"github.com/tunewish/tunewish-api/internal/middleware"
	"github.com/tunewish/tunewish-api/internal/pkg/jwt"
)

type transferAPIResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Action string `json:"action"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(svc *transfer.Service, jwtSvc *jwt.Service) chi.Router {
	h := transfer.NewHandler(svc)
	auth := middleware.Auth(jwtSvc)
	noLimit := middleware.RateLimit(nil, "redeem", 0, 0)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.With(noLimit).Post("/accept-credit-transfer", h.Resolve)
	})
	r.Mount("/api/v1/transfers", h.Routes(auth, noLimit))
	return r
}

// Request validation happens before any storage access, so these cases run
// without a database.
func TestResolveRequestValidation(t *testing.T) {
	jwtSvc := jwt.NewService("transfer-handler-secret", time.Hour)
	svc := transfer.NewService(transfer.NewRepository(nil, nil), nil, nil, transferTTL)
	r := newTestRouter(svc, jwtSvc)

	token, err := jwtSvc.GenerateAccessToken(uuid.New(), "caller@test.com")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		body     interface{}
		wantCode int
	}{
		{
			name:     "missing credential",
			token:    "",
			body:     map[string]string{"transfer_code": "TRF-AAAAAA", "action": "accept"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no lookup key",
			token:    token,
			body:     map[string]string{"action": "accept"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:  "both lookup keys",
			token: token,
			body: map[string]string{
				"transfer_id":   uuid.New().String(),
				"transfer_code": "TRF-AAAAAA",
				"action":        "accept",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown action",
			token:    token,
			body:     map[string]string{"transfer_code": "TRF-AAAAAA", "action": "keep"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing action",
			token:    token,
			body:     map[string]string{"transfer_code": "TRF-AAAAAA"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed transfer id",
			token:    token,
			body:     map[string]string{"transfer_id": "not-a-uuid", "action": "accept"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, r, tt.token, http.MethodPost, "/accept-credit-transfer", tt.body)
			if resp.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d (%s)", tt.wantCode, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestTransferEndpointsIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	creditRepo := credit.NewRepository(db)
	creditSvc := credit.NewService(creditRepo)
	repo := transfer.NewRepository(db, creditRepo)
	svc := transfer.NewService(repo, user.NewRepository(db), nil, transferTTL)

	jwtSvc := jwt.NewService("transfer-handler-secret", time.Hour)
	r := newTestRouter(svc, jwtSvc)

	env := &testEnv{db: db, credits: creditSvc, repo: repo, svc: svc}
	sender := env.createUser(t, "sender@test.com")
	recipient := env.createUser(t, "recipient@test.com")
	env.grantPool(t, sender, credit.CreditTypeVocal, 5)

	senderToken, err := jwtSvc.GenerateAccessToken(sender, "sender@test.com")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	recipientToken, err := jwtSvc.GenerateAccessToken(recipient, "recipient@test.com")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	var code string

	t.Run("POST /transfers creates a pending transfer", func(t *testing.T) {
		resp := performRequest(t, r, senderToken, http.MethodPost, "/api/v1/transfers", map[string]interface{}{
			"to_email":    "recipient@test.com",
			"credit_type": "vocal",
			"amount":      3,
			"message":     "for your birthday song",
		})
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
		}

		var body struct {
			Data struct {
				Transfer struct {
					TransferCode string `json:"transfer_code"`
					Status       string `json:"status"`
				} `json:"transfer"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response failed: %v", err)
		}
		if body.Data.Transfer.Status != "pending" {
			t.Fatalf("expected pending, got %s", body.Data.Transfer.Status)
		}
		code = body.Data.Transfer.TransferCode
	})

	t.Run("sender cannot redeem own transfer", func(t *testing.T) {
		resp := performRequest(t, r, senderToken, http.MethodPost, "/accept-credit-transfer", map[string]string{
			"transfer_code": code,
			"action":        "accept",
		})
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d (%s)", resp.Code, resp.Body.String())
		}
	})

	t.Run("recipient accepts by lower-cased code", func(t *testing.T) {
		resp := performRequest(t, r, recipientToken, http.MethodPost, "/accept-credit-transfer", map[string]string{
			"transfer_code": strings.ToLower(code),
			"action":        "accept",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
		}

		var body transferAPIResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response failed: %v", err)
		}
		if !body.Success || body.Data.Action != "accept" {
			t.Fatalf("expected success accept, got %+v", body)
		}

		if avail := env.available(t, recipient, credit.CreditTypeVocal); avail != 3 {
			t.Fatalf("expected recipient availability 3, got %d", avail)
		}
	})

	t.Run("second resolve attempt conflicts", func(t *testing.T) {
		resp := performRequest(t, r, recipientToken, http.MethodPost, "/accept-credit-transfer", map[string]string{
			"transfer_code": code,
			"action":        "reject",
		})
		if resp.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d (%s)", resp.Code, resp.Body.String())
		}
	})

	t.Run("unknown code is 404", func(t *testing.T) {
		resp := performRequest(t, r, recipientToken, http.MethodPost, "/accept-credit-transfer", map[string]string{
			"transfer_code": "TRF-Z9Z9Z9",
			"action":        "accept",
		})
		if resp.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d (%s)", resp.Code, resp.Body.String())
		}
	})

	t.Run("GET /transfers/sent lists the transfer", func(t *testing.T) {
		resp := performRequest(t, r, senderToken, http.MethodGet, "/api/v1/transfers/sent", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
		}

		var body struct {
			Data struct {
				Transfers []json.RawMessage `json:"transfers"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response failed: %v", err)
		}
		if len(body.Data.Transfers) != 1 {
			t.Fatalf("expected 1 sent transfer, got %d", len(body.Data.Transfers))
		}
	})
}

func performRequest(t *testing.T, r chi.Router, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body failed: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
