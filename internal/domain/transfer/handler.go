package transfer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tunewish/tunewish-api/internal/domain/credit"
	"github.com/tunewish/tunewish-api/internal/middleware"
	"github.com/tunewish/tunewish-api/internal/pkg/response"
	"github.com/tunewish/tunewish-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /transfers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	if req.Shareable == (req.ToEmail != "") {
		response.BadRequest(w, "provide either to_email or shareable, not both")
		return
	}

	t, err := h.svc.CreateTransfer(r.Context(), userID, middleware.GetEmail(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, map[string]interface{}{"transfer": TransferResponseFromEntity(t)})
}

// Resolve handles POST /accept-credit-transfer: the recipient accepts or
// rejects a pending transfer identified by id or code.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ResolveTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	if (req.TransferID == "") == (req.TransferCode == "") {
		response.BadRequest(w, "provide either transfer_id or transfer_code, not both")
		return
	}

	var lookup Lookup
	if req.TransferID != "" {
		id, err := uuid.Parse(req.TransferID)
		if err != nil {
			response.BadRequest(w, "invalid transfer_id")
			return
		}
		lookup = LookupByID(id)
	} else {
		lookup = LookupByCode(req.TransferCode)
	}

	action := Action(req.Action)
	if _, err := h.svc.ResolveTransfer(r.Context(), lookup, userID, middleware.GetEmail(r.Context()), action); err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	response.OK(w, map[string]interface{}{"action": action})
}

// Get handles GET /transfers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transfer id")
		return
	}

	t, err := h.svc.GetTransfer(r.Context(), id, userID, middleware.GetEmail(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, map[string]interface{}{"transfer": TransferResponseFromEntity(t)})
}

// ListSent handles GET /transfers/sent.
func (h *Handler) ListSent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	transfers, err := h.svc.ListSent(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, map[string]interface{}{"transfers": TransferResponsesFromEntities(transfers)})
}

// ListReceived handles GET /transfers/received.
func (h *Handler) ListReceived(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	transfers, err := h.svc.ListReceived(r.Context(), userID, middleware.GetEmail(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, map[string]interface{}{"transfers": TransferResponsesFromEntities(transfers)})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var resolved *AlreadyResolvedError

	switch {
	case errors.Is(err, ErrTransferNotFound):
		response.NotFound(w, "transfer not found")
	case errors.Is(err, ErrInvalidCode):
		response.NotFound(w, "invalid transfer code")
	case errors.Is(err, ErrSelfRedemption):
		response.Forbidden(w, "you cannot redeem your own transfer")
	case errors.Is(err, ErrNotRecipient):
		response.Forbidden(w, "this transfer is addressed to a different recipient")
	case errors.Is(err, ErrNotParticipant):
		response.Forbidden(w, "you are not a participant of this transfer")
	case errors.As(err, &resolved):
		response.Conflict(w, resolved.Error())
	case errors.Is(err, ErrTransferExpired):
		response.BadRequest(w, "transfer has expired")
	case errors.Is(err, ErrSelfTransfer):
		response.BadRequest(w, "you cannot send credits to yourself")
	case errors.Is(err, credit.ErrInvalidCreditType):
		response.BadRequest(w, "invalid credit type")
	case errors.Is(err, credit.ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, credit.ErrInsufficientCredits):
		// Creation path: the sender lacks credits to cover the reservation.
		response.Conflict(w, "not enough credits of this type to cover the transfer")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("transfer request failed")
		response.InternalError(w)
	}
}

// writeResolveError maps resolution failures. The redeem transaction only
// grants or releases with a floor, so running short there means the
// creation-time reservation was violated and is reported as an internal
// failure, not a caller error.
func (h *Handler) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, credit.ErrInsufficientCredits) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("redeem path ran short of reserved credits")
		response.InternalError(w)
		return
	}
	h.writeError(w, r, err)
}

func (h *Handler) Routes(authMiddleware, redeemLimiter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.With(redeemLimiter).Post("/redeem", h.Resolve)
	r.Get("/sent", h.ListSent)
	r.Get("/received", h.ListReceived)
	r.Get("/{id}", h.Get)
	return r
}
