package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/middleware"
	"github.com/UjraaTech/Ujraa-API/internal/models"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type depositRequest struct {
	JobID  string          `json:"job_id"`
	Amount decimal.Decimal `json:"amount"`
}

// Deposit handles POST /api/v1/escrow/deposit: hold client funds against a
// job with an accepted proposal.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		http.Error(w, `{"error":"invalid job_id"}`, http.StatusBadRequest)
		return
	}

	e, err := h.svc.Hold(r.Context(), user.ID, jobID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
		case errors.Is(err, ErrNotJobClient):
			http.Error(w, `{"error":"only the job's client can fund escrow"}`, http.StatusForbidden)
		case errors.Is(err, ErrNoAcceptedProposal):
			http.Error(w, `{"error":"job has no accepted proposal"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, pgx.ErrNoRows):
			http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		default:
			h.log.Error("escrow hold", "job_id", jobID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Release handles POST /api/v1/escrow/{id}/release.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(e *models.EscrowTransaction, userID uuid.UUID) bool {
		return e.ClientID == userID
	}, h.svc.Release)
}

// Refund handles POST /api/v1/escrow/{id}/refund.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(e *models.EscrowTransaction, userID uuid.UUID) bool {
		return e.ClientID == userID
	}, h.svc.Refund)
}

// Dispute handles POST /api/v1/escrow/{id}/dispute. Either party can raise
// a dispute; the linked support ticket is returned alongside the updated
// transaction.
func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	txID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid transaction id"}`, http.StatusBadRequest)
		return
	}
	current, err := h.svc.Get(r.Context(), txID)
	if err != nil {
		http.Error(w, `{"error":"transaction not found"}`, http.StatusNotFound)
		return
	}
	if current.ClientID != user.ID && current.FreelancerID != user.ID {
		http.Error(w, `{"error":"not a party to this transaction"}`, http.StatusForbidden)
		return
	}

	e, ticket, err := h.svc.Dispute(r.Context(), txID, user.ID)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			http.Error(w, `{"error":"transaction cannot be disputed from its current status"}`, http.StatusUnprocessableEntity)
			return
		}
		h.log.Error("escrow dispute", "tx_id", txID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction":    e,
		"support_ticket": ticket,
	})
}

// Transactions handles GET /api/v1/escrow/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.log.Error("list escrow transactions", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	authorized func(*models.EscrowTransaction, uuid.UUID) bool,
	apply func(ctx context.Context, txID uuid.UUID) (*models.EscrowTransaction, error),
) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	txID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid transaction id"}`, http.StatusBadRequest)
		return
	}
	current, err := h.svc.Get(r.Context(), txID)
	if err != nil {
		http.Error(w, `{"error":"transaction not found"}`, http.StatusNotFound)
		return
	}
	if !authorized(current, user.ID) {
		http.Error(w, `{"error":"not authorized for this transaction"}`, http.StatusForbidden)
		return
	}

	e, err := apply(r.Context(), txID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, `{"error":"transition not allowed from current status"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, pgx.ErrNoRows):
			http.Error(w, `{"error":"transaction not found"}`, http.StatusNotFound)
		default:
			h.log.Error("escrow transition", "tx_id", txID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
