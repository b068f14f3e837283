package proposals

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/credits"
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

type submitProposalRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	DeliveryDays int             `json:"delivery_days"`
	CoverLetter  string          `json:"cover_letter"`
}

// Submit handles POST /api/v1/jobs/{id}/proposals. Only freelancers bid.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if user.Role != models.UserRoleFreelancer {
		http.Error(w, `{"error":"only freelancers can submit proposals"}`, http.StatusForbidden)
		return
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return
	}
	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	p, err := h.svc.Submit(r.Context(), user.ID, jobID, req.Amount, req.DeliveryDays, req.CoverLetter)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		case errors.Is(err, ErrInvalidAmount):
			http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
		case errors.Is(err, ErrOwnJob):
			http.Error(w, `{"error":"cannot submit a proposal on your own job"}`, http.StatusForbidden)
		case errors.Is(err, ErrJobNotOpen):
			http.Error(w, `{"error":"job is not open for proposals"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrProposalLimit):
			http.Error(w, `{"error":"job has reached its proposal limit"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, credits.ErrInsufficientCredits):
			http.Error(w, `{"error":"insufficient credits"}`, http.StatusPaymentRequired)
		default:
			h.log.Error("submit proposal", "job_id", jobID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListByJob handles GET /api/v1/jobs/{id}/proposals.
func (h *Handler) ListByJob(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return
	}
	list, err := h.svc.ListByJob(r.Context(), user.ID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		case errors.Is(err, ErrNotJobOwner):
			http.Error(w, `{"error":"not the job owner"}`, http.StatusForbidden)
		default:
			h.log.Error("list proposals", "job_id", jobID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Accept handles POST /api/v1/proposals/{id}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Accept)
}

// Reject handles POST /api/v1/proposals/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Reject)
}

// Withdraw handles POST /api/v1/proposals/{id}/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Withdraw)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, userID, proposalID uuid.UUID) (*models.Proposal, error)) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	proposalID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid proposal id"}`, http.StatusBadRequest)
		return
	}

	p, err := apply(r.Context(), user.ID, proposalID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			http.Error(w, `{"error":"proposal not found"}`, http.StatusNotFound)
		case errors.Is(err, ErrNotJobOwner), errors.Is(err, ErrNotProposalOwner):
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, `{"error":"transition not allowed from current status"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrJobNotOpen):
			http.Error(w, `{"error":"job is no longer open"}`, http.StatusUnprocessableEntity)
		default:
			h.log.Error("proposal decision", "proposal_id", proposalID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
