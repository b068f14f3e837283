package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

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

type createJobRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
}

// Create handles POST /api/v1/jobs. Only clients post jobs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if user.Role != models.UserRoleClient {
		http.Error(w, `{"error":"only clients can post jobs"}`, http.StatusForbidden)
		return
	}
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}

	job, err := h.svc.Create(r.Context(), user.ID, req.Title, req.Description, req.Budget, req.Deadline)
	if err != nil {
		if errors.Is(err, ErrInvalidBudget) {
			http.Error(w, `{"error":"budget must be positive"}`, http.StatusBadRequest)
			return
		}
		h.log.Error("create job", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// List handles GET /api/v1/jobs: a client's own jobs, or all open jobs for
// everyone else.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var (
		list []*models.Job
		err  error
	)
	if user.Role == models.UserRoleClient {
		list, err = h.svc.ListByClient(r.Context(), user.ID)
	} else {
		list, err = h.svc.ListOpen(r.Context())
	}
	if err != nil {
		h.log.Error("list jobs", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/v1/jobs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return
	}
	job, err := h.svc.Get(r.Context(), jobID)
	if err != nil {
		http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Publish handles POST /api/v1/jobs/{id}/publish.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(w, r, h.svc.Publish)
}

// Complete handles POST /api/v1/jobs/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(w, r, h.svc.Complete)
}

// Cancel handles POST /api/v1/jobs/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(w, r, h.svc.Cancel)
}

func (h *Handler) ownerTransition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, jobID uuid.UUID) (*models.Job, error)) {
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
	current, err := h.svc.Get(r.Context(), jobID)
	if err != nil {
		http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		return
	}
	if current.ClientID != user.ID {
		http.Error(w, `{"error":"not the job owner"}`, http.StatusForbidden)
		return
	}

	job, err := apply(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, `{"error":"transition not allowed from current status"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, pgx.ErrNoRows):
			http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		default:
			h.log.Error("job transition", "job_id", jobID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
