package credits

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/UjraaTech/Ujraa-API/internal/middleware"
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

type balanceResponse struct {
	Balance     int        `json:"balance"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// Balance handles GET /api/v1/credits/balance.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	balance, updatedAt, err := h.svc.Balance(r.Context(), user.ID)
	if err != nil {
		h.log.Error("get balance", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	resp := balanceResponse{Balance: balance}
	if !updatedAt.IsZero() {
		resp.LastUpdated = &updatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Transactions handles GET /api/v1/credits/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.svc.ListEntries(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.log.Error("list ledger entries", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
