package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/middleware"
)

type Handler struct {
	adapter *Adapter
	log     *slog.Logger
}

func NewHandler(adapter *Adapter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{adapter: adapter, log: log}
}

// HandleWebhook handles POST /api/v1/webhooks/payment. Signature
// verification happens upstream; by the time a request reaches this handler
// it is trusted. Replays answer 200 so the gateway stops retrying.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var evt PurchaseEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if evt.EventID == "" {
		http.Error(w, `{"error":"event_id is required"}`, http.StatusBadRequest)
		return
	}

	err := h.adapter.HandlePurchaseCompleted(r.Context(), evt)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
	case errors.Is(err, ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "duplicate": true})
	case errors.Is(err, ErrInvalidAmount):
		http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
	default:
		h.log.Error("process payment webhook", "event_id", evt.EventID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

type payoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RequestPayout handles POST /api/v1/payouts.
func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req payoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	approved, err := h.adapter.RequestPayout(r.Context(), user.ID, req.Amount)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
			return
		}
		h.log.Error("payout request", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"approved": approved})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
