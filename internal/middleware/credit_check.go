package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// JobLookup resolves the job targeted by the request path.
type JobLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// CreditSource prices a proposal and reads the caller's balance; satisfied
// by credits.Service.
type CreditSource interface {
	Cost(budget decimal.Decimal) int
	Balance(ctx context.Context, userID uuid.UUID) (int, time.Time, error)
}

// CreditCheck declines proposal submissions early when the freelancer
// cannot afford the tiered cost for the job in the path. It is advisory
// only: the authoritative check is the conditional debit inside the
// submission transaction, so a stale read here never overspends.
func CreditCheck(jobs JobLookup, credits CreditSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromCtx(r.Context())
			if user == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			jobID, err := uuid.Parse(r.PathValue("id"))
			if err != nil {
				http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
				return
			}

			job, err := jobs.GetByID(r.Context(), jobID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
					return
				}
				http.Error(w, `{"error":"failed to load job"}`, http.StatusInternalServerError)
				return
			}

			required := credits.Cost(job.Budget)
			balance, _, err := credits.Balance(r.Context(), user.ID)
			if err != nil {
				http.Error(w, `{"error":"failed to check balance"}`, http.StatusInternalServerError)
				return
			}
			if balance < required {
				http.Error(w, fmt.Sprintf(`{"error":"insufficient credits","required":%d,"available":%d}`, required, balance), http.StatusPaymentRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
