package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// Repository persists processed-event markers.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ EventStore = (*Repository)(nil)

// MarkProcessed inserts the event marker. ON CONFLICT DO NOTHING makes the
// insert the idempotency check: zero rows affected means a replay.
func (r *Repository) MarkProcessed(ctx context.Context, tx pgx.Tx, evt *models.PaymentEvent) (bool, error) {
	ct, err := tx.Exec(ctx, `
		INSERT INTO payment_events (event_id, user_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`, evt.EventID, evt.UserID, evt.Amount)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
