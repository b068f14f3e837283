package escrow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

const escrowColumns = `id, job_id, client_id, freelancer_id, amount, platform_fee, is_first_collaboration, status, created_at, updated_at`

// Repository implements Store against Postgres. Status transitions are a
// single conditional UPDATE: concurrent transition attempts on the same row
// serialize on the row lock and only the first to match the source state
// succeeds.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) PairExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM escrow_transactions
			WHERE (client_id = $1 AND freelancer_id = $2)
			   OR (client_id = $2 AND freelancer_id = $1)
		)
	`, a, b).Scan(&exists)
	return exists, err
}

func (r *Repository) CreateHold(ctx context.Context, e *models.EscrowTransaction) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO escrow_transactions (id, job_id, client_id, freelancer_id, amount, platform_fee, is_first_collaboration, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, e.ID, e.JobID, e.ClientID, e.FreelancerID, e.Amount, e.PlatformFee, e.IsFirstCollaboration, e.Status).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrow_transactions WHERE id = $1`, id)
	return scanEscrow(row)
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.EscrowTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrow_transactions
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EscrowTransaction
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *Repository) MarkReleased(ctx context.Context, id uuid.UUID, enqueue EnqueueFunc) (*models.EscrowTransaction, error) {
	return r.transitionTx(ctx, id, models.EscrowStatusReleased, []string{models.EscrowStatusHeld}, enqueue, nil)
}

func (r *Repository) MarkDisputed(ctx context.Context, id uuid.UUID, ticket *models.SupportTicket) (*models.EscrowTransaction, error) {
	return r.transitionTx(ctx, id, models.EscrowStatusDisputed, []string{models.EscrowStatusHeld}, nil, ticket)
}

func (r *Repository) MarkRefunded(ctx context.Context, id uuid.UUID, enqueue EnqueueFunc) (*models.EscrowTransaction, error) {
	return r.transitionTx(ctx, id, models.EscrowStatusRefunded,
		[]string{models.EscrowStatusHeld, models.EscrowStatusDisputed}, enqueue, nil)
}

// transitionTx runs the CAS status update plus any side rows (payout job,
// support ticket) in one transaction.
func (r *Repository) transitionTx(ctx context.Context, id uuid.UUID, to string, from []string, enqueue EnqueueFunc, ticket *models.SupportTicket) (*models.EscrowTransaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE escrow_transactions SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+escrowColumns, id, to, from)
	e, err := scanEscrow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row missing entirely -> not found; otherwise the status did not
		// match the allowed source states.
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM escrow_transactions WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
			return nil, checkErr
		}
		if !exists {
			return nil, pgx.ErrNoRows
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	if ticket != nil {
		err := tx.QueryRow(ctx, `
			INSERT INTO support_tickets (id, user_id, title, description, status, last_activity_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, ticket.ID, ticket.UserID, ticket.Title, ticket.Description, ticket.Status, ticket.LastActivityAt).
			Scan(&ticket.CreatedAt)
		if err != nil {
			return nil, err
		}
	}
	if enqueue != nil {
		if err := enqueue(ctx, tx, e); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func scanEscrow(row pgx.Row) (*models.EscrowTransaction, error) {
	var e models.EscrowTransaction
	err := row.Scan(&e.ID, &e.JobID, &e.ClientID, &e.FreelancerID, &e.Amount, &e.PlatformFee,
		&e.IsFirstCollaboration, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
