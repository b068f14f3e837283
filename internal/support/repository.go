package support

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

const ticketColumns = `id, user_id, title, description, status, last_activity_at, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, t *models.SupportTicket) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO support_tickets (id, user_id, title, description, status, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.UserID, t.Title, t.Description, t.Status, t.LastActivityAt).Scan(&t.CreatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SupportTicket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id)
	return scanTicket(row)
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.SupportTicket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM support_tickets
		WHERE user_id = $1 ORDER BY last_activity_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SupportTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTicket(row pgx.Row) (*models.SupportTicket, error) {
	var t models.SupportTicket
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.LastActivityAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
