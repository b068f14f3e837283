package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

const jobColumns = `id, client_id, title, description, budget, status, proposal_count, deadline, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, j *models.Job) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO jobs (id, client_id, title, description, budget, status, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING proposal_count, created_at, updated_at
	`, j.ID, j.ClientID, j.Title, j.Description, j.Budget, j.Status, j.Deadline).
		Scan(&j.ProposalCount, &j.CreatedAt, &j.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (r *Repository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
}

func (r *Repository) ListOpen(ctx context.Context) ([]*models.Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = 'open' ORDER BY created_at DESC`)
}

// UpdateStatus is a CAS on status: it fails with ErrInvalidTransition when
// the job is not in one of the allowed source states.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, to string, from ...string) (*models.Job, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+jobColumns, id, to, from)
	j, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, ErrInvalidTransition
	}
	return j, err
}

// AcceptedFreelancer returns the freelancer of the job's accepted proposal,
// or pgx.ErrNoRows when none exists. At most one proposal per job can be
// accepted, enforced at acceptance time.
func (r *Repository) AcceptedFreelancer(ctx context.Context, jobID uuid.UUID) (uuid.UUID, error) {
	var freelancerID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT freelancer_id FROM proposals WHERE job_id = $1 AND status = 'accepted'
	`, jobID).Scan(&freelancerID)
	if err != nil {
		return uuid.Nil, err
	}
	return freelancerID, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.ClientID, &j.Title, &j.Description, &j.Budget, &j.Status,
		&j.ProposalCount, &j.Deadline, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
