package proposals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

const proposalColumns = `id, job_id, freelancer_id, amount, delivery_days, cover_letter, status, credits_used, created_at, updated_at`

// DebitFunc charges the proposal cost within the repository's transaction.
type DebitFunc func(ctx context.Context, tx pgx.Tx) error

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithDebit inserts the proposal, increments the job's proposal
// counter and charges the freelancer's credits in one transaction. The
// counter increment doubles as the cap check: the conditional UPDATE only
// matches an open job under the proposal limit, so two racing submissions
// at the cap cannot both get through.
func (r *Repository) CreateWithDebit(ctx context.Context, p *models.Proposal, debit DebitFunc) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE jobs SET proposal_count = proposal_count + 1, updated_at = now()
		WHERE id = $1 AND status = 'open' AND proposal_count < $2
	`, p.JobID, models.MaxProposalsPerJob)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.classifyRejection(ctx, tx, p.JobID)
	}

	if err := debit(ctx, tx); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO proposals (id, job_id, freelancer_id, amount, delivery_days, cover_letter, status, credits_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.JobID, p.FreelancerID, p.Amount, p.DeliveryDays, p.CoverLetter, p.Status, p.CreditsUsed).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// classifyRejection explains why the counter increment matched no row.
func (r *Repository) classifyRejection(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&status)
	if err != nil {
		return err
	}
	if status != models.JobStatusOpen {
		return ErrJobNotOpen
	}
	return ErrProposalLimit
}

// Accept moves the proposal pending -> accepted and the job open ->
// in_progress in one transaction. The NOT EXISTS guard makes a second
// acceptance on the same job impossible even under concurrency.
func (r *Repository) Accept(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE proposals SET status = 'accepted', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		  AND NOT EXISTS (
			SELECT 1 FROM proposals prior
			WHERE prior.job_id = proposals.job_id AND prior.status = 'accepted'
		  )
		RETURNING `+proposalColumns, id)
	p, err := scanProposal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'in_progress', updated_at = now()
		WHERE id = $1 AND status = 'open'
	`, p.JobID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrJobNotOpen
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStatus is a CAS from pending to the given terminal status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*models.Proposal, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE proposals SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+proposalColumns, id, to)
	p, err := scanProposal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	return p, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
	return scanProposal(row)
}

func (r *Repository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Proposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE job_id = $1 ORDER BY created_at DESC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(&p.ID, &p.JobID, &p.FreelancerID, &p.Amount, &p.DeliveryDays, &p.CoverLetter,
		&p.Status, &p.CreditsUsed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
