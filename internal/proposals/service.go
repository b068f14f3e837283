package proposals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

var (
	// ErrJobNotOpen is returned when the target job is not accepting
	// proposals (draft, in progress, completed or cancelled).
	ErrJobNotOpen = errors.New("job is not open for proposals")

	// ErrProposalLimit is returned when the job already has the maximum
	// number of proposals.
	ErrProposalLimit = errors.New("job has reached its proposal limit")

	// ErrInvalidTransition is returned when a proposal status change is not
	// legal from its current state.
	ErrInvalidTransition = errors.New("invalid proposal status transition")

	// ErrInvalidAmount is returned for a non-positive bid amount.
	ErrInvalidAmount = errors.New("proposal amount must be positive")

	// ErrOwnJob is returned when a freelancer bids on their own job.
	ErrOwnJob = errors.New("cannot submit a proposal on your own job")

	// ErrNotJobOwner is returned when someone other than the job's client
	// tries to accept or reject a proposal.
	ErrNotJobOwner = errors.New("only the job owner can decide on proposals")

	// ErrNotProposalOwner is returned when someone other than the proposal's
	// freelancer tries to withdraw it.
	ErrNotProposalOwner = errors.New("only the proposal owner can withdraw it")
)

// Store is the persistence contract for proposals.
type Store interface {
	CreateWithDebit(ctx context.Context, p *models.Proposal, debit DebitFunc) error
	Accept(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*models.Proposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Proposal, error)
}

// JobLookup resolves jobs; satisfied by jobs.Repository.
type JobLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// CreditCharger prices and charges proposal submissions; satisfied by
// credits.Service.
type CreditCharger interface {
	Cost(budget decimal.Decimal) int
	DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, reason string, metadata map[string]any) error
}

type Service struct {
	store   Store
	jobs    JobLookup
	credits CreditCharger
}

func NewService(store Store, jobs JobLookup, credits CreditCharger) *Service {
	return &Service{store: store, jobs: jobs, credits: credits}
}

// Submit creates a pending proposal on an open job and charges the
// freelancer the tiered credit cost in the same transaction. The cost is
// computed from the job budget at submission time and recorded on the
// proposal; later budget edits do not change what was charged.
func (s *Service) Submit(ctx context.Context, freelancerID, jobID uuid.UUID, amount decimal.Decimal, deliveryDays int, coverLetter string) (*models.Proposal, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID == freelancerID {
		return nil, ErrOwnJob
	}
	if job.Status != models.JobStatusOpen {
		return nil, ErrJobNotOpen
	}

	cost := s.credits.Cost(job.Budget)
	p := &models.Proposal{
		ID:           uuid.New(),
		JobID:        jobID,
		FreelancerID: freelancerID,
		Amount:       amount,
		DeliveryDays: deliveryDays,
		CoverLetter:  coverLetter,
		Status:       models.ProposalStatusPending,
		CreditsUsed:  cost,
	}
	err = s.store.CreateWithDebit(ctx, p, func(ctx context.Context, tx pgx.Tx) error {
		return s.credits.DebitTx(ctx, tx, freelancerID, cost, "Proposal submission", map[string]any{
			"job_id":      jobID.String(),
			"proposal_id": p.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Accept marks the proposal accepted and moves its job into progress. Only
// the job's client may accept, and only one proposal per job ever can be.
func (s *Service) Accept(ctx context.Context, clientID, proposalID uuid.UUID) (*models.Proposal, error) {
	if err := s.authorizeClient(ctx, clientID, proposalID); err != nil {
		return nil, err
	}
	return s.store.Accept(ctx, proposalID)
}

// Reject marks a pending proposal rejected. The credit cost is not refunded.
func (s *Service) Reject(ctx context.Context, clientID, proposalID uuid.UUID) (*models.Proposal, error) {
	if err := s.authorizeClient(ctx, clientID, proposalID); err != nil {
		return nil, err
	}
	return s.store.UpdateStatus(ctx, proposalID, models.ProposalStatusRejected)
}

// Withdraw lets the freelancer retract a pending proposal. The credit cost
// is not refunded.
func (s *Service) Withdraw(ctx context.Context, freelancerID, proposalID uuid.UUID) (*models.Proposal, error) {
	p, err := s.store.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.FreelancerID != freelancerID {
		return nil, ErrNotProposalOwner
	}
	return s.store.UpdateStatus(ctx, proposalID, models.ProposalStatusWithdrawn)
}

// ListByJob returns a job's proposals. Only the job owner sees them.
func (s *Service) ListByJob(ctx context.Context, userID, jobID uuid.UUID) ([]*models.Proposal, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != userID {
		return nil, ErrNotJobOwner
	}
	return s.store.ListByJob(ctx, jobID)
}

func (s *Service) authorizeClient(ctx context.Context, clientID, proposalID uuid.UUID) error {
	p, err := s.store.GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	job, err := s.jobs.GetByID(ctx, p.JobID)
	if err != nil {
		return err
	}
	if job.ClientID != clientID {
		return ErrNotJobOwner
	}
	return nil
}
