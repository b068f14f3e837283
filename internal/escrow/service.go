package escrow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/models"
	"github.com/UjraaTech/Ujraa-API/internal/payments"
)

// ErrInvalidTransition is returned when a status change is not legal from
// the transaction's current state. It is a declined outcome, not a fault.
var ErrInvalidTransition = errors.New("invalid escrow status transition")

// ErrNoAcceptedProposal is returned when a hold is attempted on a job
// without exactly one accepted proposal.
var ErrNoAcceptedProposal = errors.New("job has no accepted proposal")

// ErrInvalidAmount is returned for non-positive hold amounts.
var ErrInvalidAmount = errors.New("invalid escrow amount")

// ErrNotJobClient is returned when someone other than the job's client
// tries to fund its escrow.
var ErrNotJobClient = errors.New("only the job's client can fund escrow")

// Platform fee rates. First collaboration between a client/freelancer pair
// pays the lower rate.
var (
	rateFirst  = decimal.New(5, -2)  // 0.05
	rateRepeat = decimal.New(10, -2) // 0.10
)

// EnqueueFunc inserts a payout job within the repository's transaction, so
// the status flip and the pending payout commit together. Delivery and
// retries belong to the payout worker, never to this service.
type EnqueueFunc func(ctx context.Context, tx pgx.Tx, e *models.EscrowTransaction) error

// Store is the persistence contract for escrow transactions. The Mark*
// methods are compare-and-swap on status: the state check and the state
// write are one atomic unit, and a transition from the wrong source state
// fails with ErrInvalidTransition.
type Store interface {
	PairExists(ctx context.Context, a, b uuid.UUID) (bool, error)
	CreateHold(ctx context.Context, e *models.EscrowTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.EscrowTransaction, error)
	MarkReleased(ctx context.Context, id uuid.UUID, enqueue EnqueueFunc) (*models.EscrowTransaction, error)
	MarkDisputed(ctx context.Context, id uuid.UUID, ticket *models.SupportTicket) (*models.EscrowTransaction, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, enqueue EnqueueFunc) (*models.EscrowTransaction, error)
}

// JobLookup resolves the job and its accepted freelancer. AcceptedFreelancer
// returns pgx.ErrNoRows when no accepted proposal exists.
type JobLookup interface {
	GetByID(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	AcceptedFreelancer(ctx context.Context, jobID uuid.UUID) (uuid.UUID, error)
}

// InsertPayoutTxFunc enqueues a payout within the given transaction.
// Provided by main as a closure over river.Client.InsertTx.
type InsertPayoutTxFunc func(ctx context.Context, tx pgx.Tx, args payments.PayoutJobArgs) error

// Service owns the escrow transaction state machine.
type Service struct {
	store        Store
	jobs         JobLookup
	insertPayout InsertPayoutTxFunc
}

func NewService(store Store, jobs JobLookup, insertPayout InsertPayoutTxFunc) *Service {
	return &Service{store: store, jobs: jobs, insertPayout: insertPayout}
}

// ComputeFee returns the platform fee for holding amount between the two
// parties: 5% when they have no prior escrow transaction in either
// direction, 10% otherwise, rounded half-up to 2 decimal places.
//
// The pair lookup reflects transactions committed before this call begins.
// Two simultaneous first-time holds for the same pair can both see the 5%
// rate; that window is accepted and not locked against.
func (s *Service) ComputeFee(ctx context.Context, clientID, freelancerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	exists, err := s.store.PairExists(ctx, clientID, freelancerID)
	if err != nil {
		return decimal.Zero, err
	}
	rate := rateFirst
	if exists {
		rate = rateRepeat
	}
	return amount.Mul(rate).Round(2), nil
}

// Hold opens a held escrow transaction for the job's engagement, funded by
// the job's client. The job must have exactly one accepted proposal; its
// freelancer is the counterparty. The fee is fixed here and never recomputed.
func (s *Service) Hold(ctx context.Context, clientID, jobID uuid.UUID, amount decimal.Decimal) (*models.EscrowTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, ErrNotJobClient
	}
	freelancerID, err := s.jobs.AcceptedFreelancer(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAcceptedProposal
		}
		return nil, err
	}
	fee, err := s.ComputeFee(ctx, job.ClientID, freelancerID, amount)
	if err != nil {
		return nil, err
	}
	e := &models.EscrowTransaction{
		ID:                   uuid.New(),
		JobID:                jobID,
		ClientID:             job.ClientID,
		FreelancerID:         freelancerID,
		Amount:               amount,
		PlatformFee:          fee,
		IsFirstCollaboration: fee.Div(amount).LessThan(rateRepeat),
		Status:               models.EscrowStatusHeld,
	}
	if err := s.store.CreateHold(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Release moves held -> released and enqueues the net-amount payout to the
// freelancer in the same transaction. The payout itself is delivered
// asynchronously; a failed delivery never rolls the release back.
func (s *Service) Release(ctx context.Context, txID uuid.UUID) (*models.EscrowTransaction, error) {
	return s.store.MarkReleased(ctx, txID, func(ctx context.Context, tx pgx.Tx, e *models.EscrowTransaction) error {
		return s.insertPayout(ctx, tx, payments.PayoutJobArgs{
			TransactionID: e.ID,
			UserID:        e.FreelancerID,
			Amount:        e.NetAmount(),
			Direction:     payments.PayoutDirectionRelease,
		})
	})
}

// Dispute moves held -> disputed and creates the linked support ticket in
// one atomic unit: no ticket without a persisted dispute and no dispute
// without its ticket. Resolution happens out of band.
func (s *Service) Dispute(ctx context.Context, txID, raisedBy uuid.UUID) (*models.EscrowTransaction, *models.SupportTicket, error) {
	ticket := DisputeTicket(txID, raisedBy)
	e, err := s.store.MarkDisputed(ctx, txID, ticket)
	if err != nil {
		return nil, nil, err
	}
	return e, ticket, nil
}

// Refund moves held|disputed -> refunded and enqueues the full escrowed
// amount back toward the client through the gateway.
func (s *Service) Refund(ctx context.Context, txID uuid.UUID) (*models.EscrowTransaction, error) {
	return s.store.MarkRefunded(ctx, txID, func(ctx context.Context, tx pgx.Tx, e *models.EscrowTransaction) error {
		return s.insertPayout(ctx, tx, payments.PayoutJobArgs{
			TransactionID: e.ID,
			UserID:        e.ClientID,
			Amount:        e.Amount,
			Direction:     payments.PayoutDirectionRefund,
		})
	})
}

// Get returns a single escrow transaction.
func (s *Service) Get(ctx context.Context, txID uuid.UUID) (*models.EscrowTransaction, error) {
	return s.store.GetByID(ctx, txID)
}

// ListByUser returns transactions where the user is client or freelancer.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.EscrowTransaction, error) {
	return s.store.ListByUser(ctx, userID)
}
