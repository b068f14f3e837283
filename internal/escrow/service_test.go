package escrow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/models"
	"github.com/UjraaTech/Ujraa-API/internal/payments"
)

// ---------------------------------------------------------------------------
// In-memory Store mock. Transitions run under one lock so the mock gives the
// same only-one-winner guarantee as the repository's conditional UPDATE.
// ---------------------------------------------------------------------------

type mockEscrowStore struct {
	mu      sync.Mutex
	txs     map[uuid.UUID]*models.EscrowTransaction
	tickets []*models.SupportTicket
}

func newMockEscrowStore() *mockEscrowStore {
	return &mockEscrowStore{txs: make(map[uuid.UUID]*models.EscrowTransaction)}
}

func (m *mockEscrowStore) PairExists(_ context.Context, a, b uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.txs {
		if (e.ClientID == a && e.FreelancerID == b) || (e.ClientID == b && e.FreelancerID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEscrowStore) CreateHold(_ context.Context, e *models.EscrowTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.txs[e.ID] = &cp
	return nil
}

func (m *mockEscrowStore) GetByID(_ context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.txs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockEscrowStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.EscrowTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.EscrowTransaction
	for _, e := range m.txs {
		if e.ClientID == userID || e.FreelancerID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockEscrowStore) MarkReleased(ctx context.Context, id uuid.UUID, enqueue EnqueueFunc) (*models.EscrowTransaction, error) {
	return m.transition(ctx, id, models.EscrowStatusReleased, []string{models.EscrowStatusHeld}, enqueue, nil)
}

func (m *mockEscrowStore) MarkDisputed(ctx context.Context, id uuid.UUID, ticket *models.SupportTicket) (*models.EscrowTransaction, error) {
	return m.transition(ctx, id, models.EscrowStatusDisputed, []string{models.EscrowStatusHeld}, nil, ticket)
}

func (m *mockEscrowStore) MarkRefunded(ctx context.Context, id uuid.UUID, enqueue EnqueueFunc) (*models.EscrowTransaction, error) {
	return m.transition(ctx, id, models.EscrowStatusRefunded,
		[]string{models.EscrowStatusHeld, models.EscrowStatusDisputed}, enqueue, nil)
}

func (m *mockEscrowStore) transition(ctx context.Context, id uuid.UUID, to string, from []string, enqueue EnqueueFunc, ticket *models.SupportTicket) (*models.EscrowTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.txs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	allowed := false
	for _, f := range from {
		if e.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}
	e.Status = to
	if ticket != nil {
		cp := *ticket
		m.tickets = append(m.tickets, &cp)
	}
	cp := *e
	if enqueue != nil {
		if err := enqueue(ctx, nil, &cp); err != nil {
			return nil, err
		}
	}
	return &cp, nil
}

func (m *mockEscrowStore) ticketCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

// --- JobLookup mock ---

type mockJobs struct {
	jobs     map[uuid.UUID]*models.Job
	accepted map[uuid.UUID]uuid.UUID
}

func newMockJobs() *mockJobs {
	return &mockJobs{jobs: make(map[uuid.UUID]*models.Job), accepted: make(map[uuid.UUID]uuid.UUID)}
}

func (m *mockJobs) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return j, nil
}

func (m *mockJobs) AcceptedFreelancer(_ context.Context, jobID uuid.UUID) (uuid.UUID, error) {
	f, ok := m.accepted[jobID]
	if !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	return f, nil
}

// --- payout recorder ---

type payoutRecorder struct {
	mu      sync.Mutex
	payouts []payments.PayoutJobArgs
}

func (p *payoutRecorder) insert(_ context.Context, _ pgx.Tx, args payments.PayoutJobArgs) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payouts = append(p.payouts, args)
	return nil
}

func (p *payoutRecorder) all() []payments.PayoutJobArgs {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]payments.PayoutJobArgs, len(p.payouts))
	copy(out, p.payouts)
	return out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type fixture struct {
	store    *mockEscrowStore
	jobsRepo *mockJobs
	payouts  *payoutRecorder
	svc      *Service

	client     uuid.UUID
	freelancer uuid.UUID
	jobID      uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:      newMockEscrowStore(),
		jobsRepo:   newMockJobs(),
		payouts:    &payoutRecorder{},
		client:     uuid.New(),
		freelancer: uuid.New(),
		jobID:      uuid.New(),
	}
	f.jobsRepo.jobs[f.jobID] = &models.Job{
		ID:       f.jobID,
		ClientID: f.client,
		Status:   models.JobStatusInProgress,
	}
	f.jobsRepo.accepted[f.jobID] = f.freelancer
	f.svc = NewService(f.store, f.jobsRepo, f.payouts.insert)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---------------------------------------------------------------------------
// Fee computation
// ---------------------------------------------------------------------------

func TestComputeFee_FirstThenRepeat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// No prior transaction between the pair: 5%.
	fee, err := f.svc.ComputeFee(ctx, f.client, f.freelancer, dec("1000"))
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	if !fee.Equal(dec("50")) {
		t.Errorf("first-collaboration fee: got %s, want 50", fee)
	}

	if _, err := f.svc.Hold(ctx, f.client, f.jobID, dec("1000")); err != nil {
		t.Fatalf("Hold: %v", err)
	}

	// Any prior transaction, regardless of outcome: 10%.
	fee, err = f.svc.ComputeFee(ctx, f.client, f.freelancer, dec("1000"))
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	if !fee.Equal(dec("100")) {
		t.Errorf("repeat fee: got %s, want 100", fee)
	}

	// Reversed direction counts as the same pair.
	fee, err = f.svc.ComputeFee(ctx, f.freelancer, f.client, dec("1000"))
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	if !fee.Equal(dec("100")) {
		t.Errorf("reversed-pair fee: got %s, want 100", fee)
	}
}

func TestComputeFee_Rounding(t *testing.T) {
	f := newFixture()
	// 5% of 333.33 = 16.6665 -> 16.67
	fee, err := f.svc.ComputeFee(context.Background(), f.client, f.freelancer, dec("333.33"))
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	if !fee.Equal(dec("16.67")) {
		t.Errorf("rounded fee: got %s, want 16.67", fee)
	}
}

// ---------------------------------------------------------------------------
// Hold
// ---------------------------------------------------------------------------

func TestHold(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if e.Status != models.EscrowStatusHeld {
		t.Errorf("status: got %q, want held", e.Status)
	}
	if e.ClientID != f.client || e.FreelancerID != f.freelancer {
		t.Error("hold should bind the job's client and accepted freelancer")
	}
	if !e.PlatformFee.Equal(dec("25")) {
		t.Errorf("fee: got %s, want 25", e.PlatformFee)
	}
	if !e.IsFirstCollaboration {
		t.Error("first hold between the pair should be flagged as first collaboration")
	}
	if !e.NetAmount().Equal(dec("475")) {
		t.Errorf("net amount: got %s, want 475", e.NetAmount())
	}

	// Second hold between the same pair.
	second, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("second Hold: %v", err)
	}
	if second.IsFirstCollaboration {
		t.Error("second hold should not be a first collaboration")
	}
	if !second.PlatformFee.Equal(dec("50")) {
		t.Errorf("repeat fee: got %s, want 50", second.PlatformFee)
	}
}

func TestHold_NotJobClient(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Hold(context.Background(), uuid.New(), f.jobID, dec("500")); !errors.Is(err, ErrNotJobClient) {
		t.Errorf("expected ErrNotJobClient, got: %v", err)
	}
}

func TestHold_NoAcceptedProposal(t *testing.T) {
	f := newFixture()
	delete(f.jobsRepo.accepted, f.jobID)

	if _, err := f.svc.Hold(context.Background(), f.client, f.jobID, dec("500")); !errors.Is(err, ErrNoAcceptedProposal) {
		t.Errorf("expected ErrNoAcceptedProposal, got: %v", err)
	}
}

func TestHold_InvalidAmount(t *testing.T) {
	f := newFixture()
	for _, amount := range []string{"0", "-10"} {
		if _, err := f.svc.Hold(context.Background(), f.client, f.jobID, dec(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Hold(%s): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Release
// ---------------------------------------------------------------------------

func TestRelease(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}

	released, err := f.svc.Release(ctx, e.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released.Status != models.EscrowStatusReleased {
		t.Errorf("status: got %q, want released", released.Status)
	}

	payouts := f.payouts.all()
	if len(payouts) != 1 {
		t.Fatalf("payouts: got %d, want 1", len(payouts))
	}
	p := payouts[0]
	if p.UserID != f.freelancer {
		t.Error("release payout should go to the freelancer")
	}
	if !p.Amount.Equal(dec("475")) {
		t.Errorf("payout amount: got %s, want 475 (amount minus fee)", p.Amount)
	}
	if p.Direction != payments.PayoutDirectionRelease {
		t.Errorf("direction: got %q, want release", p.Direction)
	}

	// Releasing again is rejected and does not enqueue a second payout.
	if _, err := f.svc.Release(ctx, e.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second release: expected ErrInvalidTransition, got %v", err)
	}
	if got := len(f.payouts.all()); got != 1 {
		t.Errorf("payouts after double release: got %d, want 1", got)
	}
}

func TestRelease_NotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Release(context.Background(), uuid.New()); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected pgx.ErrNoRows, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Dispute
// ---------------------------------------------------------------------------

func TestDispute(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}

	disputed, ticket, err := f.svc.Dispute(ctx, e.ID, f.freelancer)
	if err != nil {
		t.Fatalf("Dispute: %v", err)
	}
	if disputed.Status != models.EscrowStatusDisputed {
		t.Errorf("status: got %q, want disputed", disputed.Status)
	}
	if ticket.UserID != f.freelancer {
		t.Error("ticket should belong to the disputing party")
	}
	if ticket.Status != models.TicketStatusOpen {
		t.Errorf("ticket status: got %q, want open", ticket.Status)
	}
	if want := e.ID.String(); !strings.Contains(ticket.Description, want) {
		t.Errorf("ticket description should reference transaction %s, got %q", want, ticket.Description)
	}
	if f.store.ticketCount() != 1 {
		t.Fatalf("tickets: got %d, want 1", f.store.ticketCount())
	}
}

// Two parties disputing the same held transaction at once: one wins, one
// ticket exists.
func TestDispute_ConcurrentSingleTicket(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, party := range []uuid.UUID{f.client, f.freelancer} {
		wg.Add(1)
		go func(raisedBy uuid.UUID) {
			defer wg.Done()
			_, _, err := f.svc.Dispute(ctx, e.ID, raisedBy)
			results <- err
		}(party)
	}
	wg.Wait()
	close(results)

	var ok, declined int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInvalidTransition):
			declined++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || declined != 1 {
		t.Errorf("got %d successes and %d declines, want 1 and 1", ok, declined)
	}
	if f.store.ticketCount() != 1 {
		t.Errorf("tickets: got %d, want 1", f.store.ticketCount())
	}
}

// ---------------------------------------------------------------------------
// Refund
// ---------------------------------------------------------------------------

func TestRefund_FromHeld(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}
	refunded, err := f.svc.Refund(ctx, e.ID)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if refunded.Status != models.EscrowStatusRefunded {
		t.Errorf("status: got %q, want refunded", refunded.Status)
	}

	payouts := f.payouts.all()
	if len(payouts) != 1 {
		t.Fatalf("payouts: got %d, want 1", len(payouts))
	}
	p := payouts[0]
	if p.UserID != f.client {
		t.Error("refund payout should go back to the client")
	}
	if !p.Amount.Equal(dec("500")) {
		t.Errorf("refund amount: got %s, want the full 500", p.Amount)
	}
	if p.Direction != payments.PayoutDirectionRefund {
		t.Errorf("direction: got %q, want refund", p.Direction)
	}
}

func TestRefund_FromDisputed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if _, _, err := f.svc.Dispute(ctx, e.ID, f.client); err != nil {
		t.Fatalf("Dispute: %v", err)
	}
	if _, err := f.svc.Refund(ctx, e.ID); err != nil {
		t.Fatalf("Refund after dispute: %v", err)
	}
}

func TestRefund_NotFromReleased(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Hold(ctx, f.client, f.jobID, dec("500"))
	if err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if _, err := f.svc.Release(ctx, e.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := f.svc.Refund(ctx, e.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("refund after release: expected ErrInvalidTransition, got %v", err)
	}
}
