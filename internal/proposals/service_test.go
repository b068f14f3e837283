package proposals

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/credits"
	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks. The store shares the job table with the lookup so
// CreateWithDebit can enforce the open-status and cap checks the way the
// conditional UPDATE does, and the debit callback participates in the same
// all-or-nothing unit.
// ---------------------------------------------------------------------------

type mockJobTable struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMockJobTable() *mockJobTable {
	return &mockJobTable{jobs: make(map[uuid.UUID]*models.Job)}
}

func (m *mockJobTable) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *j
	return &cp, nil
}

type mockProposalStore struct {
	mu        sync.Mutex
	jobTable  *mockJobTable
	proposals map[uuid.UUID]*models.Proposal
}

func newMockProposalStore(jobs *mockJobTable) *mockProposalStore {
	return &mockProposalStore{jobTable: jobs, proposals: make(map[uuid.UUID]*models.Proposal)}
}

func (m *mockProposalStore) CreateWithDebit(ctx context.Context, p *models.Proposal, debit DebitFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobTable.mu.Lock()
	defer m.jobTable.mu.Unlock()

	j, ok := m.jobTable.jobs[p.JobID]
	if !ok {
		return pgx.ErrNoRows
	}
	if j.Status != models.JobStatusOpen {
		return ErrJobNotOpen
	}
	if j.ProposalCount >= models.MaxProposalsPerJob {
		return ErrProposalLimit
	}
	if err := debit(ctx, nil); err != nil {
		return err
	}
	j.ProposalCount++
	cp := *p
	m.proposals[p.ID] = &cp
	return nil
}

func (m *mockProposalStore) Accept(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if p.Status != models.ProposalStatusPending {
		return nil, ErrInvalidTransition
	}
	for _, other := range m.proposals {
		if other.JobID == p.JobID && other.Status == models.ProposalStatusAccepted {
			return nil, ErrInvalidTransition
		}
	}
	m.jobTable.mu.Lock()
	defer m.jobTable.mu.Unlock()
	j, ok := m.jobTable.jobs[p.JobID]
	if !ok || j.Status != models.JobStatusOpen {
		return nil, ErrJobNotOpen
	}
	p.Status = models.ProposalStatusAccepted
	j.Status = models.JobStatusInProgress
	cp := *p
	return &cp, nil
}

func (m *mockProposalStore) UpdateStatus(_ context.Context, id uuid.UUID, to string) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if p.Status != models.ProposalStatusPending {
		return nil, ErrInvalidTransition
	}
	p.Status = to
	cp := *p
	return &cp, nil
}

func (m *mockProposalStore) GetByID(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockProposalStore) ListByJob(_ context.Context, jobID uuid.UUID) ([]*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Proposal
	for _, p := range m.proposals {
		if p.JobID == jobID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- CreditCharger mock: real tier pricing, simple balance map. ---

type mockCharger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int
	debits   []int
}

func newMockCharger() *mockCharger { return &mockCharger{balances: make(map[uuid.UUID]int)} }

func (m *mockCharger) Cost(budget decimal.Decimal) int {
	switch {
	case budget.LessThanOrEqual(decimal.NewFromInt(200)):
		return 2
	case budget.LessThanOrEqual(decimal.NewFromInt(1000)):
		return 4
	default:
		return 6
	}
}

func (m *mockCharger) DebitTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int, _ string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < amount {
		return credits.ErrInsufficientCredits
	}
	m.balances[userID] -= amount
	m.debits = append(m.debits, amount)
	return nil
}

func (m *mockCharger) balance(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type fixture struct {
	jobTable *mockJobTable
	store    *mockProposalStore
	charger  *mockCharger
	svc      *Service

	client     uuid.UUID
	freelancer uuid.UUID
	jobID      uuid.UUID
}

func newFixture(budget string) *fixture {
	f := &fixture{
		jobTable:   newMockJobTable(),
		charger:    newMockCharger(),
		client:     uuid.New(),
		freelancer: uuid.New(),
		jobID:      uuid.New(),
	}
	f.store = newMockProposalStore(f.jobTable)
	f.jobTable.jobs[f.jobID] = &models.Job{
		ID:       f.jobID,
		ClientID: f.client,
		Budget:   decimal.RequireFromString(budget),
		Status:   models.JobStatusOpen,
	}
	f.charger.balances[f.freelancer] = 20
	f.svc = NewService(f.store, f.jobTable, f.charger)
	return f
}

func (f *fixture) submit(t *testing.T) *models.Proposal {
	t.Helper()
	p, err := f.svc.Submit(context.Background(), f.freelancer, f.jobID, decimal.RequireFromString("300"), 7, "I can do this")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return p
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func TestSubmit_ChargesTieredCost(t *testing.T) {
	cases := []struct {
		budget string
		want   int
	}{
		{"150", 2},
		{"200", 2},
		{"750", 4},
		{"1000", 4},
		{"5000", 6},
	}
	for _, c := range cases {
		f := newFixture(c.budget)
		p := f.submit(t)
		if p.CreditsUsed != c.want {
			t.Errorf("budget %s: credits_used got %d, want %d", c.budget, p.CreditsUsed, c.want)
		}
		if got := f.charger.balance(f.freelancer); got != 20-c.want {
			t.Errorf("budget %s: balance got %d, want %d", c.budget, got, 20-c.want)
		}
	}
}

// The cost snapshot is fixed at submission; later budget changes don't touch it.
func TestSubmit_CostSnapshotIsImmutable(t *testing.T) {
	f := newFixture("150")
	p := f.submit(t)
	if p.CreditsUsed != 2 {
		t.Fatalf("credits_used: got %d, want 2", p.CreditsUsed)
	}

	f.jobTable.mu.Lock()
	f.jobTable.jobs[f.jobID].Budget = decimal.RequireFromString("5000")
	f.jobTable.mu.Unlock()

	stored, err := f.store.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CreditsUsed != 2 {
		t.Errorf("credits_used after budget change: got %d, want 2", stored.CreditsUsed)
	}
}

func TestSubmit_JobNotOpen(t *testing.T) {
	f := newFixture("300")
	f.jobTable.jobs[f.jobID].Status = models.JobStatusDraft

	_, err := f.svc.Submit(context.Background(), f.freelancer, f.jobID, decimal.RequireFromString("300"), 7, "")
	if !errors.Is(err, ErrJobNotOpen) {
		t.Errorf("expected ErrJobNotOpen, got: %v", err)
	}
	if got := f.charger.balance(f.freelancer); got != 20 {
		t.Errorf("declined submission must not charge: balance %d, want 20", got)
	}
}

func TestSubmit_ProposalLimit(t *testing.T) {
	f := newFixture("300")
	f.jobTable.jobs[f.jobID].ProposalCount = models.MaxProposalsPerJob

	_, err := f.svc.Submit(context.Background(), f.freelancer, f.jobID, decimal.RequireFromString("300"), 7, "")
	if !errors.Is(err, ErrProposalLimit) {
		t.Errorf("expected ErrProposalLimit, got: %v", err)
	}
	if got := f.charger.balance(f.freelancer); got != 20 {
		t.Errorf("declined submission must not charge: balance %d, want 20", got)
	}
}

func TestSubmit_InsufficientCredits(t *testing.T) {
	f := newFixture("5000") // costs 6
	f.charger.balances[f.freelancer] = 5

	_, err := f.svc.Submit(context.Background(), f.freelancer, f.jobID, decimal.RequireFromString("300"), 7, "")
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got: %v", err)
	}

	// Nothing persisted: no proposal, counter unchanged.
	list, _ := f.store.ListByJob(context.Background(), f.jobID)
	if len(list) != 0 {
		t.Errorf("proposals after declined submission: got %d, want 0", len(list))
	}
	if n := f.jobTable.jobs[f.jobID].ProposalCount; n != 0 {
		t.Errorf("proposal_count after declined submission: got %d, want 0", n)
	}
}

func TestSubmit_OwnJob(t *testing.T) {
	f := newFixture("300")
	f.charger.balances[f.client] = 20

	_, err := f.svc.Submit(context.Background(), f.client, f.jobID, decimal.RequireFromString("300"), 7, "")
	if !errors.Is(err, ErrOwnJob) {
		t.Errorf("expected ErrOwnJob, got: %v", err)
	}
}

func TestSubmit_InvalidAmount(t *testing.T) {
	f := newFixture("300")
	_, err := f.svc.Submit(context.Background(), f.freelancer, f.jobID, decimal.Zero, 7, "")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Accept / Reject / Withdraw
// ---------------------------------------------------------------------------

func TestAccept(t *testing.T) {
	f := newFixture("300")
	p := f.submit(t)

	accepted, err := f.svc.Accept(context.Background(), f.client, p.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != models.ProposalStatusAccepted {
		t.Errorf("status: got %q, want accepted", accepted.Status)
	}
	if got := f.jobTable.jobs[f.jobID].Status; got != models.JobStatusInProgress {
		t.Errorf("job status after accept: got %q, want in_progress", got)
	}
}

func TestAccept_OnlyOnePerJob(t *testing.T) {
	f := newFixture("300")
	first := f.submit(t)

	other := uuid.New()
	f.charger.balances[other] = 20
	second, err := f.svc.Submit(context.Background(), other, f.jobID, decimal.RequireFromString("280"), 5, "")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	if _, err := f.svc.Accept(context.Background(), f.client, first.ID); err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	if _, err := f.svc.Accept(context.Background(), f.client, second.ID); err == nil {
		t.Error("accepting a second proposal on the same job should fail")
	}
}

func TestAccept_NotJobOwner(t *testing.T) {
	f := newFixture("300")
	p := f.submit(t)

	if _, err := f.svc.Accept(context.Background(), uuid.New(), p.ID); !errors.Is(err, ErrNotJobOwner) {
		t.Errorf("expected ErrNotJobOwner, got: %v", err)
	}
}

// Rejecting does not refund the submission cost.
func TestReject_NoRefund(t *testing.T) {
	f := newFixture("300")
	p := f.submit(t)
	balanceAfterSubmit := f.charger.balance(f.freelancer)

	rejected, err := f.svc.Reject(context.Background(), f.client, p.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != models.ProposalStatusRejected {
		t.Errorf("status: got %q, want rejected", rejected.Status)
	}
	if got := f.charger.balance(f.freelancer); got != balanceAfterSubmit {
		t.Errorf("balance after reject: got %d, want %d (no refund)", got, balanceAfterSubmit)
	}
}

func TestWithdraw(t *testing.T) {
	f := newFixture("300")
	p := f.submit(t)

	if _, err := f.svc.Withdraw(context.Background(), uuid.New(), p.ID); !errors.Is(err, ErrNotProposalOwner) {
		t.Errorf("expected ErrNotProposalOwner, got: %v", err)
	}

	withdrawn, err := f.svc.Withdraw(context.Background(), f.freelancer, p.ID)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if withdrawn.Status != models.ProposalStatusWithdrawn {
		t.Errorf("status: got %q, want withdrawn", withdrawn.Status)
	}

	// A withdrawn proposal cannot be accepted.
	if _, err := f.svc.Accept(context.Background(), f.client, p.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("accept after withdraw: expected ErrInvalidTransition, got %v", err)
	}
}

func TestListByJob_OwnerOnly(t *testing.T) {
	f := newFixture("300")
	f.submit(t)

	if _, err := f.svc.ListByJob(context.Background(), uuid.New(), f.jobID); !errors.Is(err, ErrNotJobOwner) {
		t.Errorf("expected ErrNotJobOwner, got: %v", err)
	}
	list, err := f.svc.ListByJob(context.Background(), f.client, f.jobID)
	if err != nil {
		t.Fatalf("ListByJob: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("proposals: got %d, want 1", len(list))
	}
}
