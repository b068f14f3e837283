package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// ErrInsufficientCredits is an expected outcome, not a fault: callers must
// branch on it and present a decline.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrInvalidAmount is returned for non-positive (or, for balance checks,
// negative) amounts. It indicates a caller programming error.
var ErrInvalidAmount = errors.New("invalid credit amount")

// StorageError wraps a storage failure during a debit/credit atomic unit.
// Uncertain is true when the outcome is unknown (the commit itself failed);
// false means the operation is known not to have applied. Automated layers
// must not blindly retry an uncertain debit or credit.
type StorageError struct {
	Op        string
	Uncertain bool
	Err       error
}

func (e *StorageError) Error() string {
	if e.Uncertain {
		return fmt.Sprintf("credits: %s failed with unknown outcome: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("credits: %s failed (not applied): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the persistence contract for the ledger. Each ApplyDebit/ApplyCredit
// call is one atomic unit: balance mutation and entry insert commit together
// or not at all. The Tx variants run inside a caller-owned transaction.
type Store interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, time.Time, error)
	ApplyDebit(ctx context.Context, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error
	ApplyDebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error
	ApplyCredit(ctx context.Context, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error
	ApplyCreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.CreditLedgerEntry, error)
}

// Service owns CreditBalance and CreditLedgerEntry. All balance mutations go
// through Debit/Credit; callers never write balances directly.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Proposal cost tiers by job budget.
var (
	costTierSmall  = decimal.NewFromInt(200)
	costTierMedium = decimal.NewFromInt(1000)
)

// Cost returns the credits required to submit a proposal on a job with the
// given budget. Tier upper bounds are inclusive.
func (s *Service) Cost(budget decimal.Decimal) int {
	switch {
	case budget.LessThanOrEqual(costTierSmall):
		return 2
	case budget.LessThanOrEqual(costTierMedium):
		return 4
	default:
		return 6
	}
}

// Balance returns the user's current balance and when it last changed.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int, time.Time, error) {
	return s.store.Balance(ctx, userID)
}

// HasSufficientBalance reports whether the user can afford amount.
func (s *Service) HasSufficientBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	if amount < 0 {
		return false, ErrInvalidAmount
	}
	balance, _, err := s.store.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// Debit atomically decrements the user's balance and appends a proposal_cost
// ledger entry with amount -amount. Returns ErrInsufficientCredits, with
// nothing mutated, when the balance is too low.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int, reason string, metadata map[string]any) error {
	entry, err := debitEntry(userID, amount, reason, metadata)
	if err != nil {
		return err
	}
	return s.store.ApplyDebit(ctx, userID, amount, entry)
}

// DebitTx is Debit running inside a caller-owned transaction. The caller's
// commit decides whether the debit applies.
func (s *Service) DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, reason string, metadata map[string]any) error {
	entry, err := debitEntry(userID, amount, reason, metadata)
	if err != nil {
		return err
	}
	return s.store.ApplyDebitTx(ctx, tx, userID, amount, entry)
}

// Credit atomically increments the user's balance and appends a ledger entry
// of the given type (purchase, refund or bonus) with amount +amount.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int, entryType, reason string) error {
	entry, err := creditEntry(userID, amount, entryType, reason)
	if err != nil {
		return err
	}
	return s.store.ApplyCredit(ctx, userID, amount, entry)
}

// CreditTx is Credit running inside a caller-owned transaction.
func (s *Service) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entryType, reason string) error {
	entry, err := creditEntry(userID, amount, entryType, reason)
	if err != nil {
		return err
	}
	return s.store.ApplyCreditTx(ctx, tx, userID, amount, entry)
}

// ListEntries returns the user's ledger history, newest first.
func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.CreditLedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListEntries(ctx, userID, limit, offset)
}

func debitEntry(userID uuid.UUID, amount int, reason string, metadata map[string]any) (*models.CreditLedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var raw json.RawMessage
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal debit metadata: %w", err)
		}
		raw = b
	}
	return &models.CreditLedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      -amount,
		EntryType:   models.CreditEntryProposalCost,
		Description: reason,
		Metadata:    raw,
	}, nil
}

func creditEntry(userID uuid.UUID, amount int, entryType, reason string) (*models.CreditLedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	switch entryType {
	case models.CreditEntryPurchase, models.CreditEntryRefund, models.CreditEntryBonus:
	default:
		return nil, fmt.Errorf("credits: unknown entry type %q", entryType)
	}
	return &models.CreditLedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		EntryType:   entryType,
		Description: reason,
	}, nil
}
