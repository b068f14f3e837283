package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Credit ledger entry type enums. Debits are recorded as proposal_cost with a
// negative amount; every other type is a positive grant.
const (
	CreditEntryPurchase     = "purchase"
	CreditEntryProposalCost = "proposal_cost"
	CreditEntryRefund       = "refund"
	CreditEntryBonus        = "bonus"
)

// CreditBalance is a cached projection of the ledger. It is only ever written
// in the same transaction as a ledger entry insert.
type CreditBalance struct {
	UserID    uuid.UUID `json:"user_id"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditLedgerEntry is append-only and immutable once written.
type CreditLedgerEntry struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      int             `json:"amount"`
	EntryType   string          `json:"type"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
