package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Job status enums.
const (
	JobStatusDraft      = "draft"
	JobStatusOpen       = "open"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

// MaxProposalsPerJob caps how many proposals a single job can receive.
const MaxProposalsPerJob = 50

type Job struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Budget        decimal.Decimal `json:"budget"`
	Status        string          `json:"status"`
	ProposalCount int             `json:"proposal_count"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
