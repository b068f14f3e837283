package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Proposal status enums. pending is the only state a proposal can leave.
const (
	ProposalStatusPending   = "pending"
	ProposalStatusAccepted  = "accepted"
	ProposalStatusRejected  = "rejected"
	ProposalStatusWithdrawn = "withdrawn"
)

type Proposal struct {
	ID           uuid.UUID       `json:"id"`
	JobID        uuid.UUID       `json:"job_id"`
	FreelancerID uuid.UUID       `json:"freelancer_id"`
	Amount       decimal.Decimal `json:"amount"`
	DeliveryDays int             `json:"delivery_days"`
	CoverLetter  string          `json:"cover_letter"`
	Status       string          `json:"status"`
	// CreditsUsed is the cost charged at submission time. It is a snapshot
	// and is never recomputed, even if the job budget later changes.
	CreditsUsed int       `json:"credits_used"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
