package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Escrow transaction status enums. held is the only initial state; disputed
// resolves to released or refunded by an external arbitration process.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
	EscrowStatusDisputed = "disputed"
)

type EscrowTransaction struct {
	ID           uuid.UUID       `json:"id"`
	JobID        uuid.UUID       `json:"job_id"`
	ClientID     uuid.UUID       `json:"client_id"`
	FreelancerID uuid.UUID       `json:"freelancer_id"`
	Amount       decimal.Decimal `json:"amount"`
	// PlatformFee is fixed at hold time and never recomputed.
	PlatformFee          decimal.Decimal `json:"platform_fee"`
	IsFirstCollaboration bool            `json:"is_first_collaboration"`
	Status               string          `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NetAmount is what the freelancer receives on release.
func (e *EscrowTransaction) NetAmount() decimal.Decimal {
	return e.Amount.Sub(e.PlatformFee)
}
