package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent marks a gateway notification as processed. The gateway's
// event id is the idempotency key: a second insert for the same id is a
// no-op and the credit is skipped.
type PaymentEvent struct {
	EventID     string    `json:"event_id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int       `json:"amount"`
	ProcessedAt time.Time `json:"processed_at"`
}
