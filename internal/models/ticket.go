package models

import (
	"time"

	"github.com/google/uuid"
)

// Support ticket status enums. This core only creates tickets; their
// lifecycle is managed elsewhere.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusEscalated  = "escalated"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

type SupportTicket struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}
