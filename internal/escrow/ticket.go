package escrow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// DisputeTicket builds the support ticket that accompanies a dispute
// transition. The fields are deterministic for a given transaction so a
// support agent can always trace the ticket back to the escrow row.
func DisputeTicket(txID, raisedBy uuid.UUID) *models.SupportTicket {
	return &models.SupportTicket{
		ID:             uuid.New(),
		UserID:         raisedBy,
		Title:          "Dispute over escrow transaction",
		Description:    fmt.Sprintf("Dispute raised for escrow transaction %s", txID),
		Status:         models.TicketStatusOpen,
		LastActivityAt: time.Now().UTC(),
	}
}
