package payments

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// ErrDuplicateEvent is returned when a gateway notification has already been
// applied. The HTTP boundary logs it and answers success so the gateway
// stops retrying.
var ErrDuplicateEvent = errors.New("payment event already processed")

// ErrInvalidAmount is returned for non-positive payout or purchase amounts.
var ErrInvalidAmount = errors.New("invalid payment amount")

// PurchaseEvent is the gateway's "purchase completed" notification, already
// signature-verified upstream.
type PurchaseEvent struct {
	EventID string    `json:"event_id"`
	UserID  uuid.UUID `json:"user_id"`
	Amount  int       `json:"amount"`
	Success bool      `json:"success"`
}

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EventStore records processed gateway events. MarkProcessed returns false
// when the event id was already recorded.
type EventStore interface {
	MarkProcessed(ctx context.Context, tx pgx.Tx, evt *models.PaymentEvent) (bool, error)
}

// CreditLedger is the slice of the credit service the adapter needs.
type CreditLedger interface {
	CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entryType, reason string) error
}

// Adapter translates external settlement events into ledger calls. It is
// idempotent per gateway event id: the processed-event marker and the credit
// commit in one transaction, so a replay can never double-credit.
type Adapter struct {
	db      TxBeginner
	events  EventStore
	credits CreditLedger
	log     *slog.Logger
}

func NewAdapter(db TxBeginner, events EventStore, credits CreditLedger, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{db: db, events: events, credits: credits, log: log}
}

// HandlePurchaseCompleted applies a completed credit purchase exactly once
// per distinct event id.
func (a *Adapter) HandlePurchaseCompleted(ctx context.Context, evt PurchaseEvent) error {
	if !evt.Success {
		a.log.Info("ignoring unsuccessful purchase event", "event_id", evt.EventID)
		return nil
	}
	if evt.Amount <= 0 {
		return ErrInvalidAmount
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	applied, err := a.events.MarkProcessed(ctx, tx, &models.PaymentEvent{
		EventID: evt.EventID,
		UserID:  evt.UserID,
		Amount:  evt.Amount,
	})
	if err != nil {
		return err
	}
	if !applied {
		a.log.Info("duplicate gateway event ignored", "event_id", evt.EventID)
		return ErrDuplicateEvent
	}

	if err := a.credits.CreditTx(ctx, tx, evt.UserID, evt.Amount, models.CreditEntryPurchase, "Credit package purchase"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RequestPayout is the authorization point for user-initiated payouts.
// The base behavior approves everything; real transfer gating hooks in here.
func (a *Adapter) RequestPayout(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, ErrInvalidAmount
	}
	a.log.Info("payout request approved", "user_id", userID, "amount", amount)
	return true, nil
}
