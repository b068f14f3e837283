package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/shopspring/decimal"
)

// Payout directions. release pays the freelancer the net amount; refund
// returns the full escrowed amount to the client.
const (
	PayoutDirectionRelease = "release"
	PayoutDirectionRefund  = "refund"
)

// PayoutJobArgs is enqueued inside the escrow transition's database
// transaction, so a committed release or refund always has its payout
// pending even if the process dies right after commit.
type PayoutJobArgs struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     string          `json:"direction"`
}

func (PayoutJobArgs) Kind() string { return "escrow_payout" }

// Transferrer is the gateway call the worker needs.
type Transferrer interface {
	Transfer(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) error
}

// PayoutWorker delivers payouts to the gateway. Returning an error hands the
// job back to river for retry; the escrow status is never touched here.
type PayoutWorker struct {
	river.WorkerDefaults[PayoutJobArgs]
	gateway Transferrer
	log     *slog.Logger
}

func NewPayoutWorker(gateway Transferrer, log *slog.Logger) *PayoutWorker {
	if log == nil {
		log = slog.Default()
	}
	return &PayoutWorker{gateway: gateway, log: log}
}

func (w *PayoutWorker) Work(ctx context.Context, job *river.Job[PayoutJobArgs]) error {
	args := job.Args
	reference := fmt.Sprintf("%s:%s", args.Direction, args.TransactionID)
	if err := w.gateway.Transfer(ctx, args.UserID, args.Amount, reference); err != nil {
		return fmt.Errorf("payout %s: %w", reference, err)
	}
	w.log.Info("payout delivered",
		"transaction_id", args.TransactionID,
		"direction", args.Direction,
		"amount", args.Amount,
	)
	return nil
}
