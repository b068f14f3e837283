package credits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

// Repository implements Store against Postgres. The conditional UPDATE on
// credit_balances is the per-user serialization point: two concurrent debits
// for the same user queue on the row, and the balance >= amount predicate is
// re-evaluated after the lock is acquired, so only one can win a race for
// the last credits.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int, time.Time, error) {
	var balance int
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT balance, updated_at FROM credit_balances WHERE user_id = $1
	`, userID).Scan(&balance, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// No balance row means no ledger history: balance is zero.
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return balance, updatedAt, nil
}

func (r *Repository) ApplyDebit(ctx context.Context, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error {
	return r.atomically(ctx, "debit", func(tx pgx.Tx) error {
		return r.ApplyDebitTx(ctx, tx, userID, amount, entry)
	})
}

func (r *Repository) ApplyDebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error {
	ct, err := tx.Exec(ctx, `
		UPDATE credit_balances SET balance = balance - $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
	`, amount, userID)
	if err != nil {
		return &StorageError{Op: "debit balance", Err: err}
	}
	if ct.RowsAffected() == 0 {
		// Either the balance is too low or the user has no balance row yet;
		// both mean the user cannot afford the debit.
		return ErrInsufficientCredits
	}
	return r.insertEntry(ctx, tx, entry)
}

func (r *Repository) ApplyCredit(ctx context.Context, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error {
	return r.atomically(ctx, "credit", func(tx pgx.Tx) error {
		return r.ApplyCreditTx(ctx, tx, userID, amount, entry)
	})
}

func (r *Repository) ApplyCreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, entry *models.CreditLedgerEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO credit_balances (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = credit_balances.balance + EXCLUDED.balance, updated_at = now()
	`, userID, amount)
	if err != nil {
		return &StorageError{Op: "credit balance", Err: err}
	}
	return r.insertEntry(ctx, tx, entry)
}

func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.CreditLedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, type, description, metadata, created_at
		FROM credit_ledger_entries
		WHERE user_id = $1 ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditLedgerEntry
	for rows.Next() {
		var e models.CreditLedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.EntryType, &e.Description, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (r *Repository) insertEntry(ctx context.Context, tx pgx.Tx, entry *models.CreditLedgerEntry) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO credit_ledger_entries (id, user_id, amount, type, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, entry.ID, entry.UserID, entry.Amount, entry.EntryType, entry.Description, entry.Metadata).Scan(&entry.CreatedAt)
	if err != nil {
		return &StorageError{Op: "insert ledger entry", Err: err}
	}
	return nil
}

// atomically runs fn in a transaction. A failure before commit is reported
// as known-not-applied; a failed commit collapses to unknown outcome.
func (r *Repository) atomically(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return &StorageError{Op: op + " begin", Err: err}
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: op + " commit", Uncertain: true, Err: err}
	}
	return nil
}
