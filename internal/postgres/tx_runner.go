package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ffstudios/pantrybot/internal/recorder"
)

var _ recorder.TxRunner = (*TxRunner)(nil)

// TxRunner runs recorder callbacks inside one PostgreSQL transaction, so a
// financial row and its ledger movement commit or roll back together.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner builds the runner over the pool.
func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run implements recorder.TxRunner: begins a transaction, hands fn stores
// bound to it, and commits only when fn succeeds.
func (r *TxRunner) Run(ctx context.Context, fn func(tx recorder.Stores) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stores := recorder.Stores{
		Expenses: NewExpenseStore(tx),
		Usage:    NewUsageStore(tx),
		Ledger:   NewLedgerStore(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
