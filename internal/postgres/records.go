package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ffstudios/pantrybot/internal/domain"
	"github.com/ffstudios/pantrybot/internal/recorder"
)

var (
	_ recorder.ExpenseStore = (*ExpenseStore)(nil)
	_ recorder.UsageStore   = (*UsageStore)(nil)
)

// ExpenseStore persists financial events. Rows are append-only.
type ExpenseStore struct {
	q Querier
}

// NewExpenseStore builds the store over a pool or transaction.
func NewExpenseStore(q Querier) *ExpenseStore {
	return &ExpenseStore{q: q}
}

// Insert implements recorder.ExpenseStore.
func (s *ExpenseStore) Insert(ctx context.Context, e domain.Expense) error {
	const query = `
		INSERT INTO expenses (
			id, purchased_at, amount, payment_method_id, supplier_id,
			expense_type_id, category_id, product_id, purchased_quantity,
			item_description, notes
		) VALUES (
			:id, :purchased_at, :amount, :payment_method_id, :supplier_id,
			:expense_type_id, :category_id, :product_id, :purchased_quantity,
			:item_description, :notes
		)`
	if _, err := sqlx.NamedExecContext(ctx, s.q, query, e); err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("expense references: %w", domain.ErrInvalidReference)
		}
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

// UsageStore persists inventory consumption events. Rows are append-only.
type UsageStore struct {
	q Querier
}

// NewUsageStore builds the store over a pool or transaction.
func NewUsageStore(q Querier) *UsageStore {
	return &UsageStore{q: q}
}

// Insert implements recorder.UsageStore.
func (s *UsageStore) Insert(ctx context.Context, u domain.UsageEvent) error {
	const query = `
		INSERT INTO usage_events (id, occurred_at, product_id, quantity, reason)
		VALUES (:id, :occurred_at, :product_id, :quantity, :reason)`
	if _, err := sqlx.NamedExecContext(ctx, s.q, query, u); err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("product %d: %w", u.ProductID, domain.ErrInvalidReference)
		}
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}
