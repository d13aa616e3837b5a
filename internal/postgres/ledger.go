package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/domain"
	"github.com/ffstudios/pantrybot/internal/ledger"
)

var _ ledger.Store = (*LedgerStore)(nil)

// LedgerStore keeps the derived stock level per product in the stock_levels
// table. Each movement is a single statement, so the row lock taken by
// INSERT .. ON CONFLICT or UPDATE serializes concurrent read-modify-write
// cycles on the same product.
type LedgerStore struct {
	q Querier
}

// NewLedgerStore builds the store over a pool or transaction.
func NewLedgerStore(q Querier) *LedgerStore {
	return &LedgerStore{q: q}
}

// ApplyInbound implements ledger.Store.
func (s *LedgerStore) ApplyInbound(ctx context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	if err := ledger.CheckQuantity(qty); err != nil {
		return decimal.Zero, err
	}
	const query = `
		INSERT INTO stock_levels (product_id, quantity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id)
		DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING quantity`
	var level decimal.Decimal
	if err := sqlx.GetContext(ctx, s.q, &level, query, productID, qty); err != nil {
		if isFKViolation(err) {
			return decimal.Zero, fmt.Errorf("product %d: %w", productID, domain.ErrInvalidReference)
		}
		return decimal.Zero, fmt.Errorf("apply inbound: %w", err)
	}
	return level, nil
}

// ApplyOutbound implements ledger.Store. The level may go negative.
func (s *LedgerStore) ApplyOutbound(ctx context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	if err := ledger.CheckQuantity(qty); err != nil {
		return decimal.Zero, err
	}
	const query = `
		UPDATE stock_levels
		SET quantity = quantity - $2, updated_at = now()
		WHERE product_id = $1
		RETURNING quantity`
	var level decimal.Decimal
	if err := sqlx.GetContext(ctx, s.q, &level, query, productID, qty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("product %d has no stock row: %w", productID, domain.ErrUnknownProduct)
		}
		return decimal.Zero, fmt.Errorf("apply outbound: %w", err)
	}
	return level, nil
}

// CurrentLevel implements ledger.Store.
func (s *LedgerStore) CurrentLevel(ctx context.Context, productID int64) (domain.StockLevel, error) {
	const query = `
		SELECT product_id, quantity, updated_at
		FROM stock_levels WHERE product_id = $1`
	var lvl domain.StockLevel
	if err := sqlx.GetContext(ctx, s.q, &lvl, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockLevel{}, fmt.Errorf("product %d has no stock row: %w", productID, domain.ErrUnknownProduct)
		}
		return domain.StockLevel{}, fmt.Errorf("current level: %w", err)
	}
	return lvl, nil
}

// Levels returns all level rows ordered by product id, for the /stock report.
func (s *LedgerStore) Levels(ctx context.Context) ([]domain.StockLevel, error) {
	const query = `
		SELECT product_id, quantity, updated_at
		FROM stock_levels ORDER BY product_id`
	var rows []domain.StockLevel
	if err := sqlx.SelectContext(ctx, s.q, &rows, query); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return rows, nil
}
