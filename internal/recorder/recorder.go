// Package recorder persists immutable financial events and keeps the stock
// ledger in step with them. A purchase that carries a catalog product writes
// the expense row and the inbound movement inside one transaction boundary:
// either both persist or neither does.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/core/logger"
	"github.com/ffstudios/pantrybot/internal/domain"
	"github.com/ffstudios/pantrybot/internal/ledger"
)

// ExpenseStore persists expense rows.
type ExpenseStore interface {
	Insert(ctx context.Context, e domain.Expense) error
}

// UsageStore persists usage event rows.
type UsageStore interface {
	Insert(ctx context.Context, u domain.UsageEvent) error
}

// Stores bundles the transaction-bound stores handed to a Run callback.
type Stores struct {
	Expenses ExpenseStore
	Usage    UsageStore
	Ledger   ledger.Store
}

// TxRunner executes a callback inside a single durable transaction. When the
// callback returns an error nothing it did is observable afterwards.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx Stores) error) error
}

// ExpenseInput carries a fully resolved, validated-by-the-caller expense.
type ExpenseInput struct {
	Amount          decimal.Decimal
	PaymentMethodID int64
	SupplierID      int64
	ExpenseTypeID   int64
	CategoryID      int64

	// ProductID and PurchasedQuantity are set together for inventory
	// purchases; ItemDescription is used exactly when no product applies.
	ProductID         *int64
	PurchasedQuantity decimal.Decimal
	ItemDescription   string
	Notes             string
}

// UsageInput carries a fully resolved inventory consumption event.
type UsageInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	Reason    string
}

// Service records expenses and usage events.
type Service struct {
	tx  TxRunner
	now func() time.Time
}

// New builds a recorder service on top of a transaction runner.
func New(tx TxRunner) *Service {
	return &Service{tx: tx, now: func() time.Time { return time.Now().UTC() }}
}

// RecordExpense validates and persists an expense. When the expense carries a
// product, the matching inbound movement is applied in the same transaction
// and the new stock level is returned; otherwise the returned level is zero
// and meaningless.
func (s *Service) RecordExpense(ctx context.Context, in ExpenseInput) (uuid.UUID, decimal.Decimal, error) {
	if in.Amount.Sign() <= 0 {
		return uuid.Nil, decimal.Zero, errValidation("amount %s must be positive", in.Amount)
	}
	if in.ProductID != nil {
		if err := ledger.CheckQuantity(in.PurchasedQuantity); err != nil {
			return uuid.Nil, decimal.Zero, err
		}
	}

	expense := domain.Expense{
		ID:              uuid.New(),
		PurchasedAt:     s.now(),
		Amount:          in.Amount,
		PaymentMethodID: in.PaymentMethodID,
		SupplierID:      in.SupplierID,
		ExpenseTypeID:   in.ExpenseTypeID,
		CategoryID:      in.CategoryID,
		ProductID:       in.ProductID,
		ItemDescription: in.ItemDescription,
		Notes:           in.Notes,
	}
	if in.ProductID != nil {
		expense.PurchasedQuantity = decimal.NewNullDecimal(in.PurchasedQuantity)
	}

	var level decimal.Decimal
	err := s.tx.Run(ctx, func(tx Stores) error {
		if err := tx.Expenses.Insert(ctx, expense); err != nil {
			return err
		}
		if in.ProductID == nil {
			return nil
		}
		lvl, err := tx.Ledger.ApplyInbound(ctx, *in.ProductID, in.PurchasedQuantity)
		if err != nil {
			return err
		}
		level = lvl
		return nil
	})
	if err != nil {
		logger.Error(ctx, "service.finance", "expense.record",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return uuid.Nil, decimal.Zero, classify("record expense", err)
	}

	logger.Info(ctx, "service.finance", "expense.record",
		slog.String("status", "ok"),
		slog.String("expense_id", expense.ID.String()),
		slog.String("amount", in.Amount.String()),
	)
	return expense.ID, level, nil
}

// RecordUsage validates and persists a usage event together with its
// outbound movement. A product with no stock row fails with
// domain.ErrUnknownProduct and writes nothing.
func (s *Service) RecordUsage(ctx context.Context, in UsageInput) (uuid.UUID, decimal.Decimal, error) {
	if err := ledger.CheckQuantity(in.Quantity); err != nil {
		return uuid.Nil, decimal.Zero, err
	}

	event := domain.UsageEvent{
		ID:         uuid.New(),
		OccurredAt: s.now(),
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		Reason:     in.Reason,
	}

	var level decimal.Decimal
	err := s.tx.Run(ctx, func(tx Stores) error {
		if err := tx.Usage.Insert(ctx, event); err != nil {
			return err
		}
		lvl, err := tx.Ledger.ApplyOutbound(ctx, in.ProductID, in.Quantity)
		if err != nil {
			return err
		}
		level = lvl
		return nil
	})
	if err != nil {
		logger.Error(ctx, "service.finance", "usage.record",
			slog.String("status", "fail"),
			slog.Int64("product_id", in.ProductID),
			slog.String("err", err.Error()),
		)
		return uuid.Nil, decimal.Zero, classify("record usage", err)
	}

	logger.Info(ctx, "service.finance", "usage.record",
		slog.String("status", "ok"),
		slog.String("usage_id", event.ID.String()),
		slog.Int64("product_id", in.ProductID),
		slog.String("quantity", in.Quantity.String()),
	)
	return event.ID, level, nil
}

// classify keeps domain error kinds intact and folds everything else (driver
// failures, constraint violations) into ErrRecordingFailed so callers never
// see partial-write ambiguity.
func classify(op string, err error) error {
	for _, kind := range []error{
		domain.ErrUnknownProduct,
		domain.ErrInvalidReference,
		domain.ErrValidationFailed,
		domain.ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return errRecording(op, err)
}
