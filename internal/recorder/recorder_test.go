package recorder

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/domain"
	"github.com/ffstudios/pantrybot/internal/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func i64(v int64) *int64 { return &v }

func TestRecordExpenseWithProductAppliesInbound(t *testing.T) {
	ctx := context.Background()
	runner := NewMemoryTxRunner(ledger.NewMemoryStore(1))
	svc := New(runner)

	id, level, err := svc.RecordExpense(ctx, ExpenseInput{
		Amount:            dec("45000"),
		PaymentMethodID:   1,
		SupplierID:        1,
		ExpenseTypeID:     1,
		CategoryID:        1,
		ProductID:         i64(1),
		PurchasedQuantity: dec("50"),
		Notes:             "Compra de harina",
	})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if !level.Equal(dec("50")) {
		t.Fatalf("level = %s, expected 50", level)
	}

	rows := runner.Expenses.All()
	if len(rows) != 1 {
		t.Fatalf("expense rows = %d, expected 1", len(rows))
	}
	if rows[0].ID != id {
		t.Fatalf("stored id %s, returned %s", rows[0].ID, id)
	}
	if !rows[0].PurchasedQuantity.Valid || !rows[0].PurchasedQuantity.Decimal.Equal(dec("50")) {
		t.Fatalf("purchased quantity = %+v, expected 50", rows[0].PurchasedQuantity)
	}
}

func TestRecordExpenseWithoutProductSkipsLedger(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	runner := NewMemoryTxRunner(store)
	svc := New(runner)

	_, _, err := svc.RecordExpense(ctx, ExpenseInput{
		Amount:          dec("120000"),
		PaymentMethodID: 2,
		SupplierID:      1,
		ExpenseTypeID:   2,
		CategoryID:      3,
		ItemDescription: "arriendo local",
		Notes:           "Pago de arriendo local",
	})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if len(store.Levels()) != 0 {
		t.Fatal("pure expense must not touch the stock ledger")
	}
	rows := runner.Expenses.All()
	if len(rows) != 1 || rows[0].PurchasedQuantity.Valid {
		t.Fatalf("rows = %+v, expected one row without purchased quantity", rows)
	}
}

func TestRecordExpenseRollsBackWhenInboundFails(t *testing.T) {
	ctx := context.Background()
	// Empty store: product 9 is unknown, so the inbound movement fails after
	// the expense insert already ran inside the transaction.
	runner := NewMemoryTxRunner(ledger.NewMemoryStore())
	svc := New(runner)

	_, _, err := svc.RecordExpense(ctx, ExpenseInput{
		Amount:            dec("1000"),
		PaymentMethodID:   1,
		SupplierID:        1,
		ExpenseTypeID:     1,
		CategoryID:        1,
		ProductID:         i64(9),
		PurchasedQuantity: dec("2"),
	})
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if rows := runner.Expenses.All(); len(rows) != 0 {
		t.Fatalf("expense rows = %d after failed transaction, expected 0", len(rows))
	}
}

func TestRecordUsageUnknownStockWritesNothing(t *testing.T) {
	ctx := context.Background()
	runner := NewMemoryTxRunner(ledger.NewMemoryStore(1))
	svc := New(runner)

	_, _, err := svc.RecordUsage(ctx, UsageInput{ProductID: 1, Quantity: dec("3")})
	if !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
	if rows := runner.Usage.All(); len(rows) != 0 {
		t.Fatalf("usage rows = %d after failed transaction, expected 0", len(rows))
	}
}

func TestRecordUsageAppliesOutbound(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore(1)
	runner := NewMemoryTxRunner(store)
	svc := New(runner)

	if _, err := store.ApplyInbound(ctx, 1, dec("10")); err != nil {
		t.Fatalf("seed inbound: %v", err)
	}

	_, level, err := svc.RecordUsage(ctx, UsageInput{ProductID: 1, Quantity: dec("4"), Reason: "producción"})
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if !level.Equal(dec("6")) {
		t.Fatalf("level = %s, expected 6", level)
	}
	rows := runner.Usage.All()
	if len(rows) != 1 || rows[0].Reason != "producción" {
		t.Fatalf("rows = %+v, expected one row with reason", rows)
	}
}

func TestRecordExpenseRejectsNonPositiveAmount(t *testing.T) {
	svc := New(NewMemoryTxRunner(ledger.NewMemoryStore()))
	_, _, err := svc.RecordExpense(context.Background(), ExpenseInput{Amount: dec("0")})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

type failingTxRunner struct{ err error }

func (r failingTxRunner) Run(context.Context, func(tx Stores) error) error { return r.err }

func TestDriverFailuresFoldIntoRecordingError(t *testing.T) {
	svc := New(failingTxRunner{err: errors.New("connection reset")})
	_, _, err := svc.RecordExpense(context.Background(), ExpenseInput{
		Amount:          dec("10"),
		PaymentMethodID: 1,
		SupplierID:      1,
		ExpenseTypeID:   1,
		CategoryID:      1,
	})
	if !errors.Is(err, domain.ErrRecordingFailed) {
		t.Fatalf("expected ErrRecordingFailed, got %v", err)
	}
}
