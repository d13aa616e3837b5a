package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/action"
	"github.com/ffstudios/pantrybot/internal/catalog"
	"github.com/ffstudios/pantrybot/internal/domain"
	"github.com/ffstudios/pantrybot/internal/ledger"
	"github.com/ffstudios/pantrybot/internal/recorder"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	manager *Manager
	stock   *ledger.MemoryStore
	runner  *recorder.MemoryTxRunner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	snap := &catalog.Snapshot{
		Entries: map[domain.EntityClass][]domain.RefEntry{
			domain.ClassExpenseType: {
				{ID: 1, Name: "Variable"},
				{ID: 2, Name: "Fijo"},
			},
			domain.ClassCategory: {
				{ID: 1, Name: "Insumos"},
				{ID: 2, Name: "Servicios"},
			},
			domain.ClassPaymentMethod: {
				{ID: 1, Name: "Efectivo"},
				{ID: 2, Name: "Transferencia"},
				{ID: 3, Name: "Tarjeta de Crédito"},
			},
			domain.ClassSupplier: {
				{ID: 1, Name: "Lider"},
				{ID: 2, Name: "Enel"},
			},
		},
		Products: []domain.Product{
			{ID: 1, Name: "Harina", Unit: "kg", MinimumStock: dec("5"), CategoryID: 1},
			{ID: 2, Name: "Azúcar", Unit: "kg", MinimumStock: dec("5"), CategoryID: 1},
		},
	}
	stock := ledger.NewMemoryStore(1, 2)
	runner := recorder.NewMemoryTxRunner(stock)
	engine := NewEngine(catalog.NewResolver(snap, 0), recorder.New(runner), stock, 0.5)
	return &fixture{
		manager: NewManager(engine, NewMemoryStore()),
		stock:   stock,
		runner:  runner,
	}
}

func purchaseParse(raw map[action.FieldName]string) action.Parse {
	return action.Parse{Kind: action.KindPurchase, Raw: raw, Confidence: 0.9}
}

func TestPurchaseCompletesAcrossTwoMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply := f.manager.Process(ctx, 10, purchaseParse(map[action.FieldName]string{
		action.FieldProduct:  "harina",
		action.FieldQuantity: "50",
		action.FieldUnit:     "kg",
		action.FieldCost:     "45000",
	}))
	if reply.Kind != ReplyPrompt {
		t.Fatalf("reply kind = %v, expected prompt", reply.Kind)
	}
	want := []action.FieldName{action.FieldSupplier, action.FieldPaymentMethod}
	if len(reply.Missing) != 2 || reply.Missing[0] != want[0] || reply.Missing[1] != want[1] {
		t.Fatalf("missing = %v, expected %v", reply.Missing, want)
	}
	if !f.manager.InProgress(10) {
		t.Fatal("user must be awaiting fields")
	}

	reply = f.manager.Process(ctx, 10, action.Parse{Kind: action.KindPurchase, Raw: map[action.FieldName]string{
		action.FieldSupplier:      "Lider",
		action.FieldPaymentMethod: "tarjeta de credito",
	}})
	if reply.Kind != ReplyConfirmation {
		t.Fatalf("reply = %+v, expected confirmation", reply)
	}
	conf := reply.Confirmation
	if conf.Product != "Harina" || !conf.Level.Equal(dec("50")) || !conf.HasLevel {
		t.Fatalf("confirmation = %+v, expected Harina at level 50", conf)
	}
	if conf.LowStock {
		t.Fatal("level 50 over minimum 5 must not flag low stock")
	}
	if f.manager.InProgress(10) {
		t.Fatal("completion must leave no observable state")
	}
	if rows := f.runner.Expenses.All(); len(rows) != 1 || rows[0].Notes != "Compra de Harina" {
		t.Fatalf("expense rows = %+v", rows)
	}
}

func TestNewKindSupersedesPendingAction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.stock.ApplyInbound(ctx, 1, dec("20")); err != nil {
		t.Fatal(err)
	}

	f.manager.Process(ctx, 10, purchaseParse(map[action.FieldName]string{
		action.FieldProduct: "harina",
	}))
	if !f.manager.InProgress(10) {
		t.Fatal("expected pending purchase")
	}

	reply := f.manager.Process(ctx, 10, action.Parse{Kind: action.KindUsage, Confidence: 0.9,
		Raw: map[action.FieldName]string{
			action.FieldProduct:  "harina",
			action.FieldQuantity: "3",
		}})
	if reply.Kind != ReplyConfirmation || reply.Confirmation.Kind != action.KindUsage {
		t.Fatalf("reply = %+v, expected usage confirmation", reply)
	}
	if !reply.Confirmation.Level.Equal(dec("17")) {
		t.Fatalf("level = %s, expected 17", reply.Confirmation.Level)
	}
	if f.manager.InProgress(10) {
		t.Fatal("superseding action completed, nothing may remain pending")
	}
}

func TestUnresolvedFieldIsReaskedAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply := f.manager.Process(ctx, 10, purchaseParse(map[action.FieldName]string{
		action.FieldProduct:       "harina",
		action.FieldQuantity:      "50",
		action.FieldUnit:          "kg",
		action.FieldCost:          "45000",
		action.FieldSupplier:      "distribuidora xyz",
		action.FieldPaymentMethod: "efectivo",
	}))
	if reply.Kind != ReplyPrompt {
		t.Fatalf("reply = %+v, expected re-ask prompt", reply)
	}
	if len(reply.Missing) != 1 || reply.Missing[0] != action.FieldSupplier {
		t.Fatalf("missing = %v, expected only supplier", reply.Missing)
	}
	if !strings.Contains(reply.Note, "No pude identificar") {
		t.Fatalf("note = %q, expected identification notice", reply.Note)
	}

	// The rest of the fields survived; one supplement finishes the action.
	reply = f.manager.Process(ctx, 10, action.Parse{Kind: action.KindPurchase, Raw: map[action.FieldName]string{
		action.FieldSupplier: "Lider",
	}})
	if reply.Kind != ReplyConfirmation {
		t.Fatalf("reply = %+v, expected confirmation", reply)
	}
}

func TestUsageOnUnknownStockClearsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply := f.manager.Process(ctx, 10, action.Parse{Kind: action.KindUsage, Confidence: 0.9,
		Raw: map[action.FieldName]string{
			action.FieldProduct:  "harina",
			action.FieldQuantity: "2",
		}})
	if reply.Kind != ReplyFailure {
		t.Fatalf("reply = %+v, expected failure", reply)
	}
	if !errors.Is(reply.Failure.Err, domain.ErrUnknownProduct) {
		t.Fatalf("err = %v, expected ErrUnknownProduct", reply.Failure.Err)
	}
	if f.manager.InProgress(10) {
		t.Fatal("hard failure must not leave the user stuck awaiting fields")
	}
}

func TestLowStockFlagAfterUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.stock.ApplyInbound(ctx, 1, dec("10")); err != nil {
		t.Fatal(err)
	}

	reply := f.manager.Process(ctx, 10, action.Parse{Kind: action.KindUsage, Confidence: 0.9,
		Raw: map[action.FieldName]string{
			action.FieldProduct:  "harina",
			action.FieldQuantity: "6",
		}})
	if reply.Kind != ReplyConfirmation {
		t.Fatalf("reply = %+v, expected confirmation", reply)
	}
	if !reply.Confirmation.LowStock {
		t.Fatal("level 4 at minimum 5 must flag low stock")
	}
}

func TestExpenseUsesFixedTypeAndSkipsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply := f.manager.Process(ctx, 10, action.Parse{Kind: action.KindExpense, Confidence: 0.9,
		Raw: map[action.FieldName]string{
			action.FieldCategory:      "servicios",
			action.FieldCost:          "80000",
			action.FieldSupplier:      "Enel",
			action.FieldPaymentMethod: "transferencia",
		}})
	if reply.Kind != ReplyConfirmation {
		t.Fatalf("reply = %+v, expected confirmation", reply)
	}
	if reply.Confirmation.HasLevel {
		t.Fatal("pure expense must not report a stock level")
	}
	rows := f.runner.Expenses.All()
	if len(rows) != 1 {
		t.Fatalf("expense rows = %d", len(rows))
	}
	if rows[0].ExpenseTypeID != 2 {
		t.Fatalf("expense type id = %d, expected Fijo (2)", rows[0].ExpenseTypeID)
	}
	if !strings.HasPrefix(rows[0].Notes, "Pago de ") {
		t.Fatalf("notes = %q", rows[0].Notes)
	}
}

func TestStockQueryReportsLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.stock.ApplyInbound(ctx, 2, dec("12.5")); err != nil {
		t.Fatal(err)
	}

	reply := f.manager.Process(ctx, 10, action.Parse{Kind: action.KindQuery, Confidence: 0.9,
		Raw: map[action.FieldName]string{
			action.FieldProduct: "azucar",
		}})
	if reply.Kind != ReplyConfirmation {
		t.Fatalf("reply = %+v, expected confirmation", reply)
	}
	conf := reply.Confirmation
	if conf.Product != "Azúcar" || !conf.Level.Equal(dec("12.5")) {
		t.Fatalf("confirmation = %+v, expected Azúcar at 12.5", conf)
	}
	if f.manager.InProgress(10) {
		t.Fatal("query must not open a pending action")
	}
}

func TestLowConfidenceParseIsNotUnderstood(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply := f.manager.Process(ctx, 10, action.Parse{Kind: action.KindPurchase, Confidence: 0.2,
		Raw: map[action.FieldName]string{action.FieldProduct: "harina"}})
	if reply.Kind != ReplyFailure {
		t.Fatalf("reply = %+v, expected failure", reply)
	}
	if reply.Failure.Message == "" {
		t.Fatal("expected a not-understood message")
	}
	if f.manager.InProgress(10) {
		t.Fatal("rejected parse must not open a pending action")
	}
}

func TestCancelDiscardsPendingAction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.manager.Process(ctx, 10, purchaseParse(map[action.FieldName]string{
		action.FieldProduct: "harina",
	}))
	if !f.manager.Cancel(10) {
		t.Fatal("cancel must report an existing pending action")
	}
	if f.manager.InProgress(10) {
		t.Fatal("cancel must clear the pending action")
	}
	if f.manager.Cancel(10) {
		t.Fatal("second cancel must report nothing pending")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.manager.Process(ctx, 10, purchaseParse(map[action.FieldName]string{
		action.FieldProduct: "harina",
	}))
	if f.manager.InProgress(20) {
		t.Fatal("pending state must be scoped to the user")
	}

	pending, ok := f.manager.Pending(10)
	if !ok || pending.Kind != action.KindPurchase {
		t.Fatalf("pending = %+v, ok = %v", pending, ok)
	}
}
