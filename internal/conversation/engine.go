// Package conversation implements the per-user completion state machine: it
// accumulates partially extracted action fields across messages until an
// action is complete, then commits it against the recorder and the ledger.
//
// The engine itself holds no per-user state. Step takes the current state
// in and returns the (possibly replaced) state out, so the transport layer
// owns persistence without understanding the blob. A pending action never
// expires on its own; only completion, an explicit cancel, or an unrelated
// new action discards it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/core/logger"
	"github.com/ffstudios/pantrybot/internal/action"
	"github.com/ffstudios/pantrybot/internal/catalog"
	"github.com/ffstudios/pantrybot/internal/domain"
	"github.com/ffstudios/pantrybot/internal/ledger"
	"github.com/ffstudios/pantrybot/internal/recorder"
)

// Pending is one incomplete action awaiting its missing fields.
type Pending struct {
	Kind      action.Kind
	Fields    action.Fields
	Missing   []action.FieldName
	Original  string
	CreatedAt time.Time
}

// State is the per-user conversation blob. A nil or empty state is Idle.
type State struct {
	Pending *Pending
}

// Idle reports whether no action is awaiting fields.
func (s *State) Idle() bool {
	return s == nil || s.Pending == nil
}

// ReplyKind discriminates the engine's outcome.
type ReplyKind int

const (
	// ReplyPrompt asks the user for the still-missing fields.
	ReplyPrompt ReplyKind = iota
	// ReplyConfirmation reports a committed action.
	ReplyConfirmation
	// ReplyFailure reports an error; pending state has been cleared unless
	// the failure is a re-askable resolution miss.
	ReplyFailure
)

// Summary is one resolved field shown back to the user.
type Summary struct {
	Label string
	Value string
}

// Confirmation describes a committed action.
type Confirmation struct {
	Kind     action.Kind
	Summary  []Summary
	RecordID uuid.UUID

	// Stock fields are set for purchase, usage, and query outcomes.
	Product  string
	Unit     string
	Level    decimal.Decimal
	HasLevel bool
	LowStock bool
}

// Failure describes an error outcome. Err carries the domain error kind.
type Failure struct {
	Err     error
	Message string
}

// Reply is the engine's outbound result for one inbound parse.
type Reply struct {
	Kind         ReplyKind
	Missing      []action.FieldName
	Note         string
	Confirmation *Confirmation
	Failure      *Failure
}

// Resolver is the reference-resolution dependency.
type Resolver interface {
	Resolve(class domain.EntityClass, name string) (int64, error)
	Snapshot() *catalog.Snapshot
}

// Recorder commits completed actions.
type Recorder interface {
	RecordExpense(ctx context.Context, in recorder.ExpenseInput) (uuid.UUID, decimal.Decimal, error)
	RecordUsage(ctx context.Context, in recorder.UsageInput) (uuid.UUID, decimal.Decimal, error)
}

// Engine decides transitions and executes completed actions.
type Engine struct {
	resolver      Resolver
	recorder      Recorder
	levels        ledger.Store
	minConfidence float64
	now           func() time.Time
}

// NewEngine wires the engine's collaborators. minConfidence below which a
// fresh parse is rejected as not understood; 0 disables the check.
func NewEngine(resolver Resolver, rec Recorder, levels ledger.Store, minConfidence float64) *Engine {
	return &Engine{
		resolver:      resolver,
		recorder:      rec,
		levels:        levels,
		minConfidence: minConfidence,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Step advances the state machine with one parse. It returns the next state
// and the reply to render. The returned state replaces the stored blob.
func (e *Engine) Step(ctx context.Context, st *State, parse action.Parse) (*State, Reply) {
	if st == nil {
		st = &State{}
	}

	if !st.Idle() {
		return e.stepAwaiting(ctx, st, parse)
	}
	return e.stepIdle(ctx, parse)
}

func (e *Engine) stepIdle(ctx context.Context, parse action.Parse) (*State, Reply) {
	if parse.Kind == action.KindUnknown || len(action.Required(parse.Kind)) == 0 ||
		(e.minConfidence > 0 && parse.Confidence < e.minConfidence) {
		return &State{}, notUnderstood()
	}

	fields, missing := action.Coerce(parse)
	if len(missing) > 0 {
		pending := &Pending{
			Kind:      parse.Kind,
			Fields:    fields,
			Missing:   missing,
			Original:  parse.Original,
			CreatedAt: e.now(),
		}
		logger.Debug(ctx, "service.conversation", "pending.open",
			slog.String("action", string(parse.Kind)),
			slog.Int("missing", len(missing)),
		)
		return &State{Pending: pending}, Reply{Kind: ReplyPrompt, Missing: missing}
	}

	return e.execute(ctx, &Pending{Kind: parse.Kind, Fields: fields, Original: parse.Original, CreatedAt: e.now()})
}

func (e *Engine) stepAwaiting(ctx context.Context, st *State, parse action.Parse) (*State, Reply) {
	pending := st.Pending

	// An explicit new action of a different kind supersedes the stale one.
	if parse.Kind != action.KindUnknown && parse.Kind != pending.Kind {
		logger.Debug(ctx, "service.conversation", "pending.superseded",
			slog.String("stale", string(pending.Kind)),
			slog.String("action", string(parse.Kind)),
		)
		return e.stepIdle(ctx, parse)
	}

	// Supplement: coerce against the pending kind and merge. Filled slots
	// are never overwritten; first write wins for this pending action.
	supplement, _ := action.Coerce(action.Parse{Kind: pending.Kind, Raw: parse.Raw})
	pending.Fields.Merge(supplement)
	pending.Missing = action.MissingOf(pending.Kind, &pending.Fields)

	if len(pending.Missing) > 0 {
		return st, Reply{Kind: ReplyPrompt, Missing: pending.Missing}
	}
	return e.execute(ctx, pending)
}

// unresolved marks a filled field whose value did not resolve against the
// catalog. It keeps the conversation recoverable: the engine re-asks for
// that one field instead of dropping the whole action.
type unresolved struct {
	field action.FieldName
	name  string
}

func (u *unresolved) Error() string {
	return fmt.Sprintf("%s %q: %s", u.field, u.name, domain.ErrNotFound)
}

func (u *unresolved) Unwrap() error { return domain.ErrNotFound }

// execute commits a complete action. On success the state collapses to Idle.
// A resolution miss reopens the offending field; any other failure clears
// state so the user is never stuck in AwaitingFields after a hard error.
func (e *Engine) execute(ctx context.Context, pending *Pending) (*State, Reply) {
	var (
		conf *Confirmation
		err  error
	)
	switch pending.Kind {
	case action.KindPurchase:
		conf, err = e.executePurchase(ctx, &pending.Fields)
	case action.KindExpense:
		conf, err = e.executeExpense(ctx, &pending.Fields)
	case action.KindUsage:
		conf, err = e.executeUsage(ctx, &pending.Fields)
	case action.KindQuery:
		conf, err = e.executeQuery(ctx, &pending.Fields)
	default:
		return &State{}, notUnderstood()
	}

	if err != nil {
		var miss *unresolved
		if errors.As(err, &miss) {
			pending.Fields.Clear(miss.field)
			pending.Missing = action.MissingOf(pending.Kind, &pending.Fields)
			return &State{Pending: pending}, Reply{
				Kind:    ReplyPrompt,
				Missing: pending.Missing,
				Note:    fmt.Sprintf("No pude identificar %s %q.", action.Label(miss.field), miss.name),
			}
		}
		logger.Warn(ctx, "service.conversation", "action.failed",
			slog.String("action", string(pending.Kind)),
			slog.String("err", err.Error()),
		)
		return &State{}, Reply{Kind: ReplyFailure, Failure: &Failure{Err: err}}
	}

	logger.Info(ctx, "service.conversation", "action.committed",
		slog.String("action", string(pending.Kind)),
	)
	return &State{}, Reply{Kind: ReplyConfirmation, Confirmation: conf}
}

func (e *Engine) resolve(class domain.EntityClass, name string, field action.FieldName) (int64, error) {
	id, err := e.resolver.Resolve(class, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, &unresolved{field: field, name: name}
		}
		return 0, err
	}
	return id, nil
}

// resolveInternal is for reference rows the user never typed (seeded expense
// types). A miss here is a broken catalog, not a user error.
func (e *Engine) resolveInternal(class domain.EntityClass, name string) (int64, error) {
	id, err := e.resolver.Resolve(class, name)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", class, name, domain.ErrInvalidReference)
	}
	return id, nil
}

func (e *Engine) executePurchase(ctx context.Context, f *action.Fields) (*Confirmation, error) {
	productID, err := e.resolve(domain.ClassProduct, f.Product, action.FieldProduct)
	if err != nil {
		return nil, err
	}
	supplierID, err := e.resolve(domain.ClassSupplier, f.Supplier, action.FieldSupplier)
	if err != nil {
		return nil, err
	}
	paymentID, err := e.resolve(domain.ClassPaymentMethod, f.PaymentMethod, action.FieldPaymentMethod)
	if err != nil {
		return nil, err
	}
	typeID, err := e.resolveInternal(domain.ClassExpenseType, "Variable")
	if err != nil {
		return nil, err
	}

	product, ok := e.resolver.Snapshot().Product(productID)
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrInvalidReference)
	}

	id, level, err := e.recorder.RecordExpense(ctx, recorder.ExpenseInput{
		Amount:            f.Cost,
		PaymentMethodID:   paymentID,
		SupplierID:        supplierID,
		ExpenseTypeID:     typeID,
		CategoryID:        product.CategoryID,
		ProductID:         &productID,
		PurchasedQuantity: f.Quantity,
		Notes:             "Compra de " + product.Name,
	})
	if err != nil {
		return nil, err
	}

	return &Confirmation{
		Kind:     action.KindPurchase,
		RecordID: id,
		Product:  product.Name,
		Unit:     product.Unit,
		Level:    level,
		HasLevel: true,
		LowStock: level.LessThanOrEqual(product.MinimumStock),
		Summary: []Summary{
			{Label: action.Label(action.FieldProduct), Value: product.Name},
			{Label: action.Label(action.FieldQuantity), Value: f.Quantity.String() + " " + f.Unit},
			{Label: action.Label(action.FieldCost), Value: "$" + f.Cost.String()},
			{Label: action.Label(action.FieldSupplier), Value: f.Supplier},
			{Label: action.Label(action.FieldPaymentMethod), Value: f.PaymentMethod},
		},
	}, nil
}

func (e *Engine) executeExpense(ctx context.Context, f *action.Fields) (*Confirmation, error) {
	categoryID, err := e.resolve(domain.ClassCategory, f.Category, action.FieldCategory)
	if err != nil {
		return nil, err
	}
	supplierID, err := e.resolve(domain.ClassSupplier, f.Supplier, action.FieldSupplier)
	if err != nil {
		return nil, err
	}
	paymentID, err := e.resolve(domain.ClassPaymentMethod, f.PaymentMethod, action.FieldPaymentMethod)
	if err != nil {
		return nil, err
	}
	typeID, err := e.resolveInternal(domain.ClassExpenseType, "Fijo")
	if err != nil {
		return nil, err
	}

	id, _, err := e.recorder.RecordExpense(ctx, recorder.ExpenseInput{
		Amount:          f.Cost,
		PaymentMethodID: paymentID,
		SupplierID:      supplierID,
		ExpenseTypeID:   typeID,
		CategoryID:      categoryID,
		ItemDescription: f.Category,
		Notes:           "Pago de " + f.Category,
	})
	if err != nil {
		return nil, err
	}

	return &Confirmation{
		Kind:     action.KindExpense,
		RecordID: id,
		Summary: []Summary{
			{Label: action.Label(action.FieldCategory), Value: f.Category},
			{Label: action.Label(action.FieldCost), Value: "$" + f.Cost.String()},
			{Label: action.Label(action.FieldSupplier), Value: f.Supplier},
			{Label: action.Label(action.FieldPaymentMethod), Value: f.PaymentMethod},
		},
	}, nil
}

func (e *Engine) executeUsage(ctx context.Context, f *action.Fields) (*Confirmation, error) {
	productID, err := e.resolve(domain.ClassProduct, f.Product, action.FieldProduct)
	if err != nil {
		return nil, err
	}
	product, ok := e.resolver.Snapshot().Product(productID)
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrInvalidReference)
	}

	id, level, err := e.recorder.RecordUsage(ctx, recorder.UsageInput{
		ProductID: productID,
		Quantity:  f.Quantity,
		Reason:    f.Reason,
	})
	if err != nil {
		return nil, err
	}

	summary := []Summary{
		{Label: action.Label(action.FieldProduct), Value: product.Name},
		{Label: action.Label(action.FieldQuantity), Value: f.Quantity.String() + " " + product.Unit},
	}
	if f.Reason != "" {
		summary = append(summary, Summary{Label: action.Label(action.FieldReason), Value: f.Reason})
	}

	return &Confirmation{
		Kind:     action.KindUsage,
		RecordID: id,
		Product:  product.Name,
		Unit:     product.Unit,
		Level:    level,
		HasLevel: true,
		LowStock: level.LessThanOrEqual(product.MinimumStock),
		Summary:  summary,
	}, nil
}

func (e *Engine) executeQuery(ctx context.Context, f *action.Fields) (*Confirmation, error) {
	productID, err := e.resolve(domain.ClassProduct, f.Product, action.FieldProduct)
	if err != nil {
		return nil, err
	}
	product, ok := e.resolver.Snapshot().Product(productID)
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrInvalidReference)
	}

	lvl, err := e.levels.CurrentLevel(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &Confirmation{
		Kind:     action.KindQuery,
		Product:  product.Name,
		Unit:     product.Unit,
		Level:    lvl.Quantity,
		HasLevel: true,
		LowStock: lvl.Quantity.LessThanOrEqual(product.MinimumStock),
	}, nil
}

func notUnderstood() Reply {
	return Reply{Kind: ReplyFailure, Failure: &Failure{
		Err:     domain.ErrNotFound,
		Message: "No entendí qué operación quieres registrar.",
	}}
}
