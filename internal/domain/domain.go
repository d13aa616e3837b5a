// Package domain declares the persisted entities and error kinds shared by
// the catalog, ledger, and recorder layers.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityClass names a reference lookup table used for name resolution.
type EntityClass string

const (
	ClassExpenseType   EntityClass = "expense_types"
	ClassCategory      EntityClass = "categories"
	ClassPaymentMethod EntityClass = "payment_methods"
	ClassSupplier      EntityClass = "suppliers"
	ClassProduct       EntityClass = "products"
)

// RefEntry is a single row of a reference lookup table.
type RefEntry struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Product is a catalog entry for a stocked good. Rows are immutable after
// creation except for threshold/category edits through the admin path.
type Product struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	Unit         string          `db:"unit"`
	MinimumStock decimal.Decimal `db:"minimum_stock"`
	CategoryID   int64           `db:"category_id"`
}

// StockLevel is the derived current quantity for one product. The quantity
// always equals the signed sum of all movements applied for the product.
type StockLevel struct {
	ProductID int64           `db:"product_id"`
	Quantity  decimal.Decimal `db:"quantity"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Expense is an immutable financial event. Product and PurchasedQuantity are
// set together when the purchase feeds inventory; ItemDescription carries the
// free-text item when no catalog product applies.
type Expense struct {
	ID                uuid.UUID           `db:"id"`
	PurchasedAt       time.Time           `db:"purchased_at"`
	Amount            decimal.Decimal     `db:"amount"`
	PaymentMethodID   int64               `db:"payment_method_id"`
	SupplierID        int64               `db:"supplier_id"`
	ExpenseTypeID     int64               `db:"expense_type_id"`
	CategoryID        int64               `db:"category_id"`
	ProductID         *int64              `db:"product_id"`
	PurchasedQuantity decimal.NullDecimal `db:"purchased_quantity"`
	ItemDescription   string              `db:"item_description"`
	Notes             string              `db:"notes"`
}

// UsageEvent is an immutable record of inventory consumption.
type UsageEvent struct {
	ID         uuid.UUID       `db:"id"`
	OccurredAt time.Time       `db:"occurred_at"`
	ProductID  int64           `db:"product_id"`
	Quantity   decimal.Decimal `db:"quantity"`
	Reason     string          `db:"reason"`
}
