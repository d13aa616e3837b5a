// Package ledger maintains the derived stock quantity per product. Every
// movement is either inbound (purchase) or outbound (usage); the current
// level is always the signed sum of the movements applied so far.
//
// Outbound movements are allowed to drive a level negative: there is no
// floor check at write time, so late corrections can be entered in any
// order. Read-modify-write is serialized per product by each store.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/domain"
)

// Store applies movements and reads levels. Implementations guarantee
// per-product atomicity of the read-modify-write cycle.
type Store interface {
	// ApplyInbound adds qty to the product's level, seeding the row at qty
	// when it does not exist yet. Returns the new level.
	// Unknown product ids fail with domain.ErrInvalidReference.
	ApplyInbound(ctx context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error)

	// ApplyOutbound subtracts qty from an existing level and returns the new
	// level. Fails with domain.ErrUnknownProduct when no row exists; no row
	// is created.
	ApplyOutbound(ctx context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error)

	// CurrentLevel reads the level row, failing with domain.ErrUnknownProduct
	// when the product has never had an inbound movement.
	CurrentLevel(ctx context.Context, productID int64) (domain.StockLevel, error)
}

// CheckQuantity validates a movement quantity. Both movement kinds require a
// strictly positive quantity.
func CheckQuantity(qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return fmt.Errorf("quantity %s must be positive: %w", qty, domain.ErrValidationFailed)
	}
	return nil
}
