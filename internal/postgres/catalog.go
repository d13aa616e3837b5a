package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/catalog"
	"github.com/ffstudios/pantrybot/internal/domain"
)

var _ catalog.Source = (*CatalogStore)(nil)

// refClasses are the plain id/name lookup tables. Table names come from this
// fixed list, never from input.
var refClasses = []domain.EntityClass{
	domain.ClassExpenseType,
	domain.ClassCategory,
	domain.ClassPaymentMethod,
	domain.ClassSupplier,
}

// CatalogStore loads reference snapshots and handles the admin-side inserts.
type CatalogStore struct {
	db *sqlx.DB
}

// NewCatalogStore builds the store over the pool.
func NewCatalogStore(db *sqlx.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Load implements catalog.Source: one consistent snapshot of every lookup
// table plus the product catalog.
func (s *CatalogStore) Load(ctx context.Context) (*catalog.Snapshot, error) {
	snap := &catalog.Snapshot{
		Entries: make(map[domain.EntityClass][]domain.RefEntry, len(refClasses)),
	}
	for _, class := range refClasses {
		query := fmt.Sprintf(`SELECT id, name FROM %s ORDER BY id`, class)
		var entries []domain.RefEntry
		if err := sqlx.SelectContext(ctx, s.db, &entries, query); err != nil {
			return nil, fmt.Errorf("load %s: %w", class, err)
		}
		snap.Entries[class] = entries
	}

	const query = `
		SELECT id, name, unit, minimum_stock, category_id
		FROM products ORDER BY id`
	if err := sqlx.SelectContext(ctx, s.db, &snap.Products, query); err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return snap, nil
}

// InsertSupplier adds a supplier and returns its id. Duplicate names return
// the existing row, so the admin command is idempotent.
func (s *CatalogStore) InsertSupplier(ctx context.Context, name string) (int64, error) {
	const query = `
		INSERT INTO suppliers (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`
	var id int64
	if err := sqlx.GetContext(ctx, s.db, &id, query, name); err != nil {
		return 0, fmt.Errorf("insert supplier: %w", err)
	}
	return id, nil
}

// InsertProduct adds a product to the catalog and returns its id.
func (s *CatalogStore) InsertProduct(ctx context.Context, name, unit string, minimumStock decimal.Decimal, categoryID int64) (int64, error) {
	const query = `
		INSERT INTO products (name, unit, minimum_stock, category_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET unit = EXCLUDED.unit
		RETURNING id`
	var id int64
	if err := sqlx.GetContext(ctx, s.db, &id, query, name, unit, minimumStock, categoryID); err != nil {
		if isFKViolation(err) {
			return 0, fmt.Errorf("category %d: %w", categoryID, domain.ErrInvalidReference)
		}
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}
