package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/domain"
)

// MemoryStore is an in-memory Store for tests and development. A single
// mutex serializes all read-modify-write cycles, which trivially satisfies
// the per-product requirement.
type MemoryStore struct {
	mu       sync.Mutex
	products map[int64]struct{}
	levels   map[int64]domain.StockLevel
}

// NewMemoryStore builds a store that accepts inbound movements for the given
// product ids only.
func NewMemoryStore(productIDs ...int64) *MemoryStore {
	known := make(map[int64]struct{}, len(productIDs))
	for _, id := range productIDs {
		known[id] = struct{}{}
	}
	return &MemoryStore{
		products: known,
		levels:   make(map[int64]domain.StockLevel),
	}
}

// AddProduct registers a product id as known.
func (s *MemoryStore) AddProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = struct{}{}
}

// ApplyInbound implements Store.
func (s *MemoryStore) ApplyInbound(_ context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckQuantity(qty); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return decimal.Zero, fmt.Errorf("product %d: %w", productID, domain.ErrInvalidReference)
	}
	lvl, ok := s.levels[productID]
	if !ok {
		lvl = domain.StockLevel{ProductID: productID}
	}
	lvl.Quantity = lvl.Quantity.Add(qty)
	lvl.UpdatedAt = time.Now().UTC()
	s.levels[productID] = lvl
	return lvl.Quantity, nil
}

// ApplyOutbound implements Store.
func (s *MemoryStore) ApplyOutbound(_ context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckQuantity(qty); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lvl, ok := s.levels[productID]
	if !ok {
		return decimal.Zero, fmt.Errorf("product %d has no stock row: %w", productID, domain.ErrUnknownProduct)
	}
	lvl.Quantity = lvl.Quantity.Sub(qty)
	lvl.UpdatedAt = time.Now().UTC()
	s.levels[productID] = lvl
	return lvl.Quantity, nil
}

// CurrentLevel implements Store.
func (s *MemoryStore) CurrentLevel(_ context.Context, productID int64) (domain.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lvl, ok := s.levels[productID]
	if !ok {
		return domain.StockLevel{}, fmt.Errorf("product %d has no stock row: %w", productID, domain.ErrUnknownProduct)
	}
	return lvl, nil
}

// Levels returns a copy of all level rows, for reports and tests.
func (s *MemoryStore) Levels() []domain.StockLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StockLevel, 0, len(s.levels))
	for _, lvl := range s.levels {
		out = append(out, lvl)
	}
	return out
}

// Snapshot copies all level rows so a caller can roll the store back.
// Used by the memory transaction runner.
func (s *MemoryStore) Snapshot() map[int64]domain.StockLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[int64]domain.StockLevel, len(s.levels))
	for k, v := range s.levels {
		cp[k] = v
	}
	return cp
}

// Restore replaces all level rows with a previously taken Snapshot.
func (s *MemoryStore) Restore(levels map[int64]domain.StockLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = levels
}
