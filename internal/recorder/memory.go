package recorder

import (
	"context"
	"sync"

	"github.com/ffstudios/pantrybot/internal/domain"
	"github.com/ffstudios/pantrybot/internal/ledger"
)

// MemoryExpenseStore keeps expense rows in memory, for tests and development.
type MemoryExpenseStore struct {
	mu   sync.Mutex
	rows []domain.Expense
}

// Insert implements ExpenseStore.
func (s *MemoryExpenseStore) Insert(_ context.Context, e domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, e)
	return nil
}

// All returns a copy of the stored rows.
func (s *MemoryExpenseStore) All() []domain.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Expense(nil), s.rows...)
}

// MemoryUsageStore keeps usage event rows in memory.
type MemoryUsageStore struct {
	mu   sync.Mutex
	rows []domain.UsageEvent
}

// Insert implements UsageStore.
func (s *MemoryUsageStore) Insert(_ context.Context, u domain.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, u)
	return nil
}

// All returns a copy of the stored rows.
func (s *MemoryUsageStore) All() []domain.UsageEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UsageEvent(nil), s.rows...)
}

// MemoryTxRunner emulates the all-or-nothing transaction boundary over the
// memory stores: it snapshots state before the callback and restores it when
// the callback fails. Transactions are serialized by a single mutex.
type MemoryTxRunner struct {
	mu       sync.Mutex
	Expenses *MemoryExpenseStore
	Usage    *MemoryUsageStore
	Ledger   ledger.Store
}

// NewMemoryTxRunner wires memory stores around the given ledger store.
func NewMemoryTxRunner(ledgerStore ledger.Store) *MemoryTxRunner {
	return &MemoryTxRunner{
		Expenses: &MemoryExpenseStore{},
		Usage:    &MemoryUsageStore{},
		Ledger:   ledgerStore,
	}
}

// Run implements TxRunner.
func (r *MemoryTxRunner) Run(_ context.Context, fn func(tx Stores) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	expSnap := append([]domain.Expense(nil), r.Expenses.rows...)
	useSnap := append([]domain.UsageEvent(nil), r.Usage.rows...)
	var lvlSnap map[int64]domain.StockLevel
	mem, hasMemLedger := r.Ledger.(*ledger.MemoryStore)
	if hasMemLedger {
		lvlSnap = mem.Snapshot()
	}

	if err := fn(Stores{Expenses: r.Expenses, Usage: r.Usage, Ledger: r.Ledger}); err != nil {
		r.Expenses.rows = expSnap
		r.Usage.rows = useSnap
		if hasMemLedger {
			mem.Restore(lvlSnap)
		}
		return err
	}
	return nil
}
