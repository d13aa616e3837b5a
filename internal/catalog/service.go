package catalog

import (
	"context"
	"fmt"
	"sync"

	"log/slog"

	"github.com/ffstudios/pantrybot/core/logger"
	"github.com/ffstudios/pantrybot/internal/domain"
)

// Service is the live catalog: a resolver over the latest snapshot, with
// Reload swapping in a fresh one after admin-side inserts. Reads take the
// read lock only, so resolution stays cheap under concurrent users.
type Service struct {
	source    Source
	threshold float64

	mu       sync.RWMutex
	resolver *Resolver
}

// NewService loads the initial snapshot and builds the live catalog.
func NewService(ctx context.Context, source Source, threshold float64) (*Service, error) {
	s := &Service{source: source, threshold: threshold}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload fetches a fresh snapshot and swaps it in atomically.
func (s *Service) Reload(ctx context.Context) error {
	snap, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("catalog reload: %w", err)
	}
	s.mu.Lock()
	s.resolver = NewResolver(snap, s.threshold)
	s.mu.Unlock()

	logger.Debug(ctx, "service.catalog", "snapshot.loaded",
		slog.Int("count", len(snap.Products)),
		slog.String("cache", "refresh"),
	)
	return nil
}

// Resolve maps a free-text name to an id against the current snapshot.
func (s *Service) Resolve(class domain.EntityClass, name string) (int64, error) {
	s.mu.RLock()
	r := s.resolver
	s.mu.RUnlock()
	return r.Resolve(class, name)
}

// Snapshot returns the current reference snapshot.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver.Snapshot()
}
