// Package catalog is the reference data store: fixed lookup tables for
// expense types, categories, payment methods, suppliers, and products, with
// fuzzy name-to-id resolution tolerant of typos and missing accents.
package catalog

import (
	"context"

	"github.com/ffstudios/pantrybot/internal/domain"
)

// Snapshot is an immutable in-memory copy of the reference tables. Resolution
// never mutates it; catalog growth rebuilds it through the admin path.
type Snapshot struct {
	Entries  map[domain.EntityClass][]domain.RefEntry
	Products []domain.Product
}

// Source loads reference tables from storage.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Product returns the catalog product with the given id.
func (s *Snapshot) Product(id int64) (domain.Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// entries returns the lookup rows for a class. Products are exposed as
// entries too so they resolve through the same path.
func (s *Snapshot) entries(class domain.EntityClass) []domain.RefEntry {
	if class == domain.ClassProduct {
		out := make([]domain.RefEntry, len(s.Products))
		for i, p := range s.Products {
			out[i] = domain.RefEntry{ID: p.ID, Name: p.Name}
		}
		return out
	}
	return s.Entries[class]
}
