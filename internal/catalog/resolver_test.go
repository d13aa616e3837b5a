package catalog

import (
	"errors"
	"testing"

	"github.com/ffstudios/pantrybot/internal/domain"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Entries: map[domain.EntityClass][]domain.RefEntry{
			domain.ClassSupplier: {
				{ID: 1, Name: "Lider"},
				{ID: 2, Name: "Santa Isabel"},
			},
			domain.ClassPaymentMethod: {
				{ID: 1, Name: "Efectivo"},
				{ID: 2, Name: "Transferencia"},
				{ID: 3, Name: "Tarjeta de Débito"},
				{ID: 4, Name: "Tarjeta de Crédito"},
			},
		},
		Products: []domain.Product{
			{ID: 1, Name: "Harina", Unit: "kg"},
			{ID: 2, Name: "Azúcar", Unit: "kg"},
			{ID: 3, Name: "Aceite", Unit: "lt"},
		},
	}
}

func TestResolveExactAndDiacriticInsensitive(t *testing.T) {
	r := NewResolver(testSnapshot(), 0)

	cases := []struct {
		class domain.EntityClass
		name  string
		id    int64
	}{
		{domain.ClassProduct, "Azúcar", 2},
		{domain.ClassProduct, "azucar", 2},
		{domain.ClassProduct, "AZUCAR", 2},
		{domain.ClassProduct, "harina", 1},
		{domain.ClassSupplier, "lider", 1},
		{domain.ClassPaymentMethod, "tarjeta de credito", 4},
	}
	for _, tc := range cases {
		id, err := r.Resolve(tc.class, tc.name)
		if err != nil {
			t.Errorf("Resolve(%s, %q): %v", tc.class, tc.name, err)
			continue
		}
		if id != tc.id {
			t.Errorf("Resolve(%s, %q) = %d, expected %d", tc.class, tc.name, id, tc.id)
		}
	}
}

func TestResolveToleratesTypos(t *testing.T) {
	r := NewResolver(testSnapshot(), 0)

	id, err := r.Resolve(domain.ClassProduct, "asucar")
	if err != nil {
		t.Fatalf("one-letter typo must resolve: %v", err)
	}
	if id != 2 {
		t.Fatalf("Resolve(asucar) = %d, expected 2", id)
	}
}

func TestResolveBelowThresholdFails(t *testing.T) {
	r := NewResolver(testSnapshot(), 0)

	for _, name := range []string{"detergente", "", "   "} {
		if _, err := r.Resolve(domain.ClassProduct, name); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Resolve(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestResolveExactBeatsCloserFuzzy(t *testing.T) {
	snap := &Snapshot{
		Entries: map[domain.EntityClass][]domain.RefEntry{
			domain.ClassSupplier: {
				{ID: 1, Name: "Cafes"},
				{ID: 2, Name: "Cafe"},
			},
		},
	}
	r := NewResolver(snap, 0)

	id, err := r.Resolve(domain.ClassSupplier, "café")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 2 {
		t.Fatalf("Resolve(café) = %d, exact match must win over closer fuzzy", id)
	}
}

func TestResolveTieBreaksOnLowestID(t *testing.T) {
	snap := &Snapshot{
		Entries: map[domain.EntityClass][]domain.RefEntry{
			domain.ClassSupplier: {
				{ID: 4, Name: "cafes"},
				{ID: 2, Name: "cafet"},
			},
		},
	}
	r := NewResolver(snap, 0)

	// Both candidates are one edit away with the same length and score.
	id, err := r.Resolve(domain.ClassSupplier, "cafe")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 2 {
		t.Fatalf("Resolve(cafe) = %d, lowest id must win the tie", id)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Azúcar":            "azucar",
		"  Santa   Isabel ": "santa isabel",
		"Café":              "cafe",
		"ÑOQUI":             "noqui",
		"Tarjeta de Débito": "tarjeta de debito",
		"$%&":               "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		d    int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"harina", "harina", 0},
		{"harina", "harena", 1},
		{"azucar", "asucar", 1},
		{"kitten", "sitting", 3},
	}
	for _, tc := range cases {
		if got := editDistance(tc.a, tc.b); got != tc.d {
			t.Errorf("editDistance(%q, %q) = %d, expected %d", tc.a, tc.b, got, tc.d)
		}
	}
}
