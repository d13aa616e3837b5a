package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLevelIsSignedSumOfMovements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1)

	movements := []struct {
		inbound bool
		qty     string
	}{
		{true, "10"},
		{true, "2.5"},
		{false, "4"},
		{true, "1"},
		{false, "0.5"},
	}

	expected := decimal.Zero
	for _, m := range movements {
		if m.inbound {
			expected = expected.Add(dec(m.qty))
			if _, err := store.ApplyInbound(ctx, 1, dec(m.qty)); err != nil {
				t.Fatalf("inbound %s: %v", m.qty, err)
			}
		} else {
			expected = expected.Sub(dec(m.qty))
			if _, err := store.ApplyOutbound(ctx, 1, dec(m.qty)); err != nil {
				t.Fatalf("outbound %s: %v", m.qty, err)
			}
		}
	}

	lvl, err := store.CurrentLevel(ctx, 1)
	if err != nil {
		t.Fatalf("current level: %v", err)
	}
	if !lvl.Quantity.Equal(expected) {
		t.Fatalf("level = %s, expected %s", lvl.Quantity, expected)
	}
}

func TestConcurrentInboundMovementsBothApply(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(7)

	var wg sync.WaitGroup
	for _, qty := range []string{"10", "20"} {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			if _, err := store.ApplyInbound(ctx, 7, dec(q)); err != nil {
				t.Errorf("inbound %s: %v", q, err)
			}
		}(qty)
	}
	wg.Wait()

	lvl, err := store.CurrentLevel(ctx, 7)
	if err != nil {
		t.Fatalf("current level: %v", err)
	}
	if !lvl.Quantity.Equal(dec("30")) {
		t.Fatalf("level = %s, expected 30", lvl.Quantity)
	}
}

func TestOutboundMayGoNegative(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1)
	if _, err := store.ApplyInbound(ctx, 1, dec("3")); err != nil {
		t.Fatalf("inbound: %v", err)
	}

	lvl, err := store.ApplyOutbound(ctx, 1, dec("5"))
	if err != nil {
		t.Fatalf("outbound beyond stock must succeed, got %v", err)
	}
	if !lvl.Equal(dec("-2")) {
		t.Fatalf("level = %s, expected -2", lvl)
	}
}

func TestOutboundWithoutRowFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1)

	_, err := store.ApplyOutbound(ctx, 1, dec("1"))
	if !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
	if _, err := store.CurrentLevel(ctx, 1); !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatal("failed outbound must not create a stock row")
	}
}

func TestInboundUnknownProductFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.ApplyInbound(ctx, 99, dec("1"))
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestCheckQuantityRejectsNonPositive(t *testing.T) {
	for _, q := range []string{"0", "-1"} {
		if err := CheckQuantity(dec(q)); !errors.Is(err, domain.ErrValidationFailed) {
			t.Errorf("CheckQuantity(%s): expected ErrValidationFailed, got %v", q, err)
		}
	}
	if err := CheckQuantity(dec("0.01")); err != nil {
		t.Errorf("CheckQuantity(0.01): %v", err)
	}
}
