package action

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCoerceMissingFields(t *testing.T) {
	cases := []struct {
		name    string
		parse   Parse
		missing []FieldName
	}{
		{
			name: "purchase complete",
			parse: Parse{Kind: KindPurchase, Raw: map[FieldName]string{
				FieldProduct:       "harina",
				FieldQuantity:      "50",
				FieldUnit:          "kg",
				FieldCost:          "45000",
				FieldSupplier:      "Lider",
				FieldPaymentMethod: "Tarjeta de Crédito",
			}},
			missing: nil,
		},
		{
			name: "purchase missing supplier and payment",
			parse: Parse{Kind: KindPurchase, Raw: map[FieldName]string{
				FieldProduct:  "harina",
				FieldQuantity: "50",
				FieldUnit:     "kg",
				FieldCost:     "45000",
			}},
			missing: []FieldName{FieldSupplier, FieldPaymentMethod},
		},
		{
			name: "zero cost counts as absent",
			parse: Parse{Kind: KindExpense, Raw: map[FieldName]string{
				FieldCategory:      "luz",
				FieldCost:          "0",
				FieldSupplier:      "Enel",
				FieldPaymentMethod: "Transferencia",
			}},
			missing: []FieldName{FieldCost},
		},
		{
			name: "usage needs only product and quantity",
			parse: Parse{Kind: KindUsage, Raw: map[FieldName]string{
				FieldProduct: "azúcar",
			}},
			missing: []FieldName{FieldQuantity},
		},
		{
			name:    "query with nothing",
			parse:   Parse{Kind: KindQuery, Raw: map[FieldName]string{}},
			missing: []FieldName{FieldProduct},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, missing := Coerce(tc.parse)
			if !reflect.DeepEqual(missing, tc.missing) {
				t.Fatalf("missing = %v, expected %v", missing, tc.missing)
			}
		})
	}
}

func TestMissingOrderIsDeclaredOrder(t *testing.T) {
	_, missing := Coerce(Parse{Kind: KindPurchase, Raw: map[FieldName]string{
		FieldQuantity: "2",
		FieldSupplier: "Lider",
	}})
	expected := []FieldName{FieldProduct, FieldUnit, FieldCost, FieldPaymentMethod}
	if !reflect.DeepEqual(missing, expected) {
		t.Fatalf("missing = %v, expected declared order %v", missing, expected)
	}
}

func TestMergeFirstWriteWins(t *testing.T) {
	base, _ := Coerce(Parse{Kind: KindPurchase, Raw: map[FieldName]string{
		FieldProduct:  "harina",
		FieldQuantity: "50",
	}})
	supp, _ := Coerce(Parse{Kind: KindPurchase, Raw: map[FieldName]string{
		FieldProduct:  "azucar",
		FieldSupplier: "Lider",
	}})

	filled := base.Merge(supp)
	if len(filled) != 1 || filled[0] != FieldSupplier {
		t.Fatalf("filled = %v, expected only supplier", filled)
	}
	if base.Product != "harina" {
		t.Fatalf("product overwritten to %q, first write must win", base.Product)
	}
	if base.Supplier != "Lider" {
		t.Fatalf("supplier = %q, expected Lider", base.Supplier)
	}
}

func TestClearReopensSlot(t *testing.T) {
	f, _ := Coerce(Parse{Kind: KindUsage, Raw: map[FieldName]string{
		FieldProduct:  "harina",
		FieldQuantity: "2",
	}})
	f.Clear(FieldProduct)
	if f.Has(FieldProduct) || f.Product != "" {
		t.Fatal("cleared slot must count as missing again")
	}
	missing := MissingOf(KindUsage, &f)
	if !reflect.DeepEqual(missing, []FieldName{FieldProduct}) {
		t.Fatalf("missing = %v", missing)
	}
}

func TestCoerceRejectsNonPositiveQuantity(t *testing.T) {
	f, missing := Coerce(Parse{Kind: KindUsage, Raw: map[FieldName]string{
		FieldProduct:  "harina",
		FieldQuantity: "-3",
	}})
	if f.Has(FieldQuantity) {
		t.Fatal("negative quantity must not fill the slot")
	}
	if !reflect.DeepEqual(missing, []FieldName{FieldQuantity}) {
		t.Fatalf("missing = %v", missing)
	}
}

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{
		"$45.000": "45000",
		"45,000":  "45000",
		"1.790":   "1790",
		"2,5":     "2.5",
		"12.75":   "12.75",
		"120":     "120",
	}
	for raw, want := range cases {
		got := normalizeNumber(raw)
		if got != want {
			t.Errorf("normalizeNumber(%q) = %q, expected %q", raw, got, want)
			continue
		}
		if _, err := decimal.NewFromString(got); err != nil {
			t.Errorf("normalizeNumber(%q) = %q is not decimal: %v", raw, got, err)
		}
	}
}
