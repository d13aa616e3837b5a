// Package action models the user's intended operation as a typed structure
// with a fixed required-field schema per kind. Coercion is pure and
// deterministic; it is used for the initial parse and for every supplement
// merged into a pending action.
package action

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies the operation the user asked for.
type Kind string

const (
	KindUnknown  Kind = "unknown"
	KindPurchase Kind = "purchase"
	KindExpense  Kind = "expense"
	KindUsage    Kind = "usage"
	KindQuery    Kind = "query"
)

// FieldName identifies one slot of an action.
type FieldName string

const (
	FieldProduct       FieldName = "product"
	FieldQuantity      FieldName = "quantity"
	FieldUnit          FieldName = "unit"
	FieldCost          FieldName = "cost"
	FieldSupplier      FieldName = "supplier"
	FieldPaymentMethod FieldName = "payment_method"
	FieldCategory      FieldName = "category"
	FieldReason        FieldName = "reason"
)

var fieldBits = map[FieldName]uint16{
	FieldProduct:       1 << 0,
	FieldQuantity:      1 << 1,
	FieldUnit:          1 << 2,
	FieldCost:          1 << 3,
	FieldSupplier:      1 << 4,
	FieldPaymentMethod: 1 << 5,
	FieldCategory:      1 << 6,
	FieldReason:        1 << 7,
}

var requiredByKind = map[Kind][]FieldName{
	KindPurchase: {FieldProduct, FieldQuantity, FieldUnit, FieldCost, FieldSupplier, FieldPaymentMethod},
	KindExpense:  {FieldCategory, FieldCost, FieldSupplier, FieldPaymentMethod},
	KindUsage:    {FieldProduct, FieldQuantity},
	KindQuery:    {FieldProduct},
}

var labels = map[FieldName]string{
	FieldProduct:       "nombre del producto",
	FieldQuantity:      "cantidad",
	FieldUnit:          "unidad de medida",
	FieldCost:          "precio",
	FieldSupplier:      "proveedor",
	FieldPaymentMethod: "medio de pago",
	FieldCategory:      "categoría del gasto",
	FieldReason:        "motivo",
}

// Required returns the declared required fields for a kind, in prompt order.
func Required(kind Kind) []FieldName {
	return requiredByKind[kind]
}

// Label maps a field name to its human-readable Spanish label.
func Label(f FieldName) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Parse is the structured result produced by the external NLP collaborator.
// Raw values are untyped text; Coerce turns them into typed Fields.
type Parse struct {
	Kind       Kind
	Raw        map[FieldName]string
	Confidence float64
	Original   string
}

// Fields is the closed, typed slot set of one action. Slots are tracked with
// a presence mask so "missing" and "filled" are explicit states rather than
// zero-value guesses.
type Fields struct {
	Product       string
	Quantity      decimal.Decimal
	Unit          string
	Cost          decimal.Decimal
	Supplier      string
	PaymentMethod string
	Category      string
	Reason        string

	mask uint16
}

// Has reports whether the slot has been filled.
func (f *Fields) Has(name FieldName) bool {
	return f.mask&fieldBits[name] != 0
}

func (f *Fields) mark(name FieldName) {
	f.mask |= fieldBits[name]
}

// set fills one slot from raw text. It reports false when the value is blank
// or fails type coercion, leaving the slot untouched.
func (f *Fields) set(name FieldName, raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	switch name {
	case FieldProduct:
		f.Product = raw
	case FieldUnit:
		f.Unit = raw
	case FieldSupplier:
		f.Supplier = raw
	case FieldPaymentMethod:
		f.PaymentMethod = raw
	case FieldCategory:
		f.Category = raw
	case FieldReason:
		f.Reason = raw
	case FieldQuantity:
		q, err := decimal.NewFromString(normalizeNumber(raw))
		if err != nil || q.Sign() <= 0 {
			return false
		}
		f.Quantity = q
	case FieldCost:
		c, err := decimal.NewFromString(normalizeNumber(raw))
		// A zero cost is treated as absent: the classifier emits 0 when the
		// user never mentioned a price.
		if err != nil || c.Sign() <= 0 {
			return false
		}
		f.Cost = c
	default:
		return false
	}
	f.mark(name)
	return true
}

// Clear unsets a slot so it counts as missing again. Used when a filled
// value turns out not to resolve against the catalog.
func (f *Fields) Clear(name FieldName) {
	f.mask &^= fieldBits[name]
	switch name {
	case FieldProduct:
		f.Product = ""
	case FieldQuantity:
		f.Quantity = decimal.Zero
	case FieldUnit:
		f.Unit = ""
	case FieldCost:
		f.Cost = decimal.Zero
	case FieldSupplier:
		f.Supplier = ""
	case FieldPaymentMethod:
		f.PaymentMethod = ""
	case FieldCategory:
		f.Category = ""
	case FieldReason:
		f.Reason = ""
	}
}

// Merge copies every slot filled in supp into f unless f already has it.
// First write wins within a single pending action. It returns the names of
// the slots that were newly filled.
func (f *Fields) Merge(supp Fields) []FieldName {
	var filled []FieldName
	for name, bit := range fieldBits {
		if supp.mask&bit == 0 || f.mask&bit != 0 {
			continue
		}
		switch name {
		case FieldProduct:
			f.Product = supp.Product
		case FieldQuantity:
			f.Quantity = supp.Quantity
		case FieldUnit:
			f.Unit = supp.Unit
		case FieldCost:
			f.Cost = supp.Cost
		case FieldSupplier:
			f.Supplier = supp.Supplier
		case FieldPaymentMethod:
			f.PaymentMethod = supp.PaymentMethod
		case FieldCategory:
			f.Category = supp.Category
		case FieldReason:
			f.Reason = supp.Reason
		}
		f.mark(name)
		filled = append(filled, name)
	}
	return filled
}

// Coerce converts a parse into typed fields and reports which required
// fields of the parse's kind are still missing, in declared order. Optional
// slots present in the parse (for example a usage reason) are ingested too.
func Coerce(p Parse) (Fields, []FieldName) {
	var f Fields
	for name, raw := range p.Raw {
		f.set(name, raw)
	}
	return f, MissingOf(p.Kind, &f)
}

// MissingOf lists the required fields of kind not yet filled in f, in
// declared order.
func MissingOf(kind Kind, f *Fields) []FieldName {
	var missing []FieldName
	for _, name := range requiredByKind[kind] {
		if !f.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// normalizeNumber strips currency symbols and thousands separators the
// classifier occasionally leaves in ("$45.000", "45,000").
func normalizeNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, " ", "")
	// "45.000" and "45,000" are thousand-grouped integers in the source
	// locale; a trailing group of exactly three digits after a single
	// separator is treated as grouping, not decimals.
	for _, sep := range []string{".", ","} {
		if idx := strings.LastIndex(raw, sep); idx >= 0 && len(raw)-idx == 4 && strings.Count(raw, sep) >= 1 {
			raw = strings.ReplaceAll(raw, sep, "")
			return raw
		}
	}
	return strings.ReplaceAll(raw, ",", ".")
}
