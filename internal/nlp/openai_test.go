package nlp

import (
	"testing"

	"github.com/ffstudios/pantrybot/internal/action"
)

func TestDecodeParsePlainJSON(t *testing.T) {
	content := `{
  "action": "purchase",
  "fields": {
    "product": "harina",
    "quantity": "50",
    "unit": "kg",
    "cost": "45000",
    "supplier": null,
    "payment_method": null
  },
  "confidence": 0.92
}`
	parse, err := DecodeParse(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parse.Kind != action.KindPurchase {
		t.Fatalf("kind = %s, expected purchase", parse.Kind)
	}
	if parse.Confidence != 0.92 {
		t.Fatalf("confidence = %v", parse.Confidence)
	}
	if parse.Raw[action.FieldProduct] != "harina" || parse.Raw[action.FieldQuantity] != "50" {
		t.Fatalf("raw = %v", parse.Raw)
	}
	if _, ok := parse.Raw[action.FieldSupplier]; ok {
		t.Fatal("null fields must be skipped")
	}
}

func TestDecodeParseInsideCodeFence(t *testing.T) {
	content := "```json\n{\"action\": \"usage\", \"fields\": {\"product\": \"azúcar\", \"quantity\": \"2\"}, \"confidence\": 0.8}\n```"
	parse, err := DecodeParse(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parse.Kind != action.KindUsage || parse.Raw[action.FieldProduct] != "azúcar" {
		t.Fatalf("parse = %+v", parse)
	}
}

func TestDecodeParseGarbledContentIsUnknown(t *testing.T) {
	for _, content := range []string{
		"lo siento, no puedo ayudarte con eso",
		"{not json at all",
		"",
	} {
		parse, err := DecodeParse(content)
		if err != nil {
			t.Fatalf("DecodeParse(%q): %v", content, err)
		}
		if parse.Kind != action.KindUnknown {
			t.Errorf("DecodeParse(%q).Kind = %s, expected unknown", content, parse.Kind)
		}
	}
}

func TestDecodeParseRejectsUnlistedAction(t *testing.T) {
	parse, err := DecodeParse(`{"action": "delete_everything", "fields": {}, "confidence": 0.9}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parse.Kind != action.KindUnknown {
		t.Fatalf("kind = %s, unlisted action must fold to unknown", parse.Kind)
	}
}

func TestDecodeParseSkipsEmptyAndLiteralNullValues(t *testing.T) {
	parse, err := DecodeParse(`{"action": "expense", "fields": {"category": "luz", "supplier": "  ", "payment_method": "null"}, "confidence": 0.7}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(parse.Raw) != 1 || parse.Raw[action.FieldCategory] != "luz" {
		t.Fatalf("raw = %v, expected only category", parse.Raw)
	}
}
