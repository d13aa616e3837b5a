package app

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ffstudios/pantrybot/internal/action"
	"github.com/ffstudios/pantrybot/internal/conversation"
	"github.com/ffstudios/pantrybot/internal/domain"
)

func TestRenderPromptJoinsLabelsWithY(t *testing.T) {
	cases := []struct {
		missing []action.FieldName
		want    string
	}{
		{
			missing: []action.FieldName{action.FieldSupplier},
			want:    "Por favor indícame: proveedor",
		},
		{
			missing: []action.FieldName{action.FieldSupplier, action.FieldPaymentMethod},
			want:    "Por favor indícame: proveedor y medio de pago",
		},
		{
			missing: []action.FieldName{action.FieldQuantity, action.FieldCost, action.FieldPaymentMethod},
			want:    "Por favor indícame: cantidad, precio y medio de pago",
		},
	}
	for _, tc := range cases {
		got := renderReply(conversation.Reply{Kind: conversation.ReplyPrompt, Missing: tc.missing})
		if got != tc.want {
			t.Errorf("prompt for %v = %q, expected %q", tc.missing, got, tc.want)
		}
	}
}

func TestRenderPromptPrependsNote(t *testing.T) {
	got := renderReply(conversation.Reply{
		Kind:    conversation.ReplyPrompt,
		Missing: []action.FieldName{action.FieldSupplier},
		Note:    `No pude identificar proveedor "xyz".`,
	})
	want := "No pude identificar proveedor \"xyz\".\nPor favor indícame: proveedor"
	if got != want {
		t.Errorf("got %q, expected %q", got, want)
	}
}

func TestRenderPurchaseConfirmation(t *testing.T) {
	got := renderReply(conversation.Reply{
		Kind: conversation.ReplyConfirmation,
		Confirmation: &conversation.Confirmation{
			Kind:     action.KindPurchase,
			Product:  "Harina",
			Unit:     "kg",
			Level:    decimal.NewFromInt(50),
			HasLevel: true,
			Summary: []conversation.Summary{
				{Label: "nombre del producto", Value: "Harina"},
				{Label: "cantidad", Value: "50 kg"},
			},
		},
	})
	for _, fragment := range []string{
		"✅ Compra registrada.",
		"• Nombre del producto: Harina",
		"• Cantidad: 50 kg",
		"📦 Stock de Harina: 50 kg",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("confirmation %q missing fragment %q", got, fragment)
		}
	}
	if strings.Contains(got, "⚠️") {
		t.Errorf("confirmation %q must not warn when stock is healthy", got)
	}
}

func TestRenderLowStockWarning(t *testing.T) {
	got := renderReply(conversation.Reply{
		Kind: conversation.ReplyConfirmation,
		Confirmation: &conversation.Confirmation{
			Kind:     action.KindUsage,
			Product:  "Azúcar",
			Unit:     "kg",
			Level:    decimal.NewFromInt(2),
			HasLevel: true,
			LowStock: true,
		},
	})
	if !strings.Contains(got, "⚠️ Stock bajo el mínimo.") {
		t.Errorf("got %q, expected low stock warning", got)
	}
}

func TestRenderQueryShowsOnlyStockLine(t *testing.T) {
	got := renderReply(conversation.Reply{
		Kind: conversation.ReplyConfirmation,
		Confirmation: &conversation.Confirmation{
			Kind:     action.KindQuery,
			Product:  "Harina",
			Unit:     "kg",
			Level:    decimal.RequireFromString("12.5"),
			HasLevel: true,
		},
	})
	if got != "📦 Stock de Harina: 12.5 kg" {
		t.Errorf("got %q", got)
	}
}

func TestRenderFailureMessages(t *testing.T) {
	cases := []struct {
		failure *conversation.Failure
		want    string
	}{
		{
			failure: &conversation.Failure{Err: domain.ErrUnknownProduct},
			want:    "no tiene movimientos de inventario",
		},
		{
			failure: &conversation.Failure{Err: domain.ErrValidationFailed},
			want:    "no son válidos",
		},
		{
			failure: &conversation.Failure{Err: domain.ErrRecordingFailed},
			want:    "No se escribió nada",
		},
		{
			failure: &conversation.Failure{Err: domain.ErrNotFound, Message: "No entendí qué operación quieres registrar."},
			want:    "No entendí",
		},
	}
	for _, tc := range cases {
		got := renderReply(conversation.Reply{Kind: conversation.ReplyFailure, Failure: tc.failure})
		if !strings.Contains(got, tc.want) {
			t.Errorf("failure %v rendered %q, expected to contain %q", tc.failure.Err, got, tc.want)
		}
	}
}
