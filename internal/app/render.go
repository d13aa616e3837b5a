package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ffstudios/pantrybot/internal/action"
	"github.com/ffstudios/pantrybot/internal/conversation"
	"github.com/ffstudios/pantrybot/internal/domain"
)

// renderReply turns an engine reply into the Spanish message sent to the chat.
func renderReply(r conversation.Reply) string {
	switch r.Kind {
	case conversation.ReplyPrompt:
		return renderPrompt(r)
	case conversation.ReplyConfirmation:
		return renderConfirmation(r.Confirmation)
	default:
		return renderFailure(r.Failure)
	}
}

// renderPrompt lists the missing field labels joined with "y".
func renderPrompt(r conversation.Reply) string {
	labels := make([]string, len(r.Missing))
	for i, f := range r.Missing {
		labels[i] = action.Label(f)
	}

	var prompt string
	switch len(labels) {
	case 0:
		prompt = "Por favor dame más detalles."
	case 1:
		prompt = "Por favor indícame: " + labels[0]
	default:
		prompt = "Por favor indícame: " + strings.Join(labels[:len(labels)-1], ", ") + " y " + labels[len(labels)-1]
	}

	if r.Note != "" {
		return r.Note + "\n" + prompt
	}
	return prompt
}

func renderConfirmation(c *conversation.Confirmation) string {
	if c == nil {
		return "Listo."
	}

	var b strings.Builder
	switch c.Kind {
	case action.KindPurchase:
		b.WriteString("✅ Compra registrada.\n")
	case action.KindExpense:
		b.WriteString("✅ Gasto registrado.\n")
	case action.KindUsage:
		b.WriteString("✅ Salida de inventario registrada.\n")
	case action.KindQuery:
		fmt.Fprintf(&b, "📦 Stock de %s: %s %s", c.Product, c.Level.String(), c.Unit)
		if c.LowStock {
			b.WriteString("\n⚠️ Stock bajo el mínimo.")
		}
		return b.String()
	}

	for _, s := range c.Summary {
		fmt.Fprintf(&b, "• %s: %s\n", capitalize(s.Label), s.Value)
	}
	if c.HasLevel {
		fmt.Fprintf(&b, "📦 Stock de %s: %s %s", c.Product, c.Level.String(), c.Unit)
		if c.LowStock {
			b.WriteString("\n⚠️ Stock bajo el mínimo.")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderFailure(f *conversation.Failure) string {
	if f == nil {
		return "Algo salió mal. Intenta de nuevo."
	}
	if f.Message != "" {
		return f.Message
	}
	switch {
	case errors.Is(f.Err, domain.ErrUnknownProduct):
		return "Ese producto no tiene movimientos de inventario todavía; registra primero una compra."
	case errors.Is(f.Err, domain.ErrValidationFailed):
		return "Los datos no son válidos: revisa cantidades y montos (deben ser mayores que cero)."
	case errors.Is(f.Err, domain.ErrInvalidReference):
		return "Hay una referencia inválida en el catálogo. Avísale al administrador."
	case errors.Is(f.Err, domain.ErrRecordingFailed):
		return "No pude guardar el registro. No se escribió nada; intenta de nuevo en un momento."
	default:
		return "Algo salió mal. Intenta de nuevo."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
