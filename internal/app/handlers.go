package app

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"

	"github.com/ffstudios/pantrybot/core/logger"
	coretelegram "github.com/ffstudios/pantrybot/core/telegram"
	"github.com/ffstudios/pantrybot/core/telegram/commands"
	tghelpers "github.com/ffstudios/pantrybot/core/telegram/helpers"
	"github.com/ffstudios/pantrybot/internal/action"
	"github.com/ffstudios/pantrybot/internal/domain"
)

const helpText = `Escríbeme en lenguaje natural y registro lo que pasó:
• "Compré 50 kg de harina a $45.000 en Lider con tarjeta" — compra que entra al inventario
• "Pagué $120.000 de luz con transferencia" — gasto sin inventario
• "Usé 2 kg de azúcar para la torta" — salida de inventario
• "¿Cuánta harina queda?" — consulta de stock

Si falta algún dato te lo pregunto y puedes responderlo en un mensaje.

Comandos:
/stock — niveles actuales de inventario
/cancel — descarta la acción pendiente
/help — este mensaje`

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Description: "Presentación del bot",
		Handler: func(c tele.Context) error {
			return tghelpers.SendText(c, "Hola, soy el asistente de inventario y gastos.\n\n"+helpText)
		},
	})
	reg.RegisterCommand("/help", commands.Command{
		Description: "Cómo usar el bot",
		Handler: func(c tele.Context) error {
			return tghelpers.SendText(c, helpText)
		},
	})
	reg.RegisterCommand("/stock", commands.Command{
		Description: "Niveles actuales de inventario",
		Handler:     a.handleStock,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Description: "Descarta la acción pendiente",
		Aliases:     []string{"cancelar"},
		Handler:     a.handleCancel,
	})
	reg.RegisterCommand("/addsupplier", commands.Command{
		Description: "Agrega un proveedor al catálogo",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     a.handleAddSupplier,
	})
	reg.RegisterCommand("/addproduct", commands.Command{
		Description: "Agrega un producto al catálogo",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     a.handleAddProduct,
	})
}

// handleText is the natural-language pipeline: classify, advance the per-user
// state machine, render the outcome.
func (a *App) handleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	text := c.Text()

	var (
		parse action.Parse
		err   error
	)
	if pending, ok := a.manager.Pending(userID); ok {
		parse, err = a.parser.ParseSupplement(ctx, text, pending.Kind, pending.Missing)
	} else {
		parse, err = a.parser.Parse(ctx, text)
	}
	if err != nil {
		logger.Error(ctx, "service.nlp", "parse.failed",
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "No pude interpretar el mensaje en este momento. Intenta de nuevo en unos segundos.")
	}

	reply := a.manager.Process(ctx, userID, parse)
	return tghelpers.SendText(c, renderReply(reply))
}

func (a *App) handleStock(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	rows, err := a.levels.Levels(ctx)
	if err != nil {
		logger.Error(ctx, "service.ledger", "levels.list",
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "No pude leer el inventario. Intenta de nuevo.")
	}
	if len(rows) == 0 {
		return tghelpers.SendText(c, "El inventario está vacío: aún no hay compras registradas.")
	}

	snap := a.catalog.Snapshot()
	var b strings.Builder
	b.WriteString("📦 Inventario actual:\n")
	for _, row := range rows {
		product, ok := snap.Product(row.ProductID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "• %s: %s %s", product.Name, row.Quantity.String(), product.Unit)
		if row.Quantity.LessThanOrEqual(product.MinimumStock) {
			b.WriteString(" ⚠️")
		}
		b.WriteByte('\n')
	}
	return tghelpers.SendText(c, strings.TrimRight(b.String(), "\n"))
}

func (a *App) handleCancel(c tele.Context) error {
	if a.manager.Cancel(c.Sender().ID) {
		return tghelpers.SendText(c, "Listo, descarté la acción pendiente.")
	}
	return tghelpers.SendText(c, "No hay ninguna acción pendiente.")
}

// handleAddSupplier expects the supplier name as the command payload.
func (a *App) handleAddSupplier(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		return tghelpers.SendText(c, "Uso: /addsupplier <nombre>")
	}

	id, err := a.catStore.InsertSupplier(ctx, name)
	if err != nil {
		logger.Error(ctx, "service.catalog", "supplier.insert",
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "No pude guardar el proveedor.")
	}
	if err := a.catalog.Reload(ctx); err != nil {
		return tghelpers.SendText(c, "Proveedor guardado, pero falló la recarga del catálogo.")
	}

	logger.Info(ctx, "service.catalog", "supplier.insert",
		slog.Int64("supplier_id", id),
	)
	return tghelpers.SendText(c, fmt.Sprintf("Proveedor %q agregado.", name))
}

// handleAddProduct expects "nombre; unidad; categoría[; stock mínimo]".
func (a *App) handleAddProduct(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	parts := strings.Split(c.Message().Payload, ";")
	if len(parts) < 3 {
		return tghelpers.SendText(c, "Uso: /addproduct <nombre>; <unidad>; <categoría>[; <stock mínimo>]")
	}
	name := strings.TrimSpace(parts[0])
	unit := strings.TrimSpace(parts[1])
	category := strings.TrimSpace(parts[2])
	if name == "" || unit == "" || category == "" {
		return tghelpers.SendText(c, "Uso: /addproduct <nombre>; <unidad>; <categoría>[; <stock mínimo>]")
	}

	minStock := decimal.NewFromInt(5)
	if len(parts) > 3 {
		parsed, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
		if err != nil || parsed.Sign() < 0 {
			return tghelpers.SendText(c, "El stock mínimo debe ser un número no negativo.")
		}
		minStock = parsed
	}

	categoryID, err := a.catalog.Resolve(domain.ClassCategory, category)
	if err != nil {
		return tghelpers.SendText(c, fmt.Sprintf("No encontré la categoría %q.", category))
	}

	id, err := a.catStore.InsertProduct(ctx, name, unit, minStock, categoryID)
	if err != nil {
		logger.Error(ctx, "service.catalog", "product.insert",
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "No pude guardar el producto.")
	}
	if err := a.catalog.Reload(ctx); err != nil {
		return tghelpers.SendText(c, "Producto guardado, pero falló la recarga del catálogo.")
	}

	logger.Info(ctx, "service.catalog", "product.insert",
		slog.Int64("product_id", id),
	)
	return tghelpers.SendText(c, fmt.Sprintf("Producto %q agregado (%s, mínimo %s).", name, unit, minStock.String()))
}

func (a *App) handleAdminReject(c tele.Context) error {
	return tghelpers.SendText(c, "Ese comando es solo para el administrador.")
}
