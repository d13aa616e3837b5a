package router

import (
	"time"

	tg "github.com/ffstudios/pantrybot/core/telegram"
	"github.com/ffstudios/pantrybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls routing of free-form text updates.
type TextOptions struct {
	// OnText receives every text message that is not a registered command.
	// This is where the natural-language pipeline hangs off the bot.
	OnText tele.HandlerFunc
	// UnknownText handles text when OnText is not set.
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the OnText route: registered commands first, then the
// free-form text handler, then fallbacks.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.OnText != nil {
			return handleWithSummary(c, "text", start, "", "", func() error {
				return opts.OnText(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
