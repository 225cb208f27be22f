package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute routes every inline button press through the registry.
// The callback is acknowledged before the handler runs so the client stops
// its spinner even when the handler is slow.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key := callbacks.Data(c)
		name := "callback." + callbackName(reg, key)
		extras := []slog.Attr{slog.String("trigger", key)}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			extras = append(extras, slog.String("cause", "not_found"))
			fallback := reg.CallbackNotFound()
			return handleWithSummary(c, name, start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return c.Respond()
			}, extras...)
		}

		_ = c.Respond()
		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}

// callbackName keeps metric labels bounded: ids with a numeric suffix are
// reported under their registered prefix.
func callbackName(reg *tg.Registry, key string) string {
	for _, entry := range reg.ListCallbacks() {
		if n := len(entry); n > 1 && entry[n-1] == '*' {
			prefix := entry[:n-1]
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				return normalizeHandlerName(prefix + "id")
			}
		}
	}
	if _, ok := reg.GetCallback(key); ok {
		return normalizeHandlerName(key)
	}
	return "unknown"
}
