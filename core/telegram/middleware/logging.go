package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware sets the correlation id for the update and logs its
// receipt at debug level. Message text is never logged here because it may
// carry a password or mnemonic phrase.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		userID, chatID := tghelpers.IDs(c)

		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		switch {
		case upd.Callback != nil:
			attrs = append(attrs, slog.String("trigger", logger.SanitizeLimit(callbacks.Data(c), 64)))
		case upd.Message != nil:
			attrs = append(attrs,
				slog.Bool("command", len(upd.Message.Text) > 0 && upd.Message.Text[0] == '/'),
				slog.Int("text_len", len([]rune(upd.Message.Text))),
			)
		}
		logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)

		return next(c)
	}
}
