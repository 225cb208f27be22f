package helpers

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/exchangebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func options(parseMode tele.ParseMode, markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: parseMode, DisableWebPagePreview: true}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.Send(text, options(tele.ModeDefault, markup))
}

// SendMDV2 sends a MarkdownV2 message with optional reply markup.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.Send(text, options(tele.ModeMarkdownV2, markup))
}

// Edit replaces the message the callback in c was pressed on. An edit
// that would not change the message is treated as success.
func Edit(c tele.Context, text string, parseMode tele.ParseMode, markup ...*tele.ReplyMarkup) error {
	err := c.Edit(text, options(parseMode, markup))
	if IsNotModified(err) {
		return nil
	}
	return err
}

// IsNotModified reports whether err is Telegram's "message is not modified" rejection.
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// DeleteIncoming removes the user's message from the chat. Failures are
// logged with status=skip and never returned.
func DeleteIncoming(c tele.Context) {
	if c.Message() == nil {
		return
	}
	if err := c.Delete(); err != nil {
		logger.Warn(BuildContext(c), "tg", "message.delete",
			slog.String("status", "skip"),
			logger.Err(err),
		)
	}
}
