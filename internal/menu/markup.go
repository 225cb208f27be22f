package menu

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/exchangebot/core/telegram/keyboard"
)

// Markup converts the buttons to an inline keyboard, one button per row.
// Screens without buttons return nil.
func (s Screen) Markup() *tele.ReplyMarkup {
	if len(s.Buttons) == 0 {
		return nil
	}
	btns := make([]keyboard.InlineBtn, 0, len(s.Buttons))
	for _, b := range s.Buttons {
		btns = append(btns, keyboard.InlineBtn{Text: b.Label, Data: b.Action})
	}
	return keyboard.InlineButtons(btns)
}

// ParseMode returns the Telegram parse mode of the screen.
func (s Screen) ParseMode() tele.ParseMode {
	if s.Markdown {
		return tele.ModeMarkdownV2
	}
	return tele.ModeDefault
}
