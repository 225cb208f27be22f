package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes an inline button. With Unique set the button uses
// Telebot's "\f<unique>|<data>" encoding; otherwise Data is sent verbatim
// as callback_data.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

const (
	// CancelData is the callback data carried by CancelButton.
	CancelData = "cancel"

	defaultCancelButtonText = "❌ Cancel"
)

func (b InlineBtn) inline(markup *tele.ReplyMarkup) tele.InlineButton {
	if b.Unique != "" {
		return *markup.Data(b.Text, b.Unique, b.Data).Inline()
	}
	return tele.InlineButton{Text: b.Text, Data: b.Data}
}

// InlineButtons builds an inline keyboard with one button per row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = btn.inline(markup)
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// CancelButton returns the shared cancel button. An optional label
// overrides the default text.
func CancelButton(label ...string) InlineBtn {
	text := defaultCancelButtonText
	if len(label) > 0 && label[0] != "" {
		text = label[0]
	}
	return InlineBtn{Text: text, Data: CancelData}
}

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}
