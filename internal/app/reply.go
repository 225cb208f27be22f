package app

import (
	"strings"

	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"
	"github.com/m3rciful/exchangebot/internal/conversation"
	"github.com/m3rciful/exchangebot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

// telegramReply renders screens into the chat of c.
type telegramReply struct {
	c tele.Context
}

var _ conversation.Reply = telegramReply{}

func (r telegramReply) Show(s menu.Screen) error {
	if cb := r.c.Callback(); cb != nil && cb.Message != nil {
		return tghelpers.Edit(r.c, s.Text, s.ParseMode(), s.Markup())
	}
	return r.Send(s)
}

func (r telegramReply) Send(s menu.Screen) error {
	if s.Markdown {
		return tghelpers.SendMDV2(r.c, s.Text, s.Markup())
	}
	return tghelpers.SendText(r.c, s.Text, s.Markup())
}

func (r telegramReply) DeleteInput() {
	tghelpers.DeleteIncoming(r.c)
}

// eventFrom extracts the sender, trigger id and text of an update.
func eventFrom(c tele.Context) conversation.Event {
	userID, chatID := tghelpers.IDs(c)
	if userID == 0 {
		userID = chatID
	}
	ev := conversation.Event{UserID: userID, Text: c.Text()}
	if c.Callback() != nil {
		ev.Trigger = callbacks.Data(c)
		ev.Text = ""
	} else if strings.HasPrefix(ev.Text, "/") {
		cmd, _, _ := strings.Cut(ev.Text, " ")
		cmd, _, _ = strings.Cut(cmd, "@")
		ev.Trigger = cmd
	}
	return ev
}
