package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FSM is the conversation engine consulted before any other text route.
type FSM interface {
	InProgress(c tele.Context) bool
	ManagerHandler(c tele.Context) error
}

func lookupTypedCommand(reg *tg.Registry, text string) (string, commands.Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", commands.Command{}, false
	}
	key, cmd, ok := reg.LookupCommand(text)
	return key, cmd, ok && cmd.Handler != nil
}

// TextRoutes routes free text. Slash commands never reach a conversation:
// they go to the typed command or the command fallback. Other text goes to
// the active conversation first, then to the registry text fallback.
func TextRoutes(fsm FSM, reg *tg.Registry) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()

		command := strings.HasPrefix(c.Text(), "/")
		if command && reg != nil {
			if key, cmd, ok := lookupTypedCommand(reg, c.Text()); ok {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
			if h := reg.CommandNotFound(); h != nil {
				return handleWithSummary(c, "unknown_command", start, func() error {
					return h(c)
				})
			}
		}

		if !command && fsm != nil && fsm.InProgress(c) {
			return handleWithSummary(c, "conversation", start, func() error {
				return fsm.ManagerHandler(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		tghelpers.WithHandler(c, "unknown_text")
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
