package app

import (
	"fmt"

	tg "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"
	"github.com/m3rciful/exchangebot/core/telegram/router"
	"github.com/m3rciful/exchangebot/internal/conversation"
	"github.com/m3rciful/exchangebot/internal/flows"

	tele "gopkg.in/telebot.v4"
)

var _ router.FSM = (*App)(nil)

// InProgress reports whether the sender has an active conversation.
func (a *App) InProgress(c tele.Context) bool {
	ev := eventFrom(c)
	_, active, err := a.dispatcher.Active(tghelpers.BuildContext(c), ev.UserID)
	return err == nil && active
}

// ManagerHandler feeds the message to the active conversation. Text that
// arrives after the conversation expired gets the idle answer.
func (a *App) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	ev := eventFrom(c)
	reply := telegramReply{c: c}
	handled, err := a.dispatcher.Input(ctx, ev, reply)
	if err != nil || handled {
		return err
	}
	return a.flows.Idle(ctx, ev, reply)
}

func (a *App) action(run flows.ActionFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return run(tghelpers.BuildContext(c), eventFrom(c), telegramReply{c: c})
	}
}

func (a *App) trigger(c tele.Context) error {
	return a.dispatcher.Trigger(tghelpers.BuildContext(c), eventFrom(c), telegramReply{c: c})
}

// guard rejects prefix matches whose suffix is not an id.
func (a *App) guard(p conversation.Pattern, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !p.Match(eventFrom(c).Trigger) {
			return a.registry.CallbackNotFound()(c)
		}
		return h(c)
	}
}

func (a *App) register(p conversation.Pattern, h tele.HandlerFunc) error {
	if p.WithID {
		return a.registry.RegisterCallbackPrefix(p.Key, a.guard(p, h))
	}
	return a.registry.RegisterCallback(p.Key, h)
}

// buildRegistry binds commands, menu buttons and conversation triggers.
func (a *App) buildRegistry() error {
	reg := tg.NewRegistry()
	a.registry = reg

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.action(a.flows.MainMenu),
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.action(a.flows.Cancel),
		Description: "Cancel the current action",
	})

	for _, act := range a.flows.Actions() {
		if err := a.register(act.Trigger, a.action(act.Run)); err != nil {
			return fmt.Errorf("app: register action %q: %w", act.Trigger.Key, err)
		}
	}
	for _, p := range a.dispatcher.Triggers() {
		if err := a.register(p, a.trigger); err != nil {
			return fmt.Errorf("app: register trigger %q: %w", p.Key, err)
		}
	}

	reg.SetCommandNotFound(a.action(a.flows.UnknownCommand))
	reg.SetTextFallback(a.action(a.flows.Idle))
	return nil
}

func (a *App) routes() []tg.Route {
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.CallbackRoute(a.registry))
	return append(routes, router.TextRoutes(a, a.registry)...)
}
