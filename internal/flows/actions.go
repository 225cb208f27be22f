package flows

import (
	"context"
	"fmt"

	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	"github.com/m3rciful/exchangebot/internal/conversation"
	"github.com/m3rciful/exchangebot/internal/menu"
)

// ActionFunc handles a button or command that needs no conversation state.
type ActionFunc func(ctx context.Context, ev conversation.Event, reply conversation.Reply) error

// Action binds a trigger pattern to its handler.
type Action struct {
	Trigger conversation.Pattern
	Run     ActionFunc
}

// Actions lists the stateless button handlers.
func (f *Flows) Actions() []Action {
	return []Action{
		{Trigger: conversation.Exact(menu.ActionMainMenu), Run: f.MainMenu},
		{Trigger: conversation.Exact(menu.ActionMnemonicSaved), Run: f.MainMenu},
		{Trigger: conversation.Exact(menu.ActionOrders), Run: f.OrdersMenu},
		{Trigger: conversation.Exact(menu.ActionGetUserInfo), Run: f.UserInfo},
		{Trigger: conversation.Exact(menu.ActionMyOrders), Run: f.MyOrders},
		{Trigger: conversation.WithID(menu.PrefixDeleteOrder), Run: f.DeleteOrder},
		{Trigger: conversation.Exact(menu.ActionCancel), Run: f.Cancel},
	}
}

// MainMenu shows the welcome screen matching the account state.
func (f *Flows) MainMenu(ctx context.Context, ev conversation.Event, reply conversation.Reply) error {
	return reply.Show(f.welcome(ctx, ev.UserID))
}

func (f *Flows) welcome(ctx context.Context, userID int64) menu.Screen {
	exists, err := f.api.UserExists(ctx, userID)
	if err != nil {
		apiFailed(ctx, "user_exist", err)
		return menu.Unavailable()
	}
	return menu.Welcome(exists)
}

// OrdersMenu shows the order actions.
func (f *Flows) OrdersMenu(_ context.Context, _ conversation.Event, reply conversation.Reply) error {
	return reply.Show(menu.OrdersMenu())
}

// UserInfo shows the address and balances.
func (f *Flows) UserInfo(ctx context.Context, ev conversation.Event, reply conversation.Reply) error {
	info, err := f.api.UserInfo(ctx, ev.UserID)
	if err != nil {
		apiFailed(ctx, "user_info", err)
		return reply.Show(menu.UserInfoFailed())
	}
	return reply.Show(menu.UserInfo(info))
}

// MyOrders posts one card per order and turns the pressed message into
// the list header.
func (f *Flows) MyOrders(ctx context.Context, ev conversation.Event, reply conversation.Reply) error {
	orders, err := f.api.UserOrders(ctx, ev.UserID)
	if err != nil {
		apiFailed(ctx, "user_orders", err)
		return reply.Show(menu.OrdersFailed())
	}
	if len(orders) == 0 {
		if err := reply.Show(menu.NoOrders()); err != nil {
			return err
		}
		return reply.Send(menu.OrdersMenu())
	}
	for _, o := range orders {
		if err := reply.Send(menu.OrderCard(o)); err != nil {
			return err
		}
	}
	return reply.Show(menu.MyOrdersHeader())
}

// DeleteOrder deletes the order named by the trigger suffix.
func (f *Flows) DeleteOrder(ctx context.Context, ev conversation.Event, reply conversation.Reply) error {
	id, ok := callbacks.SuffixID(ev.Trigger, menu.PrefixDeleteOrder)
	if !ok {
		return fmt.Errorf("flows: malformed trigger %q", ev.Trigger)
	}
	if err := f.api.DeleteOrder(ctx, ev.UserID, id); err != nil {
		apiFailed(ctx, "delete_order", err)
		return reply.Show(menu.DeleteFailed(id))
	}
	return reply.Show(menu.OrderDeleted(id))
}

// Cancel ends the active conversation and returns to the main menu.
func (f *Flows) Cancel(ctx context.Context, ev conversation.Event, reply conversation.Reply) error {
	cancelled, err := f.dispatcher.Cancel(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if cancelled {
		if err := reply.Show(menu.Cancelled()); err != nil {
			return err
		}
		return reply.Send(f.welcome(ctx, ev.UserID))
	}
	return reply.Show(f.welcome(ctx, ev.UserID))
}

// Idle answers text sent outside a conversation.
func (f *Flows) Idle(_ context.Context, _ conversation.Event, reply conversation.Reply) error {
	return reply.Send(menu.Idle())
}

// UnknownCommand answers an unregistered slash command without touching the
// session.
func (f *Flows) UnknownCommand(_ context.Context, _ conversation.Event, reply conversation.Reply) error {
	return reply.Send(menu.UnknownCommand())
}
