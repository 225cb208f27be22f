// Package flows implements the exchange dialogues and the single-screen
// menu actions on top of the conversation dispatcher.
package flows

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/internal/conversation"
	"github.com/m3rciful/exchangebot/internal/gateway"
	"github.com/m3rciful/exchangebot/internal/menu"
)

// API is the part of the gateway client used by the flows.
type API interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	CreateAccount(ctx context.Context, userID int64, password string) (gateway.Account, error)
	UserInfo(ctx context.Context, userID int64) (gateway.UserInfo, error)
	RecoverPassword(ctx context.Context, req gateway.RecoverPasswordRequest) error
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (string, error)
	UserOrders(ctx context.Context, userID int64) ([]gateway.Order, error)
	DeleteOrder(ctx context.Context, userID, orderID int64) error
	ListOffers(ctx context.Context, req gateway.OffersRequest) ([]gateway.Order, error)
	BuyOrder(ctx context.Context, req gateway.BuyRequest) (gateway.Purchase, error)
}

// Dispatcher is the part of the conversation dispatcher used by the flows.
type Dispatcher interface {
	Register(def conversation.Definition) error
	Cancel(ctx context.Context, userID int64) (bool, error)
}

// Flows binds the dialogues to an API client.
type Flows struct {
	api        API
	dispatcher Dispatcher
	offers     *offerBook
}

// New returns Flows calling api. Conversations are added to d by Register.
func New(api API, d Dispatcher) *Flows {
	return &Flows{api: api, dispatcher: d, offers: newOfferBook(offerBookSize)}
}

// Hooks renders the dispatcher's rejection and failure screens.
func Hooks() conversation.Hooks {
	return conversation.Hooks{
		Busy: func(_ context.Context, in conversation.Input) error {
			return in.Reply.Send(menu.Busy())
		},
		Failed: func(_ context.Context, in conversation.Input) error {
			return in.Reply.Send(menu.Failure())
		},
	}
}

// Register adds every conversation to the dispatcher.
func (f *Flows) Register() error {
	for _, def := range f.Definitions() {
		if err := f.dispatcher.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Definitions lists the conversations.
func (f *Flows) Definitions() []conversation.Definition {
	return []conversation.Definition{
		f.createAccount(),
		f.recoverPassword(),
		f.createOrder(),
		f.buyCrypto(),
		f.buyOrder(),
	}
}

// parseAmount accepts any decimal number and leaves range checks to the
// exchange API. A comma works as the decimal separator.
func parseAmount(text string) (decimal.Decimal, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func apiFailed(ctx context.Context, op string, err error) {
	logger.Warn(ctx, "flows", "api.fail",
		slog.String("status", "fail"),
		slog.String("op", op),
		logger.Err(err),
	)
}
