package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	"github.com/m3rciful/exchangebot/internal/conversation"
	"github.com/m3rciful/exchangebot/internal/gateway"
	"github.com/m3rciful/exchangebot/internal/menu"
)

// Conversation and step names.
const (
	CreateAccount   = "create_account"
	RecoverPassword = "recover_password"
	CreateOrder     = "create_order"
	BuyCrypto       = "buy_crypto"
	BuyOrder        = "buy_order"

	stepPassword     = "ask_password"
	stepMnemonic     = "ask_mnemonic"
	stepNewPassword  = "ask_new_password"
	stepFromCurrency = "ask_from_currency"
	stepToCurrency   = "ask_to_currency"
	stepValue        = "ask_value"
	stepExchangeRate = "ask_exchange_rate"
	stepBuyCurrency  = "ask_buy_currency"
	stepSellCurrency = "ask_sell_currency"
	stepAmountToBuy  = "ask_amount_to_buy"
)

var errMissingOrderID = errors.New("flows: order id missing from session")

// prompt returns an entry function that shows text and waits at step.
func prompt(text, step string) conversation.StepFunc {
	return func(_ context.Context, in conversation.Input) (conversation.Transition, error) {
		if err := in.Reply.Show(menu.Prompt(text)); err != nil {
			return conversation.Transition{}, err
		}
		return conversation.Goto(step), nil
	}
}

// ask sends the next prompt and moves to step.
func ask(in conversation.Input, text, step string) (conversation.Transition, error) {
	if err := in.Reply.Send(menu.Prompt(text)); err != nil {
		return conversation.Transition{}, err
	}
	return conversation.Goto(step), nil
}

// finish sends the screens in order and ends the conversation.
func finish(in conversation.Input, screens ...menu.Screen) (conversation.Transition, error) {
	for _, s := range screens {
		if err := in.Reply.Send(s); err != nil {
			return conversation.Transition{}, err
		}
	}
	return conversation.End(), nil
}

func (f *Flows) createAccount() conversation.Definition {
	return conversation.Definition{
		Name:    CreateAccount,
		Trigger: conversation.Exact(menu.ActionCreateAccount),
		Enter:   prompt(menu.PromptPassword, stepPassword),
		Steps: map[string]conversation.StepFunc{
			stepPassword: func(ctx context.Context, in conversation.Input) (conversation.Transition, error) {
				password := in.Text
				in.Reply.DeleteInput()
				acc, err := f.api.CreateAccount(ctx, in.UserID, password)
				if err != nil {
					apiFailed(ctx, "create_account", err)
					return finish(in, menu.AccountFailed())
				}
				return finish(in, menu.AccountCreated(acc))
			},
		},
	}
}

func (f *Flows) recoverPassword() conversation.Definition {
	return conversation.Definition{
		Name:    RecoverPassword,
		Trigger: conversation.Exact(menu.ActionRecoverPassword),
		Enter:   prompt(menu.PromptMnemonic, stepMnemonic),
		Steps: map[string]conversation.StepFunc{
			stepMnemonic: func(_ context.Context, in conversation.Input) (conversation.Transition, error) {
				in.Scratch.Mnemonic = strings.Join(strings.Fields(in.Text), " ")
				in.Reply.DeleteInput()
				return ask(in, menu.PromptNewPassword, stepNewPassword)
			},
			stepNewPassword: func(ctx context.Context, in conversation.Input) (conversation.Transition, error) {
				password := in.Text
				in.Reply.DeleteInput()
				if in.Scratch.Mnemonic == "" {
					return finish(in, menu.MnemonicMissing())
				}
				err := f.api.RecoverPassword(ctx, gateway.RecoverPasswordRequest{
					UserID:      in.UserID,
					Mnemonic:    in.Scratch.Mnemonic,
					NewPassword: password,
				})
				if err != nil {
					apiFailed(ctx, "recover_password", err)
					return finish(in, menu.RecoveryFailed())
				}
				return finish(in, menu.PasswordRecovered(), f.welcome(ctx, in.UserID))
			},
		},
	}
}

func (f *Flows) createOrder() conversation.Definition {
	return conversation.Definition{
		Name:    CreateOrder,
		Trigger: conversation.Exact(menu.ActionCreateOrder),
		Enter:   prompt(menu.PromptFromCurrency, stepFromCurrency),
		Steps: map[string]conversation.StepFunc{
			stepFromCurrency: func(_ context.Context, in conversation.Input) (conversation.Transition, error) {
				in.Scratch.FromCurrency = strings.TrimSpace(in.Text)
				in.Reply.DeleteInput()
				return ask(in, menu.PromptToCurrency, stepToCurrency)
			},
			stepToCurrency: func(_ context.Context, in conversation.Input) (conversation.Transition, error) {
				in.Scratch.ToCurrency = strings.TrimSpace(in.Text)
				in.Reply.DeleteInput()
				return ask(in, menu.PromptValue, stepValue)
			},
			stepValue: func(_ context.Context, in conversation.Input) (conversation.Transition, error) {
				in.Reply.DeleteInput()
				value, ok := parseAmount(in.Text)
				if !ok {
					return conversation.Stay(), in.Reply.Send(menu.InvalidNumber("amount to sell"))
				}
				in.Scratch.Value = &value
				return ask(in, menu.PromptExchangeRate, stepExchangeRate)
			},
			stepExchangeRate: func(ctx context.Context, in conversation.Input) (conversation.Transition, error) {
				in.Reply.DeleteInput()
				rate, ok := parseAmount(in.Text)
				if !ok {
					return conversation.Stay(), in.Reply.Send(menu.InvalidNumber("exchange rate"))
				}
				if in.Scratch.Value == nil {
					return conversation.Transition{}, errors.New("flows: order value missing from session")
				}
				msg, err := f.api.CreateOrder(ctx, gateway.CreateOrderRequest{
					UserID:       in.UserID,
					FromCurrency: in.Scratch.FromCurrency,
					ToCurrency:   in.Scratch.ToCurrency,
					Value:        *in.Scratch.Value,
					ExchangeRate: rate,
				})
				if err != nil {
					apiFailed(ctx, "create_order", err)
					return finish(in, menu.OrderFailed(), f.welcome(ctx, in.UserID))
				}
				return finish(in, menu.OrderCreated(msg), f.welcome(ctx, in.UserID))
			},
		},
	}
}

func (f *Flows) buyCrypto() conversation.Definition {
	return conversation.Definition{
		Name:    BuyCrypto,
		Trigger: conversation.Exact(menu.ActionBuyCrypto),
		Enter:   prompt(menu.PromptBuyCurrency, stepBuyCurrency),
		Steps: map[string]conversation.StepFunc{
			stepBuyCurrency: func(_ context.Context, in conversation.Input) (conversation.Transition, error) {
				in.Scratch.BuyCurrency = strings.TrimSpace(in.Text)
				return ask(in, menu.PromptSellCurrency, stepSellCurrency)
			},
			stepSellCurrency: func(ctx context.Context, in conversation.Input) (conversation.Transition, error) {
				in.Scratch.SellCurrency = strings.TrimSpace(in.Text)
				buy, sell := in.Scratch.BuyCurrency, in.Scratch.SellCurrency
				offers, err := f.api.ListOffers(ctx, gateway.OffersRequest{
					UserID:       in.UserID,
					BuyCurrency:  buy,
					SellCurrency: sell,
				})
				if err != nil {
					apiFailed(ctx, "list_offers", err)
					return finish(in, menu.OffersFailed())
				}
				if len(offers) == 0 {
					return finish(in, menu.NoOffers(buy, sell), menu.OrdersMenu())
				}
				screens := make([]menu.Screen, 0, len(offers)+2)
				screens = append(screens, menu.OffersHeader())
				for _, o := range offers {
					f.offers.remember(o.ID, pair{Buy: buy, Sell: sell})
					screens = append(screens, menu.OfferCard(o))
				}
				return finish(in, append(screens, menu.BackToMenu())...)
			},
		},
	}
}

func (f *Flows) buyOrder() conversation.Definition {
	return conversation.Definition{
		Name:    BuyOrder,
		Trigger: conversation.WithID(menu.PrefixBuyOrder),
		Enter: func(_ context.Context, in conversation.Input) (conversation.Transition, error) {
			id, ok := callbacks.SuffixID(in.Trigger, menu.PrefixBuyOrder)
			if !ok {
				return conversation.Transition{}, errMissingOrderID
			}
			in.Scratch.OrderID = &id
			if p, ok := f.offers.lookup(id); ok {
				in.Scratch.BuyCurrency, in.Scratch.SellCurrency = p.Buy, p.Sell
			}
			return ask(in, menu.PromptAmountToBuy, stepAmountToBuy)
		},
		Steps: map[string]conversation.StepFunc{
			stepAmountToBuy: func(ctx context.Context, in conversation.Input) (conversation.Transition, error) {
				amount, ok := parseAmount(in.Text)
				if !ok {
					return conversation.Stay(), in.Reply.Send(menu.InvalidNumber("amount to buy"))
				}
				if in.Scratch.OrderID == nil {
					return conversation.Transition{}, errMissingOrderID
				}
				purchase, err := f.api.BuyOrder(ctx, gateway.BuyRequest{
					UserID:  in.UserID,
					OrderID: *in.Scratch.OrderID,
					Amount:  amount,
				})
				if err != nil {
					apiFailed(ctx, "buy_order", err)
					return finish(in, menu.PurchaseFailed(), menu.BackToMenu())
				}
				return finish(in, menu.PurchaseDone(purchase, in.Scratch.BuyCurrency, in.Scratch.SellCurrency), menu.BackToMenu())
			},
		},
	}
}
