// Package menu renders the bot screens. Rendering is pure: a Screen holds
// the text and the buttons, and callers decide whether to send it as a new
// message or edit the message a button was pressed on.
package menu

import (
	"fmt"
	"strings"

	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	"github.com/m3rciful/exchangebot/core/telegram/format"
	"github.com/m3rciful/exchangebot/core/telegram/keyboard"
	"github.com/m3rciful/exchangebot/internal/gateway"
)

// Button trigger ids.
const (
	ActionCreateAccount   = "create_account"
	ActionGetUserInfo     = "get_user_info"
	ActionRecoverPassword = "recover_password"
	ActionMainMenu        = "main_menu"
	ActionMnemonicSaved   = "mnemonic_saved"
	ActionOrders          = "orders"
	ActionCreateOrder     = "create_order"
	ActionMyOrders        = "my_orders"
	ActionBuyCrypto       = "buy_crypto"
	ActionCancel          = keyboard.CancelData

	// PrefixDeleteOrder and PrefixBuyOrder are followed by the order id.
	PrefixDeleteOrder = "delete_order_"
	PrefixBuyOrder    = "buy_order_"
)

// Button is a single inline button.
type Button struct {
	Label  string
	Action string
}

// Screen is a rendered message. Markdown screens are MarkdownV2 with every
// user supplied value escaped.
type Screen struct {
	Text     string
	Buttons  []Button
	Markdown bool
}

var (
	backButton   = Button{Label: "Back to Main Menu", Action: ActionMainMenu}
	cancelButton = Button{Label: keyboard.CancelButton().Text, Action: ActionCancel}
)

// Welcome is the main menu. Registered users get the account actions, new
// users only the sign up button.
func Welcome(registered bool) Screen {
	if !registered {
		return Screen{
			Text:    "Hello! Please create an account to get started.",
			Buttons: []Button{{Label: "Create Account", Action: ActionCreateAccount}},
		}
	}
	return Screen{
		Text: "Welcome back! What would you like to do?",
		Buttons: []Button{
			{Label: "Get User Info", Action: ActionGetUserInfo},
			{Label: "Recover Password", Action: ActionRecoverPassword},
			{Label: "Orders", Action: ActionOrders},
		},
	}
}

// Unavailable replaces the main menu when the account check fails.
func Unavailable() Screen {
	return Screen{
		Text:    "The exchange service is unavailable right now. Please try again later.",
		Buttons: []Button{{Label: "Retry", Action: ActionMainMenu}},
	}
}

// OrdersMenu lists the order actions.
func OrdersMenu() Screen {
	return Screen{
		Text: "What would you like to do with your orders?",
		Buttons: []Button{
			{Label: "Create Order", Action: ActionCreateOrder},
			{Label: "My Orders", Action: ActionMyOrders},
			{Label: "Buy Crypto", Action: ActionBuyCrypto},
			backButton,
		},
	}
}

// Prompt texts asked by conversations.
const (
	PromptPassword     = "Please enter a password to create your account:"
	PromptMnemonic     = "Please enter your mnemonic phrase:"
	PromptNewPassword  = "Now, please enter your new password:"
	PromptFromCurrency = "Please enter the 'from_currency' (e.g., BTC):"
	PromptToCurrency   = "Please enter the 'to_currency' (e.g., ETH):"
	PromptValue        = "Please enter the amount to sell (value):"
	PromptExchangeRate = "Please enter the exchange rate:"
	PromptBuyCurrency  = "Which currency would you like to buy?"
	PromptSellCurrency = "Which currency would you like to sell?"
	PromptAmountToBuy  = "Please enter the amount you'd like to buy:"
)

// Prompt asks for the next answer and offers a way out.
func Prompt(text string) Screen {
	return Screen{Text: text, Buttons: []Button{cancelButton}}
}

// InvalidNumber re-asks for a numeric field.
func InvalidNumber(field string) Screen {
	return Prompt(fmt.Sprintf("Please enter a valid number for the %s.", field))
}

// AccountCreated shows the new address and the recovery phrase.
func AccountCreated(acc gateway.Account) Screen {
	var b strings.Builder
	b.WriteString(format.Escape("Your account has been created successfully!"))
	b.WriteString("\n\n🏠 ")
	b.WriteString(format.Bold("Address"))
	b.WriteString(": ")
	b.WriteString(format.Code(acc.Address))
	b.WriteString("\n📜 ")
	b.WriteString(format.Bold("Mnemonic Phrase"))
	b.WriteString(": ")
	b.WriteString(format.Code(strings.Join(acc.Mnemonic, " ")))
	b.WriteString("\n\n")
	b.WriteString(format.Bold("Please remember the mnemonic phrase carefully. You will need it to recover your password."))
	b.WriteString("\n")
	b.WriteString(format.Escape("Click the button below once you've saved your mnemonic phrase securely."))
	return Screen{
		Text:     b.String(),
		Buttons:  []Button{{Label: "I have saved it", Action: ActionMnemonicSaved}},
		Markdown: true,
	}
}

// AccountFailed reports a failed sign up.
func AccountFailed() Screen {
	return Screen{
		Text:    "Failed to create an account. Please try again later or contact support.",
		Buttons: []Button{backButton},
	}
}

// UserInfo shows the account address and balances.
func UserInfo(info gateway.UserInfo) Screen {
	var b strings.Builder
	b.WriteString("🏠 ")
	b.WriteString(format.Bold("User Address"))
	b.WriteString(": ")
	b.WriteString(format.Code(info.Address))
	b.WriteString("\n\n💼 ")
	b.WriteString(format.Bold("Wallets"))
	b.WriteString(":")
	for _, w := range info.Wallets {
		b.WriteString("\n")
		b.WriteString(format.Escape(w.Currency + ": " + w.Value.String()))
	}
	return Screen{Text: b.String(), Buttons: []Button{backButton}, Markdown: true}
}

// UserInfoFailed reports a failed account lookup.
func UserInfoFailed() Screen {
	return Screen{Text: "Failed to fetch user info. Please try again later.", Buttons: []Button{backButton}}
}

// PasswordRecovered confirms the password change.
func PasswordRecovered() Screen {
	return Screen{Text: "✅ Your password has been successfully updated."}
}

// RecoveryFailed reports a rejected password recovery.
func RecoveryFailed() Screen {
	return Screen{
		Text:    "❌ Failed to recover password. Please check your mnemonic phrase and try again.",
		Buttons: []Button{backButton},
	}
}

// MnemonicMissing ends a recovery that lost its phrase.
func MnemonicMissing() Screen {
	return Screen{
		Text:    "❌ Mnemonic phrase is missing. Please start the process again.",
		Buttons: []Button{backButton},
	}
}

// OrderCreated echoes the API confirmation.
func OrderCreated(msg string) Screen {
	return Screen{Text: "Order created successfully: " + msg}
}

// OrderFailed reports a rejected order.
func OrderFailed() Screen {
	return Screen{Text: "Failed to create order. Please try again later."}
}

func orderText(o gateway.Order) string {
	return fmt.Sprintf("Order ID: %d\nFrom: %s → To: %s\nAmount Sold: %s | Amount to Receive: %s\nStatus: %s",
		o.ID, o.FromCurrency, o.ToCurrency, o.AmountSold.String(), o.AmountToReceive.String(), o.Status)
}

// OrderCard renders one of the user's orders with its delete button.
func OrderCard(o gateway.Order) Screen {
	return Screen{
		Text:    orderText(o),
		Buttons: []Button{{Label: "Delete", Action: callbacks.WithID(PrefixDeleteOrder, o.ID)}},
	}
}

// OfferCard renders a purchasable order with its buy button.
func OfferCard(o gateway.Order) Screen {
	return Screen{
		Text:    orderText(o),
		Buttons: []Button{{Label: "Buy", Action: callbacks.WithID(PrefixBuyOrder, o.ID)}},
	}
}

// MyOrdersHeader titles the list of the user's orders.
func MyOrdersHeader() Screen {
	return Screen{Text: "Here are your orders:", Buttons: []Button{backButton}}
}

// NoOrders is shown instead of an empty order list.
func NoOrders() Screen {
	return Screen{Text: "You have no orders yet."}
}

// OrdersFailed reports a failed order listing.
func OrdersFailed() Screen {
	return Screen{Text: "Failed to fetch your orders. Please try again later.", Buttons: []Button{backButton}}
}

// OrderDeleted confirms the deletion of id.
func OrderDeleted(id int64) Screen {
	return Screen{Text: fmt.Sprintf("Order %d has been deleted successfully.", id)}
}

// DeleteFailed reports that id could not be deleted.
func DeleteFailed(id int64) Screen {
	return Screen{Text: fmt.Sprintf("Failed to delete Order %d. Please try again later.", id)}
}

// OffersHeader titles the purchasable orders.
func OffersHeader() Screen {
	return Screen{Text: "Here are the orders that you can buy:"}
}

// NoOffers is shown when nothing matches the currency pair.
func NoOffers(buy, sell string) Screen {
	return Screen{Text: fmt.Sprintf("No available orders to buy %s with %s.", buy, sell)}
}

// OffersFailed reports a failed offer lookup.
func OffersFailed() Screen {
	return Screen{Text: "Failed to fetch orders. Please try again later.", Buttons: []Button{backButton}}
}

// BackToMenu closes a list of messages.
func BackToMenu() Screen {
	return Screen{Text: "Click the button below to go back to the main menu.", Buttons: []Button{backButton}}
}

// PurchaseDone reports the executed purchase. Currencies are named when the
// offer's pair is known.
func PurchaseDone(p gateway.Purchase, buy, sell string) Screen {
	if buy == "" || sell == "" {
		return Screen{Text: fmt.Sprintf("✅ Your purchase was successful!\n\nYou received %s and paid %s.",
			p.AmountReceived.String(), p.AmountPaid.String())}
	}
	return Screen{Text: fmt.Sprintf("✅ Your purchase was successful!\n\nYou bought %s %s for %s %s.",
		p.AmountReceived.String(), buy, p.AmountPaid.String(), sell)}
}

// PurchaseFailed reports a rejected purchase.
func PurchaseFailed() Screen {
	return Screen{Text: "❌ Failed to process your purchase. Please try again later."}
}

// Busy rejects a trigger while another conversation runs.
func Busy() Screen {
	return Screen{
		Text:    "You are in the middle of another action. Finish it or press Cancel.",
		Buttons: []Button{cancelButton},
	}
}

// Cancelled confirms an explicit cancel.
func Cancelled() Screen {
	return Screen{Text: "Cancelled."}
}

// Idle answers free text outside a conversation.
func Idle() Screen {
	return Screen{Text: "Please use /start to open the menu."}
}

// UnknownCommand answers a slash command the bot does not know. An open
// conversation stays where it was.
func UnknownCommand() Screen {
	return Screen{Text: "Unknown command. Use /start to open the menu or /cancel to stop the current action."}
}

// Failure is shown when a step fails unexpectedly.
func Failure() Screen {
	return Screen{Text: "Something went wrong. Please try again later.", Buttons: []Button{backButton}}
}
