package conversation

import (
	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/telegram/state"
)

// Scratch holds the answers collected by the active conversation. It is
// emptied whenever a conversation starts or ends.
type Scratch struct {
	Mnemonic string `json:"mnemonic,omitempty"`

	FromCurrency string           `json:"from_currency,omitempty"`
	ToCurrency   string           `json:"to_currency,omitempty"`
	Value        *decimal.Decimal `json:"value,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`

	BuyCurrency  string `json:"buy_currency,omitempty"`
	SellCurrency string `json:"sell_currency,omitempty"`

	OrderID *int64 `json:"order_id,omitempty"`
}

// Session is the per-user conversation state.
type Session = state.Session[Scratch]

// Store persists sessions.
type Store = state.Store[Scratch]
