package gateway

import "github.com/shopspring/decimal"

// Account is returned when an account is created.
type Account struct {
	Mnemonic []string
	Address  string
}

// Wallet is a single currency balance.
type Wallet struct {
	Currency string
	Value    decimal.Decimal
}

// UserInfo describes an existing account.
type UserInfo struct {
	Address string
	Wallets []Wallet
}

// Order is an exchange order as listed by the API.
type Order struct {
	ID              int64
	FromCurrency    string
	ToCurrency      string
	AmountSold      decimal.Decimal
	AmountToReceive decimal.Decimal
	Status          string
}

// CreateOrderRequest carries the fields of a new order.
type CreateOrderRequest struct {
	UserID       int64
	FromCurrency string
	ToCurrency   string
	Value        decimal.Decimal
	ExchangeRate decimal.Decimal
}

// RecoverPasswordRequest resets the password of UserID.
type RecoverPasswordRequest struct {
	UserID      int64
	Mnemonic    string
	NewPassword string
}

// OffersRequest filters the orders a user can buy.
type OffersRequest struct {
	UserID       int64
	BuyCurrency  string
	SellCurrency string
}

// BuyRequest purchases Amount from order OrderID.
type BuyRequest struct {
	UserID  int64
	OrderID int64
	Amount  decimal.Decimal
}

// Purchase reports the outcome of a successful buy.
type Purchase struct {
	AmountReceived decimal.Decimal
	AmountPaid     decimal.Decimal
}

type existsResponse struct {
	Exists *bool `json:"exists"`
}

type accountResponse struct {
	Mnemonic []string `json:"mnemonic_phrase"`
	Address  *string  `json:"user_address"`
}

type walletResponse struct {
	Currency *string          `json:"currency"`
	Value    *decimal.Decimal `json:"value"`
}

type userInfoResponse struct {
	Address *string          `json:"user_address"`
	Wallets []walletResponse `json:"wallets"`
}

type orderResponse struct {
	ID              *int64           `json:"order_id"`
	FromCurrency    *string          `json:"from_currency"`
	ToCurrency      *string          `json:"to_currency"`
	AmountSold      *decimal.Decimal `json:"amount_sold"`
	AmountToReceive *decimal.Decimal `json:"amount_to_receive"`
	Status          *string          `json:"status"`
}

type createOrderResponse struct {
	Msg *string `json:"msg"`
}

type purchaseResponse struct {
	AmountToReceive *decimal.Decimal `json:"amount_to_receive"`
	AmountPaid      *decimal.Decimal `json:"amount_paid"`
}

type createAccountBody struct {
	UserID   int64  `json:"user_id"`
	Password string `json:"password"`
}

type recoverPasswordBody struct {
	UserID      int64  `json:"user_id"`
	Mnemonic    string `json:"mnemonic_phrase"`
	NewPassword string `json:"new_password"`
}

type createOrderBody struct {
	UserID       int64   `json:"user_id"`
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Value        float64 `json:"value"`
	ExchangeRate float64 `json:"exchange_rate"`
}

type buyBody struct {
	UserID      int64   `json:"user_id"`
	OrderID     int64   `json:"order_id"`
	AmountToBuy float64 `json:"amount_to_buy"`
}

func (o orderResponse) order() (Order, error) {
	switch {
	case o.ID == nil:
		return Order{}, missing("order_id")
	case o.FromCurrency == nil:
		return Order{}, missing("from_currency")
	case o.ToCurrency == nil:
		return Order{}, missing("to_currency")
	case o.AmountSold == nil:
		return Order{}, missing("amount_sold")
	case o.AmountToReceive == nil:
		return Order{}, missing("amount_to_receive")
	case o.Status == nil:
		return Order{}, missing("status")
	}
	return Order{
		ID:              *o.ID,
		FromCurrency:    *o.FromCurrency,
		ToCurrency:      *o.ToCurrency,
		AmountSold:      *o.AmountSold,
		AmountToReceive: *o.AmountToReceive,
		Status:          *o.Status,
	}, nil
}

func ordersFrom(list []orderResponse) ([]Order, error) {
	out := make([]Order, 0, len(list))
	for _, raw := range list {
		o, err := raw.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
