package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
	body   map[string]any
	rid    string
}

func stubServer(t *testing.T, status int, response string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  map[string]string{},
			rid:    r.Header.Get("X-Request-ID"),
		}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.body))
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithTimeout(time.Second)), &calls
}

func TestUserExists(t *testing.T) {
	c, calls := stubServer(t, http.StatusOK, `{"exists":true}`)
	ok, err := c.UserExists(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/user/exist", call.path)
	assert.Equal(t, "42", call.query["user_id"])
	assert.NotEmpty(t, call.rid)
}

func TestUserExistsMissingField(t *testing.T) {
	c, _ := stubServer(t, http.StatusOK, `{}`)
	_, err := c.UserExists(context.Background(), 1)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, "decode", decodeErr.Kind())
}

func TestCreateAccount(t *testing.T) {
	c, calls := stubServer(t, http.StatusOK, `{"mnemonic_phrase":["a","b"],"user_address":"0xABC"}`)
	acc, err := c.CreateAccount(context.Background(), 7, "pw1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, acc.Mnemonic)
	assert.Equal(t, "0xABC", acc.Address)

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/user/createAccount/", call.path)
	assert.Equal(t, map[string]any{"user_id": float64(7), "password": "pw1"}, call.body)
}

func TestUserInfoDecodesDecimals(t *testing.T) {
	c, _ := stubServer(t, http.StatusOK,
		`{"user_address":"0x1","wallets":[{"currency":"BTC","value":0.5},{"currency":"ETH","value":"12.25"}]}`)
	info, err := c.UserInfo(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, info.Wallets, 2)
	assert.Equal(t, "0.5", info.Wallets[0].Value.String())
	assert.Equal(t, "12.25", info.Wallets[1].Value.String())
}

func TestCreateOrderSendsNumbers(t *testing.T) {
	c, calls := stubServer(t, http.StatusOK, `{"msg":"order 5 placed"}`)
	msg, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		UserID:       3,
		FromCurrency: "BTC",
		ToCurrency:   "ETH",
		Value:        decimal.RequireFromString("1.5"),
		ExchangeRate: decimal.RequireFromString("16.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "order 5 placed", msg)
	assert.Equal(t, map[string]any{
		"user_id":       float64(3),
		"from_currency": "BTC",
		"to_currency":   "ETH",
		"value":         1.5,
		"exchange_rate": 16.25,
	}, (*calls)[0].body)
}

func TestUserOrdersEmpty(t *testing.T) {
	c, _ := stubServer(t, http.StatusOK, `[]`)
	orders, err := c.UserOrders(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListOffersQuery(t *testing.T) {
	c, calls := stubServer(t, http.StatusOK,
		`[{"order_id":9,"from_currency":"ETH","to_currency":"BTC","amount_sold":2,"amount_to_receive":0.1,"status":"open"}]`)
	orders, err := c.ListOffers(context.Background(), OffersRequest{UserID: 1, BuyCurrency: "ETH", SellCurrency: "BTC"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.EqualValues(t, 9, orders[0].ID)
	assert.Equal(t, "open", orders[0].Status)

	call := (*calls)[0]
	assert.Equal(t, "/orders/list", call.path)
	assert.Equal(t, map[string]string{"user_id": "1", "currency_to_buy": "ETH", "currency_to_sell": "BTC"}, call.query)
}

func TestListOffersRejectsOrderWithoutID(t *testing.T) {
	c, _ := stubServer(t, http.StatusOK, `[{"from_currency":"ETH"}]`)
	_, err := c.ListOffers(context.Background(), OffersRequest{UserID: 1})
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestUserOrdersRejectsIncompleteOrder(t *testing.T) {
	full := map[string]any{
		"order_id": 5, "from_currency": "BTC", "to_currency": "ETH",
		"amount_sold": 1, "amount_to_receive": 16, "status": "open",
	}
	for _, field := range []string{"from_currency", "to_currency", "amount_sold", "amount_to_receive", "status"} {
		t.Run(field, func(t *testing.T) {
			order := make(map[string]any, len(full))
			for k, v := range full {
				if k != field {
					order[k] = v
				}
			}
			data, err := json.Marshal([]any{order})
			require.NoError(t, err)

			c, _ := stubServer(t, http.StatusOK, string(data))
			orders, err := c.UserOrders(context.Background(), 1)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.ErrorIs(t, err, ErrGateway)
			assert.Contains(t, err.Error(), field)
			assert.Nil(t, orders)
		})
	}
}

func TestUserInfoRejectsWalletWithoutValue(t *testing.T) {
	c, _ := stubServer(t, http.StatusOK, `{"user_address":"0x1","wallets":[{"currency":"BTC"}]}`)
	_, err := c.UserInfo(context.Background(), 1)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, err.Error(), "wallets.value")
}

func TestOnlyStatusOKSucceeds(t *testing.T) {
	for _, code := range []int{http.StatusCreated, http.StatusAccepted, http.StatusNoContent} {
		c, _ := stubServer(t, code, ``)
		err := c.DeleteOrder(context.Background(), 1, 7)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr, "status %d", code)
		assert.Equal(t, code, statusErr.Code)
	}
}

func TestDeleteOrderStatusError(t *testing.T) {
	c, calls := stubServer(t, http.StatusNotFound, `{"detail":"not found"}`)
	err := c.DeleteOrder(context.Background(), 1, 7)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Contains(t, statusErr.Body, "not found")
	assert.ErrorIs(t, err, ErrGateway)

	call := (*calls)[0]
	assert.Equal(t, http.MethodDelete, call.method)
	assert.Equal(t, "7", call.query["order_id"])
	assert.Equal(t, "1", call.query["user_id"])
}

func TestBuyOrder(t *testing.T) {
	c, calls := stubServer(t, http.StatusOK, `{"amount_to_receive":3.5,"amount_paid":"0.07"}`)
	p, err := c.BuyOrder(context.Background(), BuyRequest{UserID: 1, OrderID: 42, Amount: decimal.RequireFromString("3.5")})
	require.NoError(t, err)
	assert.Equal(t, "3.5", p.AmountReceived.String())
	assert.Equal(t, "0.07", p.AmountPaid.String())
	assert.Equal(t, map[string]any{"user_id": float64(1), "order_id": float64(42), "amount_to_buy": 3.5}, (*calls)[0].body)
}

func TestRecoverPasswordIgnoresBody(t *testing.T) {
	c, calls := stubServer(t, http.StatusOK, `not json`)
	require.NoError(t, c.RecoverPassword(context.Background(), RecoverPasswordRequest{UserID: 1, Mnemonic: "a b", NewPassword: "n"}))
	assert.Equal(t, "a b", (*calls)[0].body["mnemonic_phrase"])
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url)
	_, err := c.UserExists(context.Background(), 1)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, "transport_dial", transportErr.Kind())
	assert.Equal(t, "transport", resultLabel(err))
	assert.Equal(t, "ok", resultLabel(nil))
	assert.Equal(t, "error", resultLabel(errors.New("x")))
}

func TestSingleAttempt(t *testing.T) {
	c, calls := stubServer(t, http.StatusInternalServerError, ``)
	_, err := c.UserOrders(context.Background(), 1)
	require.Error(t, err)
	assert.Len(t, *calls, 1)
}
