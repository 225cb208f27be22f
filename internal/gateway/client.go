// Package gateway is the HTTP client of the exchange backend. Every method
// performs exactly one request without retries and reports failures as
// *TransportError, *StatusError or *DecodeError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 256
	maxBody        = 1 << 20
)

// Client talks to the exchange API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserExists reports whether userID has an account.
func (c *Client) UserExists(ctx context.Context, userID int64) (bool, error) {
	const op = "user_exist"
	var resp existsResponse
	if err := c.do(ctx, op, http.MethodGet, "/user/exist", userQuery(userID), nil, &resp); err != nil {
		return false, err
	}
	if resp.Exists == nil {
		return false, &DecodeError{Op: op, Err: missing("exists")}
	}
	return *resp.Exists, nil
}

// CreateAccount registers userID with password.
func (c *Client) CreateAccount(ctx context.Context, userID int64, password string) (Account, error) {
	const op = "create_account"
	var resp accountResponse
	body := createAccountBody{UserID: userID, Password: password}
	if err := c.do(ctx, op, http.MethodPost, "/user/createAccount/", nil, body, &resp); err != nil {
		return Account{}, err
	}
	if resp.Mnemonic == nil {
		return Account{}, &DecodeError{Op: op, Err: missing("mnemonic_phrase")}
	}
	if resp.Address == nil {
		return Account{}, &DecodeError{Op: op, Err: missing("user_address")}
	}
	return Account{Mnemonic: resp.Mnemonic, Address: *resp.Address}, nil
}

// UserInfo returns the address and balances of userID.
func (c *Client) UserInfo(ctx context.Context, userID int64) (UserInfo, error) {
	const op = "user_info"
	var resp userInfoResponse
	if err := c.do(ctx, op, http.MethodGet, "/user/info", userQuery(userID), nil, &resp); err != nil {
		return UserInfo{}, err
	}
	if resp.Address == nil {
		return UserInfo{}, &DecodeError{Op: op, Err: missing("user_address")}
	}
	info := UserInfo{Address: *resp.Address, Wallets: make([]Wallet, 0, len(resp.Wallets))}
	for _, w := range resp.Wallets {
		if w.Currency == nil {
			return UserInfo{}, &DecodeError{Op: op, Err: missing("wallets.currency")}
		}
		if w.Value == nil {
			return UserInfo{}, &DecodeError{Op: op, Err: missing("wallets.value")}
		}
		info.Wallets = append(info.Wallets, Wallet{Currency: *w.Currency, Value: *w.Value})
	}
	return info, nil
}

// RecoverPassword replaces the password after verifying the mnemonic phrase.
func (c *Client) RecoverPassword(ctx context.Context, req RecoverPasswordRequest) error {
	body := recoverPasswordBody{UserID: req.UserID, Mnemonic: req.Mnemonic, NewPassword: req.NewPassword}
	return c.do(ctx, "recover_password", http.MethodPost, "/user/recoverPassword/", nil, body, nil)
}

// CreateOrder places a new order and returns the API's message.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	const op = "create_order"
	body := createOrderBody{
		UserID:       req.UserID,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Value:        req.Value.InexactFloat64(),
		ExchangeRate: req.ExchangeRate.InexactFloat64(),
	}
	var resp createOrderResponse
	if err := c.do(ctx, op, http.MethodPost, "/order/create", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Msg == nil {
		return "", &DecodeError{Op: op, Err: missing("msg")}
	}
	return *resp.Msg, nil
}

// UserOrders lists the orders placed by userID.
func (c *Client) UserOrders(ctx context.Context, userID int64) ([]Order, error) {
	const op = "user_orders"
	var resp []orderResponse
	if err := c.do(ctx, op, http.MethodGet, "/user/orders", userQuery(userID), nil, &resp); err != nil {
		return nil, err
	}
	orders, err := ordersFrom(resp)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return orders, nil
}

// DeleteOrder removes orderID owned by userID.
func (c *Client) DeleteOrder(ctx context.Context, userID, orderID int64) error {
	q := url.Values{}
	q.Set("order_id", strconv.FormatInt(orderID, 10))
	q.Set("user_id", strconv.FormatInt(userID, 10))
	return c.do(ctx, "delete_order", http.MethodDelete, "/order/delete", q, nil, nil)
}

// ListOffers lists the orders the user can buy for the given currency pair.
func (c *Client) ListOffers(ctx context.Context, req OffersRequest) ([]Order, error) {
	const op = "list_offers"
	q := userQuery(req.UserID)
	q.Set("currency_to_buy", req.BuyCurrency)
	q.Set("currency_to_sell", req.SellCurrency)
	var resp []orderResponse
	if err := c.do(ctx, op, http.MethodGet, "/orders/list", q, nil, &resp); err != nil {
		return nil, err
	}
	orders, err := ordersFrom(resp)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return orders, nil
}

// BuyOrder purchases part of an order.
func (c *Client) BuyOrder(ctx context.Context, req BuyRequest) (Purchase, error) {
	const op = "buy_order"
	body := buyBody{UserID: req.UserID, OrderID: req.OrderID, AmountToBuy: req.Amount.InexactFloat64()}
	var resp purchaseResponse
	if err := c.do(ctx, op, http.MethodPost, "/orders/buy", nil, body, &resp); err != nil {
		return Purchase{}, err
	}
	if resp.AmountToReceive == nil {
		return Purchase{}, &DecodeError{Op: op, Err: missing("amount_to_receive")}
	}
	if resp.AmountPaid == nil {
		return Purchase{}, &DecodeError{Op: op, Err: missing("amount_paid")}
	}
	return Purchase{AmountReceived: *resp.AmountToReceive, AmountPaid: *resp.AmountPaid}, nil
}

func userQuery(userID int64) url.Values {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	return q
}

// do sends one request and decodes a 200 JSON body into out when out is set.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	requestID := uuid.NewString()
	code := 0
	defer func() {
		took := time.Since(start)
		metrics.APIRequests.WithLabelValues(op, resultLabel(err)).Inc()
		metrics.APILatency.WithLabelValues(op).Observe(took.Seconds())

		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("op", op),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Duration("duration", took),
		}
		if code != 0 {
			attrs = append(attrs, slog.Int("http_code", code))
		}
		if err != nil {
			attrs = append(attrs, logger.Err(err))
			logger.Warn(ctx, "api", "request", attrs...)
			return
		}
		logger.Debug(ctx, "api", "request", attrs...)
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("gateway: %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	code = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: op, Code: resp.StatusCode, Body: logger.SanitizeLimit(strings.TrimSpace(string(data)), maxErrorBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func resultLabel(err error) string {
	var (
		transportErr *TransportError
		statusErr    *StatusError
		decodeErr    *DecodeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "error"
	}
}
