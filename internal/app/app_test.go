package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/exchangebot/core/bootstrap"
	coreconfig "github.com/m3rciful/exchangebot/core/config"
	tg "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/internal/config"
	"github.com/m3rciful/exchangebot/internal/gateway"
	"github.com/m3rciful/exchangebot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

const chatUser int64 = 77

// fakeContext records what handlers write to the chat.
type fakeContext struct {
	tele.Context
	sent      []string
	edited    []string
	deleted   int
	responses []*tele.CallbackResponse
}

func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what.(string))
	return nil
}

func (f *fakeContext) Edit(what any, _ ...any) error {
	f.edited = append(f.edited, what.(string))
	return nil
}

func (f *fakeContext) Delete() error {
	f.deleted++
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		f.responses = append(f.responses, resp[0])
	} else {
		f.responses = append(f.responses, nil)
	}
	return nil
}

func textUpdate(text string) *fakeContext {
	return &fakeContext{Context: tele.NewContext(nil, tele.Update{
		ID: 1,
		Message: &tele.Message{
			ID:     10,
			Text:   text,
			Sender: &tele.User{ID: chatUser},
			Chat:   &tele.Chat{ID: chatUser},
		},
	})}
}

func callbackUpdate(data string) *fakeContext {
	return &fakeContext{Context: tele.NewContext(nil, tele.Update{
		ID: 2,
		Callback: &tele.Callback{
			ID:     "cb",
			Data:   data,
			Sender: &tele.User{ID: chatUser},
			Message: &tele.Message{
				ID:   11,
				Chat: &tele.Chat{ID: chatUser},
			},
		},
	})}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, _ := newCountingApp(t)
	return a
}

// newCountingApp also reports how many createAccount requests the stub saw.
func newCountingApp(t *testing.T) (*App, *atomic.Int32) {
	t.Helper()
	created := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/exist":
			_, _ = io.WriteString(w, `{"exists":true}`)
		case "/user/createAccount/":
			created.Add(1)
			_, _ = io.WriteString(w, `{"mnemonic_phrase":["a","b"],"user_address":"0xABC"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Core: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t", RunMode: coreconfig.RunModeLongpoll}},
		API:  config.APIConfig{URL: srv.URL, Timeout: time.Second},
		Session: config.SessionConfig{
			Backend:       config.BackendMemory,
			IdleTimeout:   time.Hour,
			SweepInterval: time.Minute,
		},
	}
	a, err := New(cfg, nil, gateway.New(cfg.API.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, created
}

func route(t *testing.T, a *App, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range a.routes() {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func TestRegistryBindings(t *testing.T) {
	a := newTestApp(t)

	cmds := a.registry.ListCommands(true)
	require.Len(t, cmds, 2)
	assert.Equal(t, "/cancel", cmds[0].Text)
	assert.Equal(t, "/start", cmds[1].Text)

	assert.ElementsMatch(t, []string{
		"buy_crypto", "buy_order_*", "cancel", "create_account", "create_order",
		"delete_order_*", "get_user_info", "main_menu", "mnemonic_saved", "my_orders",
		"orders", "recover_password",
	}, a.registry.ListCallbacks())
}

func TestCreateAccountThroughRoutes(t *testing.T) {
	a := newTestApp(t)
	onCallback := route(t, a, tele.OnCallback)
	onText := route(t, a, tele.OnText)

	c := callbackUpdate(menu.ActionCreateAccount)
	require.NoError(t, onCallback(c))
	assert.Equal(t, []string{menu.PromptPassword}, c.edited)
	assert.True(t, a.InProgress(c))

	m := textUpdate("pw1")
	require.NoError(t, onText(m))
	assert.Equal(t, 1, m.deleted)
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0], "0xABC")
	assert.Contains(t, m.sent[0], "a b")
	assert.False(t, a.InProgress(m))
}

func TestSlashCommandIsNeverAnAnswer(t *testing.T) {
	a, created := newCountingApp(t)
	onCallback := route(t, a, tele.OnCallback)
	onText := route(t, a, tele.OnText)

	require.NoError(t, onCallback(callbackUpdate(menu.ActionCreateAccount)))

	help := textUpdate("/help")
	require.NoError(t, onText(help))
	assert.Equal(t, []string{menu.UnknownCommand().Text}, help.sent)
	assert.Zero(t, help.deleted)
	assert.Zero(t, created.Load())
	assert.True(t, a.InProgress(help), "conversation keeps waiting for the password")

	cancel := textUpdate("/cancel now")
	require.NoError(t, onText(cancel))
	assert.Zero(t, created.Load())
	assert.False(t, a.InProgress(cancel))
	assert.Equal(t, []string{menu.Cancelled().Text, menu.Welcome(true).Text}, cancel.sent)
}

func TestIdleTextAndStartCommand(t *testing.T) {
	a := newTestApp(t)

	m := textUpdate("hello")
	require.NoError(t, route(t, a, tele.OnText)(m))
	assert.Equal(t, []string{"Please use /start to open the menu."}, m.sent)

	s := textUpdate("/start")
	require.NoError(t, route(t, a, "/start")(s))
	assert.Equal(t, []string{menu.Welcome(true).Text}, s.sent)
}

func TestMalformedPrefixTriggerIsUnsupported(t *testing.T) {
	a := newTestApp(t)
	c := callbackUpdate("buy_order_abc")
	require.NoError(t, route(t, a, tele.OnCallback)(c))
	assert.False(t, a.InProgress(c))

	require.NotEmpty(t, c.responses)
	last := c.responses[len(c.responses)-1]
	require.NotNil(t, last)
	assert.Equal(t, "Unsupported action", last.Text)
}

func TestBusyWhileAnotherConversationRuns(t *testing.T) {
	a := newTestApp(t)
	onCallback := route(t, a, tele.OnCallback)

	require.NoError(t, onCallback(callbackUpdate(menu.ActionCreateOrder)))
	c := callbackUpdate("buy_order_5")
	require.NoError(t, onCallback(c))
	require.Len(t, c.sent, 1)
	assert.True(t, strings.HasPrefix(c.sent[0], "You are in the middle"))

	cancel := callbackUpdate(menu.ActionCancel)
	require.NoError(t, onCallback(cancel))
	assert.Equal(t, []string{menu.Cancelled().Text}, cancel.edited)
	assert.Equal(t, []string{menu.Welcome(true).Text}, cancel.sent)
	assert.False(t, a.InProgress(cancel))
}

func TestTelegramRunOptions(t *testing.T) {
	a := newTestApp(t)
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.True(t, opts.Synchronous)
	assert.Same(t, a.registry, opts.Registry)
	require.NotEmpty(t, opts.Middlewares)
	assert.Equal(t, "serial", opts.Middlewares[0].Name)
	require.NoError(t, opts.OnStop(context.Background(), tg.Runtime{}))
}

func TestNewStoreRequiresInfrastructure(t *testing.T) {
	_, err := newStore(config.SessionConfig{Backend: config.BackendRedis}, &bootstrap.Result{})
	assert.Error(t, err)
	_, err = newStore(config.SessionConfig{Backend: config.BackendPostgres}, &bootstrap.Result{})
	assert.Error(t, err)
	_, err = newStore(config.SessionConfig{Backend: "etcd"}, &bootstrap.Result{})
	assert.Error(t, err)
}
