package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/exchangebot/core/logger"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T) tele.Context {
	t.Helper()
	return tele.NewContext(nil, tele.Update{
		ID: 5,
		Message: &tele.Message{
			Text:   "/start",
			Sender: &tele.User{ID: 7},
			Chat:   &tele.Chat{ID: 9, Type: tele.ChatPrivate},
		},
	})
}

func TestRecoverMiddlewareConvertsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRecoverMiddlewarePassesErrors(t *testing.T) {
	want := errors.New("plain")
	h := RecoverMiddleware(func(tele.Context) error { return want })
	assert.ErrorIs(t, h(newContext(t)), want)
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	c := newContext(t)
	var seen string
	h := LoggerMiddleware(func(c tele.Context) error {
		seen = logger.RIDFrom(tghelpers.BuildContext(c))
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, logger.BuildRID(5, 9, 7), seen)
	assert.Equal(t, seen, c.Get("rid"))
}

func TestMessageMetricsMiddlewareInitialisesCounters(t *testing.T) {
	c := newContext(t)
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		msgs, kb := GetCounters(c)
		assert.Zero(t, msgs)
		assert.False(t, kb)
		return nil
	})
	require.NoError(t, h(c))
}
