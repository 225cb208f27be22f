package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/exchangebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func TestRegistryCallbackResolution(t *testing.T) {
	reg := NewRegistry()
	hit := ""
	mk := func(name string) tele.HandlerFunc {
		return func(tele.Context) error { hit = name; return nil }
	}
	require.NoError(t, reg.RegisterCallback("orders", mk("orders")))
	require.NoError(t, reg.RegisterCallbackPrefix("buy_", mk("buy")))
	require.NoError(t, reg.RegisterCallbackPrefix("buy_order_", mk("buy_order")))

	assert.Error(t, reg.RegisterCallback("orders", mk("dup")))
	assert.Error(t, reg.RegisterCallbackPrefix("buy_", mk("dup")))

	for key, want := range map[string]string{
		"orders":       "orders",
		"buy_order_42": "buy_order",
		"buy_crypto":   "buy",
	} {
		h, ok := reg.GetCallback(key)
		require.True(t, ok, key)
		require.NoError(t, h(nil))
		assert.Equal(t, want, hit, key)
	}

	_, ok := reg.GetCallback("unknown")
	assert.False(t, ok)
	assert.Equal(t, []string{"buy_*", "buy_order_*", "orders"}, reg.ListCallbacks())
}

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	h := func(tele.Context) error { return nil }
	reg.RegisterCommand("/start", commands.Command{Handler: h, Description: "Open the menu"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: h, Description: "Cancel", Aliases: []string{"stop"}})
	reg.RegisterCommand("/debug", commands.Command{Handler: h, Description: "Debug", Hidden: true})
	reg.RegisterCommand("nope", commands.Command{Handler: h, Description: "Invalid"})

	list := reg.ListCommands(true)
	require.Len(t, list, 2)
	assert.Equal(t, "/cancel", list[0].Text)
	assert.Equal(t, "/start", list[1].Text)
	assert.Len(t, reg.ListCommands(false), 3)

	key, _, ok := reg.LookupCommand("/stop")
	assert.True(t, ok)
	assert.Equal(t, "/cancel", key)

	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}
