package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/exchangebot/core/telegram/state"
	"github.com/m3rciful/exchangebot/internal/menu"
)

type fakeReply struct {
	mu      sync.Mutex
	shown   []menu.Screen
	deleted int
}

func (f *fakeReply) Show(s menu.Screen) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, s)
	return nil
}

func (f *fakeReply) Send(s menu.Screen) error { return f.Show(s) }

func (f *fakeReply) DeleteInput() {
	f.mu.Lock()
	f.deleted++
	f.mu.Unlock()
}

const user int64 = 10

func newDispatcher(t *testing.T) (*Dispatcher, *state.MemoryStore[Scratch], *[]string) {
	t.Helper()
	store := state.NewMemoryStore[Scratch](state.Options{})
	var hooks []string
	d := New(store, Hooks{
		Busy:   func(context.Context, Input) error { hooks = append(hooks, "busy"); return nil },
		Failed: func(context.Context, Input) error { hooks = append(hooks, "failed"); return nil },
	})

	require.NoError(t, d.Register(Definition{
		Name:    "create_order",
		Trigger: Exact("create_order"),
		Enter: func(context.Context, Input) (Transition, error) {
			return Goto("from"), nil
		},
		Steps: map[string]StepFunc{
			"from": func(_ context.Context, in Input) (Transition, error) {
				in.Scratch.FromCurrency = in.Text
				return Goto("to"), nil
			},
			"to": func(_ context.Context, in Input) (Transition, error) {
				if in.Text == "" {
					return Stay(), nil
				}
				in.Scratch.ToCurrency = in.Text
				return End(), nil
			},
		},
	}))
	require.NoError(t, d.Register(Definition{
		Name:    "buy_order",
		Trigger: WithID("buy_order_"),
		Enter: func(_ context.Context, in Input) (Transition, error) {
			id := int64(len(in.Trigger))
			in.Scratch.OrderID = &id
			return Goto("amount"), nil
		},
		Steps: map[string]StepFunc{
			"amount": func(_ context.Context, in Input) (Transition, error) {
				switch in.Text {
				case "boom":
					return Transition{}, errors.New("boom")
				case "lost":
					return Goto("nowhere"), nil
				case "more":
					*in.Scratch.OrderID++
					return Stay(), nil
				}
				return End(), nil
			},
		},
	}))
	return d, store, &hooks
}

func session(t *testing.T, store *state.MemoryStore[Scratch]) *Session {
	t.Helper()
	s, err := store.Get(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, s.Valid(), "conversation and step must be set together")
	return s
}

func TestConversationRunsToEnd(t *testing.T) {
	d, store, _ := newDispatcher(t)
	ctx := context.Background()
	r := &fakeReply{}

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "create_order"}, r))
	s := session(t, store)
	assert.Equal(t, "create_order", s.Conversation)
	assert.Equal(t, "from", s.Step)

	handled, err := d.Input(ctx, Event{UserID: user, Text: "BTC"}, r)
	require.NoError(t, err)
	assert.True(t, handled)
	s = session(t, store)
	assert.Equal(t, "to", s.Step)
	assert.Equal(t, "BTC", s.Scratch.FromCurrency)

	handled, err = d.Input(ctx, Event{UserID: user, Text: ""}, r)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "to", session(t, store).Step)

	_, err = d.Input(ctx, Event{UserID: user, Text: "ETH"}, r)
	require.NoError(t, err)

	assert.Equal(t, state.NewSession[Scratch](user), session(t, store))
	assert.Zero(t, store.Len())

	handled, err = d.Input(ctx, Event{UserID: user, Text: "late"}, r)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestOtherTriggerRejectedWhileActive(t *testing.T) {
	d, store, hooks := newDispatcher(t)
	ctx := context.Background()
	r := &fakeReply{}

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "create_order"}, r))
	_, err := d.Input(ctx, Event{UserID: user, Text: "BTC"}, r)
	require.NoError(t, err)

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "buy_order_42"}, r))
	assert.Equal(t, []string{"busy"}, *hooks)

	s := session(t, store)
	assert.Equal(t, "create_order", s.Conversation)
	assert.Equal(t, "to", s.Step)
	assert.Equal(t, "BTC", s.Scratch.FromCurrency)
	assert.Nil(t, s.Scratch.OrderID)
}

func TestSameTriggerRestartsWithEmptyScratch(t *testing.T) {
	d, store, _ := newDispatcher(t)
	ctx := context.Background()
	r := &fakeReply{}

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "create_order"}, r))
	_, err := d.Input(ctx, Event{UserID: user, Text: "BTC"}, r)
	require.NoError(t, err)

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "create_order"}, r))
	s := session(t, store)
	assert.Equal(t, "from", s.Step)
	assert.Empty(t, s.Scratch.FromCurrency)
}

func TestCancelDoesNotLeakScratch(t *testing.T) {
	d, store, _ := newDispatcher(t)
	ctx := context.Background()
	r := &fakeReply{}

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "create_order"}, r))
	_, err := d.Input(ctx, Event{UserID: user, Text: "BTC"}, r)
	require.NoError(t, err)

	cancelled, err := d.Cancel(ctx, user)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, state.NewSession[Scratch](user), session(t, store))

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "buy_order_1"}, r))
	s := session(t, store)
	assert.Equal(t, "buy_order", s.Conversation)
	assert.Empty(t, s.Scratch.FromCurrency)

	cancelled, err = d.Cancel(ctx, user+1)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestStepErrorAbortsConversation(t *testing.T) {
	d, store, hooks := newDispatcher(t)
	ctx := context.Background()
	r := &fakeReply{}

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "buy_order_7"}, r))
	handled, err := d.Input(ctx, Event{UserID: user, Text: "boom"}, r)
	assert.True(t, handled)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"failed"}, *hooks)
	assert.False(t, session(t, store).Active())

	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "buy_order_7"}, r))
	_, err = d.Input(ctx, Event{UserID: user, Text: "lost"}, r)
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.False(t, session(t, store).Active())
}

func TestUnknownTrigger(t *testing.T) {
	d, _, _ := newDispatcher(t)
	err := d.Trigger(context.Background(), Event{UserID: user, Trigger: "buy_order_x"}, &fakeReply{})
	assert.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestRegisterValidation(t *testing.T) {
	d, _, _ := newDispatcher(t)
	enter := func(context.Context, Input) (Transition, error) { return End(), nil }
	assert.Error(t, d.Register(Definition{Name: "x"}))
	assert.Error(t, d.Register(Definition{Name: "create_order", Trigger: Exact("other"), Enter: enter}))
	assert.Error(t, d.Register(Definition{Name: "dup_trigger", Trigger: Exact("create_order"), Enter: enter}))
	assert.Equal(t, []Pattern{Exact("create_order"), WithID("buy_order_")}, d.Triggers())
}

func TestPatternMatch(t *testing.T) {
	assert.True(t, Exact("orders").Match("orders"))
	assert.False(t, Exact("orders").Match("orders_1"))
	assert.True(t, WithID("buy_order_").Match("buy_order_42"))
	assert.False(t, WithID("buy_order_").Match("buy_order_"))
	assert.False(t, WithID("buy_order_").Match("buy_order_-1"))
}

func TestInputSerializedPerUser(t *testing.T) {
	d, store, _ := newDispatcher(t)
	ctx := context.Background()
	r := &fakeReply{}
	require.NoError(t, d.Trigger(ctx, Event{UserID: user, Trigger: "buy_order_0"}, r))
	start := *session(t, store).Scratch.OrderID

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Input(ctx, Event{UserID: user, Text: "more"}, r)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, start+50, *session(t, store).Scratch.OrderID)
}
