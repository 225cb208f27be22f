package state

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testScratch struct {
	Currency string `json:"currency,omitempty"`
	OrderID  *int64 `json:"order_id,omitempty"`
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestSessionTransitions(t *testing.T) {
	s := NewSession[testScratch](1)
	assert.False(t, s.Active())
	assert.True(t, s.Valid())

	assert.ErrorIs(t, s.Advance("next"), ErrInvalidTransition)
	assert.ErrorIs(t, s.Begin("flow", ""), ErrInvalidTransition)

	require.NoError(t, s.Begin("flow", "first"))
	s.Scratch.Currency = "BTC"
	require.NoError(t, s.Advance("second"))
	assert.True(t, s.Valid())
	assert.Equal(t, "second", s.Step)

	require.NoError(t, s.Begin("other", "start"))
	assert.Empty(t, s.Scratch.Currency, "begin must not inherit scratch")

	s.Reset()
	assert.Equal(t, *NewSession[testScratch](1), *s)
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, store Store[testScratch], id int64) {
	ctx := context.Background()
	require.NoError(t, store.Clear(ctx, id))

	fresh, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, fresh.Active())
	assert.Equal(t, id, fresh.ID)

	orderID := int64(42)
	require.NoError(t, fresh.Begin("buy_order", "ask_amount_to_buy"))
	fresh.Scratch.OrderID = &orderID
	require.NoError(t, store.Save(ctx, fresh))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "buy_order", got.Conversation)
	assert.Equal(t, "ask_amount_to_buy", got.Step)
	require.NotNil(t, got.Scratch.OrderID)
	assert.EqualValues(t, 42, *got.Scratch.OrderID)

	got.Reset()
	require.NoError(t, store.Save(ctx, got))
	after, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, after.Active())
	assert.Nil(t, after.Scratch.OrderID)
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore[testScratch](Options{IdleTimeout: time.Minute}), 10)
}

func TestMemoryStoreIsolatesScratch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[testScratch](Options{})
	s, _ := store.Get(ctx, 5)
	require.NoError(t, s.Begin("flow", "step"))
	id := int64(1)
	s.Scratch.OrderID = &id
	require.NoError(t, store.Save(ctx, s))

	*s.Scratch.OrderID = 99
	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, *got.Scratch.OrderID)
}

func TestMemoryStoreIdleTimeout(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore[testScratch](Options{IdleTimeout: 30 * time.Minute, Now: clock.Now})

	for _, id := range []int64{1, 2} {
		s, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.NoError(t, s.Begin("create_order", "ask_from_currency"))
		require.NoError(t, store.Save(ctx, s))
	}

	clock.now = clock.now.Add(31 * time.Minute)
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.Active(), "idle session must be evicted on read")

	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, store.Len())
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	store := NewMemoryStore[testScratch](Options{IdleTimeout: time.Nanosecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, store, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRedisStoreContract(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	store := NewRedisStore[testScratch](client, Options{IdleTimeout: time.Minute}, "exchangebot:test:session:")
	exerciseStore(t, store, 20)

	ttl, err := client.TTL(context.Background(), "exchangebot:test:session:20").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Duration(0), "idle session must not keep a key")
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chat_sessions (
		id BIGINT PRIMARY KEY,
		conversation TEXT NOT NULL,
		step TEXT NOT NULL,
		scratch JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Now().UTC()}
	store := NewPostgresStore[testScratch](db, Options{IdleTimeout: time.Minute, Now: clock.Now})
	exerciseStore(t, store, 30)

	ctx := context.Background()
	s, err := store.Get(ctx, 31)
	require.NoError(t, err)
	require.NoError(t, s.Begin("buy_crypto", "ask_buy_currency"))
	require.NoError(t, store.Save(ctx, s))

	clock.now = clock.now.Add(2 * time.Minute)
	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}
