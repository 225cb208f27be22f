package serial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanesPreserveOrderPerKey(t *testing.T) {
	l := New(Options{QueueSize: 100})

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, l.Submit(context.Background(), 1, "job", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}
	l.Close()

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Zero(t, l.Pending())
}

func TestLanesRunKeysConcurrently(t *testing.T) {
	l := New(Options{})
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, l.Submit(context.Background(), 1, "blocker", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started

	done := make(chan struct{})
	require.NoError(t, l.Submit(context.Background(), 2, "other", func() error {
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lane 2 blocked behind lane 1")
	}
	close(release)
	l.Close()
}

func TestLanesQueueFull(t *testing.T) {
	l := New(Options{QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, l.Submit(context.Background(), 7, "first", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, l.Submit(context.Background(), 7, "second", func() error { return nil }))
	assert.ErrorIs(t, l.Submit(context.Background(), 7, "third", func() error { return nil }), ErrQueueFull)

	close(release)
	l.Close()
}

func TestLanesClosedAndErrors(t *testing.T) {
	l := New(Options{})
	var ran atomic.Int32
	require.NoError(t, l.Submit(context.Background(), 3, "fail", func() error {
		ran.Add(1)
		return errors.New("boom")
	}))
	require.NoError(t, l.Submit(context.Background(), 3, "panic", func() error {
		ran.Add(1)
		panic("kaboom")
	}))
	l.Close()

	assert.EqualValues(t, 2, ran.Load())
	assert.EqualValues(t, 2, l.ErrorCount())
	assert.ErrorIs(t, l.Submit(context.Background(), 3, "late", func() error { return nil }), ErrQueueClosed)
}
