package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/metrics"
)

// MemoryStore keeps encoded session snapshots in process memory, so callers
// never share scratch values with the store.
type MemoryStore[S any] struct {
	opts Options

	mu       sync.Mutex
	sessions map[int64][]byte
}

// NewMemoryStore constructs an in-memory Store.
func NewMemoryStore[S any](opts Options) *MemoryStore[S] {
	return &MemoryStore[S]{
		opts:     opts,
		sessions: make(map[int64][]byte),
	}
}

// Get returns the stored session or a fresh idle one.
func (m *MemoryStore[S]) Get(ctx context.Context, id int64) (*Session[S], error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return NewSession[S](id), nil
	}

	s, err := decode[S](data)
	if err != nil {
		return nil, err
	}
	if m.opts.expired(s.UpdatedAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		metrics.SessionsEvicted.WithLabelValues("memory").Inc()
		logger.Debug(ctx, "state", "session.expired",
			slog.String("status", "expired"),
			slog.String("backend", "memory"),
		)
		return NewSession[S](id), nil
	}
	return s, nil
}

// Save stores s, or removes it when no conversation is active.
func (m *MemoryStore[S]) Save(ctx context.Context, s *Session[S]) error {
	if !s.Active() {
		return m.Clear(ctx, s.ID)
	}
	s.UpdatedAt = m.opts.now()
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = data
	m.mu.Unlock()
	return nil
}

// Clear removes the session of id.
func (m *MemoryStore[S]) Clear(_ context.Context, id int64) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts every session idle past the timeout.
func (m *MemoryStore[S]) Sweep(_ context.Context) (int, error) {
	if m.opts.IdleTimeout <= 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, data := range m.sessions {
		s, err := decode[S](data)
		if err != nil || m.opts.expired(s.UpdatedAt) {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.SessionsEvicted.WithLabelValues("memory").Add(float64(evicted))
	}
	return evicted, nil
}

// Close releases nothing; it exists to satisfy Store.
func (m *MemoryStore[S]) Close() error {
	return nil
}
