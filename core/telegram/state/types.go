// Package state keeps per-session conversation state for Telegram bots.
// A Session records which conversation is active, the current step within
// it, and typed scratch data collected by that conversation. Stores drop
// sessions that stay idle past their timeout.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a change would break the rule that
// a step is set exactly when a conversation is active.
var ErrInvalidTransition = errors.New("state: invalid transition")

// Session is the state of one chat user. S is the scratch record shared by
// the conversations of a bot.
type Session[S any] struct {
	ID           int64     `json:"id"`
	Conversation string    `json:"conversation,omitempty"`
	Step         string    `json:"step,omitempty"`
	Scratch      S         `json:"scratch"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSession returns an idle session for id.
func NewSession[S any](id int64) *Session[S] {
	return &Session[S]{ID: id}
}

// Active reports whether a conversation is in progress.
func (s *Session[S]) Active() bool {
	return s.Conversation != ""
}

// Valid reports whether the step is set exactly when a conversation is.
func (s *Session[S]) Valid() bool {
	return (s.Conversation == "") == (s.Step == "")
}

// Begin starts conversation at step with empty scratch.
func (s *Session[S]) Begin(conversation, step string) error {
	if conversation == "" || step == "" {
		return fmt.Errorf("%w: begin %q at %q", ErrInvalidTransition, conversation, step)
	}
	var zero S
	s.Conversation = conversation
	s.Step = step
	s.Scratch = zero
	return nil
}

// Advance moves the active conversation to step.
func (s *Session[S]) Advance(step string) error {
	if !s.Active() || step == "" {
		return fmt.Errorf("%w: advance %q to %q", ErrInvalidTransition, s.Conversation, step)
	}
	s.Step = step
	return nil
}

// Reset ends any conversation and empties scratch.
func (s *Session[S]) Reset() {
	var zero S
	s.Conversation = ""
	s.Step = ""
	s.Scratch = zero
}

// Store persists sessions keyed by user id.
//
// Get never fails for a missing or expired session; it returns a fresh idle
// one instead. Save of an idle session removes it, so only sessions with an
// active conversation occupy storage.
type Store[S any] interface {
	Get(ctx context.Context, id int64) (*Session[S], error)
	Save(ctx context.Context, s *Session[S]) error
	Clear(ctx context.Context, id int64) error
	Close() error
}

// Sweeper is implemented by stores that evict idle sessions on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Options configures the store backends.
type Options struct {
	// IdleTimeout evicts sessions not saved for this long. Zero disables eviction.
	IdleTimeout time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) expired(updatedAt time.Time) bool {
	return o.IdleTimeout > 0 && o.now().Sub(updatedAt) > o.IdleTimeout
}

func encode[S any](s *Session[S]) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("state: encode session %d: %w", s.ID, err)
	}
	return data, nil
}

func decode[S any](data []byte) (*Session[S], error) {
	var s Session[S]
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("state: decode session: %w", err)
	}
	return &s, nil
}
