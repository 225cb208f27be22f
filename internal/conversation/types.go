package conversation

import (
	"context"

	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	"github.com/m3rciful/exchangebot/internal/menu"
)

// Reply is the chat surface a step writes to.
type Reply interface {
	// Show edits the message a button was pressed on, or sends a new
	// message when the event carries no such message.
	Show(s menu.Screen) error
	// Send always posts a new message.
	Send(s menu.Screen) error
	// DeleteInput removes the user's message. Failures are logged, not returned.
	DeleteInput()
}

// Event is an inbound button press, command or text message.
type Event struct {
	UserID  int64
	Trigger string
	Text    string
}

// Input is passed to entry and step functions. Scratch points into the
// session and is saved after the step returns.
type Input struct {
	Event
	Scratch *Scratch
	Reply   Reply
}

// StepFunc handles one inbound event of a conversation.
type StepFunc func(ctx context.Context, in Input) (Transition, error)

// Pattern matches entry triggers either exactly or as "<Key><digits>".
type Pattern struct {
	Key    string
	WithID bool
}

// Exact matches trigger key only.
func Exact(key string) Pattern { return Pattern{Key: key} }

// WithID matches prefix followed by a decimal id.
func WithID(prefix string) Pattern { return Pattern{Key: prefix, WithID: true} }

// Match reports whether trigger selects the pattern.
func (p Pattern) Match(trigger string) bool {
	if !p.WithID {
		return trigger == p.Key
	}
	_, ok := callbacks.SuffixID(trigger, p.Key)
	return ok
}

// Definition describes a linear conversation. Enter runs on the trigger
// with empty scratch and returns the first step, or End for a conversation
// that finishes immediately.
type Definition struct {
	Name    string
	Trigger Pattern
	Enter   StepFunc
	Steps   map[string]StepFunc
}
