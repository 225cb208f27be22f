// Package conversation runs the linear multi-step dialogues of the bot.
//
// Each user has at most one active conversation. Entry triggers start a
// conversation, free text advances it, and a step either moves to the next
// step, stays on the current one, or ends the conversation. The session is
// loaded, handled and saved under a per-user lock.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/metrics"
)

var (
	// ErrUnknownTrigger is returned for a trigger no definition matches.
	ErrUnknownTrigger = errors.New("conversation: unknown trigger")
	// ErrUnknownStep is returned when a session or transition names a step
	// the conversation does not define.
	ErrUnknownStep = errors.New("conversation: unknown step")
)

// Conversation events reported in metrics and logs.
const (
	eventStarted   = "started"
	eventRestarted = "restarted"
	eventCompleted = "completed"
	eventCancelled = "cancelled"
	eventRejected  = "rejected"
	eventAborted   = "aborted"
	eventRetry     = "retry"
)

// Hooks render the outcomes the dispatcher decides on its own.
type Hooks struct {
	// Busy answers a trigger of another conversation while one is active.
	Busy func(ctx context.Context, in Input) error
	// Failed answers a step that returned an error.
	Failed func(ctx context.Context, in Input) error
}

// Dispatcher owns the session store and the registered conversations.
type Dispatcher struct {
	store Store
	hooks Hooks

	defs   []*Definition
	byName map[string]*Definition

	locks keyedMutex
}

// New returns a Dispatcher saving sessions in store.
func New(store Store, hooks Hooks) *Dispatcher {
	return &Dispatcher{
		store:  store,
		hooks:  hooks,
		byName: make(map[string]*Definition),
		locks:  keyedMutex{m: make(map[int64]*lockEntry)},
	}
}

// Register adds a conversation.
func (d *Dispatcher) Register(def Definition) error {
	if def.Name == "" || def.Trigger.Key == "" || def.Enter == nil {
		return fmt.Errorf("conversation: incomplete definition %q", def.Name)
	}
	if _, dup := d.byName[def.Name]; dup {
		return fmt.Errorf("conversation: %q already registered", def.Name)
	}
	for _, other := range d.defs {
		if other.Trigger == def.Trigger {
			return fmt.Errorf("conversation: trigger %q already used by %q", def.Trigger.Key, other.Name)
		}
	}
	stored := def
	d.defs = append(d.defs, &stored)
	d.byName[def.Name] = &stored
	return nil
}

// Triggers lists the entry patterns of the registered conversations.
func (d *Dispatcher) Triggers() []Pattern {
	out := make([]Pattern, 0, len(d.defs))
	for _, def := range d.defs {
		out = append(out, def.Trigger)
	}
	return out
}

func (d *Dispatcher) match(trigger string) *Definition {
	for _, def := range d.defs {
		if def.Trigger.Match(trigger) {
			return def
		}
	}
	return nil
}

// Active reports the conversation in progress for userID, if any.
func (d *Dispatcher) Active(ctx context.Context, userID int64) (string, bool, error) {
	unlock := d.locks.lock(userID)
	defer unlock()
	sess, err := d.store.Get(ctx, userID)
	if err != nil {
		return "", false, err
	}
	return sess.Conversation, sess.Active(), nil
}

// Trigger starts the conversation selected by ev.Trigger. A trigger of the
// active conversation restarts it with empty scratch; a trigger of another
// conversation is rejected through Hooks.Busy and leaves the session as is.
func (d *Dispatcher) Trigger(ctx context.Context, ev Event, reply Reply) error {
	def := d.match(ev.Trigger)
	if def == nil {
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, ev.Trigger)
	}

	unlock := d.locks.lock(ev.UserID)
	defer unlock()

	sess, err := d.store.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}

	in := Input{Event: ev, Reply: reply}
	event := eventStarted
	if sess.Active() {
		if sess.Conversation != def.Name {
			d.record(ctx, def.Name, eventRejected, slog.String("cause", "active:"+sess.Conversation))
			in.Scratch = &sess.Scratch
			if d.hooks.Busy != nil {
				return d.hooks.Busy(logger.WithConversation(ctx, sess.Conversation, sess.Step), in)
			}
			return nil
		}
		event = eventRestarted
	}

	sess.Reset()
	in.Scratch = &sess.Scratch
	ctx = logger.WithConversation(ctx, def.Name, "")
	tr, err := def.Enter(ctx, in)
	if err != nil {
		return d.abort(ctx, sess, def.Name, in, err)
	}
	switch tr.kind {
	case kindGoto:
		if _, ok := def.Steps[tr.step]; !ok {
			return d.abort(ctx, sess, def.Name, in, fmt.Errorf("%w: %s.%s", ErrUnknownStep, def.Name, tr.step))
		}
		scratch := sess.Scratch
		if err := sess.Begin(def.Name, tr.step); err != nil {
			return d.abort(ctx, sess, def.Name, in, err)
		}
		sess.Scratch = scratch
		d.record(ctx, def.Name, event, slog.String("step", tr.step))
	default:
		sess.Reset()
		d.record(ctx, def.Name, eventCompleted)
	}
	return d.store.Save(ctx, sess)
}

// Input feeds text to the active conversation of ev.UserID. It reports
// false when no conversation is active.
func (d *Dispatcher) Input(ctx context.Context, ev Event, reply Reply) (bool, error) {
	unlock := d.locks.lock(ev.UserID)
	defer unlock()

	sess, err := d.store.Get(ctx, ev.UserID)
	if err != nil {
		return false, err
	}
	if !sess.Active() {
		return false, nil
	}

	name, stepName := sess.Conversation, sess.Step
	in := Input{Event: ev, Scratch: &sess.Scratch, Reply: reply}
	ctx = logger.WithConversation(ctx, name, stepName)

	def, ok := d.byName[name]
	if !ok {
		return true, d.abort(ctx, sess, name, in, fmt.Errorf("%w: conversation %q", ErrUnknownStep, name))
	}
	step, ok := def.Steps[stepName]
	if !ok {
		return true, d.abort(ctx, sess, name, in, fmt.Errorf("%w: %s.%s", ErrUnknownStep, name, stepName))
	}

	tr, err := step(ctx, in)
	if err != nil {
		return true, d.abort(ctx, sess, name, in, err)
	}
	switch tr.kind {
	case kindGoto:
		if _, ok := def.Steps[tr.step]; !ok {
			return true, d.abort(ctx, sess, name, in, fmt.Errorf("%w: %s.%s", ErrUnknownStep, name, tr.step))
		}
		if err := sess.Advance(tr.step); err != nil {
			return true, d.abort(ctx, sess, name, in, err)
		}
		logger.Debug(ctx, "conversation", "step",
			slog.String("status", "ok"),
			slog.String("next", tr.step),
		)
	case kindEnd:
		sess.Reset()
		d.record(ctx, name, eventCompleted)
	default:
		d.record(ctx, name, eventRetry)
	}
	return true, d.store.Save(ctx, sess)
}

// Cancel ends the active conversation of userID. It reports whether one
// was active.
func (d *Dispatcher) Cancel(ctx context.Context, userID int64) (bool, error) {
	unlock := d.locks.lock(userID)
	defer unlock()

	sess, err := d.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if !sess.Active() {
		return false, nil
	}
	name := sess.Conversation
	sess.Reset()
	if err := d.store.Save(ctx, sess); err != nil {
		return true, err
	}
	d.record(logger.WithConversation(ctx, name, ""), name, eventCancelled)
	return true, nil
}

// abort clears the session after a failed step and reports the failure.
func (d *Dispatcher) abort(ctx context.Context, sess *Session, name string, in Input, cause error) error {
	sess.Reset()
	in.Scratch = &sess.Scratch
	errs := []error{cause}
	if err := d.store.Save(ctx, sess); err != nil {
		errs = append(errs, err)
	}
	metrics.ConversationEvents.WithLabelValues(name, eventAborted).Inc()
	logger.Error(ctx, "conversation", eventAborted,
		slog.String("status", "fail"),
		logger.Err(cause),
	)
	if d.hooks.Failed != nil {
		if err := d.hooks.Failed(ctx, in); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) record(ctx context.Context, name, event string, attrs ...slog.Attr) {
	metrics.ConversationEvents.WithLabelValues(name, event).Inc()
	status := "ok"
	if event == eventRejected {
		status = "rejected"
	}
	if event == eventCancelled {
		status = "cancelled"
	}
	logger.Info(ctx, "conversation", event, append([]slog.Attr{slog.String("status", status)}, attrs...)...)
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serializes work per user id and forgets ids nobody holds.
type keyedMutex struct {
	mu sync.Mutex
	m  map[int64]*lockEntry
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	e, ok := k.m[id]
	if !ok {
		e = &lockEntry{}
		k.m[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, id)
		}
		k.mu.Unlock()
	}
}
