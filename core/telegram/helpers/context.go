package helpers

import (
	"context"

	"github.com/m3rciful/exchangebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext attaches ctx to c for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context previously stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// IDs returns the sender and chat identifiers of the update in c.
func IDs(c tele.Context) (userID, chatID int64) {
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return userID, chatID
}

// BuildContext returns the request context for c, creating it with the
// correlation id and update identifiers on first use.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	upd := c.Update()
	userID, chatID := IDs(c)

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler name in the stored context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

// WithConversation records the active conversation and step in the stored context.
func WithConversation(c tele.Context, conversation, step string) context.Context {
	ctx := logger.WithConversation(BuildContext(c), conversation, step)
	StoreContext(c, ctx)
	return ctx
}
