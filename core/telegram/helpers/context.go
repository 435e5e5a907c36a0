package helpers

import (
	"context"

	"github.com/m3rciful/spotdl-bot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxStoreKey = "logger_ctx"

// StoreContext keeps ctx on the update so later helpers reuse it.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxStoreKey, ctx)
	}
}

// UpdateMeta extracts the ids logged with every record of the update.
func UpdateMeta(c tele.Context) logger.Update {
	u := logger.Update{ID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		u.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		u.UserID = user.ID
	}
	return u
}

// BuildContext returns the context stored for the update, creating one
// carrying the update ids on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxStoreKey).(context.Context); ok {
		return ctx
	}
	ctx := logger.WithUpdate(context.Background(), UpdateMeta(c))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the update context with the serving handler's name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), handler)
	StoreContext(c, ctx)
	return ctx
}
