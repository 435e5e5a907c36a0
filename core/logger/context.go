package logger

import (
	"context"
	"strconv"
)

type ctxKey struct{}

// Update identifies the Telegram update a context belongs to.
type Update struct {
	ID      int
	UserID  int64
	ChatID  int64
	Handler string
}

// RID is the correlation id of the update: update, chat and user ids in
// base36, joined by dots.
func (u Update) RID() string {
	if u.ID == 0 && u.ChatID == 0 && u.UserID == 0 {
		return ""
	}
	return strconv.FormatInt(int64(u.ID), 36) + "." +
		strconv.FormatInt(u.ChatID, 36) + "." +
		strconv.FormatInt(u.UserID, 36)
}

// WithUpdate stores u in ctx. Every record logged with the returned
// context carries the update fields.
func WithUpdate(ctx context.Context, u Update) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, u)
}

// UpdateFrom returns the update stored by WithUpdate.
func UpdateFrom(ctx context.Context) (Update, bool) {
	if ctx == nil {
		return Update{}, false
	}
	u, ok := ctx.Value(ctxKey{}).(Update)
	return u, ok
}

// WithHandler records the handler name serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	u, _ := UpdateFrom(ctx)
	u.Handler = handler
	return WithUpdate(ctx, u)
}

// RIDFrom returns the correlation id of ctx, if any.
func RIDFrom(ctx context.Context) string {
	u, _ := UpdateFrom(ctx)
	return u.RID()
}

// ChatIDFrom returns the chat id of ctx, if any.
func ChatIDFrom(ctx context.Context) int64 {
	u, _ := UpdateFrom(ctx)
	return u.ChatID
}

// UserIDFrom returns the user id of ctx, if any.
func UserIDFrom(ctx context.Context) int64 {
	u, _ := UpdateFrom(ctx)
	return u.UserID
}
