package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Updates seen recently. LoggerMiddleware wraps several route branches, so
// the same update can pass through it more than once.
var seenUpdates = expirable.NewLRU[int, struct{}](1024, nil, 10*time.Second)

func firstSighting(updateID int) bool {
	if seenUpdates.Contains(updateID) {
		return false
	}
	seenUpdates.Add(updateID, struct{}{})
	return true
}

// LoggerMiddleware stores the update context for downstream handlers and
// writes a sampled debug line describing the incoming update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		meta := tghelpers.UpdateMeta(c)
		ctx := logger.WithUpdate(context.Background(), meta)
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && firstSighting(meta.ID) {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	switch upd := c.Update(); {
	case upd.Callback != nil:
		cb := callbacks.Parse(upd.Callback)
		key, payload := cb.Unique, cb.Payload
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil:
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return attrs
}
