package middleware

import (
	"log/slog"

	"github.com/m3rciful/spotdl-bot/core/logger"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// SessionChecker reports whether a user still has a live session.
type SessionChecker interface {
	HasSession(userID int64) bool
}

// RequireSession drops updates from users without a live session and calls
// onMissing instead. Callback queries are the usual target.
func RequireSession(checker SessionChecker, onMissing tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if checker == nil || user == nil {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			if checker.HasSession(user.ID) {
				return next(c)
			}
			logger.TG.LogAttrs(ctx, slog.LevelDebug, "session.missing",
				slog.Int64("user_id", user.ID),
				slog.String("rid", logger.RIDFrom(ctx)),
			)
			if onMissing != nil {
				return onMissing(c)
			}
			return nil
		}
	}
}
