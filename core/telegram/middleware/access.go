package middleware

import (
	"log/slog"

	"github.com/m3rciful/spotdl-bot/core/logger"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions configures AdminOnlyMiddleware. A zero AdminID means no one
// is an admin.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware passes only updates sent by the configured admin.
// Everyone else gets OnReject, so the command looks unknown to them.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	isAdmin := func(u *tele.User) bool {
		return opts.AdminID != 0 && u != nil && u.ID == opts.AdminID
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if isAdmin(c.Sender()) {
				return next(c)
			}
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelInfo, "admin.rejected",
				slog.String("payload", logger.SanitizeLimit(c.Text(), 64)),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
