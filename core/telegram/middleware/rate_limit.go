package middleware

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m3rciful/spotdl-bot/core/logger"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const defaultTrackedUsers = 4096

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds that bypass the limit: message, callback,
	// inline_query or other.
	Exclude map[string]struct{}
	// TrackedUsers caps how many users are remembered at once.
	TrackedUsers int
	OnLimited    tele.HandlerFunc
}

// UpdateKind names the kind of update c carries.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware drops updates that arrive less than Interval after the
// previous accepted update of the same user. Entries expire after Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.TrackedUsers <= 0 {
		opts.TrackedUsers = defaultTrackedUsers
	}
	var seen *expirable.LRU[int64, struct{}]
	if opts.Interval > 0 {
		seen = expirable.NewLRU[int64, struct{}](opts.TrackedUsers, nil, opts.Interval)
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if seen == nil || user == nil {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if seen.Contains(user.ID) {
				logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "tg.rate_limit",
					slog.String("kind", kind),
					slog.Duration("interval", opts.Interval),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			seen.Add(user.ID, struct{}{})
			return next(c)
		}
	}
}
