package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
	"github.com/m3rciful/spotdl-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the global chain in the order it is applied:
// panic recovery, the per-user rate limit when configured, update logging,
// then reply counting.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if rl := rateLimitFrom(cfg, onLimited); rl != nil {
		chain = append(chain, Middleware{Name: "rate_limit", Use: rl})
	}
	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

func rateLimitFrom(cfg *coreconfig.Config, onLimited tele.HandlerFunc) tele.MiddlewareFunc {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return nil
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[kind] = struct{}{}
	}
	return middleware.RateLimitMiddleware(middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	})
}
