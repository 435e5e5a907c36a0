package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/spotdl-bot/core/telegram"
	"github.com/m3rciful/spotdl-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions names the handlers for text and documents nothing else claims.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// guarded applies the recovery and update logging every route runs under.
func guarded(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// summarized logs one handler.handled line per call of fn under name. A nil
// fn is logged as skipped.
func summarized(name string, fn tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		if fn == nil {
			logHandlerSummary(c, name, start, "skip", "ok", nil)
			return nil
		}
		return handleWithSummary(c, name, start, "", "", func() error { return fn(c) })
	}
}

// resolveText picks the handler for a text message. Slash commands resolve
// through the registry, including aliases, but admin-only commands only
// answer on their own command route. Plain text goes to the text fallback.
func resolveText(reg *tg.Registry, opts TextOptions, text string) (string, tele.HandlerFunc) {
	if strings.HasPrefix(text, "/") {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(commandWord(text)); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return normalizeHandlerName(key), cmd.Handler
			}
		}
		return "unknown_text", opts.UnknownText
	}
	if reg != nil {
		if fb := reg.TextFallback(); fb != nil {
			return "fallback", fb
		}
	}
	return "unknown_text", opts.UnknownText
}

// TextRoutes returns the OnText and OnDocument routes.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	onText := func(c tele.Context) error {
		name, fn := resolveText(reg, opts, c.Text())
		return summarized(name, fn)(c)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: guarded(onText)},
		{Endpoint: tele.OnDocument, Handler: guarded(summarized("unexpected_document", opts.UnknownDocument))},
	}
}

// commandWord returns the lowercased command of a line without its
// arguments or @botname suffix.
func commandWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}
