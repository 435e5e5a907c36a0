package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/spotdl-bot/core/telegram"
	"github.com/m3rciful/spotdl-bot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions configures CallbackRoute.
type CallbackOptions struct {
	// NotFound answers callbacks with no registered unique. The registry's
	// own not-found handler takes precedence.
	NotFound tele.HandlerFunc
}

// answerTracker notes whether the handler answered the query itself.
type answerTracker struct {
	tele.Context
	answered *bool
}

func (a answerTracker) Respond(resp ...*tele.CallbackResponse) error {
	*a.answered = true
	return a.Context.Respond(resp...)
}

func (a answerTracker) RespondText(text string) error {
	return a.Respond(&tele.CallbackResponse{Text: text})
}

func (a answerTracker) RespondAlert(text string) error {
	return a.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
}

// CallbackRoute returns the OnCallback route. Callbacks are dispatched by
// unique; a query the handler leaves unanswered gets an empty answer so the
// client stops its spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	onCallback := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		start := time.Now()
		key := callbacks.From(c).Unique
		extras := []slog.Attr{slog.String("cb_key", key)}

		answered := false
		tracked := answerTracker{Context: c, answered: &answered}
		defer func() {
			if !answered {
				_ = c.Respond()
			}
		}()

		fn, ok := reg.GetCallback(key)
		if !ok || fn == nil {
			extras = append(extras, slog.String("reason", "not_found"))
			if fn = reg.CallbackNotFound(); fn == nil {
				fn = opts.NotFound
			}
		}
		return handleWithSummary(tracked, "callback."+normalizeHandlerName(key), start, "", "", func() error {
			if fn == nil {
				return nil
			}
			return fn(tracked)
		}, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: guarded(onCallback)}
}
