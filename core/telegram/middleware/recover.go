package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/spotdl-bot/core/logger"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// maxStack bounds the stack trace written with a recovered panic.
const maxStack = 4096

// PanicError is returned in place of a recovered handler panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Code implements the coded error interface used in handler summaries.
func (e *PanicError) Code() string { return "PANIC" }

// RecoverMiddleware turns a handler panic into a *PanicError.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()
			if len(stack) > maxStack {
				stack = stack[:maxStack]
			}
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelError, "tg.panic",
				slog.Any("err", r),
				slog.String("stack", string(stack)),
			)
			err = &PanicError{Value: r}
		}()
		return next(c)
	}
}
