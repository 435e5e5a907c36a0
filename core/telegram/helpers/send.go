package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d. Nil sends inline.
func SetDispatcher(d *sender.Dispatcher) { dispatcher.Store(d) }

// queued hands run to the dispatcher. A full or closed queue degrades to an
// inline call so the reply is not lost.
func queued(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText queues a plain text reply to the current chat.
func SendText(c tele.Context, text string, opts ...any) error {
	return queued(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts...)
	})
}
