package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "reply_counters"

// replyCounters tracks what a handler sent while serving one update.
type replyCounters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

func (rc *replyCounters) record(opts []any, err error) error {
	if err != nil {
		return err
	}
	rc.messages.Add(1)
	if carriesKeyboard(opts) {
		rc.keyboard.Store(true)
	}
	return nil
}

func carriesKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// countingContext counts successful outgoing calls made through it.
type countingContext struct {
	tele.Context
	rc *replyCounters
}

func (m countingContext) Send(what any, opts ...any) error {
	return m.rc.record(opts, m.Context.Send(what, opts...))
}

func (m countingContext) Reply(what any, opts ...any) error {
	return m.rc.record(opts, m.Context.Reply(what, opts...))
}

func (m countingContext) Edit(what any, opts ...any) error {
	return m.rc.record(opts, m.Context.Edit(what, opts...))
}

func (m countingContext) EditOrSend(what any, opts ...any) error {
	return m.rc.record(opts, m.Context.EditOrSend(what, opts...))
}

func (m countingContext) EditOrReply(what any, opts ...any) error {
	return m.rc.record(opts, m.Context.EditOrReply(what, opts...))
}

// MessageMetricsMiddleware counts the replies a handler makes so the
// handler summary can report them.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		rc := &replyCounters{}
		c.Set(countersKey, rc)
		return next(countingContext{Context: c, rc: rc})
	}
}

// GetCounters returns how many replies were sent for the current update and
// whether any of them carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	rc, ok := c.Get(countersKey).(*replyCounters)
	if !ok || rc == nil {
		return 0, false
	}
	return int(rc.messages.Load()), rc.keyboard.Load()
}
