package router

import (
	tg "github.com/m3rciful/spotdl-bot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Fallbacks answers updates that no registered handler claims.
type Fallbacks interface {
	// UnknownText answers unknown slash commands.
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Options configures All.
type Options struct {
	AdminID   int64
	Fallbacks Fallbacks
}

// All returns the command, text, document and callback routes for reg.
// Rejected admin commands are answered like unknown ones.
func All(reg *tg.Registry, opts Options) []tg.Route {
	var text, doc, cb tele.HandlerFunc
	if fb := opts.Fallbacks; fb != nil {
		text, doc, cb = fb.UnknownText(), fb.UnknownDocument(), fb.UnknownCallback()
		reg.SetCallbackNotFound(cb)
	}
	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: opts.AdminID, OnAdminReject: text})
	routes = append(routes, TextRoutes(reg, TextOptions{UnknownText: text, UnknownDocument: doc})...)
	return append(routes, CallbackRoute(reg, CallbackOptions{NotFound: cb}))
}
