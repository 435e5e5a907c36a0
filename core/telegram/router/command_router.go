package router

import (
	"log/slog"
	"sort"

	"github.com/m3rciful/spotdl-bot/core/logger"
	tg "github.com/m3rciful/spotdl-bot/core/telegram"
	"github.com/m3rciful/spotdl-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the admin gate of admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command. Each handler is
// logged with a summary line; admin-only commands are gated first.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	defs := reg.Commands()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	routes := make([]tg.Route, 0, len(names))
	for _, name := range names {
		def := defs[name]
		h := guarded(summarized(normalizeHandlerName(name), def.Handler))
		if def.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
	}

	logger.TWire.Info("routes wired",
		slog.String("event", "commands.wired"),
		slog.Int("commands", len(names)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
